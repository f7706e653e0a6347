// internal/domain/boss/boss.go
package boss

import (
	"fmt"
	"time"
)

// Parity selects odd or even wall-clock hours for a ParityMinute rule.
type Parity int

const (
	ParityEven Parity = iota
	ParityOdd
)

func (p Parity) String() string {
	switch p {
	case ParityOdd:
		return "odd"
	case ParityEven:
		return "even"
	default:
		return fmt.Sprintf("parity(%d)", int(p))
	}
}

func (p Parity) valid() bool { return p == ParityOdd || p == ParityEven }

// Rule is a recurrence rule evaluated against a wall-clock (hour, minute).
// Implementations are FixedMinute and ParityMinute; the set is closed.
type Rule interface {
	matches(hour, minute int) bool
	minuteOf() int
	String() string
}

// FixedMinute fires every hour at Minute.
type FixedMinute struct {
	Minute int
}

func (r FixedMinute) matches(_, minute int) bool { return minute == r.Minute }
func (r FixedMinute) minuteOf() int              { return r.Minute }
func (r FixedMinute) String() string             { return fmt.Sprintf("every hour at :%02d", r.Minute) }

// ParityMinute fires every two hours at Minute, only in hours of the given parity.
type ParityMinute struct {
	Parity Parity
	Minute int
}

func (r ParityMinute) matches(hour, minute int) bool {
	if minute != r.Minute {
		return false
	}
	if r.Parity == ParityOdd {
		return hour%2 == 1
	}
	return hour%2 == 0
}
func (r ParityMinute) minuteOf() int { return r.Minute }
func (r ParityMinute) String() string {
	return fmt.Sprintf("%s hours at :%02d", r.Parity, r.Minute)
}

// Definition describes one recurring boss. Location is optional.
type Definition struct {
	Name     string
	Location string
	Rule     Rule
}

// Occurrence is a concrete instant at which a boss spawns.
type Occurrence struct {
	Boss Definition
	At   time.Time
}

// Key identifies an occurrence for alert deduplication.
func (o Occurrence) Key() string {
	return o.Boss.Name + "@" + o.At.UTC().Format(time.RFC3339)
}
