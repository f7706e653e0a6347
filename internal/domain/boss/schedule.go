package boss

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	// AlertLeadMinutes is how far ahead of a spawn the alert goes out.
	AlertLeadMinutes = 1
	// DisplayHorizonMinutes covers the upcoming hour shown to users.
	DisplayHorizonMinutes = 59
	// MaxScanMinutes bounds every forward scan.
	MaxScanMinutes = 24 * 60
)

var (
	ErrInvalidRule     = errors.New("invalid boss rule")
	ErrRuleCollision   = errors.New("boss rules collide")
	ErrUnreachableRule = errors.New("boss rule never fires within 24h")
)

// Schedule is a validated, immutable boss table bound to the wall clock of loc.
// All methods are pure and safe for concurrent use.
type Schedule struct {
	bosses       []Definition
	fixedMinutes map[int]bool
	loc          *time.Location
}

// NewSchedule validates defs and returns a Schedule evaluating hours in loc.
// A nil loc means time.Local.
func NewSchedule(defs []Definition, loc *time.Location) (*Schedule, error) {
	if loc == nil {
		loc = time.Local
	}
	s := &Schedule{
		bosses:       append([]Definition(nil), defs...),
		fixedMinutes: make(map[int]bool),
		loc:          loc,
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Schedule) validate() error {
	if len(s.bosses) == 0 {
		return fmt.Errorf("%w: schedule table is empty", ErrInvalidRule)
	}

	fixed := make(map[int]string)
	parity := make(map[ParityMinute]string)
	names := make(map[string]bool)

	for i, def := range s.bosses {
		if strings.TrimSpace(def.Name) == "" {
			return fmt.Errorf("%w: entry %d has no name", ErrInvalidRule, i)
		}
		if names[def.Name] {
			return fmt.Errorf("%w: duplicate boss name %q", ErrInvalidRule, def.Name)
		}
		names[def.Name] = true

		switch r := def.Rule.(type) {
		case FixedMinute:
			if r.Minute < 0 || r.Minute > 59 {
				return fmt.Errorf("%w: %q minute %d out of range", ErrInvalidRule, def.Name, r.Minute)
			}
			if other, ok := fixed[r.Minute]; ok {
				return fmt.Errorf("%w: %q and %q both fire every hour at :%02d", ErrRuleCollision, other, def.Name, r.Minute)
			}
			fixed[r.Minute] = def.Name
			s.fixedMinutes[r.Minute] = true
		case ParityMinute:
			if r.Minute < 0 || r.Minute > 59 {
				return fmt.Errorf("%w: %q minute %d out of range", ErrInvalidRule, def.Name, r.Minute)
			}
			if !r.Parity.valid() {
				return fmt.Errorf("%w: %q has unknown parity %d", ErrInvalidRule, def.Name, int(r.Parity))
			}
			if other, ok := parity[r]; ok {
				return fmt.Errorf("%w: %q and %q both fire in %s", ErrRuleCollision, other, def.Name, r)
			}
			parity[r] = def.Name
		case nil:
			return fmt.Errorf("%w: %q has no rule", ErrInvalidRule, def.Name)
		default:
			return fmt.Errorf("%w: %q has unsupported rule %T", ErrInvalidRule, def.Name, def.Rule)
		}
	}

	// A parity rule sitting on a fixed minute is always shadowed and never fires.
	ref := time.Date(2000, time.January, 1, 0, 0, 0, 0, s.loc)
	for _, def := range s.bosses {
		if _, ok := s.scan(def, ref, MaxScanMinutes); !ok {
			return fmt.Errorf("%w: %q (%s)", ErrUnreachableRule, def.Name, def.Rule)
		}
	}
	return nil
}

// Location returns the zone whose wall clock the rules are evaluated in.
func (s *Schedule) Location() *time.Location { return s.loc }

// Bosses returns a copy of the boss table in declaration order.
func (s *Schedule) Bosses() []Definition {
	return append([]Definition(nil), s.bosses...)
}

func (s *Schedule) matches(def Definition, t time.Time) bool {
	if p, ok := def.Rule.(ParityMinute); ok && s.fixedMinutes[p.Minute] {
		return false
	}
	return def.Rule.matches(t.Hour(), t.Minute())
}

// scan walks forward one minute at a time from start (exclusive).
func (s *Schedule) scan(def Definition, start time.Time, horizon int) (time.Time, bool) {
	for k := 1; k <= horizon; k++ {
		t := start.Add(time.Duration(k) * time.Minute)
		if s.matches(def, t) {
			return t, true
		}
	}
	return time.Time{}, false
}

func (s *Schedule) minuteOf(now time.Time) time.Time {
	return now.In(s.loc).Truncate(time.Minute)
}

// OccurrencesInWindow returns the first occurrence of every boss that falls in
// (now, now+horizonMinutes], ordered by time. Seconds in now are ignored when
// picking candidate minutes. The horizon is clamped to MaxScanMinutes.
func (s *Schedule) OccurrencesInWindow(now time.Time, horizonMinutes int) []Occurrence {
	if horizonMinutes <= 0 {
		return nil
	}
	if horizonMinutes > MaxScanMinutes {
		horizonMinutes = MaxScanMinutes
	}

	start := s.minuteOf(now)
	out := make([]Occurrence, 0, len(s.bosses))
	for _, def := range s.bosses {
		if at, ok := s.scan(def, start, horizonMinutes); ok {
			out = append(out, Occurrence{Boss: def, At: at})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out
}

// AlertTarget reports the boss spawning exactly AlertLeadMinutes after the
// minute containing now. Fixed-minute rules win over parity rules.
func (s *Schedule) AlertTarget(now time.Time) (Occurrence, bool) {
	target := s.minuteOf(now).Add(AlertLeadMinutes * time.Minute)

	for _, def := range s.bosses {
		if _, ok := def.Rule.(FixedMinute); ok && s.matches(def, target) {
			return Occurrence{Boss: def, At: target}, true
		}
	}
	for _, def := range s.bosses {
		if _, ok := def.Rule.(ParityMinute); ok && s.matches(def, target) {
			return Occurrence{Boss: def, At: target}, true
		}
	}
	return Occurrence{}, false
}

// Upcoming lists the bosses due within the next hour, soonest first.
func (s *Schedule) Upcoming(now time.Time) []Occurrence {
	return s.OccurrencesInWindow(now, DisplayHorizonMinutes)
}
