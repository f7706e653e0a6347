package config

import (
	"fmt"
	"os"
	"strings"

	"boss_alert_bot/internal/domain/boss"

	"go.yaml.in/yaml/v3"
)

// scheduleFile is the on-disk boss table, e.g.
//
//	bosses:
//	  - name: 그루트킹
//	    minute: 0
//	  - name: 아절 브루트
//	    hours: odd
//	    minute: 10
type scheduleFile struct {
	Bosses []scheduleEntry `yaml:"bosses"`
}

type scheduleEntry struct {
	Name     string `yaml:"name"`
	Location string `yaml:"location"`
	Hours    string `yaml:"hours"` // every (default) | odd | even
	Minute   *int   `yaml:"minute"`
}

// LoadSchedule reads the boss table from path, or returns the built-in table
// when path is empty. The result still has to pass boss.NewSchedule.
func LoadSchedule(path string) ([]boss.Definition, error) {
	if path == "" {
		return boss.DefaultTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read boss schedule: %w", err)
	}
	return ParseSchedule(data)
}

func ParseSchedule(data []byte) ([]boss.Definition, error) {
	var f scheduleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse boss schedule: %w", err)
	}

	defs := make([]boss.Definition, 0, len(f.Bosses))
	for i, e := range f.Bosses {
		if e.Minute == nil {
			return nil, fmt.Errorf("boss schedule entry %d (%q): minute is required", i, e.Name)
		}
		def := boss.Definition{Name: strings.TrimSpace(e.Name), Location: strings.TrimSpace(e.Location)}

		switch strings.ToLower(strings.TrimSpace(e.Hours)) {
		case "", "every", "all":
			def.Rule = boss.FixedMinute{Minute: *e.Minute}
		case "odd", "홀수":
			def.Rule = boss.ParityMinute{Parity: boss.ParityOdd, Minute: *e.Minute}
		case "even", "짝수":
			def.Rule = boss.ParityMinute{Parity: boss.ParityEven, Minute: *e.Minute}
		default:
			return nil, fmt.Errorf("boss schedule entry %d (%q): unknown hours %q", i, e.Name, e.Hours)
		}
		defs = append(defs, def)
	}
	return defs, nil
}
