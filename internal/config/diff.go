package config

import (
	"reflect"
	"slices"
)

// ConfigDiff describes what changed between two configs. Only the log level
// can be applied to a running process; every other change is listed in
// RestartRequired by its top-level YAML key.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	RestartRequired []string
}

// Changed reports whether anything differs.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || len(d.RestartRequired) > 0
}

// Diff compares old and new configs.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.LogLevel != new.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.LogLevel
	}

	sections := []struct {
		key      string
		old, new any
	}{
		{"providers", old.Providers, new.Providers},
		{"grammar", old.Grammar, new.Grammar},
		{"coherence", old.Coherence, new.Coherence},
		{"judge", old.Judge, new.Judge},
		{"lexicon", old.Lexicon, new.Lexicon},
		{"batch", old.Batch, new.Batch},
		{"resilience", old.Resilience, new.Resilience},
		{"telemetry", old.Telemetry, new.Telemetry},
	}
	for _, s := range sections {
		if !reflect.DeepEqual(s.old, s.new) {
			d.RestartRequired = append(d.RestartRequired, s.key)
		}
	}
	slices.Sort(d.RestartRequired)
	return d
}
