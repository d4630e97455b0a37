package config

import (
	"errors"
	"fmt"
	"time"

	"scripttimer/internal/logx"
	"scripttimer/internal/scheduler"
)

const (
	DefaultKillGrace  = 5 * time.Second
	DefaultMaxEntries = 500
)

type Config struct {
	Logging LoggingConfig `json:"logging"`
	Process ProcessConfig `json:"process"`
	History HistoryConfig `json:"history"`
	Notify  NotifyConfig  `json:"notify"`
}

type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level   string        `json:"level"`
	Console bool          `json:"console"`
	File    LogFileConfig `json:"file"`
}

type LogFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// ProcessConfig durations are Go duration strings (e.g. "5s", "1m").
type ProcessConfig struct {
	// KillGrace is how long a terminated script gets before it is killed.
	// "0s" disables the kill.
	KillGrace string `json:"kill_grace"`
	// Overlap is the default repeat-every overlap mode.
	Overlap string `json:"overlap"`
}

type HistoryConfig struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path"`
	MaxEntries int    `json:"max_entries"`
}

type NotifyConfig struct {
	Enabled bool `json:"enabled"`
}

// Default is the configuration used when no file exists. Fields missing from
// a file keep these values.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Console: true},
		Process: ProcessConfig{KillGrace: DefaultKillGrace.String(), Overlap: string(scheduler.OverlapAllow)},
		History: HistoryConfig{MaxEntries: DefaultMaxEntries},
	}
}

func (c *Config) Validate() error {
	var errs []error
	if !logx.ValidLevel(c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}
	if _, err := ParseDurationField("process.kill_grace", c.Process.KillGrace); err != nil {
		errs = append(errs, err)
	}
	if _, err := scheduler.ParseOverlap(c.Process.Overlap); err != nil {
		errs = append(errs, fmt.Errorf("process.overlap: %w", err))
	}
	if c.History.MaxEntries < 0 {
		errs = append(errs, fmt.Errorf("history.max_entries: must be >= 0"))
	}
	return errors.Join(errs...)
}

// KillGrace returns the parsed process.kill_grace. An empty value means the
// default; call Validate first to surface parse errors.
func (c *Config) KillGrace() time.Duration {
	if c.Process.KillGrace == "" {
		return DefaultKillGrace
	}
	d, err := ParseDurationField("process.kill_grace", c.Process.KillGrace)
	if err != nil {
		return DefaultKillGrace
	}
	return d
}

func (c *Config) OverlapMode() scheduler.Overlap {
	mode, err := scheduler.ParseOverlap(c.Process.Overlap)
	if err != nil {
		return scheduler.OverlapAllow
	}
	return mode
}

func (c *Config) LogxConfig() logx.Config {
	return logx.Config{
		Level:   c.Logging.Level,
		Console: c.Logging.Console,
		File: logx.FileConfig{
			Enabled: c.Logging.File.Enabled,
			Path:    c.Logging.File.Path,
		},
	}
}
