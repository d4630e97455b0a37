package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scripttimer/internal/logx"
	"scripttimer/internal/scheduler"
)

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "info" || !cfg.Logging.Console {
		t.Fatalf("logging defaults = %+v", cfg.Logging)
	}
	if cfg.KillGrace() != DefaultKillGrace {
		t.Fatalf("KillGrace = %v, want %v", cfg.KillGrace(), DefaultKillGrace)
	}
	if cfg.OverlapMode() != scheduler.OverlapAllow {
		t.Fatalf("OverlapMode = %s", cfg.OverlapMode())
	}
	if cfg.History.Enabled || cfg.Notify.Enabled {
		t.Fatal("history and notify should be off by default")
	}
	if cfg.History.MaxEntries != DefaultMaxEntries {
		t.Fatalf("MaxEntries = %d", cfg.History.MaxEntries)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "logging:\n  level: debug\nprocess:\n  overlap: serial\nhistory:\n  enabled: true\n")

	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Console {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if cfg.OverlapMode() != scheduler.OverlapSerial {
		t.Fatalf("OverlapMode = %s", cfg.OverlapMode())
	}
	if cfg.KillGrace() != DefaultKillGrace {
		t.Fatalf("KillGrace = %v", cfg.KillGrace())
	}
	if !cfg.History.Enabled || cfg.History.MaxEntries != DefaultMaxEntries {
		t.Fatalf("history = %+v", cfg.History)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "")
	if _, err := NewManager(path).Load(); err != nil {
		t.Fatalf("Load empty: %v", err)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "logging:\n  colour: true\n")
	if _, err := NewManager(path).Load(); err == nil || !strings.Contains(err.Error(), "colour") {
		t.Fatalf("Load error = %v, want unknown field", err)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"logging.level":       func(c *Config) { c.Logging.Level = "loud" },
		"process.kill_grace":  func(c *Config) { c.Process.KillGrace = "-1s" },
		"process.overlap":     func(c *Config) { c.Process.Overlap = "queue" },
		"history.max_entries": func(c *Config) { c.History.MaxEntries = -1 },
	}
	for field, mutate := range cases {
		cfg := Default()
		mutate(cfg)
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), field) {
			t.Fatalf("%s: Validate error = %v", field, err)
		}
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestParseDurationField(t *testing.T) {
	if d, err := ParseDurationField("x", ""); err != nil || d != 0 {
		t.Fatalf("empty = %v, %v", d, err)
	}
	if d, err := ParseDurationField("x", " 1m30s "); err != nil || d != 90*time.Second {
		t.Fatalf("1m30s = %v, %v", d, err)
	}
	if _, err := ParseDurationField("process.kill_grace", "soon"); err == nil || !strings.Contains(err.Error(), "process.kill_grace") {
		t.Fatalf("bad duration error = %v", err)
	}
}

func TestKillGraceZeroDisables(t *testing.T) {
	cfg := Default()
	cfg.Process.KillGrace = "0s"
	if cfg.KillGrace() != 0 {
		t.Fatalf("KillGrace = %v, want 0", cfg.KillGrace())
	}
}

func TestWatchPublishesChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "logging:\n  level: info\n")

	m := NewManager(path)
	m.debounce = 20 * time.Millisecond
	m.SetLogger(logx.Nop())
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	updates := m.Subscribe(1)
	defer m.Unsubscribe(updates)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watchErr := make(chan error, 1)
	go func() { watchErr <- m.Watch(ctx) }()

	// Watch starts asynchronously, so keep rewriting until a reload lands.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case cfg := <-updates:
			if cfg.Logging.Level != "debug" {
				t.Fatalf("published level = %q, want debug", cfg.Logging.Level)
			}
			if m.Get().Logging.Level != "debug" {
				t.Fatal("Get should return the reloaded config")
			}
			cancel()
			if err := <-watchErr; err != nil {
				t.Fatalf("Watch: %v", err)
			}
			return
		case <-tick.C:
			writeConfig(t, path, "logging:\n  level: debug\n")
		case <-deadline:
			t.Fatal("timed out waiting for config reload")
		}
	}
}

func TestWatchIgnoresInvalidEdit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "logging:\n  level: info\n")

	m := NewManager(path)
	m.SetLogger(logx.Nop())
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	updates := m.Subscribe(1)
	defer m.Unsubscribe(updates)

	writeConfig(t, path, "logging:\n  level: loud\n")
	m.reload()
	select {
	case cfg := <-updates:
		t.Fatalf("invalid config published: %+v", cfg)
	default:
	}
	if m.Get().Logging.Level != "info" {
		t.Fatalf("level = %q, want previous info", m.Get().Logging.Level)
	}

	// Same content as committed: no publish.
	writeConfig(t, path, "logging:\n  level: info\n")
	m.reload()
	select {
	case cfg := <-updates:
		t.Fatalf("unchanged config published: %+v", cfg)
	default:
	}
}
