package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWriterLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "debug").With(String("component", "scheduler"))

	log.Info("launched", Int("pid", 42), Duration("after", 2*time.Second), Err(errors.New("boom")))

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if rec["message"] != "launched" {
		t.Fatalf("message = %v, want launched", rec["message"])
	}
	if rec["component"] != "scheduler" {
		t.Fatalf("component = %v, want scheduler", rec["component"])
	}
	if rec["pid"] != float64(42) {
		t.Fatalf("pid = %v, want 42", rec["pid"])
	}
	if _, ok := rec["caller"]; !ok {
		t.Fatalf("expected caller field in %v", rec)
	}
}

func TestWriterLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "warn")

	log.Debug("hidden")
	log.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below warn, got %q", buf.String())
	}
	if log.Enabled(LevelInfo) {
		t.Fatal("info should not be enabled at warn level")
	}
	log.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("expected warn line, got %q", buf.String())
	}
}

func TestZeroLoggerIsNoop(t *testing.T) {
	var log Logger
	if !log.IsZero() {
		t.Fatal("zero logger should report IsZero")
	}
	log.Info("nothing happens", String("k", "v"))
	Nop().Error("nothing happens either")
}

func TestServiceApplyFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scripttimer.log")
	svc, log := New(Config{Level: "info", File: FileConfig{Enabled: true, Path: path}})
	defer svc.Close()

	log.Info("first")
	log.Debug("skipped")

	svc.Apply(Config{Level: "debug", File: FileConfig{Enabled: true, Path: path}})
	log.Debug("second")

	if err := svc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, `"first"`) || !strings.Contains(text, `"second"`) {
		t.Fatalf("expected both lines, got %q", text)
	}
	if strings.Contains(text, "skipped") {
		t.Fatalf("debug line leaked before level change: %q", text)
	}
	if got := svc.Config().Level; got != "debug" {
		t.Fatalf("Config().Level = %q, want debug", got)
	}
}

func TestValidLevel(t *testing.T) {
	for _, lvl := range []string{"", "trace", "DEBUG", "info", "warning", "error"} {
		if !ValidLevel(lvl) {
			t.Fatalf("ValidLevel(%q) = false", lvl)
		}
	}
	if ValidLevel("loud") {
		t.Fatal("ValidLevel(loud) = true")
	}
}
