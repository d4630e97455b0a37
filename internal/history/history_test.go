package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scripttimer/internal/logx"
	"scripttimer/internal/scheduler"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "state", "history.jsonl"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestAppendAndLoadNewestFirst(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		rec := RunRecord{Target: "/tmp/job.sh", Status: StatusSuccess, EndedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := store.AppendLog(rec); err != nil {
			t.Fatalf("AppendLog: %v", err)
		}
	}

	entries, err := store.LoadLogs(2)
	if err != nil {
		t.Fatalf("LoadLogs: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if !entries[0].EndedAt.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("first entry ended at %v, want newest", entries[0].EndedAt)
	}
	if entries[0].ID == "" {
		t.Fatal("AppendLog should assign an ID")
	}
}

func TestLoadMissingFile(t *testing.T) {
	store := newTestStore(t)
	entries, err := store.LoadLogs(0)
	if err != nil {
		t.Fatalf("LoadLogs: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("entries = %d, want 0", len(entries))
	}
}

func TestLoadSkipsCorruptLines(t *testing.T) {
	store := newTestStore(t)
	if err := store.AppendLog(RunRecord{Status: StatusSuccess}); err != nil {
		t.Fatalf("AppendLog: %v", err)
	}
	f, err := os.OpenFile(store.Logs, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	f.WriteString("{not json\n\n")
	f.Close()

	entries, err := store.LoadLogs(0)
	if err != nil {
		t.Fatalf("LoadLogs: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
}

func TestLoadHandlesOversizedLines(t *testing.T) {
	store := newTestStore(t)
	long := strings.Repeat("x", 200*1024)
	if err := store.AppendLog(RunRecord{Status: StatusError, Error: long, EndedAt: time.Unix(100, 0)}); err != nil {
		t.Fatalf("AppendLog: %v", err)
	}
	f, err := os.OpenFile(store.Logs, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	f.WriteString("{\"status\":\"" + long + "\n")
	f.Close()
	if err := store.AppendLog(RunRecord{Status: StatusSuccess, EndedAt: time.Unix(200, 0)}); err != nil {
		t.Fatalf("AppendLog: %v", err)
	}

	entries, err := store.LoadLogs(0)
	if err != nil {
		t.Fatalf("LoadLogs: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[1].Error != long {
		t.Fatalf("oversized record error length = %d, want %d", len(entries[1].Error), len(long))
	}
	if _, err := store.PruneLogs(1); err != nil {
		t.Fatalf("PruneLogs: %v", err)
	}
}

func TestPruneKeepsNewest(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if err := store.AppendLog(RunRecord{ID: string(rune('a' + i)), EndedAt: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatalf("AppendLog: %v", err)
		}
	}

	dropped, err := store.PruneLogs(2)
	if err != nil {
		t.Fatalf("PruneLogs: %v", err)
	}
	if dropped != 3 {
		t.Fatalf("dropped = %d, want 3", dropped)
	}
	entries, err := store.LoadLogs(0)
	if err != nil {
		t.Fatalf("LoadLogs: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != "e" || entries[1].ID != "d" {
		t.Fatalf("entries after prune = %+v", entries)
	}

	if dropped, err := store.PruneLogs(10); err != nil || dropped != 0 {
		t.Fatalf("PruneLogs(10) = %d, %v", dropped, err)
	}
}

func TestRecordFromEvent(t *testing.T) {
	start := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Minute)

	cases := []struct {
		name   string
		event  scheduler.Event
		status string
		errMsg string
	}{
		{"success", scheduler.Event{Kind: scheduler.EventExited, RunID: "r1", StartedAt: start, Time: end}, StatusSuccess, ""},
		{"error", scheduler.Event{Kind: scheduler.EventExited, ExitCode: 2, Message: "Script exited with code 2", Time: end}, StatusError, "Script exited with code 2"},
		{"terminated", scheduler.Event{Kind: scheduler.EventExited, ExitCode: -1, Terminated: true, Time: end}, StatusTerminated, ""},
		{"launch", scheduler.Event{
			Kind: scheduler.EventLaunchFailed,
			Time: end,
			Err:  &scheduler.LaunchError{Path: "/tmp/x", Err: errors.New("permission denied")},
		}, StatusLaunchFailed, "permission denied"},
	}
	for _, tc := range cases {
		rec, ok := RecordFromEvent(tc.event)
		if !ok {
			t.Fatalf("%s: no record", tc.name)
		}
		if rec.Status != tc.status || rec.Error != tc.errMsg {
			t.Fatalf("%s: record = %+v", tc.name, rec)
		}
	}

	rec, _ := RecordFromEvent(cases[0].event)
	if rec.ID != "r1" || rec.Duration() != time.Minute {
		t.Fatalf("success record = %+v", rec)
	}
	if _, ok := RecordFromEvent(scheduler.Event{Kind: scheduler.EventArmed}); ok {
		t.Fatal("armed events should not be recorded")
	}
}

func TestRecorderRun(t *testing.T) {
	store := newTestStore(t)
	events := make(chan scheduler.Event, 4)
	events <- scheduler.Event{Kind: scheduler.EventLaunched}
	events <- scheduler.Event{Kind: scheduler.EventExited, RunID: "r1", Time: time.Now()}
	events <- scheduler.Event{Kind: scheduler.EventExited, RunID: "r2", Time: time.Now().Add(time.Second)}
	close(events)

	NewRecorder(store, 1, logx.Nop()).Run(context.Background(), events)

	entries, err := store.LoadLogs(0)
	if err != nil {
		t.Fatalf("LoadLogs: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "r2" {
		t.Fatalf("entries = %+v, want only r2 after prune", entries)
	}
}
