package scheduler

import (
	"fmt"
	"strings"
	"time"
)

type PolicyKind string

const (
	PolicyCloseAfter  PolicyKind = "close_after"
	PolicyRepeatEvery PolicyKind = "repeat_every"
	PolicyStartAt     PolicyKind = "start_at"
)

// Overlap decides what RepeatEvery does when a tick arrives while the
// previous instance is still running.
type Overlap string

const (
	OverlapAllow  Overlap = "allow"
	OverlapSkip   Overlap = "skip"
	OverlapSerial Overlap = "serial"
)

func ParseOverlap(value string) (Overlap, error) {
	switch Overlap(strings.ToLower(strings.TrimSpace(value))) {
	case "", OverlapAllow:
		return OverlapAllow, nil
	case OverlapSkip:
		return OverlapSkip, nil
	case OverlapSerial:
		return OverlapSerial, nil
	default:
		return "", fmt.Errorf("unknown overlap mode %q (use allow, skip or serial)", value)
	}
}

// TimeOfDay is a wall-clock hour and minute.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour <= 23 && t.Minute >= 0 && t.Minute <= 59
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

type Policy struct {
	Kind     PolicyKind    `json:"kind"`
	Duration time.Duration `json:"duration,omitempty"`
	Overlap  Overlap       `json:"overlap,omitempty"`
	At       TimeOfDay     `json:"at,omitempty"`
	Daily    bool          `json:"daily,omitempty"`
}

func CloseAfter(d time.Duration) Policy {
	return Policy{Kind: PolicyCloseAfter, Duration: d}
}

func RepeatEvery(d time.Duration, overlap Overlap) Policy {
	if overlap == "" {
		overlap = OverlapAllow
	}
	return Policy{Kind: PolicyRepeatEvery, Duration: d, Overlap: overlap}
}

func StartAt(at TimeOfDay, daily bool) Policy {
	return Policy{Kind: PolicyStartAt, At: at, Daily: daily}
}

func (p Policy) Validate() error {
	switch p.Kind {
	case PolicyCloseAfter, PolicyRepeatEvery:
		if p.Duration <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidDuration, p.Duration)
		}
		if p.Kind == PolicyRepeatEvery {
			if _, err := ParseOverlap(string(p.Overlap)); err != nil {
				return err
			}
		}
		return nil
	case PolicyStartAt:
		if !p.At.Valid() {
			return fmt.Errorf("%w: %02d:%02d is out of range", ErrInvalidTime, p.At.Hour, p.At.Minute)
		}
		return nil
	default:
		return fmt.Errorf("unknown policy kind: %q", p.Kind)
	}
}

func (p Policy) String() string {
	switch p.Kind {
	case PolicyCloseAfter:
		return fmt.Sprintf("close after %s", FormatDuration(p.Duration))
	case PolicyRepeatEvery:
		overlap := p.Overlap
		if overlap == "" {
			overlap = OverlapAllow
		}
		return fmt.Sprintf("repeat every %s (%s)", FormatDuration(p.Duration), overlap)
	case PolicyStartAt:
		if p.Daily {
			return fmt.Sprintf("daily at %s", p.At)
		}
		return fmt.Sprintf("once at %s", p.At)
	default:
		return string(p.Kind)
	}
}

// ProcessInfo describes one tracked child process.
type ProcessInfo struct {
	RunID     string    `json:"runId"`
	PID       int       `json:"pid"`
	Target    string    `json:"target"`
	StartedAt time.Time `json:"startedAt"`
}

// Snapshot is a consistent copy of scheduler state for display.
type Snapshot struct {
	Target    string        `json:"target"`
	Active    bool          `json:"active"`
	Policy    Policy        `json:"policy"`
	NextRun   time.Time     `json:"nextRun"`
	Processes []ProcessInfo `json:"processes"`
	Status    string        `json:"status"`
}

type EventKind string

const (
	EventTargetSet      EventKind = "target_set"
	EventPolicyStarted  EventKind = "policy_started"
	EventArmed          EventKind = "armed"
	EventLaunched       EventKind = "launched"
	EventLaunchFailed   EventKind = "launch_failed"
	EventSkipped        EventKind = "skipped"
	EventClosed         EventKind = "closed"
	EventExited         EventKind = "exited"
	EventPolicyFinished EventKind = "policy_finished"
	EventStopped        EventKind = "stopped"
)

// Event is one status change. Message is the human-readable status line.
type Event struct {
	Kind       EventKind
	Time       time.Time
	Message    string
	Target     string
	Policy     string
	RunID      string
	PID        int
	StartedAt  time.Time
	ExitCode   int
	Terminated bool
	Next       time.Time
	Err        error
}
