package history

import "time"

const (
	StatusSuccess      = "success"
	StatusError        = "error"
	StatusTerminated   = "terminated"
	StatusLaunchFailed = "launch_failed"
)

// RunRecord is one line of the run history.
type RunRecord struct {
	ID        string    `json:"id"`
	Target    string    `json:"target"`
	Policy    string    `json:"policy"`
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`
	Status    string    `json:"status"`
	ExitCode  int       `json:"exitCode"`
	PID       int       `json:"pid,omitempty"`
	Error     string    `json:"error,omitempty"`
}

func (r RunRecord) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.EndedAt.Before(r.StartedAt) {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}
