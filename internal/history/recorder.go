package history

import (
	"context"
	"errors"

	"scripttimer/internal/logx"
	"scripttimer/internal/scheduler"
)

// Recorder turns scheduler events into history records.
type Recorder struct {
	store      *Store
	maxEntries int
	log        logx.Logger
}

func NewRecorder(store *Store, maxEntries int, log logx.Logger) *Recorder {
	return &Recorder{store: store, maxEntries: maxEntries, log: log.With(logx.String("component", "history"))}
}

// Run records events until ctx is done or events is closed, pruning the
// file on the way in and out.
func (r *Recorder) Run(ctx context.Context, events <-chan scheduler.Event) {
	r.prune()
	defer r.prune()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			rec, ok := RecordFromEvent(e)
			if !ok {
				continue
			}
			if err := r.store.AppendLog(rec); err != nil {
				r.log.Warn("append history failed", logx.Err(err))
			}
		}
	}
}

func (r *Recorder) prune() {
	dropped, err := r.store.PruneLogs(r.maxEntries)
	if err != nil {
		r.log.Warn("prune history failed", logx.Err(err))
		return
	}
	if dropped > 0 {
		r.log.Debug("history pruned", logx.Int("dropped", dropped))
	}
}

// RecordFromEvent maps exit and launch-failure events to a record.
func RecordFromEvent(e scheduler.Event) (RunRecord, bool) {
	switch e.Kind {
	case scheduler.EventExited:
		rec := RunRecord{
			ID:        e.RunID,
			Target:    e.Target,
			Policy:    e.Policy,
			StartedAt: e.StartedAt,
			EndedAt:   e.Time,
			ExitCode:  e.ExitCode,
			PID:       e.PID,
			Status:    StatusSuccess,
		}
		switch {
		case e.Terminated:
			rec.Status = StatusTerminated
		case e.ExitCode != 0:
			rec.Status = StatusError
			rec.Error = e.Message
		}
		return rec, true
	case scheduler.EventLaunchFailed:
		rec := RunRecord{
			ID:        scheduler.NewID(),
			Target:    e.Target,
			Policy:    e.Policy,
			StartedAt: e.Time,
			EndedAt:   e.Time,
			ExitCode:  -1,
			Status:    StatusLaunchFailed,
		}
		var lerr *scheduler.LaunchError
		if errors.As(e.Err, &lerr) {
			rec.Error = lerr.Err.Error()
		} else if e.Err != nil {
			rec.Error = e.Err.Error()
		}
		return rec, true
	default:
		return RunRecord{}, false
	}
}
