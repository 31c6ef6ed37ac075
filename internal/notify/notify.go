// Package notify is the fire-and-forget side-effect channel invoked when
// a job reaches READY. A notification failure must never block a
// lifecycle transition, so every error and panic is caught at the
// dispatcher boundary, logged and discarded. No retry; at most once per
// transition.
package notify

import (
	"log/slog"

	"github.com/pickit-labs/pickit/internal/logfields"
	"github.com/pickit-labs/pickit/internal/metrics"
)

// Target is one notification sink (chime, desktop alert, email, SMS).
type Target interface {
	Name() string
	Notify(jobID, fileName string) error
}

// Dispatcher fans a pickup alert out to all configured targets.
type Dispatcher struct {
	targets []Target
	rec     metrics.Recorder
}

// NewDispatcher creates a dispatcher. rec may be nil.
func NewDispatcher(rec metrics.Recorder, targets ...Target) *Dispatcher {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Dispatcher{targets: targets, rec: rec}
}

// Notify fires all targets. Never returns an error and never panics.
func (d *Dispatcher) Notify(jobID, fileName string) {
	for _, t := range d.targets {
		d.fire(t, jobID, fileName)
	}
}

func (d *Dispatcher) fire(t Target, jobID, fileName string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("notification target panicked", "target", t.Name(), "panic", r)
			d.rec.IncNotification(t.Name(), false)
		}
	}()
	if err := t.Notify(jobID, fileName); err != nil {
		slog.Warn("notification failed", "target", t.Name(),
			logfields.JobID(jobID), logfields.Error(err))
		d.rec.IncNotification(t.Name(), false)
		return
	}
	d.rec.IncNotification(t.Name(), true)
}
