package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/pickit-labs/pickit/internal/store"
)

// Scheduler runs the periodic durable-state flush. The in-memory record
// is always authoritative; the flush bounds how stale the cache can get
// between write-through saves.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler creates the maintenance scheduler with the flush job
// registered at the given interval.
func NewScheduler(st *store.Store, interval time.Duration) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create gocron scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			st.Flush()
			slog.Debug("durable state flushed")
		}),
		gocron.WithName("state-flush"),
	)
	if err != nil {
		return nil, fmt.Errorf("create flush job: %w", err)
	}

	return &Scheduler{scheduler: s}, nil
}

// Start begins the scheduler.
func (s *Scheduler) Start(_ context.Context) {
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	return s.scheduler.Shutdown()
}
