package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/awgman/awgman/pkg/observability"
)

// resyncTimeout bounds one full resync pass. Individual peer commands carry
// their own timeouts; this is a backstop for very large user sets.
const resyncTimeout = 5 * time.Minute

// Resyncer periodically re-asserts stored users as interface peers so the
// live peer table converges back to the store after interface restarts.
type Resyncer struct {
	cron    *cron.Cron
	manager *Manager
	logger  *observability.Logger
}

// NewResyncer schedules Manager.Resync on a cron schedule (e.g. "@every 1h"
// or "*/30 * * * *"). The job does not run until Start is called.
func NewResyncer(manager *Manager, schedule string, logger *observability.Logger) (*Resyncer, error) {
	r := &Resyncer{
		cron:    cron.New(),
		manager: manager,
		logger:  logger,
	}

	if _, err := r.cron.AddFunc(schedule, r.run); err != nil {
		return nil, fmt.Errorf("invalid resync schedule %q: %w", schedule, err)
	}
	return r, nil
}

func (r *Resyncer) run() {
	ctx, cancel := context.WithTimeout(context.Background(), resyncTimeout)
	defer cancel()

	r.logger.Info("peer resync started")
	if err := r.manager.Resync(ctx); err != nil {
		r.logger.WithError(err).Error("peer resync finished with errors")
		return
	}
	r.logger.Info("peer resync complete")
}

// Start begins running the schedule.
func (r *Resyncer) Start() {
	r.cron.Start()
}

// Stop halts the schedule and waits for a running pass to finish, bounded
// by ctx.
func (r *Resyncer) Stop(ctx context.Context) error {
	stopped := r.cron.Stop()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
