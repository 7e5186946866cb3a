package history

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const purgeTimeout = 30 * time.Second

// Retention periodically deletes records older than MaxAge.
type Retention struct {
	store  Store
	maxAge time.Duration
	now    func() time.Time
	cron   *cron.Cron
}

// NewRetention schedules a purge of store on the given cron spec.
// Descriptors such as "@hourly" and "@every 10m" are accepted.
func NewRetention(store Store, spec string, maxAge time.Duration) (*Retention, error) {
	if maxAge <= 0 {
		return nil, fmt.Errorf("retention must be positive, got %s", maxAge)
	}

	r := &Retention{
		store:  store,
		maxAge: maxAge,
		now:    time.Now,
		cron:   cron.New(),
	}
	if _, err := r.cron.AddFunc(spec, r.run); err != nil {
		return nil, fmt.Errorf("invalid purge schedule %q: %w", spec, err)
	}
	return r, nil
}

// Start runs the scheduler in its own goroutine.
func (r *Retention) Start() {
	r.cron.Start()
	log.Info().Dur("max_age", r.maxAge).Msg("History retention scheduler started")
}

// Stop halts the scheduler and waits for a running purge to finish.
func (r *Retention) Stop() {
	<-r.cron.Stop().Done()
}

// PurgeOnce deletes everything older than the retention window.
func (r *Retention) PurgeOnce(ctx context.Context) (int64, error) {
	return r.store.Purge(ctx, r.now().Add(-r.maxAge))
}

func (r *Retention) run() {
	ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
	defer cancel()

	n, err := r.PurgeOnce(ctx)
	if err != nil {
		log.Error().Err(err).Msg("History purge failed")
		return
	}
	if n > 0 {
		log.Info().Int64("deleted", n).Msg("Purged old generation records")
	}
}
