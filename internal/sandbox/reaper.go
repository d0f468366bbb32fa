package sandbox

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// ReapableProvider is a Provider that can enumerate its sandboxes.
type ReapableProvider interface {
	Provider
	Lister
}

// Reaper destroys sandboxes whose inactivity timeout has passed, including
// those no run will ever connect to again.
type Reaper struct {
	provider ReapableProvider
	interval time.Duration
	logger   logrus.FieldLogger
}

// NewReaper creates a Reaper that sweeps every interval.
func NewReaper(provider ReapableProvider, interval time.Duration, logger logrus.FieldLogger) *Reaper {
	if provider == nil {
		panic("provider is required")
	}
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Reaper{provider: provider, interval: interval, logger: logger}
}

// Start sweeps until ctx is cancelled.
func (r *Reaper) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, err := r.Reap(ctx); err != nil && ctx.Err() == nil {
			r.logger.WithError(err).Warn("sandbox sweep failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Reap removes every sandbox that reports itself unavailable and returns the
// removed ids. A sandbox that cannot be checked is left for the next sweep.
func (r *Reaper) Reap(ctx context.Context) ([]string, error) {
	ids, err := r.provider.List(ctx)
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, id := range ids {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		log := r.logger.WithField("sandbox_id", id)

		_, err := r.provider.Connect(ctx, id)
		if err == nil {
			continue
		}
		var unavailable *SandboxUnavailableError
		if !errors.As(err, &unavailable) {
			log.WithError(err).Warn("failed to check sandbox")
			continue
		}
		if err := r.provider.Remove(ctx, id); err != nil {
			log.WithError(err).Warn("failed to remove expired sandbox")
			continue
		}
		log.Info("expired sandbox removed")
		removed = append(removed, id)
	}
	return removed, nil
}
