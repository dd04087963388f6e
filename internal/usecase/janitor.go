package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/foroescolar/escuela-api/internal/infra/security"
)

// Janitor runs the periodic maintenance for the token pipeline on a single
// goroutine: blacklist resyncs against the durable store and negative-cache
// sweeps. One worker keeps the background load on the store bounded.
type Janitor struct {
	blacklist      *Blacklist
	negative       *security.NegativeCache
	resyncInterval time.Duration
	sweepInterval  time.Duration
	logger         *zap.Logger
}

// NewJanitor constructs the maintenance worker.
func NewJanitor(blacklist *Blacklist, negative *security.NegativeCache, resyncInterval, sweepInterval time.Duration, logger *zap.Logger) *Janitor {
	if resyncInterval <= 0 {
		resyncInterval = defaultSyncInterval
	}
	if sweepInterval <= 0 {
		sweepInterval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Janitor{
		blacklist:      blacklist,
		negative:       negative,
		resyncInterval: resyncInterval,
		sweepInterval:  sweepInterval,
		logger:         logger,
	}
}

// Run blocks until the context is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	resync := time.NewTicker(j.resyncInterval)
	defer resync.Stop()
	sweep := time.NewTicker(j.sweepInterval)
	defer sweep.Stop()

	j.logger.Info("janitor started",
		zap.Duration("resync_interval", j.resyncInterval),
		zap.Duration("sweep_interval", j.sweepInterval),
	)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("janitor stopped")
			return
		case <-resync.C:
			if err := j.blacklist.Resync(ctx); err != nil {
				j.logger.Warn("scheduled blacklist resync failed", zap.Error(err))
			}
		case <-sweep.C:
			if removed := j.negative.Sweep(); removed > 0 {
				j.logger.Debug("negative cache swept", zap.Int("removed", removed))
			}
		}
	}
}
