package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/nkiryanov/bazario/internal/logger"
	"github.com/nkiryanov/bazario/internal/repository"
)

const defaultInterval = 10 * time.Minute

type Config struct {
	Interval time.Duration
	Logger   logger.Logger
	Now      func() time.Time
}

// Sweeper periodically deletes expired refresh and verification tokens
type Sweeper struct {
	interval time.Duration
	logger   logger.Logger
	now      func() time.Time
	storage  repository.Storage
}

func New(storage repository.Storage, cfg Config) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOpLogger()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Sweeper{
		interval: cfg.Interval,
		logger:   cfg.Logger.With("component", "sweeper"),
		now:      cfg.Now,
		storage:  storage,
	}
}

// Delete expired tokens once
func (s *Sweeper) Sweep(ctx context.Context) (refresh int64, verification int64, err error) {
	now := s.now()

	refresh, err = s.storage.Refresh().DeleteExpired(ctx, now)
	if err != nil {
		return 0, 0, fmt.Errorf("can't delete expired refresh tokens: %w", err)
	}

	verification, err = s.storage.Verification().DeleteExpired(ctx, now)
	if err != nil {
		return refresh, 0, fmt.Errorf("can't delete expired verification tokens: %w", err)
	}

	return refresh, verification, nil
}

// Sweep on every tick until context done. Returned channel closed when stopped
func (s *Sweeper) Run(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})
	s.logger.Debug("Starting sweeper", "interval", s.interval)

	go func() {
		defer close(idleStopped)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Debug("Sweeper stopped by context")
				return

			case <-ticker.C:
				refresh, verification, err := s.Sweep(ctx)
				if err != nil {
					s.logger.Error("Failed to sweep expired tokens", "error", err)
					continue
				}
				s.logger.Debug("Expired tokens deleted", "refresh", refresh, "verification", verification)
			}
		}
	}()

	return idleStopped
}
