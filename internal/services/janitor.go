package services

import (
	"context"
	"time"

	"github.com/cjnewshub/apiserver/internal/logging"
)

// ExpiredCodeSweeper deletes verification requests past their expiry.
type ExpiredCodeSweeper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Janitor periodically drops expired verification requests. Expired
// requests are already unusable; this only keeps the tables small.
type Janitor struct {
	codes    ExpiredCodeSweeper
	interval time.Duration
	log      logging.Logger
}

func NewJanitor(codes ExpiredCodeSweeper, interval time.Duration, log logging.Logger) *Janitor {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Janitor{codes: codes, interval: interval, log: log}
}

// Sweep runs one cleanup pass.
func (j *Janitor) Sweep(ctx context.Context) (int64, error) {
	n, err := j.codes.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		return n, err
	}
	if n > 0 {
		j.log.Debug(ctx, "expired verification requests removed", "count", n)
	}
	return n, nil
}

// Run sweeps on every tick until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := j.Sweep(ctx); err != nil {
				j.log.Error(ctx, "verification sweep failed", "error", err)
			}
		}
	}
}
