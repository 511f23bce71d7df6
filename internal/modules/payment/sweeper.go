package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/robfig/cron/v3"
)

const sweepLock = "printnow:sweep:payments"

// ErrSweepBusy means another replica holds the sweep lock.
var ErrSweepBusy = errors.New("payment: sweep already running elsewhere")

// Expirer is the part of Service the sweeper drives.
type Expirer interface {
	ExpireStale(ctx context.Context) (int64, error)
}

// Sweeper periodically expires unpaid online sessions. With a redsync
// instance only one replica sweeps per tick; without one every process sweeps
// its own view, which is safe because expiry is a conditional update.
type Sweeper struct {
	exp     Expirer
	rs      *redsync.Redsync
	cron    *cron.Cron
	timeout time.Duration
	log     *slog.Logger
}

func NewSweeper(exp Expirer, rs *redsync.Redsync, log *slog.Logger) *Sweeper {
	return &Sweeper{
		exp:     exp,
		rs:      rs,
		cron:    cron.New(),
		timeout: 30 * time.Second,
		log:     log,
	}
}

// RunOnce performs one sweep and reports how many sessions expired.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	if s.rs != nil {
		mutex := s.rs.NewMutex(sweepLock, redsync.WithExpiry(s.timeout), redsync.WithTries(1))
		if err := mutex.LockContext(ctx); err != nil {
			return 0, ErrSweepBusy
		}
		defer func() {
			if _, err := mutex.UnlockContext(context.Background()); err != nil {
				s.log.Warn("sweep unlock failed", "error", err)
			}
		}()
	}
	return s.exp.ExpireStale(ctx)
}

// Schedule registers the session sweep under a cron spec such as "@every 30s".
func (s *Sweeper) Schedule(spec string) error {
	return s.Add(spec, "expire-sessions", func(ctx context.Context) {
		n, err := s.RunOnce(ctx)
		switch {
		case errors.Is(err, ErrSweepBusy):
			s.log.Debug("sweep skipped: lock held")
		case err != nil:
			s.log.Error("sweep failed", "error", err)
		case n > 0:
			s.log.Info("sweep done", "expired", n)
		}
	})
}

// Add registers another housekeeping job on the same scheduler.
func (s *Sweeper) Add(spec, name string, fn func(ctx context.Context)) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		fn(ctx)
	})
	if err != nil {
		return fmt.Errorf("payment: schedule %s: %w", name, err)
	}
	return nil
}

func (s *Sweeper) Start() { s.cron.Start() }

// Stop stops scheduling and waits for a running job to finish or ctx to end.
func (s *Sweeper) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("sweeper stop timed out")
	}
}
