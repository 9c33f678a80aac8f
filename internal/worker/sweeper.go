package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourorg/rentwheels/internal/domain"
	"github.com/yourorg/rentwheels/internal/observability/metrics"
	"github.com/yourorg/rentwheels/internal/reliability/retry"
)

// OverdueProcessor is the slice of the booking service the sweeper needs.
type OverdueProcessor interface {
	ProcessOverdue(ctx context.Context) (domain.SweepResult, error)
}

// Sweeper periodically returns overdue bookings and frees their vehicles.
// One pass runs immediately at startup so a restart never leaves overdue
// bookings waiting for the first tick.
type Sweeper struct {
	processor OverdueProcessor
	logger    *slog.Logger
	interval  time.Duration
	retryCfg  *retry.Config
}

// NewSweeper creates a sweeper. interval defaults to one hour.
func NewSweeper(processor OverdueProcessor, logger *slog.Logger, interval time.Duration) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Hour
	}

	return &Sweeper{
		processor: processor,
		logger:    logger,
		interval:  interval,
		retryCfg:  retry.DefaultConfig(),
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("sweeper started", slog.Duration("interval", s.interval))

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce executes one sweep pass with retry. The sweep is idempotent, so a
// retry after a partial failure cannot double-return a booking.
func (s *Sweeper) runOnce(ctx context.Context) {
	result, err := retry.Do(ctx, s.retryCfg, s.logger, "sweep_overdue",
		func(ctx context.Context) (domain.SweepResult, error) {
			return s.processor.ProcessOverdue(ctx)
		})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("sweep pass failed", slog.String("error", err.Error()))
		metrics.ObserveSweep("error", 0)
		return
	}

	metrics.ObserveSweep("success", result.BookingsReturned)
}
