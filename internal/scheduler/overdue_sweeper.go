package scheduler

import (
	"context"
	"time"

	"leadflow_backend/platform/logger"
)

const defaultSweepInterval = 15 * time.Minute

// OverdueMarker flags active assignments whose due date has passed.
type OverdueMarker interface {
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
}

// OverdueSweeper periodically moves past-due assignments to overdue.
type OverdueSweeper struct {
	marker   OverdueMarker
	interval time.Duration
	log      *logger.Logger
	now      func() time.Time
}

func NewOverdueSweeper(marker OverdueMarker, interval time.Duration, log *logger.Logger) *OverdueSweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &OverdueSweeper{marker: marker, interval: interval, log: log, now: time.Now}
}

// Run sweeps once immediately, then on every tick until ctx is done.
func (s *OverdueSweeper) Run(ctx context.Context) {
	if s == nil || s.marker == nil {
		return
	}

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *OverdueSweeper) sweep(ctx context.Context) {
	marked, err := s.marker.MarkOverdue(ctx, s.now().UTC())
	if err != nil {
		s.log.Error("overdue assignment sweep failed", "error", err)
		return
	}
	if marked > 0 {
		s.log.Info("assignments marked overdue", "count", marked)
	}
}
