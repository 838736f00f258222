package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/dskvich/whisper-telegram-bot/pkg/logger"
)

type Sweeper interface {
	Sweep(maxAge time.Duration) (int, error)
}

type tempSweeper struct {
	sweeper  Sweeper
	interval time.Duration
	maxAge   time.Duration
}

func NewTempSweeper(sweeper Sweeper, interval, maxAge time.Duration) *tempSweeper {
	return &tempSweeper{
		sweeper:  sweeper,
		interval: interval,
		maxAge:   maxAge,
	}
}

func (t *tempSweeper) Name() string { return "temp_sweeper_worker" }

// Start removes stale audio files every interval. A non-positive interval
// disables sweeping; the worker then only waits for shutdown.
func (t *tempSweeper) Start(ctx context.Context) error {
	slog.Info("Starting worker", "name", t.Name())
	defer slog.Info("Worker stopped", "name", t.Name())

	if t.interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			t.sweep(ctx)
		}
	}
}

func (t *tempSweeper) sweep(ctx context.Context) {
	removed, err := t.sweeper.Sweep(t.maxAge)
	if err != nil {
		slog.WarnContext(ctx, "Sweeping temp files", logger.Err(err))
		return
	}
	if removed > 0 {
		slog.InfoContext(ctx, "Removed stale temp files", "count", removed)
	}
}
