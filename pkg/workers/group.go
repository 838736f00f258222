package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/dskvich/whisper-telegram-bot/pkg/logger"
)

type Worker interface {
	Name() string
	Start(context.Context) error
}

// Group is the set of long-running parts of the bot.
type Group []Worker

// Start blocks until every worker has returned. A failing worker cancels the
// others; all failures are reported together.
func (g Group) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		result *multierror.Error
	)

	for _, w := range g {
		wg.Add(1)
		go func(w Worker) {
			defer wg.Done()

			err := w.Start(ctx)
			if err == nil {
				return
			}
			slog.Error("worker failed", "name", w.Name(), logger.Err(err))

			mu.Lock()
			result = multierror.Append(result, fmt.Errorf("%s: %w", w.Name(), err))
			mu.Unlock()
			cancel()
		}(w)
	}

	wg.Wait()
	return result.ErrorOrNil()
}
