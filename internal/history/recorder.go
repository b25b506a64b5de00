package history

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rahl-ai/rahl-core/internal/fusion"
)

// #region recorder
// Recorder writes results to the store off the request path. Submissions
// beyond the buffer are dropped and logged.
type Recorder struct {
	store  *Store
	queue  chan fusion.Result
	logger zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewRecorder creates a stopped recorder with the given buffer size.
func NewRecorder(store *Store, buffer int, logger zerolog.Logger) *Recorder {
	if buffer <= 0 {
		buffer = 64
	}
	return &Recorder{
		store:  store,
		queue:  make(chan fusion.Result, buffer),
		logger: logger.With().Str("component", "history").Logger(),
	}
}

// Start launches the writer goroutine.
func (r *Recorder) Start(ctx context.Context) error {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for res := range r.queue {
			if _, err := r.store.Record(context.WithoutCancel(ctx), res); err != nil {
				r.logger.Error().Err(err).Str("id", res.ID).Msg("record interaction")
			}
		}
	}()
	return nil
}

// Submit queues res. It never blocks; false means the result was dropped.
func (r *Recorder) Submit(res fusion.Result) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return false
	}
	select {
	case r.queue <- res:
		return true
	default:
		r.logger.Warn().Str("id", res.ID).Msg("history queue full, dropping")
		return false
	}
}

// Stop drains the queue and waits for the writer.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

// #endregion recorder
