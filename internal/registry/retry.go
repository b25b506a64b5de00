package registry

import (
	"context"
	"time"

	"github.com/rahl-ai/rahl-core/internal/codec"
	"github.com/rahl-ai/rahl-core/internal/modality"
)

// #region load-with-retry
// loadWithRetry makes 1+LoadRetries attempts with linear backoff.
// Retrying is opt-in; the default config fails on the first error.
func (r *Registry) loadWithRetry(ctx context.Context, kind modality.ModelKind, source string) (codec.LoadResult, error) {
	attempts := 1 + max(r.config.LoadRetries, 0)

	var lastErr error
	for i := 0; i < attempts; i++ {
		res, err := r.backend.LoadModel(ctx, string(kind), source)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if i == attempts-1 || ctx.Err() != nil {
			break
		}

		wait := time.Duration(i+1) * r.config.LoadBackoff
		r.logger.Warn().Err(err).Str("kind", string(kind)).Int("attempt", i+1).Dur("backoff", wait).Msg("model load retry")
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return codec.LoadResult{}, ctx.Err()
		}
	}
	return codec.LoadResult{}, lastErr
}

// #endregion load-with-retry
