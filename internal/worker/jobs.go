package worker

import (
	"context"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"
)

func newJobID() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// TokenPurger deletes refresh tokens past their expiry.
type TokenPurger interface {
	PurgeExpiredTokens(ctx context.Context) (int64, error)
}

func TokenCleanupHandler(purger TokenPurger, logger zerolog.Logger) JobHandler {
	return func(ctx context.Context, job *Job) error {
		removed, err := purger.PurgeExpiredTokens(ctx)
		if err != nil {
			return err
		}
		logger.Info().Str("job_id", job.ID).Int64("removed", removed).Msg("expired refresh tokens purged")
		return nil
	}
}

// Every calls fn once per interval until ctx is done. Failures are logged
// and do not stop the schedule.
func Every(ctx context.Context, interval time.Duration, logger zerolog.Logger, fn func(ctx context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := fn(ctx); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("scheduled run failed")
			}
		}
	}
}
