package service

import (
	"context"
	"time"

	"bitwise74/paste-api/internal"
	"bitwise74/paste-api/internal/model"

	"go.uber.org/zap"
)

// ExpiryCleanup attaches the background sweep that deletes pastes whose
// expiry has passed. The lazy on-read check already keeps expired pastes
// from being served, the sweep exists so unread pastes do not pile up
// forever. Runs until ctx is canceled
func ExpiryCleanup(ctx context.Context, t time.Duration, d *internal.Deps) {
	ticker := time.NewTicker(t)

	zap.L().Debug("Expiry cleanup attached", zap.Duration("tick_every", t))

	go func() {
		defer ticker.Stop()

		// First sweep covers everything that expired while the service was
		// down
		lastSweep := time.Unix(0, 0)

		for {
			now := d.Clock()

			if err := SweepExpired(ctx, d, lastSweep, now); err != nil {
				zap.L().Error("Expiry sweep aborted", zap.Error(err))
			} else {
				// Only a completed sweep moves the window forward, an
				// aborted one is retried over the same range next tick
				lastSweep = now
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// SweepExpired deletes every paste whose expiry falls in [since, until],
// paste by paste, oldest expiry first. A failure on one paste is logged and
// the sweep moves on, only context cancellation aborts the whole batch
func SweepExpired(ctx context.Context, d *internal.Deps, since, until time.Time) error {
	pastes, err := model.FetchPastesBetween(d.DB, since, until)
	if err != nil {
		return err
	}

	for i := range pastes {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := DestroyPaste(ctx, d.DB, d.S3, pastes[i].ID)
		if err != nil {
			zap.L().Warn("Failed to sweep expired paste",
				zap.Stringer("pasteID", pastes[i].ID),
				zap.Error(err),
			)
			continue
		}

		zap.L().Debug("Swept expired paste", zap.Stringer("pasteID", pastes[i].ID))
	}

	return nil
}
