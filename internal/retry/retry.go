// Package retry re-runs operations that failed with a transient storage
// error, backing off exponentially with full jitter between attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LerianStudio/lib-uncommons/v2/uncommons/backoff"
	"go.uber.org/zap"

	"github.com/cleared-dev/ledger/internal/model"
)

// Policy bounds the retries of one operation.
type Policy struct {
	MaxAttempts int           // total attempts, including the first
	BaseDelay   time.Duration // cap of the first jittered delay, doubled per attempt
	Log         *zap.Logger
}

// Do calls fn until it succeeds, fails with an error that is not
// model.ErrTransient, or the attempts are used up. It returns the last error.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := max(p.MaxAttempts, 1)
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}

	var err error
	for attempt := range attempts {
		if err = fn(ctx); err == nil || !errors.Is(err, model.ErrTransient) {
			return err
		}
		if attempt == attempts-1 {
			break
		}

		delay := backoff.ExponentialWithJitter(p.BaseDelay, attempt)
		log.Warn("transient failure, retrying",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
		)
		if serr := backoff.SleepWithContext(ctx, delay); serr != nil {
			return errors.Join(err, serr)
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", attempts, err)
}
