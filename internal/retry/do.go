package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/jayljohnson/nordhus.site/internal/faults"
	"github.com/jayljohnson/nordhus.site/internal/logfields"
)

// Do runs fn, retrying per the policy while fn returns a transient fault.
// Validation, authorization, and every other category surface immediately:
// retrying a bad credential only burns rate limits. The last transient error
// is returned once attempts are exhausted.
func Do(ctx context.Context, p Policy, op string, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !faults.IsTransient(err) {
			return err
		}
		if attempt >= p.MaxRetries {
			return err
		}
		delay := p.Delay(attempt + 1)
		slog.Warn("transient failure, backing off",
			slog.String("op", op),
			logfields.Attempt(attempt+1),
			slog.Duration("delay", delay),
			logfields.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
