package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// SleepFunc suspends for the given duration or until the context is
// cancelled. Tests substitute an instant sleep.
type SleepFunc func(ctx context.Context, d time.Duration) error

// SleepWithContext is the production SleepFunc.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// PollUntilDone invokes poll at the given interval until poll reports done
// or the context is cancelled. A poll error is transient by definition: it
// is logged and retried on the next tick, indistinguishable from a slow
// remote job. There is no other timeout; a job that never reaches a
// terminal state polls until process shutdown.
func PollUntilDone(ctx context.Context, interval time.Duration, sleep SleepFunc, logger *slog.Logger, poll func(context.Context) (bool, error)) error {
	for {
		done, err := poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("poll failed, retrying next tick", "err", err)
		} else if done {
			return nil
		}

		if err := sleep(ctx, interval); err != nil {
			return err
		}
	}
}
