package chart

import (
	"context"
	"fmt"
	"time"
)

// Policy controls a polling wait.
type Policy struct {
	Interval time.Duration // Sleep between checks
	Timeout  time.Duration // Give up after this long (0 = wait until ctx is done)
}

// Default polling policies.
var (
	DefaultReadyPolicy   = Policy{Interval: 500 * time.Millisecond, Timeout: 5 * time.Minute}
	DefaultTooltipPolicy = Policy{Interval: 10 * time.Millisecond, Timeout: 15 * time.Second}
)

// Poll calls check until it reports done or returns an error. The first
// check runs immediately. When the policy timeout expires Poll returns
// ErrPollTimeout; cancellation of ctx is returned as ctx.Err().
func (p Policy) Poll(ctx context.Context, check func(ctx context.Context) (bool, error)) error {
	parent := ctx
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	interval := p.Interval
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	expired := func() error {
		if err := parent.Err(); err != nil {
			return err
		}
		return fmt.Errorf("%w after %s", ErrPollTimeout, p.Timeout)
	}

	for {
		done, err := check(ctx)
		if err != nil {
			// A check interrupted by our own deadline is a timeout, not a failure.
			if ctx.Err() != nil {
				return expired()
			}
			return err
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return expired()
		case <-ticker.C:
		}
	}
}
