// Package retry wraps persistence API calls with a bounded single retry.
// Interactive, user-paced operations do not need exponential backoff; one
// retry after a fixed short delay keeps latency predictable while covering
// the token-propagation race after login.
package retry

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"storefront-sync-service/internal/models"
)

// DefaultDelay is the fixed pause before the single retry.
const DefaultDelay = 750 * time.Millisecond

// SleepFunc pauses for d or returns early with ctx's error. Tests inject a
// deterministic implementation instead of real timers.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the production SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Policy classifies failures and retries retryable ones exactly once.
type Policy struct {
	Delay  time.Duration
	SleepF SleepFunc
	Logger *logrus.Entry
}

// NewPolicy creates a policy with the default delay.
func NewPolicy(logger *logrus.Entry) *Policy {
	return &Policy{Delay: DefaultDelay, SleepF: Sleep, Logger: logger}
}

func (p *Policy) sleep(ctx context.Context) error {
	f := p.SleepF
	if f == nil {
		f = Sleep
	}
	d := p.Delay
	if d == 0 {
		d = DefaultDelay
	}
	return f(ctx, d)
}

// Do runs op, retrying once after the fixed delay when the failure is
// transient (first 401/403 after an auth event, connectivity, 5xx). A
// second consecutive auth failure is promoted to TerminalAuthError; a
// second network failure stays a NetworkError and is surfaced to the
// caller. Validation failures are returned untouched.
func Do[T any](ctx context.Context, p *Policy, op func(ctx context.Context) (T, error)) (T, error) {
	result, err := op(ctx)
	if err == nil || !models.IsRetryable(err) {
		return result, err
	}

	if p.Logger != nil {
		p.Logger.WithError(err).Debug("retrying persistence API call after transient failure")
	}
	if sleepErr := p.sleep(ctx); sleepErr != nil {
		var zero T
		return zero, models.NewNetworkError(0, sleepErr)
	}

	result, retryErr := op(ctx)
	if retryErr == nil {
		return result, nil
	}

	var zero T
	if models.KindOf(err) == models.ErrTransientAuth && models.KindOf(retryErr) == models.ErrTransientAuth {
		// Two consecutive credential rejections: the credential is
		// genuinely invalid, not still propagating.
		se := models.NewTerminalAuthError(statusOf(retryErr))
		se.Err = retryErr
		return zero, se
	}
	return zero, retryErr
}

// DoErr is Do for operations that return no value.
func DoErr(ctx context.Context, p *Policy, op func(ctx context.Context) error) error {
	_, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

func statusOf(err error) int {
	if se, ok := err.(*models.SyncError); ok {
		return se.Status
	}
	return 0
}
