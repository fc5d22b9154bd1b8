package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/xxxsen/embedlab/internal/pkg/errors"
)

// CallPolicy bounds every outbound provider call.
type CallPolicy struct {
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
}

func DefaultCallPolicy() CallPolicy {
	return CallPolicy{
		Timeout:     30 * time.Second,
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
	}
}

func (p CallPolicy) normalized() CallPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	return p
}

// invoke runs fn under the policy. Retryable provider failures back off
// exponentially until attempts run out or ctx ends. HTTP rejections other
// than 429 and 5xx fail on the first attempt.
func invoke[T any](ctx context.Context, policy CallPolicy, provider string, fn func(ctx context.Context) (T, error)) (T, error) {
	policy = policy.normalized()
	logger := logutil.GetLogger(ctx).With(zap.String("provider", provider))
	var zero T
	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := policy.BaseDelay << (attempt - 1)
			select {
			case <-ctx.Done():
				return zero, fmt.Errorf("%w: %s: %w", appErr.ErrProvider, provider, ctx.Err())
			case <-time.After(delay):
			}
		}
		res, err := callOnce(ctx, policy.Timeout, fn)
		if err == nil {
			return res, nil
		}
		err = classify(provider, err)
		if !appErr.IsRetryable(err) || !transient(err) {
			return zero, err
		}
		lastErr = err
		logger.Warn("provider call failed", zap.Int("attempt", attempt+1), zap.Int("max_attempts", policy.MaxAttempts), zap.Error(err))
		if ctx.Err() != nil {
			break
		}
	}
	return zero, lastErr
}

// classify tags err as a provider failure unless it already carries a
// domain error.
func classify(provider string, err error) error {
	switch {
	case errors.Is(err, appErr.ErrMissingCredentials),
		errors.Is(err, appErr.ErrUnsupportedModel),
		errors.Is(err, appErr.ErrProvider):
		return fmt.Errorf("%s: %w", provider, err)
	}
	return fmt.Errorf("%w: %s: %w", appErr.ErrProvider, provider, err)
}

func callOnce[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return fn(ctx)
}
