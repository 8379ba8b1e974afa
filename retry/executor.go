package retry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-payhooks/core"
)

// Policy bounds one retried operation. The wait before attempt n+1 is
// BaseDelay * n.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Label       string
}

func (p Policy) attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

// Delay returns the wait that follows the given failed attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt <= 0 || p.BaseDelay <= 0 {
		return 0
	}
	return p.BaseDelay * time.Duration(attempt)
}

type permanentError struct {
	err error
}

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

func IsPermanent(err error) bool {
	var target permanentError
	return errors.As(err, &target)
}

// Operation is one attempt. attempt starts at 1.
type Operation func(ctx context.Context, attempt int) error

// AttemptHook observes each failed attempt before the wait.
type AttemptHook func(ctx context.Context, label string, attempt int, delay time.Duration, err error)

type Executor struct {
	Sleep     func(ctx context.Context, delay time.Duration) error
	OnFailure AttemptHook
}

func NewExecutor() *Executor {
	return &Executor{Sleep: SleepContext}
}

// Do runs op until it succeeds, returns a permanent error, the context ends,
// or the policy is exhausted. It returns the number of attempts made. The
// final error is an external error tagged with the policy label.
func (e *Executor) Do(ctx context.Context, policy Policy, op Operation) (int, error) {
	if op == nil {
		return 0, fmt.Errorf("retry: operation is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	maxAttempts := policy.attempts()
	var lastErr error
	attempt := 0
	for attempt < maxAttempts {
		attempt++
		err := op(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		lastErr = err
		if IsPermanent(err) || attempt >= maxAttempts {
			break
		}
		delay := policy.Delay(attempt)
		if e != nil && e.OnFailure != nil {
			e.OnFailure(ctx, policy.Label, attempt, delay, err)
		}
		if err := e.sleep(ctx, delay); err != nil {
			lastErr = fmt.Errorf("%w (wait interrupted: %v)", lastErr, err)
			break
		}
	}
	return attempt, exhaustedError(policy.Label, attempt, lastErr)
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, executor *Executor, policy Policy, op func(ctx context.Context, attempt int) (T, error)) (T, int, error) {
	var value T
	attempts, err := executor.Do(ctx, policy, func(ctx context.Context, attempt int) error {
		result, err := op(ctx, attempt)
		if err != nil {
			return err
		}
		value = result
		return nil
	})
	if err != nil {
		var zero T
		return zero, attempts, err
	}
	return value, attempts, nil
}

func (e *Executor) sleep(ctx context.Context, delay time.Duration) error {
	if e != nil && e.Sleep != nil {
		return e.Sleep(ctx, delay)
	}
	return SleepContext(ctx, delay)
}

// SleepContext waits for delay or until ctx is done.
func SleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func exhaustedError(label string, attempts int, cause error) error {
	label = strings.TrimSpace(label)
	if label == "" {
		label = "operation"
	}
	message := fmt.Sprintf("retry: %s failed after %d attempt(s)", label, attempts)
	var source error = cause
	var permanent permanentError
	if errors.As(cause, &permanent) {
		source = permanent.err
	}
	err := goerrors.Wrap(source, goerrors.CategoryExternal, message).
		WithCode(http.StatusBadGateway).
		WithTextCode(core.ErrorExternalFailure)
	err.WithMetadata(map[string]any{
		"label":    label,
		"attempts": attempts,
	})
	return err
}
