package scanning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go"
	"google.golang.org/api/googleapi"
)

const (
	llmAttempts = 3
	llmDelay    = 2 * time.Second
)

// statusError is a non-2xx response from a remote model API.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.code, e.body)
}

// withRetry calls fn until it succeeds, the context ends or the error is one
// that another attempt cannot fix.
func withRetry(ctx context.Context, provider string, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("retrying model call", "provider", provider, "attempt", n+1, "error", err)
		}),
		retry.Attempts(llmAttempts),
		retry.Delay(llmDelay),
		retry.LastErrorOnly(true),
	)
}

// retryable reports whether another attempt could succeed. HTTP failures
// are retried only when rate limited or on server errors; network errors
// are always retried.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return retryableStatus(se.code)
	}
	var ge *googleapi.Error
	if errors.As(err, &ge) {
		return retryableStatus(ge.Code)
	}
	return true
}

func retryableStatus(code int) bool {
	return code == 429 || code >= 500
}
