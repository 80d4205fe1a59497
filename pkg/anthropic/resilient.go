package anthropic

import (
	"context"
	"errors"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/venturesight/dealdesk/internal/resilience"
)

// defaultCallTimeout bounds a single CreateMessage attempt. Consensus
// generations run for minutes; anything past this is a hung connection.
const defaultCallTimeout = 5 * time.Minute

// resilientClient decorates a Client with a per-attempt timeout, retries on
// transient failures and a circuit breaker shared across all callers of the
// provider.
type resilientClient struct {
	inner   Client
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
	timeout time.Duration
}

// ResilientOption customizes a resilient client.
type ResilientOption func(*resilientClient)

// WithCallTimeout overrides the per-attempt timeout.
func WithCallTimeout(d time.Duration) ResilientOption {
	return func(c *resilientClient) { c.timeout = d }
}

// WithRetryConfig overrides the retry policy.
func WithRetryConfig(cfg resilience.RetryConfig) ResilientOption {
	return func(c *resilientClient) { c.retry = cfg }
}

// NewResilientClient wraps inner so every CreateMessage call carries the
// standard external-call policy: bounded attempt duration, retry with
// backoff on transient failures, fail-fast while the breaker is open.
func NewResilientClient(inner Client, breaker *resilience.CircuitBreaker, opts ...ResilientOption) Client {
	retry := resilience.DefaultRetryConfig()
	retry.ShouldRetry = shouldRetryMessage
	retry.OnRetry = resilience.RetryLogger("anthropic", "create_message")

	c := &resilientClient{
		inner:   inner,
		breaker: breaker,
		retry:   retry,
		timeout: defaultCallTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *resilientClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*MessageResponse, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		return resilience.ExecuteVal(attemptCtx, c.breaker, func(ctx context.Context) (*MessageResponse, error) {
			return c.inner.CreateMessage(ctx, req)
		})
	})
}

// shouldRetryMessage retries rate limits, overload responses and network
// failures. Validation errors are final, and so is a rejected call while
// the breaker is open. A timed-out attempt retries; the retry loop itself
// stops once the caller's context is done.
func shouldRetryMessage(err error) bool {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return false
	}
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return resilience.IsTransientHTTPStatus(apiErr.StatusCode)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return resilience.IsTransient(err)
}
