package gemini

import (
	"context"
	"errors"
	"time"

	"google.golang.org/genai"

	"github.com/venturesight/dealdesk/internal/resilience"
)

// defaultEmbedTimeout bounds a single embedding attempt. Batches are small
// (one document's chunks) so a slow call means a stuck connection.
const defaultEmbedTimeout = time.Minute

// resilientEmbedder decorates an Embedder with a per-attempt timeout,
// retries on transient failures and a circuit breaker.
type resilientEmbedder struct {
	inner   Embedder
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
	timeout time.Duration
}

// NewResilientEmbedder wraps inner so every embedding call carries the
// standard external-call policy: bounded attempt duration, retry with
// backoff on transient failures, fail-fast while the breaker is open.
func NewResilientEmbedder(inner Embedder, breaker *resilience.CircuitBreaker) Embedder {
	retry := resilience.DefaultRetryConfig()
	retry.ShouldRetry = shouldRetryEmbed
	retry.OnRetry = resilience.RetryLogger("gemini", "embed")

	return &resilientEmbedder{
		inner:   inner,
		breaker: breaker,
		retry:   retry,
		timeout: defaultEmbedTimeout,
	}
}

func (e *resilientEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return resilience.DoVal(ctx, e.retry, func(ctx context.Context) ([][]float32, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()
		return resilience.ExecuteVal(attemptCtx, e.breaker, func(ctx context.Context) ([][]float32, error) {
			return e.inner.EmbedDocuments(ctx, texts)
		})
	})
}

func (e *resilientEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return resilience.DoVal(ctx, e.retry, func(ctx context.Context) ([]float32, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()
		return resilience.ExecuteVal(attemptCtx, e.breaker, func(ctx context.Context) ([]float32, error) {
			return e.inner.EmbedQuery(ctx, text)
		})
	})
}

func (e *resilientEmbedder) Close() error {
	return e.inner.Close()
}

// shouldRetryEmbed retries rate limits, server errors and network failures.
// Invalid-argument responses are final, and so is a rejected call while
// the breaker is open.
func shouldRetryEmbed(err error) bool {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return false
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return resilience.IsTransientHTTPStatus(apiErr.Code)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return resilience.IsTransient(err)
}
