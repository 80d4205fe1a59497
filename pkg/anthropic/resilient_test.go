package anthropic

import (
	"context"
	"net/http"
	"testing"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venturesight/dealdesk/internal/resilience"
)

// countingClient fails the first failures calls, then succeeds.
type countingClient struct {
	calls    int
	failures int
	err      error
}

func (c *countingClient) CreateMessage(_ context.Context, _ MessageRequest) (*MessageResponse, error) {
	c.calls++
	if c.calls <= c.failures {
		return nil, c.err
	}
	return &MessageResponse{ID: "msg_ok", Content: []ContentBlock{{Type: "text", Text: "ok"}}}, nil
}

// sdkAPIError builds an SDK error whose Error method is renderable; the
// SDK only produces these with the request and response attached.
func sdkAPIError(t *testing.T, status int) *sdk.Error {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, "https://api.anthropic.com/v1/messages", nil)
	require.NoError(t, err)
	return &sdk.Error{
		StatusCode: status,
		Request:    req,
		Response:   &http.Response{StatusCode: status},
	}
}

func fastRetry() resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.InitialBackoff = time.Millisecond
	cfg.ShouldRetry = shouldRetryMessage
	return cfg
}

func TestResilientClient_RetriesOverloadedThenSucceeds(t *testing.T) {
	inner := &countingClient{failures: 2, err: sdkAPIError(t, http.StatusServiceUnavailable)}
	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig())
	client := NewResilientClient(inner, cb, WithRetryConfig(fastRetry()))

	resp, err := client.CreateMessage(context.Background(), MessageRequest{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "msg_ok", resp.ID)
	assert.Equal(t, 3, inner.calls)
}

func TestResilientClient_ValidationErrorIsFinal(t *testing.T) {
	inner := &countingClient{failures: 10, err: sdkAPIError(t, http.StatusBadRequest)}
	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig())
	client := NewResilientClient(inner, cb, WithRetryConfig(fastRetry()))

	_, err := client.CreateMessage(context.Background(), MessageRequest{Model: "m"})
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestResilientClient_OpenBreakerRejectsWithoutCalling(t *testing.T) {
	inner := &countingClient{failures: 10, err: eris.New("connection reset by peer")}
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Hour,
	})
	client := NewResilientClient(inner, cb, WithRetryConfig(resilience.RetryConfig{
		MaxAttempts:    1,
		InitialBackoff: time.Millisecond,
		ShouldRetry:    shouldRetryMessage,
	}))

	_, err := client.CreateMessage(context.Background(), MessageRequest{Model: "m"})
	require.Error(t, err)
	require.Equal(t, 1, inner.calls)

	// Breaker tripped; the next call is rejected before reaching the API.
	_, err = client.CreateMessage(context.Background(), MessageRequest{Model: "m"})
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, 1, inner.calls)
}

func TestResilientClient_AttemptTimeoutRetries(t *testing.T) {
	inner := &slowThenFastClient{stall: 50 * time.Millisecond}
	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig())
	client := NewResilientClient(inner, cb,
		WithRetryConfig(fastRetry()),
		WithCallTimeout(5*time.Millisecond),
	)

	resp, err := client.CreateMessage(context.Background(), MessageRequest{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "msg_ok", resp.ID)
	assert.Equal(t, 2, inner.calls)
}

func TestShouldRetryMessage(t *testing.T) {
	assert.True(t, shouldRetryMessage(sdkAPIError(t, http.StatusTooManyRequests)))
	assert.True(t, shouldRetryMessage(sdkAPIError(t, http.StatusInternalServerError)))
	assert.False(t, shouldRetryMessage(sdkAPIError(t, http.StatusNotFound)))
	assert.False(t, shouldRetryMessage(resilience.ErrCircuitOpen))
	assert.True(t, shouldRetryMessage(context.DeadlineExceeded))
	assert.True(t, shouldRetryMessage(eris.New("connection reset by peer")))
	assert.False(t, shouldRetryMessage(eris.New("invalid request")))
}

// slowThenFastClient blocks on the first call until its context expires,
// then answers instantly.
type slowThenFastClient struct {
	calls int
	stall time.Duration
}

func (c *slowThenFastClient) CreateMessage(ctx context.Context, _ MessageRequest) (*MessageResponse, error) {
	c.calls++
	if c.calls == 1 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.stall):
			return nil, eris.New("stall elapsed before context expired")
		}
	}
	return &MessageResponse{ID: "msg_ok"}, nil
}
