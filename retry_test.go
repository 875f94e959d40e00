package studypool

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRetryPolicy_Do(t *testing.T) {
	t.Run("rate limited until exhausted", func(t *testing.T) {
		calls := 0
		err := testRetryPolicy().Do(context.Background(), "generate", func(ctx context.Context) error {
			calls++
			return &statusError{code: 429}
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
		assert.Contains(t, err.Error(), "generate failed after 3 attempt(s)")

		var se *statusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, 429, se.code)
	})

	t.Run("recovers after server errors", func(t *testing.T) {
		calls := 0
		err := testRetryPolicy().Do(context.Background(), "generate", func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return &statusError{code: 503}
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("non-retryable stops immediately", func(t *testing.T) {
		calls := 0
		err := testRetryPolicy().Do(context.Background(), "generate", func(ctx context.Context) error {
			calls++
			return &statusError{code: 400}
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
		assert.Contains(t, err.Error(), "after 1 attempt(s)")

		var se *statusError
		assert.ErrorAs(t, err, &se)
	})

	t.Run("attempt timeout is retried", func(t *testing.T) {
		p := testRetryPolicy()
		p.AttemptTimeout = 10 * time.Millisecond

		calls := 0
		err := p.Do(context.Background(), "generate", func(ctx context.Context) error {
			calls++
			<-ctx.Done()
			return ctx.Err()
		})
		assert.Equal(t, 3, calls)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("cancelled parent is not retried", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		calls := 0
		err := testRetryPolicy().Do(ctx, "generate", func(ctx context.Context) error {
			calls++
			return ctx.Err()
		})
		assert.Equal(t, 1, calls)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("custom retryable", func(t *testing.T) {
		p := testRetryPolicy()
		p.Retryable = func(error) bool { return true }

		calls := 0
		err := p.Do(context.Background(), "generate", func(ctx context.Context) error {
			calls++
			return errors.New("flaky")
		})
		assert.Error(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("zero attempts runs once", func(t *testing.T) {
		calls := 0
		err := RetryPolicy{}.Do(context.Background(), "generate", func(ctx context.Context) error {
			calls++
			return &statusError{code: 500}
		})
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"cancelled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, true},
		{"api rate limit", &openai.APIError{HTTPStatusCode: 429, Message: "slow down"}, true},
		{"api server error", &openai.APIError{HTTPStatusCode: 500}, true},
		{"api bad request", &openai.APIError{HTTPStatusCode: 400}, false},
		{"api unauthorized", &openai.APIError{HTTPStatusCode: 401}, false},
		{"request bad gateway", &openai.RequestError{HTTPStatusCode: 502, Err: errors.New("bad gateway")}, true},
		{"wrapped request timeout", fmt.Errorf("call: %w", &statusError{code: 408}), true},
		{"network timeout", &net.DNSError{Err: "i/o timeout", Name: "api.example.com", IsTimeout: true}, true},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}

func TestNewRetryPolicy(t *testing.T) {
	p := NewRetryPolicy(DefaultConfig().Retry)
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, 2*time.Second, p.BaseDelay)
	assert.Equal(t, 30*time.Second, p.MaxDelay)
	assert.Equal(t, 30*time.Second, p.AttemptTimeout)
	assert.Nil(t, p.Retryable)
}
