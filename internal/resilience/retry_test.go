package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy(delays *[]time.Duration) RetryPolicy {
	p := NewRetryPolicy(zerolog.Nop())
	p.sleep = func(_ context.Context, d time.Duration) error {
		if delays != nil {
			*delays = append(*delays, d)
		}
		return nil
	}
	return p
}

func TestRetry_TransientRetriedUpToThreeAttempts(t *testing.T) {
	var delays []time.Duration
	p := testPolicy(&delays)

	calls := 0
	err := p.Do(context.Background(), "find", func(context.Context) error {
		calls++
		return Classify("resy", 503, nil)
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls, "transient errors retry up to 3 total attempts")
	assert.Equal(t, Transient, KindOf(err))
}

func TestRetry_BackoffExponentialCapped(t *testing.T) {
	var delays []time.Duration
	p := testPolicy(&delays)

	_ = p.Do(context.Background(), "find", func(context.Context) error {
		return Classify("resy", 500, nil)
	})

	require.Len(t, delays, 2, "two sleeps between three attempts")
	assert.Equal(t, 1*time.Second, delays[0])
	assert.Equal(t, 2*time.Second, delays[1])
}

func TestRetry_BackoffCap(t *testing.T) {
	p := testPolicy(nil)
	assert.Equal(t, 10*time.Second, p.backoff(20))
}

func TestRetry_PermanentYieldsSingleInvocation(t *testing.T) {
	p := testPolicy(nil)

	calls := 0
	err := p.Do(context.Background(), "book", func(context.Context) error {
		calls++
		return Classify("resy", 404, nil)
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "permanent error on attempt 1 yields exactly 1 invocation")
}

func TestRetry_AuthSchemaChangeAndCircuitOpenNotRetried(t *testing.T) {
	for _, tc := range []struct {
		name string
		err  error
	}{
		{"auth", Classify("resy", 401, nil)},
		{"schema_change", SchemaChanged("resy", "missing book_token")},
		{"circuit_open", &Error{Kind: CircuitOpen, Dependency: "resy"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := testPolicy(nil)
			calls := 0
			err := p.Do(context.Background(), "call", func(context.Context) error {
				calls++
				return tc.err
			})
			require.Error(t, err)
			assert.Equal(t, 1, calls)
		})
	}
}

func TestRetry_SuccessAfterTransient(t *testing.T) {
	p := testPolicy(nil)

	calls := 0
	err := p.Do(context.Background(), "find", func(context.Context) error {
		calls++
		if calls < 3 {
			return Classify("resy", 503, nil)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ContextCancelledDuringBackoff(t *testing.T) {
	p := NewRetryPolicy(zerolog.Nop())
	p.sleep = func(ctx context.Context, _ time.Duration) error { return context.Canceled }

	calls := 0
	err := p.Do(context.Background(), "find", func(context.Context) error {
		calls++
		return Classify("resy", 503, nil)
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
