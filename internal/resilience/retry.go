package resilience

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 1 * time.Second
	defaultMaxDelay    = 10 * time.Second
)

// RetryPolicy re-attempts a call after transient failures. Any other kind
// aborts immediately and propagates unchanged.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// sleep is swapped in tests to avoid real waits.
	sleep func(ctx context.Context, d time.Duration) error

	log zerolog.Logger
}

func NewRetryPolicy(log zerolog.Logger) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: defaultMaxAttempts,
		BaseDelay:   defaultBaseDelay,
		MaxDelay:    defaultMaxDelay,
		sleep:       sleepCtx,
		log:         log,
	}
}

// Do runs fn up to MaxAttempts times. Backoff between attempts doubles
// from BaseDelay up to MaxDelay.
func (p RetryPolicy) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = defaultMaxAttempts
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if KindOf(err) != Transient || attempt == attempts {
			return err
		}
		delay := p.backoff(attempt)
		p.log.Warn().
			Str("call", name).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Err(err).
			Msg("transient failure, retrying")
		if serr := sleep(ctx, delay); serr != nil {
			return serr
		}
	}
	return err
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = defaultBaseDelay
	}
	max := p.MaxDelay
	if max <= 0 {
		max = defaultMaxDelay
	}
	d := base << (attempt - 1)
	if d > max {
		return max
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
