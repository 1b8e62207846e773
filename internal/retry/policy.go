// Package retry runs operations under a bounded exponential backoff policy.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"polgen/internal/config"
	"polgen/internal/domain"
)

// Policy describes how transient failures are retried. MaxRetries bounds the
// retries after the first attempt, so an operation runs at most MaxRetries+1
// times.
type Policy struct {
	MaxRetries          int
	InitialInterval     time.Duration
	MaxInterval         time.Duration
	Multiplier          float64
	RandomizationFactor float64

	// Retryable decides which errors are retried. Defaults to domain.IsTransient.
	Retryable func(error) bool
	// Sleep waits between attempts. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// FromConfig builds a Policy from RetryConfig.
func FromConfig(cfg config.RetryConfig) Policy {
	return Policy{
		MaxRetries:          cfg.MaxRetries,
		InitialInterval:     time.Duration(cfg.InitialIntervalMS) * time.Millisecond,
		MaxInterval:         time.Duration(cfg.MaxIntervalMS) * time.Millisecond,
		Multiplier:          cfg.Multiplier,
		RandomizationFactor: cfg.RandomizationFactor,
	}
}

// Result reports how an operation finished.
type Result struct {
	Attempts int
	Delays   []time.Duration
}

// Do runs op until it succeeds, returns a non-retryable error, the retry bound
// is reached, or ctx is done. The delay before each retry is the larger of the
// backoff interval and the server's Retry-After hint.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) (Result, error) {
	retryable := p.Retryable
	if retryable == nil {
		retryable = domain.IsTransient
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	b := p.newBackOff()
	var res Result
	for {
		res.Attempts++
		err := op(ctx)
		if err == nil {
			return res, nil
		}
		if !retryable(err) || res.Attempts > p.MaxRetries {
			return res, err
		}

		delay := b.NextBackOff()
		if delay == backoff.Stop {
			return res, err
		}
		if hint := domain.RetryAfterOf(err); hint > delay {
			delay = hint
		}
		res.Delays = append(res.Delays, delay)
		if sleepErr := sleep(ctx, delay); sleepErr != nil {
			return res, err
		}
	}
}

func (p Policy) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	if p.Multiplier >= 1 {
		b.Multiplier = p.Multiplier
	}
	b.RandomizationFactor = p.RandomizationFactor
	// Attempts are bounded by MaxRetries, not elapsed time.
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
