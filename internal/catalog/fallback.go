package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"polgen/internal/domain"
	"polgen/internal/port"
)

// circuitState tracks retry-after backoff for a single provider.
type circuitState struct {
	mu      sync.RWMutex
	resetAt time.Time // zero value = closed (healthy)
}

func (c *circuitState) isOpenWithReset(now time.Time) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resetAt, !c.resetAt.IsZero() && now.Before(c.resetAt)
}

func (c *circuitState) open(resetAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetAt = resetAt
}

// FallbackFetcher tries catalog providers in order. A miss or a transient
// failure moves on to the next provider; an auth failure is returned at once.
// It implements port.BibliographicFetcher.
type FallbackFetcher struct {
	fetchers []port.BibliographicFetcher
	circuits []*circuitState
	names    []string
	now      func() time.Time
}

// NewFallbackFetcher creates a FallbackFetcher from an ordered list of
// providers and their names.
func NewFallbackFetcher(fetchers []port.BibliographicFetcher, names []string) *FallbackFetcher {
	circuits := make([]*circuitState, len(fetchers))
	for i := range circuits {
		circuits[i] = &circuitState{}
	}
	return &FallbackFetcher{
		fetchers: fetchers,
		circuits: circuits,
		names:    names,
		now:      time.Now,
	}
}

func (f *FallbackFetcher) Fetch(ctx context.Context, id domain.Identifier) (*domain.BibliographicRecord, error) {
	now := f.now()
	var lastTransient error
	var earliestReset time.Time
	notFound := 0

	for i, p := range f.fetchers {
		if resetAt, open := f.circuits[i].isOpenWithReset(now); open {
			slog.Debug("catalog.FallbackFetcher: skipping provider", "provider", f.names[i], "until", resetAt.Format(time.RFC3339))
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
			continue
		}

		rec, err := p.Fetch(ctx, id)
		if err == nil {
			return rec, nil
		}

		switch {
		case domain.IsAuth(err):
			return nil, err
		case errors.Is(err, domain.ErrNotFound):
			slog.Debug("catalog.FallbackFetcher: no match", "provider", f.names[i], "identifier", id.String())
			notFound++
		case domain.IsTransient(err):
			slog.Warn("catalog.FallbackFetcher: provider failed", "provider", f.names[i], "identifier", id.String(), "error", err)
			lastTransient = err
			if hint := domain.RetryAfterOf(err); hint > 0 {
				resetAt := now.Add(hint)
				f.circuits[i].open(resetAt)
				if earliestReset.IsZero() || resetAt.Before(earliestReset) {
					earliestReset = resetAt
				}
			}
		default:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("catalog.FallbackFetcher: provider error", "provider", f.names[i], "identifier", id.String(), "error", err)
			lastTransient = domain.NewTransientError(f.names[i], 0, err, 0)
		}
	}

	// A definitive miss from any provider beats transient failures elsewhere
	// only when no provider is left to retry.
	if lastTransient == nil && earliestReset.IsZero() {
		if notFound == 0 {
			return nil, fmt.Errorf("catalog.FallbackFetcher: no providers configured: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("catalog.FallbackFetcher: %s: %w", id, domain.ErrNotFound)
	}
	if lastTransient != nil {
		return nil, lastTransient
	}

	// Every remaining provider was skipped due to an open circuit.
	retryAfter := earliestReset.Sub(now)
	if retryAfter < time.Second {
		retryAfter = time.Second
	}
	return nil, domain.NewTransientError("catalog", 0, errors.New("all catalog providers backing off"), int(retryAfter.Seconds()))
}
