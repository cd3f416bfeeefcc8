// Package rates provides the USD/UAH exchange-rate source used when
// recording expenses. Lookups are best-effort: every failure mode
// collapses into ErrUnavailable and callers proceed without a rate.
package rates

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUnavailable is the only error callers branch on. A rate lookup
// either yields a positive rate or this.
var ErrUnavailable = errors.New("exchange rate unavailable")

// Source returns the current UAH-per-USD rate.
type Source interface {
	Rate(ctx context.Context) (decimal.Decimal, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (decimal.Decimal, error)

func (f SourceFunc) Rate(ctx context.Context) (decimal.Decimal, error) { return f(ctx) }

// Convert converts a UAH amount to USD at the given rate, rounded
// half-up to two decimal places.
func Convert(uah, rate decimal.Decimal) decimal.Decimal {
	return uah.Div(rate).Round(2)
}

type timeoutSource struct {
	inner   Source
	timeout time.Duration
}

// WithTimeout bounds every lookup. A lookup that overruns the budget or
// fails for any reason reports ErrUnavailable; the inner call keeps the
// caller's cancellation semantics through the derived context.
func WithTimeout(inner Source, timeout time.Duration) Source {
	return timeoutSource{inner: inner, timeout: timeout}
}

func (s timeoutSource) Rate(ctx context.Context) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type result struct {
		rate decimal.Decimal
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		rate, err := s.inner.Rate(ctx)
		ch <- result{rate, err}
	}()

	select {
	case <-ctx.Done():
		slog.WarnContext(ctx, "Rate lookup timed out", "timeout", s.timeout)
		return decimal.Decimal{}, ErrUnavailable
	case res := <-ch:
		if res.err != nil {
			if !errors.Is(res.err, ErrUnavailable) {
				slog.WarnContext(ctx, "Rate lookup failed", "error", res.err)
			}
			return decimal.Decimal{}, ErrUnavailable
		}
		return res.rate, nil
	}
}
