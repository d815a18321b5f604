package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/afdelacruz/stock-finder/internal/metrics"
	"github.com/afdelacruz/stock-finder/internal/model"
)

// GuardConfig tunes request pacing and failure isolation for a provider.
type GuardConfig struct {
	RateLimitRPS    float64
	Burst           int
	Timeout         time.Duration
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// Guard wraps a DataProvider with a rate limiter, a circuit breaker and a
// per-call timeout.
type Guard struct {
	provider DataProvider
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	timeout  time.Duration
}

// NewGuard wraps provider. Zero values disable the corresponding protection.
func NewGuard(provider DataProvider, cfg GuardConfig) *Guard {
	g := &Guard{provider: provider, timeout: cfg.Timeout}
	if cfg.RateLimitRPS > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst)
	}

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        provider.Name(),
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("provider", name).Str("from", from.String()).Str("to", to.String()).Msg("provider circuit breaker state change")
		},
		IsSuccessful: func(err error) bool {
			// An unknown ticker is a valid answer, not a provider fault.
			return err == nil || errors.Is(err, ErrNoData) || errors.Is(err, context.Canceled)
		},
	})
	return g
}

func (g *Guard) Name() string { return g.provider.Name() }

// State reports the breaker state.
func (g *Guard) State() gobreaker.State { return g.breaker.State() }

// GetHistorical waits for a rate token, then calls the provider through the
// breaker with the configured timeout.
func (g *Guard) GetHistorical(ctx context.Context, ticker string, start, end time.Time) (*model.PriceSeries, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	out, err := g.breaker.Execute(func() (interface{}, error) {
		callCtx := ctx
		if g.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}
		return g.provider.GetHistorical(callCtx, ticker, start, end)
	})

	switch {
	case err == nil:
		metrics.ProviderRequests.WithLabelValues(g.Name(), "ok").Inc()
	case errors.Is(err, ErrNoData):
		metrics.ProviderRequests.WithLabelValues(g.Name(), "empty").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.ProviderRequests.WithLabelValues(g.Name(), "rejected").Inc()
	default:
		metrics.ProviderRequests.WithLabelValues(g.Name(), "error").Inc()
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", g.Name(), err)
	}
	series, _ := out.(*model.PriceSeries)
	return series, nil
}
