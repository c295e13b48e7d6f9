package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = gobreaker.ErrOpenState

var (
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "circuit_breaker_state",
		Help: "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
	}, []string{"name"})

	breakerFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "circuit_breaker_fallback_total",
		Help: "Calls answered by the fallback because the breaker rejected them.",
	}, []string{"name"})
)

type BreakerConfig struct {
	Name string
	// MaxRequests is how many probes pass while half-open.
	MaxRequests uint32
	// Interval clears the closed-state counts; zero never clears them.
	Interval time.Duration
	// Timeout is how long the breaker stays open.
	Timeout      time.Duration
	FailureRatio float64
	// MinRequests must be seen before FailureRatio is considered.
	MinRequests uint32
}

// DefaultBreakerConfig opens after half of at least five calls in a minute
// fail and probes again after thirty seconds.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// FallbackFunc answers a call the breaker rejected. err is ErrCircuitOpen or
// gobreaker.ErrTooManyRequests.
type FallbackFunc func(ctx context.Context, err error) (*http.Response, error)

// UpstreamError is a 5xx answer, counted as a breaker failure.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.Status, e.Body)
}

// Breaker guards a Doer with a circuit breaker. Callers that gave up
// (context canceled) are not held against the upstream.
type Breaker struct {
	next     Doer
	cb       *gobreaker.CircuitBreaker[*http.Response]
	fallback FallbackFunc
	name     string
	logger   *slog.Logger
}

func NewBreaker(next Doer, cfg BreakerConfig, logger *slog.Logger) *Breaker {
	state := breakerState.WithLabelValues(cfg.Name)
	state.Set(stateValue(gobreaker.StateClosed))

	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.Requests >= cfg.MinRequests &&
				float64(c.TotalFailures)/float64(c.Requests) >= cfg.FailureRatio
		},
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			state.Set(stateValue(to))
		},
	})

	return &Breaker{next: next, cb: cb, name: cfg.Name, logger: logger}
}

// WithFallback returns a copy of b that hands rejected calls to fn.
func (b *Breaker) WithFallback(fn FallbackFunc) *Breaker {
	cp := *b
	cp.fallback = fn
	return &cp
}

// Do runs req through the breaker. A 5xx answer is drained and returned as
// *UpstreamError.
func (b *Breaker) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := b.cb.Execute(func() (*http.Response, error) {
		resp, err := b.next.Do(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			defer resp.Body.Close()
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
			return nil, &UpstreamError{Status: resp.StatusCode, Body: string(body)}
		}
		return resp, nil
	})

	rejected := errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
	if rejected && b.fallback != nil {
		breakerFallbacks.WithLabelValues(b.name).Inc()
		b.logger.WarnContext(ctx, "circuit breaker rejected call, using fallback",
			slog.String("breaker", b.name),
			slog.String("error", err.Error()),
		)
		return b.fallback(ctx, err)
	}
	return resp, err
}

func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
