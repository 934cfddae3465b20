package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pitchfeed/internal/metrics"
	"pitchfeed/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// GuardConfig bounds calls into an upstream oracle.
type GuardConfig struct {
	Name        string
	Timeout     time.Duration // per call
	MaxFailures uint32        // consecutive failures before the breaker opens
	OpenFor     time.Duration // how long the breaker stays open
}

// Guard wraps an Oracle with a per-call timeout and a circuit breaker.
// NotFound answers do not count against the breaker.
type Guard struct {
	next    Oracle
	cfg     GuardConfig
	cb      *gobreaker.CircuitBreaker
	metrics *metrics.Registry
}

func NewGuard(next Oracle, cfg GuardConfig, m *metrics.Registry) *Guard {
	if cfg.Name == "" {
		cfg.Name = "oracle"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenFor <= 0 {
		cfg.OpenFor = 30 * time.Second
	}

	st := gobreaker.Settings{Name: cfg.Name}
	st.ReadyToTrip = func(counts gobreaker.Counts) bool { return counts.ConsecutiveFailures >= cfg.MaxFailures }
	st.Interval = 0
	st.Timeout = cfg.OpenFor
	st.IsSuccessful = func(err error) bool { return err == nil || errors.Is(err, ErrNotFound) }
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("oracle breaker state changed")
	}

	return &Guard{next: next, cfg: cfg, cb: gobreaker.NewCircuitBreaker(st), metrics: m}
}

// State reports the breaker state, mostly for health checks.
func (g *Guard) State() string {
	return g.cb.State().String()
}

func (g *Guard) execute(ctx context.Context, op, assetID string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	res, err := g.cb.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	switch {
	case err == nil:
		g.metrics.ObserveOracle(op, "ok")
		return res, nil
	case errors.Is(err, ErrNotFound):
		g.metrics.ObserveOracle(op, "not_found")
		return nil, err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		g.metrics.ObserveOracle(op, "open")
		return nil, fmt.Errorf("%s: %v: %w", assetID, err, ErrUnavailable)
	case errors.Is(err, ErrUnavailable):
		g.metrics.ObserveOracle(op, "unavailable")
		return nil, err
	default:
		g.metrics.ObserveOracle(op, "unavailable")
		return nil, fmt.Errorf("%s: %v: %w", assetID, err, ErrUnavailable)
	}
}

func (g *Guard) CurrentPrice(ctx context.Context, assetID string) (Quote, error) {
	res, err := g.execute(ctx, "price", assetID, func(ctx context.Context) (interface{}, error) {
		return g.next.CurrentPrice(ctx, assetID)
	})
	if err != nil {
		return Quote{}, err
	}
	return res.(Quote), nil
}

func (g *Guard) AssetMetadata(ctx context.Context, assetID string) (models.AssetSnapshot, error) {
	res, err := g.execute(ctx, "metadata", assetID, func(ctx context.Context) (interface{}, error) {
		return g.next.AssetMetadata(ctx, assetID)
	})
	if err != nil {
		return models.AssetSnapshot{}, err
	}
	return res.(models.AssetSnapshot), nil
}
