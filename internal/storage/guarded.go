package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"dropview/internal/middleware"
	"dropview/internal/observability"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
)

// GuardedStore wraps an AssetStore with a circuit breaker, metrics and spans.
type GuardedStore struct {
	next AssetStore
	cb   *gobreaker.CircuitBreaker
}

// NewGuardedStore trips after five consecutive failures and probes again after 30s.
func NewGuardedStore(name string, next AssetStore) *GuardedStore {
	st := gobreaker.Settings{
		Name:        "asset-store-" + name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			middleware.Logger.Warn("circuit breaker state",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}
	return &GuardedStore{next: next, cb: gobreaker.NewCircuitBreaker(st)}
}

// State is reported by the readiness check.
func (g *GuardedStore) State() gobreaker.State {
	return g.cb.State()
}

func (g *GuardedStore) Put(ctx context.Context, upload Upload) (*Asset, error) {
	ctx, span := observability.StartSpan(ctx, "storage", "put",
		attribute.String("content_type", upload.ContentType),
		attribute.Int("bytes", len(upload.Data)),
	)
	res, err := g.run("put", func() (any, error) {
		return g.next.Put(ctx, upload)
	})
	observability.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	return res.(*Asset), nil
}

func (g *GuardedStore) Delete(ctx context.Context, publicID string) error {
	ctx, span := observability.StartSpan(ctx, "storage", "delete", attribute.String("public_id", publicID))
	_, err := g.run("delete", func() (any, error) {
		return nil, g.next.Delete(ctx, publicID)
	})
	observability.EndSpan(span, err)
	return err
}

func (g *GuardedStore) run(operation string, fn func() (any, error)) (any, error) {
	start := time.Now()
	res, err := g.cb.Execute(fn)
	observability.AssetOperationLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())

	result := "ok"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		result = "rejected"
		err = errors.Join(ErrUnavailable, err)
	case err != nil:
		result = "error"
	}
	observability.AssetOperations.WithLabelValues(operation, result).Inc()
	return res, err
}
