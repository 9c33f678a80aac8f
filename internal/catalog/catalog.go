package catalog

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/yourorg/rentwheels/internal/domain"
	"github.com/yourorg/rentwheels/internal/infrastructure/redis"
	"github.com/yourorg/rentwheels/internal/observability/metrics"
	"github.com/yourorg/rentwheels/internal/reliability/circuitbreaker"
	"github.com/yourorg/rentwheels/pkg/cache"
)

const availableKey = "catalog:available"

// VehicleCatalog caches the list of currently available vehicles. Redis is
// the shared tier; a local in-memory copy with a short TTL serves reads when
// Redis is down or absent. All booking-state writers invalidate it, so a
// stale entry can only claim availability the store will reject anyway.
type VehicleCatalog struct {
	redis   *redis.Client
	local   *cache.Cache[[]*domain.Vehicle]
	breaker *circuitbreaker.CircuitBreaker
	ttl     time.Duration
	logger  *slog.Logger
}

// New creates a vehicle catalog. redisClient may be nil; the catalog then
// runs on the local tier only.
func New(redisClient *redis.Client, ttl time.Duration, logger *slog.Logger) *VehicleCatalog {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	breaker := circuitbreaker.New(5, 2, 30*time.Second)
	breaker.SetStateChangeCallback(func(from, to circuitbreaker.State) {
		logger.Warn("catalog redis circuit state changed",
			slog.Int("from", int(from)),
			slog.Int("to", int(to)),
		)
	})

	return &VehicleCatalog{
		redis:   redisClient,
		local:   cache.New[[]*domain.Vehicle](),
		breaker: breaker,
		ttl:     ttl,
		logger:  logger,
	}
}

// GetAvailable returns the cached available-vehicle list, or false on a miss.
func (c *VehicleCatalog) GetAvailable(ctx context.Context) ([]*domain.Vehicle, bool) {
	if c.redis != nil && c.breaker.AllowRequest() {
		raw, err := c.redis.Get(ctx, availableKey)
		switch {
		case err == nil:
			c.breaker.RecordSuccess()
			var vehicles []*domain.Vehicle
			if err := json.Unmarshal([]byte(raw), &vehicles); err != nil {
				c.logger.Warn("corrupt catalog entry, dropping", slog.String("error", err.Error()))
				_ = c.redis.Delete(ctx, availableKey)
				break
			}
			metrics.ObserveCatalogLookup("hit")
			return vehicles, true
		case redis.IsMiss(err):
			c.breaker.RecordSuccess()
		default:
			c.breaker.RecordFailure()
			c.logger.Warn("catalog redis read failed", slog.String("error", err.Error()))
		}
	}

	if vehicles, ok := c.local.Get(availableKey); ok {
		metrics.ObserveCatalogLookup("hit")
		return vehicles, true
	}

	metrics.ObserveCatalogLookup("miss")
	return nil, false
}

// SetAvailable stores the available-vehicle list in both tiers.
func (c *VehicleCatalog) SetAvailable(ctx context.Context, vehicles []*domain.Vehicle) {
	c.local.Set(availableKey, vehicles, c.ttl)

	if c.redis == nil || !c.breaker.AllowRequest() {
		return
	}

	raw, err := json.Marshal(vehicles)
	if err != nil {
		c.logger.Warn("failed to encode catalog entry", slog.String("error", err.Error()))
		return
	}
	if err := c.redis.Set(ctx, availableKey, raw, c.ttl); err != nil {
		c.breaker.RecordFailure()
		c.logger.Warn("catalog redis write failed", slog.String("error", err.Error()))
		return
	}
	c.breaker.RecordSuccess()
}

// Invalidate drops the cached list from both tiers. Called after every write
// that can change vehicle availability.
func (c *VehicleCatalog) Invalidate(ctx context.Context) {
	c.local.Delete(availableKey)

	if c.redis == nil || !c.breaker.AllowRequest() {
		return
	}
	if err := c.redis.Delete(ctx, availableKey); err != nil {
		c.breaker.RecordFailure()
		c.logger.Warn("catalog redis invalidate failed", slog.String("error", err.Error()))
		return
	}
	c.breaker.RecordSuccess()
}
