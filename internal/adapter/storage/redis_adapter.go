package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/rl1809/pantry/internal/core/domain"
	"github.com/rl1809/pantry/internal/logging"
	"github.com/rl1809/pantry/internal/metrics"
	"github.com/rl1809/pantry/internal/port"
)

const (
	idempotencyKeyPrefix = "idempotency:"
	densityKeyPrefix     = "density:"

	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultDensityTTL     = time.Hour

	// cacheFailureThreshold consecutive Redis errors open the cache breaker
	// for cacheBreakerTimeout.
	cacheFailureThreshold = 5
	cacheBreakerTimeout   = 30 * time.Second
)

type RedisAdapter struct {
	client         *redis.Client
	idempotencyTTL time.Duration
}

func NewRedisAdapter(client *redis.Client, idempotencyTTL time.Duration) *RedisAdapter {
	if idempotencyTTL <= 0 {
		idempotencyTTL = DefaultIdempotencyTTL
	}
	return &RedisAdapter{client: client, idempotencyTTL: idempotencyTTL}
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, r.idempotencyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// cachedDensity is the msgpack form of a density entry.
type cachedDensity struct {
	Name       string `msgpack:"n"`
	Mass       string `msgpack:"m"`
	MassUnit   string `msgpack:"mu"`
	Volume     string `msgpack:"v"`
	VolumeUnit string `msgpack:"vu"`
}

// CachedDensityRepository is a read-through Redis cache in front of another
// density repository. Cache failures degrade to the origin; repeated
// failures open a breaker and the cache is bypassed until it half-opens.
type CachedDensityRepository struct {
	client  *redis.Client
	origin  port.DensityRepository
	ttl     time.Duration
	breaker *gobreaker.CircuitBreaker[[]byte]
}

func NewCachedDensityRepository(client *redis.Client, origin port.DensityRepository, ttl time.Duration) *CachedDensityRepository {
	if ttl <= 0 {
		ttl = DefaultDensityTTL
	}
	return &CachedDensityRepository{
		client:  client,
		origin:  origin,
		ttl:     ttl,
		breaker: newCacheBreaker("density-cache"),
	}
}

func newCacheBreaker(name string) *gobreaker.CircuitBreaker[[]byte] {
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cacheBreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cacheFailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("cache breaker state changed")
		},
	})
}

// BreakerState reports the cache breaker state: closed, half-open or open.
func (c *CachedDensityRepository) BreakerState() string {
	return c.breaker.State().String()
}

func (c *CachedDensityRepository) GetDensityEntry(ctx context.Context, name string) (*domain.DensityEntry, error) {
	key := densityKeyPrefix + domain.DensityKey(name)

	raw, err := c.breaker.Execute(func() ([]byte, error) {
		return c.client.Get(ctx, key).Bytes()
	})
	switch {
	case err == nil:
		entry, decodeErr := decodeDensity(raw)
		if decodeErr == nil {
			metrics.DensityCacheLookups.WithLabelValues("hit").Inc()
			return entry, nil
		}
		logging.Ctx(ctx).Warn().Err(decodeErr).Str("key", key).Msg("dropping undecodable density cache entry")
		c.client.Del(ctx, key)
		metrics.DensityCacheLookups.WithLabelValues("error").Inc()
	case errors.Is(err, redis.Nil):
		metrics.DensityCacheLookups.WithLabelValues("miss").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.DensityCacheLookups.WithLabelValues("bypass").Inc()
		return c.origin.GetDensityEntry(ctx, name)
	default:
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("density cache unavailable")
		metrics.DensityCacheLookups.WithLabelValues("error").Inc()
	}

	entry, err := c.origin.GetDensityEntry(ctx, name)
	if err != nil {
		return nil, err
	}

	if raw, err := encodeDensity(*entry); err == nil {
		_, err := c.breaker.Execute(func() ([]byte, error) {
			return nil, c.client.Set(ctx, key, raw, c.ttl).Err()
		})
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("failed to cache density entry")
		}
	}
	return entry, nil
}

// Invalidate drops the cached entry for name.
func (c *CachedDensityRepository) Invalidate(ctx context.Context, name string) error {
	return c.client.Del(ctx, densityKeyPrefix+domain.DensityKey(name)).Err()
}

func encodeDensity(e domain.DensityEntry) ([]byte, error) {
	return msgpack.Marshal(cachedDensity{
		Name:       e.IngredientName,
		Mass:       e.ReferenceMass.String(),
		MassUnit:   e.ReferenceMassUnit,
		Volume:     e.ReferenceVolume.String(),
		VolumeUnit: e.ReferenceVolumeUnit,
	})
}

func decodeDensity(raw []byte) (*domain.DensityEntry, error) {
	var c cachedDensity
	if err := msgpack.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	mass, err := decimal.NewFromString(c.Mass)
	if err != nil {
		return nil, fmt.Errorf("reference mass: %w", err)
	}
	volume, err := decimal.NewFromString(c.Volume)
	if err != nil {
		return nil, fmt.Errorf("reference volume: %w", err)
	}
	return &domain.DensityEntry{
		IngredientName:      c.Name,
		ReferenceMass:       mass,
		ReferenceMassUnit:   c.MassUnit,
		ReferenceVolume:     volume,
		ReferenceVolumeUnit: c.VolumeUnit,
	}, nil
}

var (
	_ port.IdempotencyStore  = (*RedisAdapter)(nil)
	_ port.DensityRepository = (*CachedDensityRepository)(nil)
)
