package catalog

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/angelmondragon/carbuild-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/carbuild-backend/pkg/redis"
	"golang.org/x/sync/singleflight"
)

// CachedSource fronts a Source with a redis cache. Concurrent misses for the same
// key share a single upstream call. Cache failures degrade to the upstream source.
type CachedSource struct {
	next  Source
	cache pkgredis.CacheStore
	ttl   time.Duration
	logg  *logger.Logger
	group singleflight.Group
}

// NewCachedSource wraps next. A nil cache yields next unchanged.
func NewCachedSource(next Source, cache pkgredis.CacheStore, ttl time.Duration, logg *logger.Logger) Source {
	if cache == nil {
		return next
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &CachedSource{next: next, cache: cache, ttl: ttl, logg: logg}
}

func (s *CachedSource) ListVehicles(ctx context.Context) ([]Vehicle, error) {
	key := s.cache.CatalogKey("vehicles")
	var vehicles []Vehicle
	err := s.load(ctx, key, &vehicles, func(ctx context.Context) (any, error) {
		return s.next.ListVehicles(ctx)
	})
	return vehicles, err
}

func (s *CachedSource) ListPartsForVehicle(ctx context.Context, vehicleID int64) ([]Part, error) {
	key := s.cache.CatalogKey("parts", strconv.FormatInt(vehicleID, 10))
	var parts []Part
	err := s.load(ctx, key, &parts, func(ctx context.Context) (any, error) {
		return s.next.ListPartsForVehicle(ctx, vehicleID)
	})
	return parts, err
}

// Invalidate drops the cached vehicle list and the part list of the given vehicles.
func (s *CachedSource) Invalidate(ctx context.Context, vehicleIDs ...int64) error {
	keys := []string{s.cache.CatalogKey("vehicles")}
	for _, id := range vehicleIDs {
		keys = append(keys, s.cache.CatalogKey("parts", strconv.FormatInt(id, 10)))
	}
	return s.cache.Del(ctx, keys...)
}

func (s *CachedSource) load(ctx context.Context, key string, dest any, fetch func(context.Context) (any, error)) error {
	if cached, err := s.cache.Get(ctx, key); err == nil {
		if jsonErr := json.Unmarshal([]byte(cached), dest); jsonErr == nil {
			return nil
		}
		s.logg.Warn(s.logg.WithField(ctx, "cache_key", key), "catalog cache entry is corrupt, reloading")
	} else if !pkgredis.IsMiss(err) {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"cache_key": key, "error": err.Error()}), "catalog cache unavailable, loading from source")
	}

	payload, err, _ := s.group.Do(key, func() (any, error) {
		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if setErr := s.cache.Set(ctx, key, string(encoded), s.ttl); setErr != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"cache_key": key, "error": setErr.Error()}), "catalog cache write failed")
		}
		return encoded, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(payload.([]byte), dest)
}
