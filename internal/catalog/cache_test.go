package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	pkgredis "github.com/angelmondragon/carbuild-backend/pkg/redis"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type fakeCache struct {
	mu      sync.Mutex
	data    map[string]string
	getErr  error
	deleted []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string]string{}}
}

func (f *fakeCache) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value.(string)
	return nil
}

func (f *fakeCache) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
		f.deleted = append(f.deleted, k)
	}
	return nil
}

func (f *fakeCache) CatalogKey(parts ...string) string {
	return "test:" + strings.Join(parts, ":")
}

type countingSource struct {
	mu           sync.Mutex
	vehicleCalls int
	partsCalls   int
	err          error
	parts        []Part
}

func (s *countingSource) ListVehicles(context.Context) ([]Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicleCalls++
	if s.err != nil {
		return nil, s.err
	}
	return []Vehicle{{ID: 3, Model: "Fusca", Year: 1970}}, nil
}

func (s *countingSource) ListPartsForVehicle(_ context.Context, _ int64) ([]Part, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.partsCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.parts, nil
}

var _ pkgredis.CacheStore = (*fakeCache)(nil)

func TestCachedSourceServesSecondCallFromCache(t *testing.T) {
	t.Parallel()

	upstream := &countingSource{parts: []Part{{ID: "5", Name: "Motor", UnitPrice: decimal.RequireFromString("1500.50")}}}
	cache := newFakeCache()
	src := NewCachedSource(upstream, cache, time.Minute, nil)

	for i := 0; i < 2; i++ {
		parts, err := src.ListPartsForVehicle(context.Background(), 3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(parts) != 1 || parts[0].ID != "5" || !parts[0].UnitPrice.Equal(decimal.RequireFromString("1500.5")) {
			t.Fatalf("unexpected parts %+v", parts)
		}
	}
	if upstream.partsCalls != 1 {
		t.Fatalf("expected a single upstream call, got %d", upstream.partsCalls)
	}
	if _, ok := cache.data["test:parts:3"]; !ok {
		t.Fatalf("expected parts to be cached, cache=%v", cache.data)
	}
}

func TestCachedSourceFallsBackWhenCacheUnavailable(t *testing.T) {
	t.Parallel()

	upstream := &countingSource{}
	cache := newFakeCache()
	cache.getErr = errors.New("connection refused")
	src := NewCachedSource(upstream, cache, time.Minute, nil)

	vehicles, err := src.ListVehicles(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vehicles) != 1 || vehicles[0].Model != "Fusca" {
		t.Fatalf("unexpected vehicles %+v", vehicles)
	}
}

func TestCachedSourcePropagatesUpstreamErrors(t *testing.T) {
	t.Parallel()

	upstream := &countingSource{err: errors.New("boom")}
	src := NewCachedSource(upstream, newFakeCache(), time.Minute, nil)

	if _, err := src.ListVehicles(context.Background()); err == nil {
		t.Fatal("expected upstream error")
	}
}

func TestCachedSourceInvalidate(t *testing.T) {
	t.Parallel()

	cache := newFakeCache()
	src := NewCachedSource(&countingSource{}, cache, time.Minute, nil).(*CachedSource)
	if err := src.Invalidate(context.Background(), 3, 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"test:vehicles", "test:parts:3", "test:parts:4"}
	if strings.Join(cache.deleted, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected deleted keys %v", cache.deleted)
	}
}

func TestNewCachedSourceWithoutCacheReturnsUpstream(t *testing.T) {
	t.Parallel()

	upstream := &countingSource{}
	if got := NewCachedSource(upstream, nil, time.Minute, nil); got != Source(upstream) {
		t.Fatal("expected upstream to be returned unchanged")
	}
}
