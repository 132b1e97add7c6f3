package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

type mapCache struct {
	mu      sync.Mutex
	values  map[string]string
	ttls    map[string]time.Duration
	getErr  error
	setErr  error
	setCall int
}

func newMapCache() *mapCache {
	return &mapCache{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (c *mapCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setCall++
	if c.setErr != nil {
		return c.setErr
	}
	c.values[key] = value
	c.ttls[key] = ttl
	return nil
}

func (c *mapCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return "", c.getErr
	}
	return c.values[key], nil
}

func TestCachedClient_HitAfterMiss(t *testing.T) {
	ctx := context.Background()
	backend := NewMockService()
	backend.AddRestaurant(7, "Pho House", true)
	cache := newMapCache()

	client := NewCachedClient(backend, cache, time.Minute, nil)

	first, err := client.GetRestaurant(ctx, 7)
	require.NoError(t, err)
	require.True(t, first.Exists)
	require.Equal(t, time.Minute, cache.ttls[restaurantKey(7)])

	second, err := client.GetRestaurant(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, backend.Calls)
}

func TestCachedClient_DoesNotCacheMissingOrErrors(t *testing.T) {
	ctx := context.Background()
	backend := NewMockService()
	cache := newMapCache()
	client := NewCachedClient(backend, cache, 0, nil)

	r, err := client.GetRestaurant(ctx, 99)
	require.NoError(t, err)
	require.False(t, r.Exists)
	require.Zero(t, cache.setCall)

	backend.Err = domain.ErrExternalUnavailable
	_, err = client.GetRestaurant(ctx, 99)
	require.ErrorIs(t, err, domain.ErrExternalUnavailable)
	require.Zero(t, cache.setCall)
}

func TestCachedClient_CacheFailuresFallThrough(t *testing.T) {
	ctx := context.Background()
	backend := NewMockService()
	backend.AddRestaurant(7, "Pho House", false)
	cache := newMapCache()
	cache.getErr = errors.New("redis down")
	cache.setErr = errors.New("redis down")

	client := NewCachedClient(backend, cache, time.Minute, nil)
	r, err := client.GetRestaurant(ctx, 7)
	require.NoError(t, err)
	require.True(t, r.Exists)
	require.False(t, r.IsOpen)
}

func TestCachedClient_MalformedEntryRefetches(t *testing.T) {
	ctx := context.Background()
	backend := NewMockService()
	backend.AddRestaurant(7, "Pho House", true)
	cache := newMapCache()
	cache.values[restaurantKey(7)] = "{broken"

	client := NewCachedClient(backend, cache, time.Minute, nil)
	r, err := client.GetRestaurant(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, "Pho House", r.Name)
	require.Equal(t, 1, backend.Calls)
}
