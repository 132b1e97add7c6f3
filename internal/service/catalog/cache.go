package catalog

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

// DefaultCacheTTL — время жизни ответа каталога в кэше.
const DefaultCacheTTL = 30 * time.Second

// Cache — минимальное key-value хранилище с TTL. Get возвращает "" без ошибки при промахе.
type Cache interface {
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}

type cachedRestaurant struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	IsOpen bool   `json:"is_open"`
}

// CachedClient кэширует ответы каталога о существующих ресторанах. Отсутствующие рестораны
// и ошибки не кэшируются; сбой кэша не влияет на результат, только логируется.
type CachedClient struct {
	next   domain.CatalogClient
	cache  Cache
	ttl    time.Duration
	logger *log.Entry
}

// NewCachedClient оборачивает next кэшем.
func NewCachedClient(next domain.CatalogClient, cache Cache, ttl time.Duration, logger *log.Entry) *CachedClient {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = log.WithField("component", "catalog-cache")
	}
	return &CachedClient{next: next, cache: cache, ttl: ttl, logger: logger}
}

func restaurantKey(id int64) string {
	return "foodorder:catalog:restaurant:" + strconv.FormatInt(id, 10)
}

// GetRestaurant возвращает ресторан из кэша или из каталога.
func (c *CachedClient) GetRestaurant(ctx context.Context, restaurantID int64) (domain.Restaurant, error) {
	key := restaurantKey(restaurantID)

	raw, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		c.logger.WithError(err).WithField("key", key).Warn("catalog cache read failed")
	case raw != "":
		var cached cachedRestaurant
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return domain.Restaurant{ID: cached.ID, Name: cached.Name, Exists: true, IsOpen: cached.IsOpen}, nil
		}
		c.logger.WithField("key", key).Warn("catalog cache entry is malformed, refetching")
	}

	restaurant, err := c.next.GetRestaurant(ctx, restaurantID)
	if err != nil || !restaurant.Exists {
		return restaurant, err
	}

	payload, err := json.Marshal(cachedRestaurant{ID: restaurant.ID, Name: restaurant.Name, IsOpen: restaurant.IsOpen})
	if err == nil {
		err = c.cache.Set(ctx, key, string(payload), c.ttl)
	}
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("catalog cache write failed")
	}
	return restaurant, nil
}

var _ domain.CatalogClient = (*CachedClient)(nil)
