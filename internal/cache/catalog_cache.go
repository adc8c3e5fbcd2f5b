package cache

import (
	"context"
	"sync"
	"time"

	"github.com/Cheertaboi/food-promotion-service/internal/models"
)

// CatalogCache holds promotion catalog snapshots keyed by channel/status.
type CatalogCache interface {
	Get(ctx context.Context, key string) ([]models.Promotion, bool, error)
	Set(ctx context.Context, key string, catalog []models.Promotion) error
	Invalidate(ctx context.Context) error
}

type entry struct {
	catalog []models.Promotion
	expires time.Time
}

// MemoryCatalogCache is the in-process cache used when Redis is not configured.
type MemoryCatalogCache struct {
	mu    sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
	store map[string]entry
}

func NewMemoryCatalogCache(ttl time.Duration) *MemoryCatalogCache {
	return &MemoryCatalogCache{
		ttl:   ttl,
		now:   time.Now,
		store: make(map[string]entry),
	}
}

func (c *MemoryCatalogCache) Get(_ context.Context, key string) ([]models.Promotion, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.store[key]
	if !ok || (c.ttl > 0 && !c.now().Before(e.expires)) {
		return nil, false, nil
	}
	return append([]models.Promotion(nil), e.catalog...), true, nil
}

func (c *MemoryCatalogCache) Set(_ context.Context, key string, catalog []models.Promotion) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = entry{
		catalog: append([]models.Promotion(nil), catalog...),
		expires: c.now().Add(c.ttl),
	}
	return nil
}

func (c *MemoryCatalogCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = make(map[string]entry)
	return nil
}
