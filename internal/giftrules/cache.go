package giftrules

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/brightbasket/brightbasket-backend/pkg/db/models"
	"github.com/brightbasket/brightbasket-backend/pkg/logger"
	"github.com/brightbasket/brightbasket-backend/pkg/redis"
)

type ruleCacheStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	GiftRulesKey() string
}

// RuleCache keeps the active rule list in Redis so storefront reads don't
// hit the database on every cart fetch. Misses and decode failures fall
// back to the database; cache trouble is logged, never surfaced.
type RuleCache struct {
	store ruleCacheStore
	ttl   time.Duration
	logg  *logger.Logger
}

// NewRuleCache builds a cache with the provided TTL. A nil store disables
// caching entirely.
func NewRuleCache(store ruleCacheStore, ttl time.Duration, logg *logger.Logger) *RuleCache {
	return &RuleCache{store: store, ttl: ttl, logg: logg}
}

// Get returns the cached rules, or (nil, false) on miss or error.
func (c *RuleCache) Get(ctx context.Context) ([]models.FreeProductRule, bool) {
	if c == nil || c.store == nil {
		return nil, false
	}
	raw, err := c.store.Get(ctx, c.store.GiftRulesKey())
	if err != nil {
		if !errors.Is(err, redis.Nil) && c.logg != nil {
			c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "gift rule cache read failed")
		}
		return nil, false
	}
	var rules []models.FreeProductRule
	if err := json.Unmarshal([]byte(raw), &rules); err != nil {
		if c.logg != nil {
			c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "gift rule cache entry corrupt")
		}
		return nil, false
	}
	return rules, true
}

// Put stores the rule list under the shared key.
func (c *RuleCache) Put(ctx context.Context, rules []models.FreeProductRule) {
	if c == nil || c.store == nil {
		return
	}
	payload, err := json.Marshal(rules)
	if err != nil {
		if c.logg != nil {
			c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "gift rule cache encode failed")
		}
		return
	}
	if err := c.store.Set(ctx, c.store.GiftRulesKey(), payload, c.ttl); err != nil && c.logg != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "gift rule cache write failed")
	}
}

// Invalidate drops the cached list. Called after every admin write.
func (c *RuleCache) Invalidate(ctx context.Context) {
	if c == nil || c.store == nil {
		return
	}
	if err := c.store.Del(ctx, c.store.GiftRulesKey()); err != nil && c.logg != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "gift rule cache invalidation failed")
	}
}
