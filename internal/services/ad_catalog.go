package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/adrewards/backend/internal/models"
	"github.com/adrewards/backend/internal/store"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// AdCatalog serves ads from the store behind an optional Redis read-through cache.
// A cached ad can lag an admin change by at most the TTL.
type AdCatalog struct {
	store   store.Store
	redis   *redis.Client
	ttl     time.Duration
	metrics *Metrics
	log     *zap.Logger
}

func NewAdCatalog(s store.Store, redisClient *redis.Client, ttl time.Duration, metrics *Metrics, logger *zap.Logger) *AdCatalog {
	return &AdCatalog{
		store:   s,
		redis:   redisClient,
		ttl:     ttl,
		metrics: metrics,
		log:     logger,
	}
}

func adCacheKey(adID int64) string {
	return fmt.Sprintf("ad:%d", adID)
}

// Get returns the ad or a NotFound error
func (c *AdCatalog) Get(ctx context.Context, adID int64) (*models.Ad, error) {
	if c.redis != nil {
		data, err := c.redis.Get(ctx, adCacheKey(adID)).Bytes()
		switch {
		case err == nil:
			var ad models.Ad
			if jsonErr := json.Unmarshal(data, &ad); jsonErr == nil {
				c.metrics.AdCacheLookups.WithLabelValues("hit").Inc()
				return &ad, nil
			}
			c.log.Warn("Discarding corrupt cached ad", zap.Int64("ad_id", adID))
		case errors.Is(err, redis.Nil):
			c.metrics.AdCacheLookups.WithLabelValues("miss").Inc()
		default:
			c.metrics.AdCacheLookups.WithLabelValues("error").Inc()
			c.log.Warn("Ad cache read failed, falling back to store", zap.Int64("ad_id", adID), zap.Error(err))
		}
	}

	ad, err := c.store.GetAd(ctx, adID)
	if errors.Is(err, store.ErrAdNotFound) {
		return nil, NotFound("Ad not found")
	}
	if err != nil {
		return nil, err
	}

	if c.redis != nil {
		data, err := json.Marshal(ad)
		if err == nil {
			err = c.redis.Set(ctx, adCacheKey(adID), data, c.ttl).Err()
		}
		if err != nil {
			c.log.Warn("Ad cache write failed", zap.Int64("ad_id", adID), zap.Error(err))
		}
	}
	return ad, nil
}

// List returns catalog ads, newest first
func (c *AdCatalog) List(ctx context.Context, activeOnly bool) ([]models.Ad, error) {
	return c.store.ListAds(ctx, activeOnly)
}

// SetActive pauses or resumes an ad and evicts its cached copy. A failed
// eviction is logged; the stale entry then expires with the TTL.
func (c *AdCatalog) SetActive(ctx context.Context, actor Actor, adID int64, active bool) (*models.Ad, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	if err := c.store.SetAdActive(ctx, adID, active); err != nil {
		if errors.Is(err, store.ErrAdNotFound) {
			return nil, NotFound("Ad not found")
		}
		return nil, err
	}
	if err := c.Invalidate(ctx, adID); err != nil {
		c.log.Warn("Ad cache eviction failed", zap.Int64("ad_id", adID), zap.Error(err))
	}
	c.log.Info("Ad availability changed", zap.Int64("ad_id", adID), zap.Bool("active", active), zap.String("admin_id", actor.UserID))
	return c.store.GetAd(ctx, adID)
}

// Invalidate drops a cached ad after it changes
func (c *AdCatalog) Invalidate(ctx context.Context, adID int64) error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Del(ctx, adCacheKey(adID)).Err()
}
