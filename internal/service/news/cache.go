package news

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"newsbot/internal/logger"
	"newsbot/internal/models"
	"newsbot/internal/redis"
)

const (
	articleKeyPrefix  = "news:article:"
	DefaultArticleTTL = 30 * time.Minute
)

// RedisCache keeps extracted articles in redis keyed by URL hash.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultArticleTTL
	}
	return &RedisCache{client: client, ttl: ttl, log: logger.Named("article-cache")}
}

func articleKey(link string) string {
	sum := sha1.Sum([]byte(link))
	return articleKeyPrefix + hex.EncodeToString(sum[:])
}

func (c *RedisCache) Get(ctx context.Context, link string) (*models.Article, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Load(ctx, articleKey(link))
	if err != nil {
		if !errors.Is(err, redis.ErrMiss) {
			c.log.Warn("article cache read failed", zap.String("url", link), zap.Error(err))
		}
		return nil, false
	}
	var article models.Article
	if err := json.Unmarshal(raw, &article); err != nil {
		c.log.Warn("article cache decode failed", zap.String("url", link), zap.Error(err))
		return nil, false
	}
	if article.Text == "" {
		return nil, false
	}
	return &article, true
}

func (c *RedisCache) Put(ctx context.Context, article *models.Article) {
	if c == nil || c.client == nil || article == nil || article.URL == "" {
		return
	}
	payload, err := json.Marshal(article)
	if err != nil {
		c.log.Warn("article cache marshal failed", zap.Error(err))
		return
	}
	if err := c.client.Store(ctx, articleKey(article.URL), payload, c.ttl); err != nil {
		c.log.Warn("article cache write failed", zap.String("url", article.URL), zap.Error(err))
	}
}
