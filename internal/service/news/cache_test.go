package news

import (
	"context"
	"net"
	"os"
	"strconv"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"newsbot/internal/config"
	"newsbot/internal/models"
	"newsbot/internal/redis"
)

func TestRedisCacheStoreAndLoad(t *testing.T) {
	cache, raw := newTestRedisCache(t)
	ctx := context.Background()

	link := "https://news.test/story"
	if _, ok := cache.Get(ctx, link); ok {
		t.Fatalf("expected miss on empty cache")
	}

	cache.Put(ctx, &models.Article{URL: link, Title: "Story", Text: "body"})
	got, ok := cache.Get(ctx, link)
	if !ok || got.Text != "body" || got.Title != "Story" {
		t.Fatalf("cached article mismatch: %#v", got)
	}
	ttl, err := raw.TTL(ctx, articleKey(link)).Result()
	if err != nil || ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected ttl %v (err %v)", ttl, err)
	}

	if err := raw.Set(ctx, articleKey(link), "not json", time.Minute).Err(); err != nil {
		t.Fatalf("overwrite key: %v", err)
	}
	if _, ok := cache.Get(ctx, link); ok {
		t.Fatalf("undecodable entry must be a miss")
	}
}

func TestArticleKeyIsStable(t *testing.T) {
	a := articleKey("https://x.test/a")
	if a != articleKey("https://x.test/a") {
		t.Fatalf("key not deterministic")
	}
	if a == articleKey("https://x.test/b") {
		t.Fatalf("distinct urls share a key")
	}
	if len(a) != len(articleKeyPrefix)+40 {
		t.Fatalf("unexpected key length: %s", a)
	}
}

func TestNilRedisCacheIsMiss(t *testing.T) {
	var cache *RedisCache
	if _, ok := cache.Get(context.Background(), "https://x.test"); ok {
		t.Fatalf("nil cache must miss")
	}
	cache.Put(context.Background(), &models.Article{URL: "https://x.test", Text: "t"})
}

// newTestRedisCache also returns a raw client on the same database for
// inspecting keys.
func newTestRedisCache(t *testing.T) (*RedisCache, *goredis.Client) {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("atoi port: %v", err)
	}
	db := 0
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			db = parsed
		}
	}
	client, err := redis.NewRedisClient(config.RedisConfig{Host: host, Port: port, DB: db})
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	raw := goredis.NewClient(&goredis.Options{Addr: addr, DB: db})
	t.Cleanup(func() {
		client.Close()
		raw.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := raw.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("flush db: %v", err)
	}
	return NewRedisCache(client, time.Minute), raw
}
