package news

import (
	"context"
	"time"

	"go.uber.org/zap"

	"newsbot/internal/logger"
	"newsbot/internal/models"
)

const (
	DefaultMaxResults = 3
	DefaultFetchDelay = 2 * time.Second
)

// ArticleCache stores extracted articles by URL.
type ArticleCache interface {
	Get(ctx context.Context, link string) (*models.Article, bool)
	Put(ctx context.Context, article *models.Article)
}

// Retriever searches the web and extracts article bodies one link at a time.
type Retriever struct {
	searcher   Searcher
	extractor  Extractor
	cache      ArticleCache
	fetchDelay time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	log        *zap.Logger
}

type Option func(*Retriever)

// WithCache enables the article cache.
func WithCache(cache ArticleCache) Option {
	return func(r *Retriever) { r.cache = cache }
}

// WithFetchDelay overrides the pause between two page downloads.
func WithFetchDelay(d time.Duration) Option {
	return func(r *Retriever) {
		if d < 0 {
			d = 0
		}
		r.fetchDelay = d
	}
}

func NewRetriever(searcher Searcher, extractor Extractor, opts ...Option) *Retriever {
	r := &Retriever{
		searcher:   searcher,
		extractor:  extractor,
		fetchDelay: DefaultFetchDelay,
		sleep:      sleepContext,
		log:        logger.Named("news"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FetchArticles returns the extracted articles for up to max search results,
// in search order. Search failures yield an empty slice and per-link failures
// are skipped.
func (r *Retriever) FetchArticles(ctx context.Context, query string, max int) []models.Article {
	if max <= 0 {
		max = DefaultMaxResults
	}
	r.log.Info("searching for latest news", zap.String("query", query))

	links, err := r.searcher.Search(ctx, query, max)
	if err != nil {
		r.log.Error("web search error", zap.Error(err))
		return []models.Article{}
	}
	if len(links) > max {
		links = links[:max]
	}

	articles := make([]models.Article, 0, len(links))
	downloaded := false
	for _, link := range links {
		if r.cache != nil {
			if cached, ok := r.cache.Get(ctx, link); ok {
				articles = append(articles, *cached)
				r.log.Info("article served from cache", zap.String("url", link))
				continue
			}
		}
		if downloaded && r.fetchDelay > 0 {
			if err := r.sleep(ctx, r.fetchDelay); err != nil {
				r.log.Warn("article fetch interrupted", zap.Error(err))
				break
			}
		}
		downloaded = true

		article, err := r.extractor.Extract(ctx, link)
		if err != nil {
			r.log.Error("failed to fetch article", zap.String("url", link), zap.Error(err))
			continue
		}
		if article.URL == "" {
			article.URL = link
		}
		articles = append(articles, *article)
		r.log.Info("retrieved article", zap.String("url", link))
		if r.cache != nil {
			r.cache.Put(ctx, article)
		}
	}
	return articles
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
