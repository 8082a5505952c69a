package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/tool/duckduckgo/v2"
	"github.com/cloudwego/eino-ext/components/tool/googlesearch"
	"github.com/cloudwego/eino/components/tool"
	"go.uber.org/zap"

	"newsbot/internal/config"
	"newsbot/internal/logger"
)

// Searcher returns result links for a query, best match first.
type Searcher interface {
	Search(ctx context.Context, query string, max int) ([]string, error)
}

// WebSearcher queries Google (when configured) and falls back to DuckDuckGo.
type WebSearcher struct {
	google tool.InvokableTool
	duck   tool.InvokableTool
	log    *zap.Logger
}

// NewWebSearcher builds the provider chain. DuckDuckGo needs no token so at
// least one provider is always present unless its construction fails.
func NewWebSearcher(ctx context.Context, cfg config.SearchConfig) (*WebSearcher, error) {
	log := logger.Named("search")
	google, err := initGoogleSearch(ctx, cfg)
	if err != nil {
		log.Warn("google search tool disabled", zap.Error(err))
	}
	duck, err := initDDGSearch(ctx, cfg)
	if err != nil {
		log.Warn("duckduckgo search tool disabled", zap.Error(err))
	}
	return newWebSearcher(google, duck)
}

func newWebSearcher(google, duck tool.InvokableTool) (*WebSearcher, error) {
	if google == nil && duck == nil {
		return nil, errors.New("web search disabled: no search providers available")
	}
	return &WebSearcher{google: google, duck: duck, log: logger.Named("search")}, nil
}

func initDDGSearch(ctx context.Context, cfg config.SearchConfig) (tool.InvokableTool, error) {
	region := duckduckgo.Region(cfg.Region)
	if region == "" {
		region = duckduckgo.RegionWT
	}
	return duckduckgo.NewTextSearchTool(ctx, &duckduckgo.Config{
		ToolName:   "web_search_ddg",
		ToolDesc:   "DuckDuckGo Search Tool (no token required)",
		MaxResults: maxResultsOrDefault(cfg.MaxResults),
		Region:     region,
		Timeout:    cfg.Timeout(),
	})
}

func initGoogleSearch(ctx context.Context, cfg config.SearchConfig) (tool.InvokableTool, error) {
	if cfg.GoogleAPIKey == "" || cfg.GoogleEngineID == "" {
		return nil, fmt.Errorf("missing %s or %s", config.GoogleKeyEnv, config.GoogleEngineEnv)
	}
	return googlesearch.NewTool(ctx, &googlesearch.Config{
		ToolName:       "web_search_google",
		ToolDesc:       "Google Search Tool",
		APIKey:         cfg.GoogleAPIKey,
		SearchEngineID: cfg.GoogleEngineID,
		Lang:           "en",
		Num:            maxResultsOrDefault(cfg.MaxResults),
	})
}

type searchParams struct {
	Query string `json:"query"`
	Num   int    `json:"num,omitempty"`
}

// searchResponse accepts both the duckduckgo ("results"/"url") and the
// googlesearch ("items"/"link") result shapes.
type searchResponse struct {
	Results []struct {
		URL  string `json:"url"`
		Link string `json:"link"`
	} `json:"results"`
	Items []struct {
		Link string `json:"link"`
		URL  string `json:"url"`
	} `json:"items"`
}

func (w *WebSearcher) Search(ctx context.Context, query string, max int) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	max = maxResultsOrDefault(max)

	payloadBytes, err := json.Marshal(searchParams{Query: query, Num: max})
	if err != nil {
		return nil, fmt.Errorf("marshal search params: %w", err)
	}
	payload := string(payloadBytes)

	if w.google != nil {
		links, err := runSearchTool(ctx, w.google, payload, max)
		switch {
		case err != nil:
			w.log.Warn("google search failed", zap.Error(err))
		case len(links) > 0 || w.duck == nil:
			return links, nil
		default:
			w.log.Info("google search returned no links, trying duckduckgo")
		}
	}
	if w.duck != nil {
		links, err := runSearchTool(ctx, w.duck, payload, max)
		if err == nil {
			return links, nil
		}
		w.log.Warn("duckduckgo search failed", zap.Error(err))
	}
	return nil, errors.New("no search provider succeeded")
}

func runSearchTool(ctx context.Context, t tool.InvokableTool, payload string, max int) ([]string, error) {
	raw, err := t.InvokableRun(ctx, payload)
	if err != nil {
		return nil, err
	}
	return parseLinks(raw, max)
}

func parseLinks(raw string, max int) ([]string, error) {
	var resp searchResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("decode search result: %w", err)
	}
	seen := make(map[string]struct{})
	links := make([]string, 0, max)
	add := func(candidates ...string) {
		for _, c := range candidates {
			c = strings.TrimSpace(c)
			if c == "" || !looksLikeURL(c) {
				continue
			}
			if _, ok := seen[c]; ok {
				return
			}
			seen[c] = struct{}{}
			links = append(links, c)
			return
		}
	}
	for _, r := range resp.Results {
		add(r.URL, r.Link)
	}
	for _, it := range resp.Items {
		add(it.Link, it.URL)
	}
	if len(links) > max {
		links = links[:max]
	}
	return links, nil
}

func maxResultsOrDefault(n int) int {
	if n <= 0 {
		return DefaultMaxResults
	}
	return n
}
