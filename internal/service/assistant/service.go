package assistant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"newsbot/internal/logger"
	"newsbot/internal/models"
)

const (
	// RealtimeMaxResults bounds the news lookup done after a cutoff reply.
	RealtimeMaxResults = 3

	summaryPrompt      = "Summarize and answer this question based on the latest news: "
	summaryArticleUsed = 2

	unavailableReply = "AI is currently unavailable. Please try again later."
	noArticlesReply  = "❌ No valid articles found. Please try again later."
	errorReplyPrefix = "❌ Error processing request: "
)

var (
	ErrModelUnavailable = errors.New("model unavailable")
	ErrNoArticles       = errors.New("no valid articles found")
)

var realtimePhrases = []string{"do not have information", "knowledge cutoff"}

// Answerer returns the model reply for a single prompt.
type Answerer interface {
	Ask(ctx context.Context, question string) (string, error)
}

// NewsFetcher returns the article bodies found for a query.
type NewsFetcher interface {
	FetchArticles(ctx context.Context, query string, max int) []models.Article
}

// Service decides whether a question needs fresh news and produces the final answer.
type Service struct {
	ai   Answerer
	news NewsFetcher
	db   *sql.DB
	log  *zap.Logger
}

// NewService builds the orchestrator. db may be nil when history is disabled.
func NewService(ai Answerer, news NewsFetcher, db *sql.DB) *Service {
	return &Service{ai: ai, news: news, db: db, log: logger.Named("assistant")}
}

// HistoryEnabled reports whether answered queries are persisted.
func (s *Service) HistoryEnabled() bool {
	return s.db != nil
}

// NeedsRealtime reports whether the model admitted its knowledge is stale.
func NeedsRealtime(answer string) bool {
	lower := strings.ToLower(answer)
	for _, phrase := range realtimePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// GetFinalAnswer asks the model once and, if the reply signals a knowledge
// cutoff, re-asks with a summary prompt built from current news.
func (s *Service) GetFinalAnswer(ctx context.Context, query string) (string, error) {
	answer, err := s.ai.Ask(ctx, query)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	if !NeedsRealtime(answer) {
		s.record(ctx, query, answer, false)
		return answer, nil
	}

	s.log.Info("fetching real-time news", zap.String("query", query))
	articles := s.news.FetchArticles(ctx, query, RealtimeMaxResults)
	if len(articles) == 0 {
		return "", ErrNoArticles
	}

	final, err := s.ai.Ask(ctx, buildSummaryPrompt(query, articles))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	s.record(ctx, query, final, true)
	return final, nil
}

func buildSummaryPrompt(query string, articles []models.Article) string {
	n := min(len(articles), summaryArticleUsed)
	texts := make([]string, 0, n)
	for _, a := range articles[:n] {
		texts = append(texts, a.Text)
	}
	return summaryPrompt + query + "\n\n" + strings.Join(texts, " ")
}

// ReplyFor maps an orchestration error to the text shown to the user.
func ReplyFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrModelUnavailable):
		return unavailableReply
	case errors.Is(err, ErrNoArticles):
		return noArticlesReply
	default:
		return errorReplyPrefix + err.Error()
	}
}

func (s *Service) record(ctx context.Context, query, answer string, usedNews bool) {
	if s.db == nil {
		return
	}
	if _, err := s.RecordExchange(ctx, query, answer, usedNews); err != nil {
		s.log.Warn("record exchange failed", zap.Error(err))
	}
}
