package assistant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsbot/internal/config"
	"newsbot/internal/models"
	"newsbot/internal/storage"
)

type scriptedAnswerer struct {
	replies []string
	errs    []error
	prompts []string
}

func (s *scriptedAnswerer) Ask(_ context.Context, question string) (string, error) {
	i := len(s.prompts)
	s.prompts = append(s.prompts, question)
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(s.replies) {
		return s.replies[i], nil
	}
	return "", nil
}

type stubNews struct {
	articles []models.Article
	queries  []string
	gotMax   int
}

func (s *stubNews) FetchArticles(_ context.Context, query string, max int) []models.Article {
	s.queries = append(s.queries, query)
	s.gotMax = max
	return s.articles
}

func TestGetFinalAnswerReturnsPlainReply(t *testing.T) {
	ai := &scriptedAnswerer{replies: []string{"Water boils at 100C at sea level."}}
	news := &stubNews{}
	svc := NewService(ai, news, nil)

	got, err := svc.GetFinalAnswer(context.Background(), "At what temperature does water boil?")
	require.NoError(t, err)
	assert.Equal(t, "Water boils at 100C at sea level.", got)
	assert.Len(t, ai.prompts, 1)
	assert.Empty(t, news.queries)
}

func TestGetFinalAnswerUsesNewsAfterCutoff(t *testing.T) {
	ai := &scriptedAnswerer{replies: []string{
		"My Knowledge Cutoff is in 2023, so I cannot say.",
		"The match ended 2-1.",
	}}
	news := &stubNews{articles: []models.Article{{Text: "A"}, {Text: "B"}}}
	svc := NewService(ai, news, nil)

	got, err := svc.GetFinalAnswer(context.Background(), "Who won last night?")
	require.NoError(t, err)
	assert.Equal(t, "The match ended 2-1.", got)

	require.Len(t, ai.prompts, 2)
	assert.Contains(t, ai.prompts[1], "Who won last night?")
	assert.Contains(t, ai.prompts[1], "A B")
	assert.Equal(t, []string{"Who won last night?"}, news.queries)
	assert.Equal(t, RealtimeMaxResults, news.gotMax)
}

func TestGetFinalAnswerWithoutArticles(t *testing.T) {
	ai := &scriptedAnswerer{replies: []string{"I do not have information about that event."}}
	svc := NewService(ai, &stubNews{articles: []models.Article{}}, nil)

	_, err := svc.GetFinalAnswer(context.Background(), "latest election")
	require.ErrorIs(t, err, ErrNoArticles)
	assert.Equal(t, "❌ No valid articles found. Please try again later.", ReplyFor(err))
	assert.Len(t, ai.prompts, 1)
}

func TestGetFinalAnswerModelFailures(t *testing.T) {
	ai := &scriptedAnswerer{errs: []error{errors.New("connection reset")}}
	svc := NewService(ai, &stubNews{}, nil)

	_, err := svc.GetFinalAnswer(context.Background(), "q")
	require.ErrorIs(t, err, ErrModelUnavailable)
	assert.Equal(t, "AI is currently unavailable. Please try again later.", ReplyFor(err))

	ai = &scriptedAnswerer{
		replies: []string{"knowledge cutoff reached"},
		errs:    []error{nil, errors.New("rate limited")},
	}
	svc = NewService(ai, &stubNews{articles: []models.Article{{Text: "A"}}}, nil)
	_, err = svc.GetFinalAnswer(context.Background(), "q")
	require.ErrorIs(t, err, ErrModelUnavailable)
	assert.Len(t, ai.prompts, 2)
}

func TestBuildSummaryPromptUsesFirstTwoArticles(t *testing.T) {
	prompt := buildSummaryPrompt("q", []models.Article{{Text: "one"}, {Text: "two"}, {Text: "three"}})
	assert.Equal(t, "Summarize and answer this question based on the latest news: q\n\none two", prompt)

	prompt = buildSummaryPrompt("q", []models.Article{{Text: "only"}})
	assert.True(t, strings.HasSuffix(prompt, "\n\nonly"))
}

func TestNeedsRealtime(t *testing.T) {
	assert.True(t, NeedsRealtime("As of my KNOWLEDGE CUTOFF..."))
	assert.True(t, NeedsRealtime("I Do Not Have Information on that."))
	assert.False(t, NeedsRealtime("Here is the answer."))
	assert.False(t, NeedsRealtime(""))
}

func TestReplyFor(t *testing.T) {
	assert.Equal(t, "", ReplyFor(nil))
	assert.Equal(t, "AI is currently unavailable. Please try again later.",
		ReplyFor(fmt.Errorf("ask: %w", ErrModelUnavailable)))
	assert.Equal(t, "❌ Error processing request: boom", ReplyFor(errors.New("boom")))
}

func TestHistoryRecordedAndListed(t *testing.T) {
	db := openTestDB(t)
	ai := &scriptedAnswerer{replies: []string{"first", "knowledge cutoff", "second"}}
	svc := NewService(ai, &stubNews{articles: []models.Article{{Text: "A"}}}, db)
	require.True(t, svc.HistoryEnabled())

	_, err := svc.GetFinalAnswer(context.Background(), "q1")
	require.NoError(t, err)
	_, err = svc.GetFinalAnswer(context.Background(), "q2")
	require.NoError(t, err)

	got, err := svc.ListExchanges(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "q2", got[0].Query)
	assert.Equal(t, "second", got[0].Answer)
	assert.True(t, got[0].UsedNews)
	assert.Equal(t, "q1", got[1].Query)
	assert.False(t, got[1].UsedNews)

	limited, err := svc.ListExchanges(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestPruneExchanges(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(&scriptedAnswerer{}, &stubNews{}, db)

	old := time.Now().UTC().Add(-10 * 24 * time.Hour)
	_, err := db.Exec(`INSERT INTO exchanges (query, answer, used_news, created_at) VALUES (?, ?, ?, ?)`,
		"stale", "a", false, old)
	require.NoError(t, err)
	_, err = svc.RecordExchange(context.Background(), "fresh", "b", false)
	require.NoError(t, err)

	removed, err := svc.PruneExchanges(context.Background(), time.Now().Add(-DefaultHistoryRetention))
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	left, err := svc.ListExchanges(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "fresh", left[0].Query)
}

func TestHistoryDisabled(t *testing.T) {
	svc := NewService(&scriptedAnswerer{}, &stubNews{}, nil)
	assert.False(t, svc.HistoryEnabled())
	_, err := svc.ListExchanges(context.Background(), 5)
	assert.Error(t, err)
	_, err = svc.RecordExchange(context.Background(), "q", "a", false)
	assert.Error(t, err)

	// must not start a goroutine or panic
	svc.StartHistoryCleaner(context.Background(), time.Millisecond, time.Second)
}

func TestHistoryCleanerStopsWithContext(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(&scriptedAnswerer{}, &stubNews{}, db)
	_, err := db.Exec(`INSERT INTO exchanges (query, answer, used_news, created_at) VALUES (?, ?, ?, ?)`,
		"stale", "a", false, time.Now().UTC().Add(-48*time.Hour))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.StartHistoryCleaner(ctx, 10*time.Millisecond, time.Hour)

	require.Eventually(t, func() bool {
		var n int
		if err := db.QueryRow(`SELECT COUNT(*) FROM exchanges`).Scan(&n); err != nil {
			return false
		}
		return n == 0
	}, 2*time.Second, 20*time.Millisecond)
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := storage.Open(config.DatabaseConfig{Driver: "sqlite3", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
