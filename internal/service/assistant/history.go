package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"newsbot/internal/models"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

var errHistoryDisabled = errors.New("history store not configured")

// RecordExchange stores one answered query.
func (s *Service) RecordExchange(ctx context.Context, query, answer string, usedNews bool) (*models.Exchange, error) {
	if s.db == nil {
		return nil, errHistoryDisabled
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query is required")
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO exchanges (query, answer, used_news, created_at) VALUES (?, ?, ?, ?)`,
		query, answer, usedNews, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert exchange: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("exchange id: %w", err)
	}
	return &models.Exchange{ID: id, Query: query, Answer: answer, UsedNews: usedNews, CreatedAt: now}, nil
}

// ListExchanges returns the most recent exchanges, newest first.
func (s *Service) ListExchanges(ctx context.Context, limit int) ([]models.Exchange, error) {
	if s.db == nil {
		return nil, errHistoryDisabled
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, answer, used_news, created_at FROM exchanges ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list exchanges: %w", err)
	}
	defer rows.Close()

	exchanges := make([]models.Exchange, 0, limit)
	for rows.Next() {
		var e models.Exchange
		if err := rows.Scan(&e.ID, &e.Query, &e.Answer, &e.UsedNews, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		exchanges = append(exchanges, e)
	}
	return exchanges, rows.Err()
}

// PruneExchanges deletes exchanges created before the cutoff.
func (s *Service) PruneExchanges(ctx context.Context, before time.Time) (int64, error) {
	if s.db == nil {
		return 0, errHistoryDisabled
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM exchanges WHERE created_at < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune exchanges: %w", err)
	}
	return res.RowsAffected()
}
