package assistant

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultHistoryRetention       = 7 * 24 * time.Hour
	DefaultHistoryCleanupInterval = time.Hour
)

// StartHistoryCleaner periodically drops exchanges older than retention.
// It returns immediately and stops when ctx is cancelled.
func (s *Service) StartHistoryCleaner(ctx context.Context, interval, retention time.Duration) {
	if s.db == nil {
		return
	}
	if interval <= 0 {
		interval = DefaultHistoryCleanupInterval
	}
	if retention <= 0 {
		retention = DefaultHistoryRetention
	}
	go s.cleanupLoop(ctx, interval, retention)
}

func (s *Service) cleanupLoop(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanupExpired(ctx, retention)
		}
	}
}

func (s *Service) cleanupExpired(ctx context.Context, retention time.Duration) {
	removed, err := s.PruneExchanges(ctx, time.Now().Add(-retention))
	if err != nil {
		s.log.Warn("cleanup history error", zap.Error(err))
		return
	}
	if removed > 0 {
		s.log.Debug("pruned history", zap.Int64("removed", removed))
	}
}
