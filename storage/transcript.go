package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/miwamasa/smolagentUIWrapper/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RunRecord is one processed request as archived per session.
type RunRecord struct {
	RequestID   string                  `json:"request_id"`
	ReceivedAt  time.Time               `json:"received_at"`
	UserMessage string                  `json:"user_message"`
	Response    *models.UnifiedResponse `json:"response"`
}

// TranscriptStore archives run records in redis, one list per session.
// A store built with a nil client is disabled: appends become no-ops so
// the service runs fine without redis.
type TranscriptStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewTranscriptStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *TranscriptStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.L()
	}
	return &TranscriptStore{client: client, ttl: ttl, logger: logger}
}

// Enabled reports whether archiving is configured. Nil-safe.
func (s *TranscriptStore) Enabled() bool {
	return s != nil && s.client != nil
}

func transcriptKey(sessionID string) string {
	return "transcript:" + sessionID
}

// Append pushes a run record onto the session's transcript and refreshes
// its TTL.
func (s *TranscriptStore) Append(ctx context.Context, sessionID string, record RunRecord) error {
	if !s.Enabled() {
		return nil
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}
	key := transcriptKey(sessionID)
	if err := s.client.RPush(ctx, key, payload).Err(); err != nil {
		return fmt.Errorf("append transcript: %w", err)
	}
	if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
		return fmt.Errorf("refresh transcript ttl: %w", err)
	}
	return nil
}

// Recent returns up to n most recent run records for a session, oldest
// first.
func (s *TranscriptStore) Recent(ctx context.Context, sessionID string, n int64) ([]RunRecord, error) {
	if !s.Enabled() {
		return nil, nil
	}
	items, err := s.client.LRange(ctx, transcriptKey(sessionID), -n, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	records := make([]RunRecord, 0, len(items))
	for _, item := range items {
		var record RunRecord
		if err := json.Unmarshal([]byte(item), &record); err != nil {
			s.logger.Warn("skipping unreadable transcript entry",
				zap.String("session_id", sessionID), zap.Error(err))
			continue
		}
		records = append(records, record)
	}
	return records, nil
}
