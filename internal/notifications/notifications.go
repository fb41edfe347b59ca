// Package notifications queues per-user notification records in Redis for an
// external consumer. Delivery and enforcement are not this service's job.
package notifications

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

// Record is one queued notification.
type Record struct {
	UserID    string `json:"user_id"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	MeetingID string `json:"meeting_id,omitempty"`
}

// Service pushes records onto per-user Redis lists. A nil service or a
// service without Redis is a no-op, so callers never have to branch.
type Service struct {
	rdb *redis.Client
}

// NewService wraps an optional Redis client.
func NewService(rdb *redis.Client) *Service {
	return &Service{rdb: rdb}
}

// Enqueue appends the record to notifications:<user_id>.
func (s *Service) Enqueue(ctx context.Context, rec Record) error {
	if s == nil || s.rdb == nil {
		return nil
	}
	value, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	key := "notifications:" + rec.UserID
	if err := s.rdb.RPush(ctx, key, value).Err(); err != nil {
		return err
	}
	log.Printf("[INFO] Queued %s notification for user %s", rec.Type, rec.UserID)
	return nil
}
