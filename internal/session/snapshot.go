package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"storefront-sync-service/internal/models"
)

// UIState holds per-session presentation flags that survive reloads. They
// are orthogonal to sync; a sidebar stays open across a login.
type UIState struct {
	CartSidebarOpen     bool `json:"cartSidebarOpen"`
	WishlistSidebarOpen bool `json:"wishlistSidebarOpen"`
}

// GuestSnapshot is the persisted guest state of one session. It lets guest
// carts survive page reloads and service restarts without ever touching the
// authenticated persistence API.
type GuestSnapshot struct {
	CartItems       []models.LineItem      `json:"cartItems,omitempty"`
	WishlistEntries []models.WishlistEntry `json:"wishlistEntries,omitempty"`
	UI              UIState                `json:"ui"`
	UpdatedAt       time.Time              `json:"updatedAt"`
}

// SnapshotStore persists guest snapshots keyed by session.
type SnapshotStore interface {
	Load(ctx context.Context, tenantID, sessionID string) (*GuestSnapshot, error)
	Save(ctx context.Context, tenantID, sessionID string, snap GuestSnapshot) error
	Delete(ctx context.Context, tenantID, sessionID string) error
}

// RedisSnapshotStore stores guest snapshots in Redis with a TTL matching
// the session lifetime. Redis being down degrades gracefully: sessions
// simply lose reload persistence, nothing else.
type RedisSnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Entry
}

// NewRedisSnapshotStore creates a snapshot store over an existing Redis
// client.
func NewRedisSnapshotStore(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisSnapshotStore {
	return &RedisSnapshotStore{
		client: client,
		ttl:    ttl,
		logger: logger.WithField("component", "session.snapshots"),
	}
}

func snapshotKey(tenantID, sessionID string) string {
	return fmt.Sprintf("storefront:guest:%s:%s", tenantID, sessionID)
}

// Load returns the persisted snapshot, or nil when none exists.
func (s *RedisSnapshotStore) Load(ctx context.Context, tenantID, sessionID string) (*GuestSnapshot, error) {
	raw, err := s.client.Get(ctx, snapshotKey(tenantID, sessionID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load guest snapshot: %w", err)
	}

	var snap GuestSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		// A corrupt snapshot is dropped rather than poisoning the session.
		s.logger.WithError(err).WithField("sessionId", sessionID).Warn("discarding unreadable guest snapshot")
		return nil, nil
	}
	return &snap, nil
}

// Save persists the snapshot, refreshing the TTL.
func (s *RedisSnapshotStore) Save(ctx context.Context, tenantID, sessionID string, snap GuestSnapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal guest snapshot: %w", err)
	}
	if err := s.client.Set(ctx, snapshotKey(tenantID, sessionID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save guest snapshot: %w", err)
	}
	return nil
}

// Delete removes the persisted snapshot.
func (s *RedisSnapshotStore) Delete(ctx context.Context, tenantID, sessionID string) error {
	if err := s.client.Del(ctx, snapshotKey(tenantID, sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete guest snapshot: %w", err)
	}
	return nil
}
