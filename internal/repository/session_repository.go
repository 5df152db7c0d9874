package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "kiosk:session:revoked:"

// SessionRepository tracks revoked session ids until their tokens expire.
// Without a Redis client revocations are kept in process memory.
type SessionRepository struct {
	client *redis.Client

	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewSessionRepository constructs a session store. client may be nil.
func NewSessionRepository(client *redis.Client) *SessionRepository {
	return &SessionRepository{client: client, revoked: make(map[string]time.Time), now: time.Now}
}

// Revoke marks the session id as revoked for ttl.
func (r *SessionRepository) Revoke(ctx context.Context, sessionID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if r.client != nil {
		if err := r.client.Set(ctx, revokedKeyPrefix+sessionID, 1, ttl).Err(); err != nil {
			return fmt.Errorf("redis revoke session %s: %w", sessionID, err)
		}
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for id, until := range r.revoked {
		if !until.After(now) {
			delete(r.revoked, id)
		}
	}
	r.revoked[sessionID] = now.Add(ttl)
	return nil
}

// IsRevoked reports whether the session id has been revoked.
func (r *SessionRepository) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	if r.client != nil {
		n, err := r.client.Exists(ctx, revokedKeyPrefix+sessionID).Result()
		if err != nil {
			return false, fmt.Errorf("redis check session %s: %w", sessionID, err)
		}
		return n > 0, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	until, ok := r.revoked[sessionID]
	return ok && until.After(r.now()), nil
}

// Close releases the underlying Redis connection if present.
func (r *SessionRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
