package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultSessionTTL bounds how long an idle session is remembered.
const DefaultSessionTTL = 24 * time.Hour

// Session is the per-user conversation state. Query and Page remember the
// last search so /next can continue it.
type Session struct {
	State     State     `json:"state"`
	Query     string    `json:"query,omitempty"`
	Page      int       `json:"page,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionStore loads and saves sessions. Get returns a zero Session for
// unknown users.
type SessionStore interface {
	Get(ctx context.Context, userID int64) (Session, error)
	Put(ctx context.Context, userID int64, s Session) error
}

// MemorySessions keeps sessions in process memory.
type MemorySessions struct {
	mu       sync.RWMutex
	sessions map[int64]Session
}

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{sessions: make(map[int64]Session)}
}

func (m *MemorySessions) Get(_ context.Context, userID int64) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[userID], nil
}

func (m *MemorySessions) Put(_ context.Context, userID int64, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = s
	return nil
}

// RedisSessions stores sessions as JSON values with a sliding TTL, so several
// bot processes can share conversation state.
type RedisSessions struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisSessions(rdb redis.UniversalClient, ttl time.Duration) *RedisSessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisSessions{rdb: rdb, prefix: "affiliate:session:", ttl: ttl}
}

func (r *RedisSessions) key(userID int64) string {
	return r.prefix + strconv.FormatInt(userID, 10)
}

func (r *RedisSessions) Get(ctx context.Context, userID int64) (Session, error) {
	raw, err := r.rdb.Get(ctx, r.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("load session %d: %w", userID, err)
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		// A corrupt value is treated as a fresh conversation.
		return Session{}, nil
	}
	return s, nil
}

func (r *RedisSessions) Put(ctx context.Context, userID int64, s Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %d: %w", userID, err)
	}
	if err := r.rdb.Set(ctx, r.key(userID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("save session %d: %w", userID, err)
	}
	return nil
}
