package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/homefix-assistant/server/internal/agent/conversation"
	"github.com/homefix-assistant/server/internal/agent/model"
	errx "github.com/homefix-assistant/server/internal/core/error"
	logx "github.com/homefix-assistant/server/pkg/logger"
)

type RedisConversationRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisConversationRepository(rdb redis.Cmdable, ttl time.Duration) *RedisConversationRepository {
	return &RedisConversationRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisConversationRepository) sessionKey(sessionID string) string {
	return fmt.Sprintf("conversation:%s:session", sessionID)
}

func (r *RedisConversationRepository) SaveSnapshot(ctx context.Context, snapshot *conversation.Snapshot) error {
	b, err := json.Marshal(snapshot)
	if err != nil {
		logx.Error().Err(err).Str("session_id", snapshot.ID).Msg("failed to marshal session snapshot")
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	key := r.sessionKey(snapshot.ID)

	// SET with TTL refreshes expiry on every save
	if err := r.rdb.Set(ctx, key, b, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to save session snapshot to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisConversationRepository) LoadSnapshot(ctx context.Context, sessionID string) (*conversation.Snapshot, error) {
	key := r.sessionKey(sessionID)

	raw, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logx.Error().Err(err).Str("key", key).Msg("failed to load session snapshot from redis")
		}
		return nil, errx.WrapRedis(err)
	}

	var snap conversation.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to unmarshal session snapshot")
		return nil, fmt.Errorf("unmarshal snapshot %s: %w", sessionID, err)
	}
	return &snap, nil
}

func (r *RedisConversationRepository) DeleteSnapshot(ctx context.Context, sessionID string) error {
	key := r.sessionKey(sessionID)
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete session snapshot from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ model.ConversationRepository = (*RedisConversationRepository)(nil)

// MemoryConversationRepository keeps snapshots in process memory. Used when
// Redis is not configured.
type MemoryConversationRepository struct {
	mu    sync.Mutex
	items map[string][]byte
}

func NewMemoryConversationRepository() *MemoryConversationRepository {
	return &MemoryConversationRepository{items: make(map[string][]byte)}
}

func (m *MemoryConversationRepository) SaveSnapshot(_ context.Context, snapshot *conversation.Snapshot) error {
	b, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[snapshot.ID] = b
	return nil
}

func (m *MemoryConversationRepository) LoadSnapshot(_ context.Context, sessionID string) (*conversation.Snapshot, error) {
	m.mu.Lock()
	b, ok := m.items[sessionID]
	m.mu.Unlock()
	if !ok {
		return nil, errx.New(fmt.Errorf("session %s", sessionID), http.StatusNotFound, "session not found")
	}
	var snap conversation.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot %s: %w", sessionID, err)
	}
	return &snap, nil
}

func (m *MemoryConversationRepository) DeleteSnapshot(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, sessionID)
	return nil
}

var _ model.ConversationRepository = (*MemoryConversationRepository)(nil)
