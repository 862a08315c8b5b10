package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/plantguardian/garden-helper/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Conversation state and temp data expire after a day of inactivity; the
// session record has no TTL and survives restarts.
const flowTTL = 24 * time.Hour

// RedisManager manages user states and sessions using Redis
type RedisManager struct {
	client *redis.Client
}

// NewRedisManager creates a new Redis-based state manager
func NewRedisManager(redisHost, redisPort string) (*RedisManager, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", redisHost, redisPort),
		Password:     "", // no password
		DB:           0,  // default DB
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisManager{
		client: client,
	}, nil
}

// SetUserState sets the conversation state for a chat with TTL
func (m *RedisManager) SetUserState(chatID int64, state string) {
	ctx := context.Background()
	key := fmt.Sprintf("user:%d:state", chatID)
	m.client.Set(ctx, key, state, flowTTL)
}

// GetUserState gets the conversation state for a chat
func (m *RedisManager) GetUserState(chatID int64) string {
	ctx := context.Background()
	key := fmt.Sprintf("user:%d:state", chatID)
	result := m.client.Get(ctx, key)
	if result.Err() != nil {
		return None // default on miss or error
	}
	return result.Val()
}

// SetTempData sets one temporary value for a chat's active flow
func (m *RedisManager) SetTempData(chatID int64, key, value string) {
	tempData := m.getTempDataMap(chatID)
	if tempData == nil {
		tempData = make(map[string]string)
	}
	tempData[key] = value
	m.saveTempDataMap(chatID, tempData)
}

// GetTempData gets one temporary value for a chat's active flow
func (m *RedisManager) GetTempData(chatID int64, key string) (string, bool) {
	tempData := m.getTempDataMap(chatID)
	if tempData == nil {
		return "", false
	}
	value, exists := tempData[key]
	return value, exists
}

// ClearTempData clears all temporary data for a chat
func (m *RedisManager) ClearTempData(chatID int64) {
	ctx := context.Background()
	key := fmt.Sprintf("user:%d:temp", chatID)
	m.client.Del(ctx, key)
}

// SaveSession stores the chat's session record under its well-known key
func (m *RedisManager) SaveSession(chatID int64, session domain.Session) error {
	ctx := context.Background()
	key := sessionKey(chatID)
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}
	return m.client.Set(ctx, key, data, 0).Err()
}

// GetSession returns the chat's session record, if any
func (m *RedisManager) GetSession(chatID int64) (*domain.Session, bool) {
	ctx := context.Background()
	result := m.client.Get(ctx, sessionKey(chatID))
	if result.Err() != nil {
		return nil, false
	}
	var session domain.Session
	if err := json.Unmarshal([]byte(result.Val()), &session); err != nil {
		return nil, false
	}
	return &session, true
}

// ClearSession removes the chat's session record wholesale
func (m *RedisManager) ClearSession(chatID int64) {
	ctx := context.Background()
	m.client.Del(ctx, sessionKey(chatID))
}

// Close closes the Redis connection
func (m *RedisManager) Close() error {
	return m.client.Close()
}

func sessionKey(chatID int64) string {
	return fmt.Sprintf("user:%d:session", chatID)
}

// Helper methods
func (m *RedisManager) getTempDataMap(chatID int64) map[string]string {
	ctx := context.Background()
	key := fmt.Sprintf("user:%d:temp", chatID)

	result := m.client.Get(ctx, key)
	if result.Err() != nil {
		return nil
	}

	var tempData map[string]string
	if err := json.Unmarshal([]byte(result.Val()), &tempData); err != nil {
		return nil
	}

	return tempData
}

func (m *RedisManager) saveTempDataMap(chatID int64, tempData map[string]string) {
	ctx := context.Background()
	key := fmt.Sprintf("user:%d:temp", chatID)

	data, err := json.Marshal(tempData)
	if err != nil {
		return
	}

	m.client.Set(ctx, key, data, flowTTL)
}
