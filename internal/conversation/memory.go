package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultMemoryTTL bounds how long short-term contact state lives without
// new activity.
const DefaultMemoryTTL = 24 * time.Hour

// ContactMemory is the short-term state kept per contact between messages.
// It is a cache, not the source of truth: losing it degrades prompts and
// counters, nothing else.
type ContactMemory struct {
	MessageCount  int       `json:"message_count"`
	FallbackCount int       `json:"fallback_count"`
	LastIntent    string    `json:"last_intent"`
	LastActivity  time.Time `json:"last_activity"`
}

// MemoryStore keeps ContactMemory in Redis with a sliding TTL.
type MemoryStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewMemoryStore creates a memory store. A non-positive ttl falls back to
// DefaultMemoryTTL.
func NewMemoryStore(client *redis.Client, ttl time.Duration) *MemoryStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultMemoryTTL
	}
	return &MemoryStore{redis: client, ttl: ttl}
}

// Load returns the contact's memory, or a zero value when none is stored.
func (s *MemoryStore) Load(ctx context.Context, businessID, channel, contactID string) (ContactMemory, error) {
	data, err := s.redis.Get(ctx, memoryKey(businessID, channel, contactID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return ContactMemory{}, nil
		}
		return ContactMemory{}, fmt.Errorf("load contact memory: %w", err)
	}

	var memory ContactMemory
	if err := json.Unmarshal(data, &memory); err != nil {
		return ContactMemory{}, fmt.Errorf("decode contact memory: %w", err)
	}
	return memory, nil
}

// Save persists the memory and resets its TTL.
func (s *MemoryStore) Save(ctx context.Context, businessID, channel, contactID string, memory ContactMemory) error {
	data, err := json.Marshal(memory)
	if err != nil {
		return fmt.Errorf("encode contact memory: %w", err)
	}
	if err := s.redis.Set(ctx, memoryKey(businessID, channel, contactID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("persist contact memory: %w", err)
	}
	return nil
}

func memoryKey(businessID, channel, contactID string) string {
	return fmt.Sprintf("memory:%s:%s:%s", businessID, channel, contactID)
}
