package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTLs
const (
	TTLDirectPair = 30 * 24 * time.Hour // pair index entries are long-lived
	TTLTyping     = 10 * time.Second    // typing flags expire on their own
	TTLPresence   = 10 * time.Minute    // presence decays to offline
)

// Key prefixes
const (
	PrefixDirectPair = "dm:pair:"
	PrefixTyping     = "chat:typing:"
	PrefixPresence   = "chat:presence:"
)

// PresenceEntry is the stored presence snapshot
type PresenceEntry struct {
	State      string    `json:"state"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// Service is the chat-specific Redis surface. Every method degrades on a
// nil client: the cache is an accelerator, never a source of truth.
type Service interface {
	// Direct-pair index (best-effort cache over membership rows)
	GetDirectPair(ctx context.Context, userA, userB string) (string, error)
	SetDirectPair(ctx context.Context, userA, userB, conversationID string) error
	DeleteDirectPair(ctx context.Context, userA, userB string) error

	// Typing flags, one sorted set per conversation scored by expiry
	SetTyping(ctx context.Context, conversationID, userID string, isTyping bool) error
	TypingUsers(ctx context.Context, conversationID string) ([]string, error)

	// Global presence
	SetPresence(ctx context.Context, userID string, entry PresenceEntry) error
	GetPresence(ctx context.Context, userID string) (*PresenceEntry, error)

	IsAvailable() bool
	Ping(ctx context.Context) error
}

type redisCache struct {
	client *redis.Client
}

// NewService creates the chat cache service
func NewService(client *redis.Client) Service {
	return &redisCache{client: client}
}

func (c *redisCache) IsAvailable() bool {
	return c.client != nil
}

func (c *redisCache) Ping(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	return c.client.Ping(ctx).Err()
}

// PairKey canonicalizes a two-user key: order never matters
func PairKey(userA, userB string) string {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return PrefixDirectPair + pair[0] + ":" + pair[1]
}

func (c *redisCache) GetDirectPair(ctx context.Context, userA, userB string) (string, error) {
	if c.client == nil {
		return "", nil
	}
	id, err := c.client.Get(ctx, PairKey(userA, userB)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return id, err
}

func (c *redisCache) SetDirectPair(ctx context.Context, userA, userB, conversationID string) error {
	if c.client == nil {
		return nil
	}
	return c.client.Set(ctx, PairKey(userA, userB), conversationID, TTLDirectPair).Err()
}

func (c *redisCache) DeleteDirectPair(ctx context.Context, userA, userB string) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, PairKey(userA, userB)).Err()
}

func (c *redisCache) SetTyping(ctx context.Context, conversationID, userID string, isTyping bool) error {
	if c.client == nil {
		return nil
	}
	key := PrefixTyping + conversationID
	if !isTyping {
		return c.client.ZRem(ctx, key, userID).Err()
	}
	expireAt := time.Now().Add(TTLTyping)
	if err := c.client.ZAdd(ctx, key, redis.Z{
		Score:  float64(expireAt.UnixMilli()),
		Member: userID,
	}).Err(); err != nil {
		return err
	}
	// Bound the set's own lifetime so abandoned conversations leave no keys
	return c.client.Expire(ctx, key, TTLTyping*2).Err()
}

func (c *redisCache) TypingUsers(ctx context.Context, conversationID string) ([]string, error) {
	if c.client == nil {
		return nil, nil
	}
	key := PrefixTyping + conversationID
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)

	// Drop expired flags, then read the live ones
	if err := c.client.ZRemRangeByScore(ctx, key, "-inf", "("+now).Err(); err != nil {
		return nil, err
	}
	return c.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{Min: now, Max: "+inf"}).Result()
}

func (c *redisCache) SetPresence(ctx context.Context, userID string, entry PresenceEntry) error {
	if c.client == nil {
		return nil
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, PrefixPresence+userID, data, TTLPresence).Err()
}

func (c *redisCache) GetPresence(ctx context.Context, userID string) (*PresenceEntry, error) {
	if c.client == nil {
		return nil, nil
	}
	data, err := c.client.Get(ctx, PrefixPresence+userID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entry PresenceEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}
