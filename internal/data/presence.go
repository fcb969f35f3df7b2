package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chatmate/chatmate/internal/biz/repo"
)

// OpenRedis connects to Redis
func OpenRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return rdb, nil
}

// presence key: chatmate:presence:<user>
// Value: connection ID, TTL bounds how long a crashed process can leave a stale record
func presenceKey(userID string) string { return "chatmate:presence:" + userID }

// redisPresenceRepo mirrors presence to Redis
type redisPresenceRepo struct {
	rdb *redis.Client
}

// NewRedisPresenceRepo creates a Redis-backed presence repository
func NewRedisPresenceRepo(rdb *redis.Client) repo.PresenceRepo {
	return &redisPresenceRepo{rdb: rdb}
}

// MarkOnline sets the user online and renews the TTL
func (r *redisPresenceRepo) MarkOnline(ctx context.Context, userID, connID string, ttl time.Duration) error {
	if err := r.rdb.Set(ctx, presenceKey(userID), connID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark online: %w", err)
	}
	return nil
}

// MarkOffline deletes the presence key
func (r *redisPresenceRepo) MarkOffline(ctx context.Context, userID string) error {
	if err := r.rdb.Del(ctx, presenceKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to mark offline: %w", err)
	}
	return nil
}

// Lookup checks whether the user is online
func (r *redisPresenceRepo) Lookup(ctx context.Context, userID string) (string, bool, error) {
	val, err := r.rdb.Get(ctx, presenceKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to lookup presence: %w", err)
	}
	return val, true, nil
}

// noopPresenceRepo is used when no Redis is configured; the hub's map is the only presence
type noopPresenceRepo struct{}

// NewNoopPresenceRepo creates a presence repository that records nothing
func NewNoopPresenceRepo() repo.PresenceRepo {
	return noopPresenceRepo{}
}

func (noopPresenceRepo) MarkOnline(ctx context.Context, userID, connID string, ttl time.Duration) error {
	return nil
}

func (noopPresenceRepo) MarkOffline(ctx context.Context, userID string) error {
	return nil
}

func (noopPresenceRepo) Lookup(ctx context.Context, userID string) (string, bool, error) {
	return "", false, nil
}
