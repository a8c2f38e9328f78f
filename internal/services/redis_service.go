package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"chat-relay/internal/models"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const (
	onlineUsersKey    = "online_users"
	userStatusChannel = "user_status"

	// Online entries live until the matching offline transition.
	offlineStatusTTL = 24 * time.Hour
)

type RedisService struct {
	client *redis.Client
}

func NewRedisService(client *redis.Client) *RedisService {
	return &RedisService{
		client: client,
	}
}

func userStatusKey(userID uint) string {
	return fmt.Sprintf("user:%d:status", userID)
}

// =============================================================================
// User Status Management
// =============================================================================

func (r *RedisService) SetUserOnline(ctx context.Context, userID uint) error {
	return r.setUserStatus(ctx, userID, models.StatusOnline, 0)
}

func (r *RedisService) SetUserOffline(ctx context.Context, userID uint) error {
	return r.setUserStatus(ctx, userID, models.StatusOffline, offlineStatusTTL)
}

func (r *RedisService) setUserStatus(ctx context.Context, userID uint, status models.PresenceStatus, ttl time.Duration) error {
	now := time.Now()
	update, err := json.Marshal(models.StatusUpdate{UserID: userID, Status: status, UpdatedAt: now})
	if err != nil {
		return fmt.Errorf("failed to marshal status update: %w", err)
	}

	pipe := r.client.TxPipeline()

	member := strconv.FormatUint(uint64(userID), 10)
	if status == models.StatusOnline {
		pipe.SAdd(ctx, onlineUsersKey, member)
	} else {
		pipe.SRem(ctx, onlineUsersKey, member)
	}

	pipe.HSet(ctx, userStatusKey(userID), map[string]interface{}{
		"status":     string(status),
		"last_seen":  now.Unix(),
		"updated_at": now.Unix(),
	})
	if ttl > 0 {
		pipe.Expire(ctx, userStatusKey(userID), ttl)
	} else {
		pipe.Persist(ctx, userStatusKey(userID))
	}
	pipe.Publish(ctx, userStatusChannel, update)

	if _, err := pipe.Exec(ctx); err != nil {
		slog.Error("Failed to set user status", "userID", userID, "status", status, "error", err)
		return err
	}

	slog.Debug("User status updated", "userID", userID, "status", status)
	return nil
}

func (r *RedisService) IsUserOnline(ctx context.Context, userID uint) (bool, error) {
	return r.client.SIsMember(ctx, onlineUsersKey, strconv.FormatUint(uint64(userID), 10)).Result()
}

func (r *RedisService) GetOnlineUsers(ctx context.Context) ([]uint, error) {
	members, err := r.client.SMembers(ctx, onlineUsersKey).Result()
	if err != nil {
		return nil, err
	}

	users := make([]uint, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			slog.Warn("Skipping malformed online user entry", "member", m)
			continue
		}
		users = append(users, uint(id))
	}
	return users, nil
}

// SubscribeStatus returns a subscription to presence updates published by
// SetUserOnline and SetUserOffline.
func (r *RedisService) SubscribeStatus(ctx context.Context) *redis.PubSub {
	return r.client.Subscribe(ctx, userStatusChannel)
}

// ClearOnlineUsers drops the online set. A relay starting up owns no
// connections, so entries left by a previous run are stale.
func (r *RedisService) ClearOnlineUsers(ctx context.Context) error {
	return r.client.Del(ctx, onlineUsersKey).Err()
}

// =============================================================================
// Rate Limiting
// =============================================================================

// CheckRateLimit records one hit on key and reports whether fewer than
// limit hits fell inside the trailing window.
func (r *RedisService) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	windowStart := now.Add(-window).UnixNano()

	pipe := r.client.Pipeline()

	// Remove old entries
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))

	// Count current entries
	count := pipe.ZCard(ctx, key)

	// Add current request
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: now.UnixNano()})

	// Set expiration
	pipe.Expire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return count.Val() < int64(limit), nil
}
