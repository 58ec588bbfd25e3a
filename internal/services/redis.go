package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var RedisClient *redis.Client

// InitRedis initializes the Redis client
func InitRedis() error {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://redis:6379" // Default Redis address for Docker
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %v", err)
	}

	RedisClient = redis.NewClient(opt)

	// Test the connection
	ctx := context.Background()
	_, err = RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return nil
}

// SetUnreadCount caches a user's unread notification count
func SetUnreadCount(ctx context.Context, userID uint, count int64) error {
	key := fmt.Sprintf("notifications:unread:%d", userID)
	return RedisClient.Set(ctx, key, count, 10*time.Minute).Err()
}

// GetUnreadCount retrieves a cached unread notification count.
// Returns redis.Nil when the count has not been cached.
func GetUnreadCount(ctx context.Context, userID uint) (int64, error) {
	key := fmt.Sprintf("notifications:unread:%d", userID)
	return RedisClient.Get(ctx, key).Int64()
}

// InvalidateUnreadCount drops the cached unread count after a write
func InvalidateUnreadCount(ctx context.Context, userID uint) error {
	key := fmt.Sprintf("notifications:unread:%d", userID)
	return RedisClient.Del(ctx, key).Err()
}

// SetWorkerProfile caches a worker's public profile payload
func SetWorkerProfile(ctx context.Context, workerID uint, profile map[string]interface{}) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("worker:profile:%d", workerID)
	return RedisClient.Set(ctx, key, data, 15*time.Minute).Err()
}

// GetWorkerProfile retrieves a cached worker profile
func GetWorkerProfile(ctx context.Context, workerID uint) (map[string]interface{}, error) {
	key := fmt.Sprintf("worker:profile:%d", workerID)
	data, err := RedisClient.Get(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	var profile map[string]interface{}
	if err := json.Unmarshal([]byte(data), &profile); err != nil {
		return nil, err
	}

	return profile, nil
}

// InvalidateWorkerProfile drops a cached worker profile after a rating
// or approval change
func InvalidateWorkerProfile(ctx context.Context, workerID uint) error {
	key := fmt.Sprintf("worker:profile:%d", workerID)
	return RedisClient.Del(ctx, key).Err()
}
