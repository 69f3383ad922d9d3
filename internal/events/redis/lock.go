package redis

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis serializes squashes per canonical event. Two concurrent imports must
// not race to set conflicting duplicate references against the same target,
// so each squash holds a short-lived lock keyed by the canonical id.
type Redis struct {
	Client *redis.Client
	Logger *log.Logger
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{
		Client: client,
		Logger: log.Default(),
	}
}

// getSquashLockTTL returns the squash lock duration from environment variables or the default value
func (r *Redis) getSquashLockTTL() time.Duration {
	defaultDuration := 30 * time.Second

	lockTTLStr := os.Getenv("SQUASH_LOCK_TTL_SECONDS")
	if lockTTLStr == "" {
		return defaultDuration
	}

	lockTTLSec, err := strconv.Atoi(lockTTLStr)
	if err != nil {
		r.Logger.Println("REDIS: Invalid SQUASH_LOCK_TTL_SECONDS value '" + lockTTLStr + "', using default 30 seconds")
		return defaultDuration
	}

	return time.Duration(lockTTLSec) * time.Second
}

// LockSquash takes the lock for canonicalID on behalf of holderID. Returns
// false when another squash against the same canonical is in flight.
func (r *Redis) LockSquash(canonicalID, holderID string) (bool, error) {
	key := "squash_lock:" + canonicalID
	ok, err := r.Client.SetNX(context.Background(), key, holderID, r.getSquashLockTTL()).Result()
	return ok, err
}

// UnlockSquash releases the lock only if holderID still owns it; a lock that
// expired and was re-taken by someone else is left alone.
func (r *Redis) UnlockSquash(canonicalID, holderID string) error {
	ctx := context.Background()
	key := fmt.Sprintf("squash_lock:%s", canonicalID)
	val, err := r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // already unlocked
	}
	if err != nil {
		return err
	}
	if val == holderID {
		_, err := r.Client.Del(ctx, key).Result()
		return err
	}
	return nil
}

// CheckSquashInProgress reports whether a squash currently holds the lock for
// canonicalID, without taking it.
func (r *Redis) CheckSquashInProgress(canonicalID string) (bool, error) {
	key := "squash_lock:" + canonicalID
	_, err := r.Client.Get(context.Background(), key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
