package cache

import (
	"fmt"
	"strconv"
	"time"
)

const (
	OnlineUsersTTL = 90 * time.Second // matches the websocket pong timeout
	onlineSetKey   = "online:users"
)

// UserCache tracks websocket presence across server instances.
type UserCache struct {
	redis *RedisCache
}

func NewUserCache(redis *RedisCache) *UserCache {
	return &UserCache{redis: redis}
}

func onlineKey(userID uint) string {
	return fmt.Sprintf("online:%d", userID)
}

func (uc *UserCache) SetUserOnline(userID uint) error {
	if uc == nil || uc.redis == nil {
		return nil
	}
	if err := uc.redis.SetAdd(onlineSetKey, userID); err != nil {
		return err
	}
	return uc.redis.Set(onlineKey(userID), []byte("1"), OnlineUsersTTL)
}

func (uc *UserCache) SetUserOffline(userID uint) error {
	if uc == nil || uc.redis == nil {
		return nil
	}
	if err := uc.redis.SetRemove(onlineSetKey, userID); err != nil {
		return err
	}
	return uc.redis.Delete(onlineKey(userID))
}

// RefreshUserOnline extends the presence TTL; called on every pong.
func (uc *UserCache) RefreshUserOnline(userID uint) error {
	if uc == nil || uc.redis == nil {
		return nil
	}
	return uc.redis.Set(onlineKey(userID), []byte("1"), OnlineUsersTTL)
}

func (uc *UserCache) IsUserOnline(userID uint) bool {
	if uc == nil || uc.redis == nil {
		return false
	}
	return uc.redis.Exists(onlineKey(userID))
}

// Enabled reports whether presence is backed by Redis.
func (uc *UserCache) Enabled() bool {
	return uc != nil && uc.redis != nil
}

// GetOnlineUsers returns ids in the online set whose TTL key is still alive.
func (uc *UserCache) GetOnlineUsers() ([]uint, error) {
	if uc == nil || uc.redis == nil {
		return nil, nil
	}
	members, err := uc.redis.SetMembers(onlineSetKey)
	if err != nil {
		return nil, err
	}

	userIDs := make([]uint, 0, len(members))
	for _, member := range members {
		id, err := strconv.ParseUint(member, 10, 32)
		if err != nil {
			continue
		}
		if uc.IsUserOnline(uint(id)) {
			userIDs = append(userIDs, uint(id))
		}
	}
	return userIDs, nil
}
