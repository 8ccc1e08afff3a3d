package cache

import (
	"fmt"
	"time"

	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// HistoryTTL bounds staleness of the cached first history page.
const HistoryTTL = 5 * time.Minute

// MessageCache caches the first page of a group's chat history. Other pages
// always go to the database.
type MessageCache struct {
	redis *RedisCache
}

func NewMessageCache(redis *RedisCache) *MessageCache {
	return &MessageCache{redis: redis}
}

func historyKey(groupID uint, size int) string {
	return fmt.Sprintf("chat:group:%d:first:%d", groupID, size)
}

// GetFirstPage returns the cached page and whether it was present.
func (mc *MessageCache) GetFirstPage(groupID uint, size int) ([]models.ChatMessageResponse, bool) {
	if mc == nil || mc.redis == nil {
		return nil, false
	}
	data, err := mc.redis.Get(historyKey(groupID, size))
	if err != nil || data == nil {
		return nil, false
	}

	var messages []models.ChatMessageResponse
	if err := msgpack.Unmarshal(data, &messages); err != nil {
		return nil, false
	}
	return messages, true
}

func (mc *MessageCache) SetFirstPage(groupID uint, size int, messages []models.ChatMessageResponse) error {
	if mc == nil || mc.redis == nil {
		return nil
	}
	data, err := msgpack.Marshal(messages)
	if err != nil {
		return err
	}
	return mc.redis.Set(historyKey(groupID, size), data, HistoryTTL)
}

// InvalidateGroup drops cached pages for every page size the server hands out.
func (mc *MessageCache) InvalidateGroup(groupID uint) error {
	if mc == nil || mc.redis == nil {
		return nil
	}
	keys := make([]string, 0, len(CachedPageSizes))
	for _, size := range CachedPageSizes {
		keys = append(keys, historyKey(groupID, size))
	}
	return mc.redis.Delete(keys...)
}

// CachedPageSizes lists the first-page sizes eligible for caching.
var CachedPageSizes = []int{50}
