package repository

import (
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/models"
	"gorm.io/gorm"
)

type ChatMessageRepository struct {
	db *gorm.DB
}

func NewChatMessageRepository(db *gorm.DB) *ChatMessageRepository {
	return &ChatMessageRepository{db: db}
}

func (r *ChatMessageRepository) Create(message *models.ChatMessage) error {
	return r.db.Create(message).Error
}

// ListByGroup returns one page of history, newest first. Equal timestamps fall
// back to insertion order.
func (r *ChatMessageRepository) ListByGroup(groupID uint, page, size int) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	err := r.db.Where("group_id = ?", groupID).
		Order("timestamp DESC").
		Order("id DESC").
		Offset(page * size).
		Limit(size).
		Find(&messages).Error
	return messages, err
}
