package models

import (
	"time"
)

type MessageType string

const (
	MessageText       MessageType = "TEXT"
	MessageLink       MessageType = "LINK"
	MessageImage      MessageType = "IMAGE"
	MessagePDF        MessageType = "PDF"
	MessageDocument   MessageType = "DOCUMENT"
	MessageExcel      MessageType = "EXCEL"
	MessagePowerPoint MessageType = "POWERPOINT"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageLink, MessageImage, MessagePDF, MessageDocument, MessageExcel, MessagePowerPoint:
		return true
	}
	return false
}

// CarriesFile reports whether messages of this type keep file metadata.
func (t MessageType) CarriesFile() bool {
	return t != MessageText && t != MessageLink
}

// ChatMessage is an immutable group chat record.
type ChatMessage struct {
	ID        uint        `gorm:"primarykey" json:"id"`
	GroupID   uint        `gorm:"not null;index:idx_group_timestamp,priority:1" json:"group_id"`
	SenderID  uint        `gorm:"not null;index" json:"sender_id"`
	Type      MessageType `gorm:"type:varchar(20);not null;default:'TEXT'" json:"type"`
	Content   string      `gorm:"type:text" json:"content"`
	FileURL   string      `json:"file_url,omitempty"`
	FileName  string      `json:"file_name,omitempty"`
	FileType  string      `gorm:"size:150" json:"file_type,omitempty"`
	FileSize  *int64      `json:"file_size,omitempty"`
	Timestamp time.Time   `gorm:"not null;index:idx_group_timestamp,priority:2" json:"timestamp"`

	// Inserts against a deleted group fail with gorm.ErrForeignKeyViolated.
	Group *Group `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

type ChatMessageResponse struct {
	ID        uint        `json:"id" msgpack:"id"`
	GroupID   uint        `json:"group_id" msgpack:"group_id"`
	Sender    UserSummary `json:"sender" msgpack:"sender"`
	Type      MessageType `json:"type" msgpack:"type"`
	Content   string      `json:"content" msgpack:"content"`
	FileURL   string      `json:"file_url,omitempty" msgpack:"file_url"`
	FileName  string      `json:"file_name,omitempty" msgpack:"file_name"`
	FileType  string      `json:"file_type,omitempty" msgpack:"file_type"`
	FileSize  *int64      `json:"file_size,omitempty" msgpack:"file_size"`
	Timestamp time.Time   `json:"timestamp" msgpack:"timestamp"`
}

func (m *ChatMessage) ToResponse(sender *User) ChatMessageResponse {
	resp := ChatMessageResponse{
		ID:        m.ID,
		GroupID:   m.GroupID,
		Type:      m.Type,
		Content:   m.Content,
		FileURL:   m.FileURL,
		FileName:  m.FileName,
		FileType:  m.FileType,
		FileSize:  m.FileSize,
		Timestamp: m.Timestamp,
	}
	if sender != nil {
		resp.Sender = sender.ToSummary()
	} else {
		resp.Sender = UserSummary{ID: m.SenderID}
	}
	return resp
}
