package ws

import (
	"context"
	"encoding/json"

	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/apperr"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/models"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/service"
	"go.uber.org/zap"
)

// ChatBackend is the part of the chat service the socket needs.
type ChatBackend interface {
	SendMessage(ctx context.Context, groupID, senderID uint, input service.SendMessageInput) (*models.ChatMessageResponse, error)
	CanSubscribe(groupID, userID uint) error
}

// MessageContext provides all dependencies needed for message processing
type MessageContext struct {
	Ctx    context.Context
	Client *Client
	Hub    *Hub
	Chat   ChatBackend
	Log    *zap.Logger
}

func (ctx *MessageContext) Reply(v interface{}) {
	ctx.Hub.Send(ctx.Client, v)
}

// Message interface for all WebSocket message types
type Message interface {
	GetType() string
	Process(ctx *MessageContext) error
}

// SerializedMessage is the wire format wrapper
type SerializedMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ErrorResponse is sent when message processing fails
type ErrorResponse struct {
	Type    string      `json:"type"`
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

// SendError queues an error frame for the client. Application errors keep
// their code; anything else is reported generically.
func SendError(ctx *MessageContext, err error) {
	resp := ErrorResponse{Type: FrameError, Code: "processing_failed", Error: "Failed to process message"}
	if ae := apperr.As(err); ae != nil && ae.Kind != apperr.KindInternal {
		resp.Code = ae.Code
		resp.Error = ae.Message
		if len(ae.Details) > 0 {
			resp.Details = ae.Details
		}
	}
	ctx.Reply(resp)
}
