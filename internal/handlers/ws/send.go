package ws

import (
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/apperr"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/service"
	"go.uber.org/zap"
)

var errRateLimited = &apperr.Error{
	Kind:    apperr.KindValidation,
	Code:    "rate_limited",
	Message: "Too many messages, slow down",
}

// MessageSend posts a chat message to a group over the socket.
// Failures are logged and reported to the sender only.
type MessageSend struct {
	GroupID uint `json:"group_id"`
	service.SendMessageInput
}

func (msg *MessageSend) GetType() string {
	return "send"
}

func (msg *MessageSend) Process(ctx *MessageContext) error {
	if !ctx.Client.Allow() {
		ctx.Log.Warn("dropping throttled send",
			zap.Uint("user_id", ctx.Client.UserID),
			zap.Uint("group_id", msg.GroupID),
		)
		SendError(ctx, errRateLimited)
		return nil
	}

	resp, err := ctx.Chat.SendMessage(ctx.Ctx, msg.GroupID, ctx.Client.UserID, msg.SendMessageInput)
	if err != nil {
		ctx.Log.Warn("realtime send failed",
			zap.Uint("user_id", ctx.Client.UserID),
			zap.Uint("group_id", msg.GroupID),
			zap.Error(err),
		)
		SendError(ctx, err)
		return nil
	}

	ctx.Reply(Envelope{
		Type:  FrameSent,
		Topic: service.GroupTopic(msg.GroupID),
		Payload: map[string]interface{}{
			"id":        resp.ID,
			"timestamp": resp.Timestamp,
		},
	})
	return nil
}
