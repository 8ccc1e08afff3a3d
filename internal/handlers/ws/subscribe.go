package ws

import (
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/service"
	"go.uber.org/zap"
)

// MessageSubscribe joins the live topic of a group. Only active members may subscribe.
// Membership is checked again once the subscription exists: a removal that
// revoked the topic between the first check and Subscribe is caught there.
type MessageSubscribe struct {
	GroupID uint `json:"group_id"`
}

func (msg *MessageSubscribe) GetType() string {
	return "subscribe"
}

func (msg *MessageSubscribe) Process(ctx *MessageContext) error {
	if err := ctx.Chat.CanSubscribe(msg.GroupID, ctx.Client.UserID); err != nil {
		return err
	}
	topic := service.GroupTopic(msg.GroupID)
	if !ctx.Hub.Subscribe(ctx.Client, topic) {
		return nil
	}
	if err := ctx.Chat.CanSubscribe(msg.GroupID, ctx.Client.UserID); err != nil {
		ctx.Hub.UnsubscribeClient(ctx.Client, topic)
		return err
	}
	ctx.Log.Debug("subscribed", zap.Uint("user_id", ctx.Client.UserID), zap.String("topic", topic))
	ctx.Reply(Envelope{Type: FrameSubscribed, Topic: topic})
	return nil
}

type MessageUnsubscribe struct {
	GroupID uint `json:"group_id"`
}

func (msg *MessageUnsubscribe) GetType() string {
	return "unsubscribe"
}

func (msg *MessageUnsubscribe) Process(ctx *MessageContext) error {
	topic := service.GroupTopic(msg.GroupID)
	if ctx.Hub.UnsubscribeClient(ctx.Client, topic) {
		ctx.Reply(Envelope{Type: FrameUnsubscribed, Topic: topic})
	}
	return nil
}
