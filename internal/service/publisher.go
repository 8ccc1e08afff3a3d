package service

import "fmt"

// GroupTopic is the realtime topic carrying a group's chat messages.
func GroupTopic(groupID uint) string {
	return fmt.Sprintf("/topic/group/%d", groupID)
}

// Publisher fans a payload out to every subscriber of topic. Delivery is best
// effort: implementations may drop messages for slow or absent subscribers.
type Publisher interface {
	Publish(topic string, payload interface{}) error
}

// SubscriptionRevoker withdraws realtime subscriptions when membership ends.
type SubscriptionRevoker interface {
	Unsubscribe(userID uint, topic string)
	CloseTopic(topic string)
}
