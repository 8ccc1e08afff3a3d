package ws

import (
	"context"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// Hub event kinds.
const (
	EventPublish     = "publish"
	EventUnsubscribe = "unsubscribe"
	EventCloseTopic  = "close_topic"
)

// Event is a hub operation that must reach every instance.
type Event struct {
	Kind   string `msgpack:"kind"`
	Topic  string `msgpack:"topic"`
	UserID uint   `msgpack:"user_id,omitempty"`
	Data   []byte `msgpack:"data,omitempty"`
}

// Fanout distributes hub events.
type Fanout interface {
	Broadcast(ev Event) error
}

type localFanout struct {
	hub *Hub
}

func (f localFanout) Broadcast(ev Event) error {
	f.hub.Apply(ev)
	return nil
}

// PubSub is the transport a Relay rides on. *cache.RedisCache satisfies it.
type PubSub interface {
	Publish(channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string, handle func([]byte)) error
}

const DefaultRelayChannel = "studygroup:hub"

// Relay shares hub events between server instances. Each instance applies the
// events it receives, its own included, so local delivery goes through the relay too.
type Relay struct {
	pubsub  PubSub
	channel string
	hub     *Hub
	log     *zap.Logger
}

func NewRelay(pubsub PubSub, channel string, hub *Hub, log *zap.Logger) *Relay {
	if channel == "" {
		channel = DefaultRelayChannel
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Relay{pubsub: pubsub, channel: channel, hub: hub, log: log}
}

func (r *Relay) Broadcast(ev Event) error {
	data, err := msgpack.Marshal(&ev)
	if err != nil {
		return err
	}
	return r.pubsub.Publish(r.channel, data)
}

// Run consumes the relay channel until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	r.log.Info("hub relay subscribed", zap.String("channel", r.channel))
	return r.pubsub.Subscribe(ctx, r.channel, func(data []byte) {
		var ev Event
		if err := msgpack.Unmarshal(data, &ev); err != nil {
			r.log.Warn("bad relay event", zap.Error(err))
			return
		}
		r.hub.Apply(ev)
	})
}
