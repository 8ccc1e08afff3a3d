package ws

import (
	"fmt"
	"reflect"
)

// frameTypes maps an inbound frame's "type" to the struct that handles it.
var frameTypes = map[string]reflect.Type{}

func init() {
	for _, m := range []Message{
		&MessageSubscribe{},
		&MessageUnsubscribe{},
		&MessageSend{},
		&MessagePing{},
		&MessagePong{},
	} {
		RegisterType(m)
	}
}

// RegisterType makes msg's frame type decodable. Registering a type twice panics.
func RegisterType(msg Message) {
	name := msg.GetType()
	if _, dup := frameTypes[name]; dup {
		panic("ws: duplicate frame type " + name)
	}
	frameTypes[name] = reflect.TypeOf(msg).Elem()
}

func newMessage(frameType string) (Message, error) {
	t, ok := frameTypes[frameType]
	if !ok {
		return nil, fmt.Errorf("unknown message type: %s", frameType)
	}
	return reflect.New(t).Interface().(Message), nil
}
