package ws

// MessagePing is an application-level keepalive from the client.
type MessagePing struct{}

func (msg *MessagePing) GetType() string {
	return "ping"
}

func (msg *MessagePing) Process(ctx *MessageContext) error {
	ctx.Hub.Touch(ctx.Client)
	ctx.Reply(Envelope{Type: FramePong})
	return nil
}

// MessagePong answers a server ping sent as a text frame.
type MessagePong struct{}

func (msg *MessagePong) GetType() string {
	return "pong"
}

func (msg *MessagePong) Process(ctx *MessageContext) error {
	ctx.Hub.Touch(ctx.Client)
	return nil
}
