package ws

import (
	"encoding/json"
	"errors"
)

var errEmptyFrame = errors.New("empty frame")

// Deserialize decodes a client frame into its registered message type.
func Deserialize(jsonBytes []byte) (Message, error) {
	if len(jsonBytes) == 0 {
		return nil, errEmptyFrame
	}
	var wrapper SerializedMessage
	if err := json.Unmarshal(jsonBytes, &wrapper); err != nil {
		return nil, err
	}

	msg, err := newMessage(wrapper.Type)
	if err != nil {
		return nil, err
	}
	if len(wrapper.Payload) > 0 && string(wrapper.Payload) != "null" {
		if err := json.Unmarshal(wrapper.Payload, msg); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

// Serialize wraps msg the same way clients frame their requests.
func Serialize(msg Message) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return json.Marshal(SerializedMessage{Type: msg.GetType(), Payload: payload})
}
