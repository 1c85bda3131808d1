package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Message key constants
const (
	// Session control
	KeyBusy         = "busy"
	KeyRegistered   = "registered"
	KeyServerTooOld = "server_too_old"

	// Surface events
	KeySelect       = "select"
	KeyCursorMove   = "cursor_move"
	KeyInputChange  = "input_change"
	KeyWindowClosed = "window_closed"

	// Client requests
	KeyStop       = "stop"
	KeySetChoices = "set_choices"
	KeySetInput   = "set_input"
)

// ErrUnknownKey reports a syntactically valid envelope whose key the
// receiver does not handle.
var ErrUnknownKey = errors.New("unknown message key")

// Message is the key/data envelope used for every line after registration.
type Message struct {
	Key  string          `json:"key"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a message with the given key and payload. A nil payload
// omits the data field entirely.
func NewMessage(key string, payload interface{}) (Message, error) {
	msg := Message{Key: key}
	if payload == nil {
		return msg, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal %s payload: %w", key, err)
	}
	msg.Data = data
	return msg, nil
}

// NewBusyMessage tells a client it is queued behind the active session.
func NewBusyMessage() Message {
	return Message{Key: KeyBusy}
}

// NewRegisteredMessage confirms a registration with the assigned session id.
func NewRegisteredMessage(sessionID uint64) (Message, error) {
	return NewMessage(KeyRegistered, sessionID)
}

// NewServerTooOldMessage reports the highest protocol version the server
// supports; the connection closes right after it.
func NewServerTooOldMessage(supported uint8) (Message, error) {
	return NewMessage(KeyServerTooOld, supported)
}

// Encode serializes the message as one JSON object followed by a newline.
func (m Message) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message %q: %w", m.Key, err)
	}
	return append(data, '\n'), nil
}

// DecodeLine parses one wire line into a message envelope.
func DecodeLine(line []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(line, &msg); err != nil {
		return Message{}, fmt.Errorf("malformed message line: %w", err)
	}
	if msg.Key == "" {
		return Message{}, errors.New("message has no key")
	}
	return msg, nil
}

// DecodeData unmarshals the payload of a message, treating a missing data
// field as an error with a usable description.
func (m Message) DecodeData(target interface{}) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("message %q has no data", m.Key)
	}
	if err := json.Unmarshal(m.Data, target); err != nil {
		return fmt.Errorf("malformed %s data: %w", m.Key, err)
	}
	return nil
}
