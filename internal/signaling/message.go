package signaling

import (
	"encoding/json"
	"errors"
)

// Message is the websocket frame exchanged between peers and the broker.
type Message struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Src     string          `json:"src,omitempty"`
	Dst     string          `json:"dst,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Message type constants.
const (
	MessageTypeOpen   = "open"
	MessageTypeSignal = "signal"

	MessageTypeOpened = "opened"
	MessageTypeError  = "error"
)

// Signal kinds carried in SignalPayload.Kind.
const (
	SignalData  = "data"
	SignalMedia = "media"
	SignalBye   = "bye"
)

// Error kinds carried in ErrorPayload.Kind.
const (
	ErrorUnavailableID   = "unavailable-id"
	ErrorPeerUnavailable = "peer-unavailable"
	ErrorNotOpen         = "not-open"
	ErrorAlreadyOpen     = "already-open"
	ErrorInvalidMessage  = "invalid-message"
)

var ErrNoPayload = errors.New("message has no payload")

// SignalPayload is one step of connection setup between two peers. Every
// data or media connection has its own ConnectionID.
type SignalPayload struct {
	ConnectionID string            `json:"connection_id"`
	Kind         string            `json:"kind"`
	SDPType      string            `json:"sdp_type,omitempty"`
	SDP          string            `json:"sdp,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// ErrorPayload is sent by the broker when a request fails.
type ErrorPayload struct {
	Kind         string `json:"kind"`
	Peer         string `json:"peer,omitempty"`
	ConnectionID string `json:"connection_id,omitempty"`
	Error        string `json:"error"`
}

// NewMessage creates a Message with the given type and JSON payload.
func NewMessage(t string, payload any) (*Message, error) {
	msg := &Message{Type: t}
	if payload == nil {
		return msg, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	msg.Payload = b
	return msg, nil
}

// DecodePayload decodes the message payload into v.
func (m *Message) DecodePayload(v any) error {
	if len(m.Payload) == 0 {
		return ErrNoPayload
	}
	return json.Unmarshal(m.Payload, v)
}
