package protocol

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Kind names the envelope variant carried on a data channel.
type Kind string

// Envelope kinds. Every kind has exactly one payload type below.
const (
	KindChat            Kind = "chat"
	KindUserJoined      Kind = "user-joined"
	KindUserLeft        Kind = "user-left"
	KindAllParticipants Kind = "all-participants"
	KindNameTaken       Kind = "name-taken"
	KindKick            Kind = "kick"
	KindPromoteHost     Kind = "promote-host"
	KindCallRequest     Kind = "call-request"
	KindCallAccepted    Kind = "call-accepted"
	KindCallRejected    Kind = "call-rejected"
	KindCallEnded       Kind = "call-ended"
)

var (
	ErrUnknownKind   = errors.New("unknown envelope kind")
	ErrEmptyEnvelope = errors.New("empty envelope")
)

// Envelope is the closed set of control/data messages exchanged between
// room participants. Only types in this package implement it.
type Envelope interface {
	Kind() Kind
	sealed()
}

// wireMessage is the on-the-wire shape: {type, payload}.
type wireMessage struct {
	Type    Kind               `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

// Encode serializes an envelope for a data channel.
func Encode(env Envelope) ([]byte, error) {
	if env == nil {
		return nil, ErrEmptyEnvelope
	}
	payload, err := msgpack.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", env.Kind(), err)
	}
	return msgpack.Marshal(wireMessage{Type: env.Kind(), Payload: payload})
}

// Decode parses bytes received on a data channel into a typed envelope.
func Decode(data []byte) (Envelope, error) {
	if len(data) == 0 {
		return nil, ErrEmptyEnvelope
	}
	var msg wireMessage
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	env, err := newPayload(msg.Type)
	if err != nil {
		return nil, err
	}
	if len(msg.Payload) > 0 {
		if err := msgpack.Unmarshal(msg.Payload, env); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", msg.Type, err)
		}
	}
	return deref(env), nil
}

func newPayload(kind Kind) (Envelope, error) {
	switch kind {
	case KindChat:
		return &Chat{}, nil
	case KindUserJoined:
		return &UserJoined{}, nil
	case KindUserLeft:
		return &UserLeft{}, nil
	case KindAllParticipants:
		return &AllParticipants{}, nil
	case KindNameTaken:
		return &NameTaken{}, nil
	case KindKick:
		return &Kick{}, nil
	case KindPromoteHost:
		return &PromoteHost{}, nil
	case KindCallRequest:
		return &CallRequest{}, nil
	case KindCallAccepted:
		return &CallAccepted{}, nil
	case KindCallRejected:
		return &CallRejected{}, nil
	case KindCallEnded:
		return &CallEnded{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// deref hands out value types so handlers can switch on them directly.
func deref(env Envelope) Envelope {
	switch e := env.(type) {
	case *Chat:
		return *e
	case *UserJoined:
		return *e
	case *UserLeft:
		return *e
	case *AllParticipants:
		return *e
	case *NameTaken:
		return *e
	case *Kick:
		return *e
	case *PromoteHost:
		return *e
	case *CallRequest:
		return *e
	case *CallAccepted:
		return *e
	case *CallRejected:
		return *e
	case *CallEnded:
		return *e
	}
	return env
}
