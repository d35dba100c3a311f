package room

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidName      = errors.New("display name is empty")
	ErrInvalidRoom      = errors.New("room name is empty")
	ErrNameTaken        = errors.New("name already taken in this room")
	ErrKicked           = errors.New("removed from the room")
	ErrHostUnreachable  = errors.New("could not reach the room host")
	ErrRoomClaimed      = errors.New("room was claimed by another host while joining")
	ErrConnectTimeout   = errors.New("timed out connecting to the room")
	ErrMediaUnavailable = errors.New("no local media available")
	ErrNotHost          = errors.New("only a host can do that")
	ErrUnknownPeer      = errors.New("unknown participant")
	ErrCallInProgress   = errors.New("already in a call")
	ErrNoChannel        = errors.New("no open channel to participant")
)

// Kind classifies a failure by how far its effects reach.
type Kind int

const (
	// KindTransport failures tear the whole session down.
	KindTransport Kind = iota + 1
	// KindRejected means the room refused us (name taken, kicked).
	KindRejected
	// KindCall failures only reset the call slot.
	KindCall
	// KindIgnored envelopes are logged and dropped.
	KindIgnored
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindRejected:
		return "rejected"
	case KindCall:
		return "call"
	case KindIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// Fatal reports whether errors of this kind end the session.
func (k Kind) Fatal() bool {
	return k == KindTransport || k == KindRejected
}

type Error struct {
	Op      string
	Kind    Kind
	Err     error
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

func WrapError(op string, kind Kind, err error, details string) *Error {
	return &Error{Op: op, Kind: kind, Err: err, Details: details}
}

// KindOf extracts the Kind of err, or 0 when err is not a *Error.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return 0
}
