// Package transport defines the peer transport the room core runs on:
// identity assignment, data channels by peer id, media channels, and the
// events they report.
package transport

import (
	"context"
	"errors"

	"github.com/whisper786/chat/internal/media"
)

var (
	// ErrPeerUnavailable means no live peer is registered under the target id.
	ErrPeerUnavailable = errors.New("peer unavailable")
	ErrIDTaken         = errors.New("id already taken")
	ErrChannelClosed   = errors.New("channel closed")
	ErrDisconnected    = errors.New("disconnected from broker")
)

// Metadata travels with a data channel from the initiator to the receiver.
type Metadata map[string]string

type PeerEvents struct {
	OnConnection func(Channel)
	OnCall       func(MediaChannel)
	OnError      func(error)
}

type ChannelEvents struct {
	OnOpen  func()
	OnData  func([]byte)
	OnClose func()
	OnError func(error)
}

type MediaEvents struct {
	OnStream func(media.Stream)
	OnClose  func()
	OnError  func(error)
}

// Transport opens peers. An empty id asks for a random identity; a non-empty
// id claims that identity and fails with ErrIDTaken if it is live.
type Transport interface {
	Open(ctx context.Context, id string) (Peer, error)
}

// Peer is one registered identity. Events raised before Bind are buffered
// and replayed in order once Bind is called.
type Peer interface {
	ID() string
	Bind(PeerEvents)
	// Connect starts a data channel to target. Failure to reach the target
	// is reported through the channel's OnError, with ErrPeerUnavailable when
	// nothing is registered under target.
	Connect(target string, md Metadata) (Channel, error)
	Call(target string, local media.Stream) (MediaChannel, error)
	Close() error
}

// Channel is a reliable ordered data link to one remote peer.
type Channel interface {
	RemoteID() string
	Metadata() Metadata
	Bind(ChannelEvents)
	Send(data []byte) error
	Close() error
}

// MediaChannel is an audio/video link to one remote peer.
type MediaChannel interface {
	RemoteID() string
	Bind(MediaEvents)
	Answer(local media.Stream) error
	Close() error
}
