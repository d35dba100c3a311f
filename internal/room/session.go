// Package room coordinates a chat room over a peer transport: host
// election, the host-owned roster, chat fan-out and the one-to-one call
// state machine. All state lives on a single event loop started by Run.
package room

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/whisper786/chat/internal/media"
	"github.com/whisper786/chat/internal/transport"
)

const (
	DefaultGraceDelay     = 500 * time.Millisecond
	DefaultConnectTimeout = 15 * time.Second
)

type Options struct {
	Transport transport.Transport
	// GraceDelay is how long a channel stays open after a name-taken or
	// kick envelope so the envelope is delivered before the close.
	GraceDelay time.Duration
	// ConnectTimeout bounds the join handshake. Zero disables it.
	ConnectTimeout time.Duration
}

// MessageKind separates chat lines from locally generated notices.
type MessageKind string

const (
	MessageChat   MessageKind = "chat"
	MessageSystem MessageKind = "system"
)

type Message struct {
	ID         string
	Kind       MessageKind
	SenderID   string
	SenderName string
	Text       string
	// Self marks lines authored by this process.
	Self bool
	At   time.Time
}

// State is a point-in-time copy of the session, safe to read from any
// goroutine.
type State struct {
	SelfID       string
	Room         string
	Name         string
	Roster       []Participant
	Links        []string // peers with an open data channel
	Messages     []Message
	IsConnected  bool
	IsConnecting bool
	LastError    error
	IsHost       bool
	HostLost     bool
	CallState    CallState
	CallPartner  *Participant
}

type Session struct {
	tr             transport.Transport
	graceDelay     time.Duration
	connectTimeout time.Duration

	inbox   *inbox
	updates chan struct{}

	snapMu sync.RWMutex
	snap   State

	// Everything below is owned by the event loop.
	epoch      uint64
	peer       transport.Peer
	selfID     string
	room       string
	name       string
	isHost     bool
	rendezvous bool
	hostLost   bool
	connected  bool
	connecting bool
	lastErr    error
	roster     Roster
	reg        *Registry
	messages   []Message
	local      media.Stream
	joinCh     transport.Channel
	call       callSlot
}

func NewSession(opts Options) *Session {
	if opts.GraceDelay <= 0 {
		opts.GraceDelay = DefaultGraceDelay
	}
	return &Session{
		tr:             opts.Transport,
		graceDelay:     opts.GraceDelay,
		connectTimeout: opts.ConnectTimeout,
		inbox:          newInbox(),
		updates:        make(chan struct{}, 1),
		reg:            newRegistry(),
	}
}

// Run drives the event loop until ctx is done, then leaves the room.
func (s *Session) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.leave()
			s.publish()
			return nil
		case <-s.inbox.notify:
			for _, fn := range s.inbox.drain() {
				fn()
			}
			s.publish()
		}
	}
}

// Updates delivers a signal after every loop step that may have changed
// State. Signals coalesce; read State after each one.
func (s *Session) Updates() <-chan struct{} {
	return s.updates
}

func (s *Session) State() State {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snap
}

// JoinRoom leaves any current room and joins room as name. The host is
// elected on the way in.
func (s *Session) JoinRoom(room, name string) error {
	room = strings.TrimSpace(room)
	name = strings.TrimSpace(name)
	if room == "" {
		return NewError("join", KindRejected, ErrInvalidRoom)
	}
	if name == "" {
		return NewError("join", KindRejected, ErrInvalidName)
	}
	s.inbox.push(func() { s.joinRoom(room, name) })
	return nil
}

func (s *Session) SendMessage(text string) {
	s.inbox.push(func() { s.sendMessage(text) })
}

// EndCall leaves the room: every channel and the peer are closed.
func (s *Session) EndCall() {
	s.inbox.push(s.leave)
}

func (s *Session) KickUser(id string) {
	s.inbox.push(func() { s.kick(id) })
}

func (s *Session) PromoteToHost(id string) {
	s.inbox.push(func() { s.promote(id) })
}

func (s *Session) MakeCall(id string) {
	s.inbox.push(func() { s.makeCall(id) })
}

func (s *Session) AnswerCall() {
	s.inbox.push(s.answerCall)
}

func (s *Session) RejectCall() {
	s.inbox.push(s.rejectCall)
}

func (s *Session) HangUp() {
	s.inbox.push(s.hangUp)
}

// SetLocalMedia sets the handle used to originate and answer media calls.
// A nil stream means no media is available.
func (s *Session) SetLocalMedia(stream media.Stream) {
	s.inbox.push(func() { s.local = stream })
}

// post queues fn to run on the loop unless the session has been rebuilt
// since the caller captured the epoch.
func (s *Session) post(epoch uint64, fn func()) {
	s.inbox.push(func() {
		if s.epoch != epoch {
			return
		}
		fn()
	})
}

func (s *Session) publish() {
	st := State{
		SelfID:       s.selfID,
		Room:         s.room,
		Name:         s.name,
		Roster:       s.roster.Snapshot(),
		Links:        s.reg.OpenIDs(),
		Messages:     append([]Message(nil), s.messages...),
		IsConnected:  s.connected,
		IsConnecting: s.connecting,
		LastError:    s.lastErr,
		IsHost:       s.isHost,
		HostLost:     s.hostLost,
		CallState:    s.call.state,
	}
	if s.call.partner != nil {
		p := *s.call.partner
		st.CallPartner = &p
	}

	s.snapMu.Lock()
	s.snap = st
	s.snapMu.Unlock()

	select {
	case s.updates <- struct{}{}:
	default:
	}
}

// fail records a fatal error and tears the session down.
func (s *Session) fail(op string, kind Kind, err error, details string) {
	e := WrapError(op, kind, err, details)
	log.Error().Str("module", "room").Str("op", op).Str("kind", kind.String()).Err(err).Str("details", details).Msg("session failed")
	s.teardown()
	s.lastErr = e
}

type inbox struct {
	mu     sync.Mutex
	queue  []func()
	notify chan struct{}
}

func newInbox() *inbox {
	return &inbox{notify: make(chan struct{}, 1)}
}

func (q *inbox) push(fn func()) {
	q.mu.Lock()
	q.queue = append(q.queue, fn)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *inbox) drain() []func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.queue
	q.queue = nil
	return items
}
