package room

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/whisper786/chat/internal/protocol"
	"github.com/whisper786/chat/internal/transport"
)

func (s *Session) bindPeer(ep uint64, p transport.Peer) {
	p.Bind(transport.PeerEvents{
		OnConnection: func(ch transport.Channel) {
			s.post(ep, func() { s.onConnection(ch) })
		},
		OnCall: func(mc transport.MediaChannel) {
			s.post(ep, func() { s.onIncomingMedia(mc) })
		},
		OnError: func(err error) {
			s.post(ep, func() { s.fail("transport", KindTransport, err, "") })
		},
	})
}

// connectTo opens a mesh channel to a participant we have no channel to.
func (s *Session) connectTo(id string) {
	if _, ok := s.reg.Channel(id); ok || id == s.selfID {
		return
	}
	ch, err := s.peer.Connect(id, transport.Metadata{"name": s.name})
	if err != nil {
		log.Warn().Str("module", "room").Str("peer", id).Err(err).Msg("mesh connect failed")
		return
	}
	s.trackChannel(id, ch)
}

func (s *Session) onConnection(ch transport.Channel) {
	id := ch.RemoteID()
	log.Debug().Str("module", "room").Str("peer", id).Bool("rendezvous", s.rendezvous).Msg("inbound connection")
	s.trackChannel(id, ch)
}

// trackChannel registers ch for id and routes its events through the loop.
func (s *Session) trackChannel(id string, ch transport.Channel) {
	if old := s.reg.AddChannel(id, ch); old != nil {
		old.Close()
	}
	ep := s.epoch
	ch.Bind(transport.ChannelEvents{
		OnOpen: func() {
			s.post(ep, func() { s.onOpen(id, ch) })
		},
		OnData: func(data []byte) {
			s.post(ep, func() { s.onData(id, ch, data) })
		},
		OnClose: func() {
			s.post(ep, func() { s.onClose(id, ch) })
		},
		OnError: func(err error) {
			s.post(ep, func() { s.onChannelError(id, ch, err) })
		},
	})
}

func (s *Session) onOpen(id string, ch transport.Channel) {
	if !s.reg.MarkOpen(id, ch) {
		return
	}
	if s.rendezvous && !s.roster.Has(id) {
		s.admit(id, ch)
	}
}

func (s *Session) onData(id string, ch transport.Channel, data []byte) {
	if !s.reg.Owns(id, ch) {
		return
	}
	env, err := protocol.Decode(data)
	if err != nil {
		log.Warn().Str("module", "room").Str("peer", id).Err(WrapError("decode", KindIgnored, err, id)).Msg("envelope dropped")
		return
	}
	log.Debug().Str("module", "room").Str("peer", id).Str("type", string(env.Kind())).Msg("envelope")

	switch e := env.(type) {
	case protocol.Chat:
		s.onChat(e)
	case protocol.UserJoined:
		s.onUserJoined(e)
	case protocol.UserLeft:
		s.onUserLeft(e)
	case protocol.AllParticipants:
		s.onAllParticipants(e)
	case protocol.NameTaken:
		s.fail("join", KindRejected, ErrNameTaken, e.Name)
	case protocol.Kick:
		s.fail("room", KindRejected, ErrKicked, "by "+e.By)
	case protocol.PromoteHost:
		s.onPromote(e)
	case protocol.CallRequest:
		s.onCallRequest(id, e)
	case protocol.CallAccepted:
		s.onCallAccepted(id)
	case protocol.CallRejected:
		s.onCallRejected(id, e)
	case protocol.CallEnded:
		s.onCallEnded(id, e)
	default:
		log.Warn().Str("module", "room").Str("type", string(env.Kind())).Msg("unhandled envelope")
	}
}

func (s *Session) onClose(id string, ch transport.Channel) {
	if !s.reg.RemoveChannel(id, ch) {
		return
	}
	log.Debug().Str("module", "room").Str("peer", id).Msg("channel closed")

	if ch == s.joinCh && !s.connected {
		s.fail("join", KindTransport, ErrHostUnreachable, s.room)
		return
	}
	s.peerGone(id)
}

func (s *Session) onChannelError(id string, ch transport.Channel, err error) {
	if !s.reg.Owns(id, ch) {
		return
	}

	if ch == s.joinCh && !s.connected {
		if errors.Is(err, transport.ErrPeerUnavailable) {
			s.becomeHost()
			return
		}
		s.fail("connect to host", KindTransport, err, s.room)
		return
	}

	log.Warn().Str("module", "room").Str("peer", id).Err(err).Msg("channel error")
	s.reg.RemoveChannel(id, ch)
	ch.Close()
	if !errors.Is(err, transport.ErrPeerUnavailable) {
		s.peerGone(id)
	}
}

// teardown closes media, channels and the peer, and clears session state.
// Callbacks still in flight from the old transport objects are discarded.
func (s *Session) teardown() {
	s.epoch++

	chs, mcs := s.reg.Drain()
	for _, mc := range mcs {
		mc.Close()
	}
	for _, ch := range chs {
		ch.Close()
	}
	if s.peer != nil {
		s.peer.Close()
		s.peer = nil
	}

	s.joinCh = nil
	s.roster.Reset()
	s.call.reset()
	s.connected = false
	s.connecting = false
	s.isHost = false
	s.rendezvous = false
	s.hostLost = false
}

// leave is the user-initiated end of the session.
func (s *Session) leave() {
	if s.peer == nil && !s.connecting && !s.connected {
		return
	}
	log.Info().Str("module", "room").Str("room", s.room).Msg("leaving")
	s.teardown()
	s.lastErr = nil
	s.system("You left the room")
}
