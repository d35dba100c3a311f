package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/whisper786/chat/internal/transport"
)

// joinRoom starts election: open a random identity and try the room's
// well-known id. If nobody holds it, claim it and become host.
func (s *Session) joinRoom(room, name string) {
	s.leave()
	s.epoch++
	s.room = room
	s.name = name
	s.messages = nil
	s.lastErr = nil
	s.connecting = true

	log.Info().Str("module", "room").Str("room", room).Str("name", name).Msg("joining")
	s.system(fmt.Sprintf("Attempting to join room: %s...", room))

	ep := s.epoch
	s.openPeer(ep, "", func(p transport.Peer) { s.onGuestPeer(ep, p) })

	if s.connectTimeout > 0 {
		time.AfterFunc(s.connectTimeout, func() {
			s.post(ep, func() {
				if s.connecting {
					s.fail("join", KindTransport, ErrConnectTimeout, room)
				}
			})
		})
	}
}

// openPeer runs the blocking Open off the loop and posts the result back.
// A result that arrives after the session moved on is closed unused.
func (s *Session) openPeer(ep uint64, id string, next func(transport.Peer)) {
	go func() {
		ctx := context.Background()
		if s.connectTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.connectTimeout)
			defer cancel()
		}

		p, err := s.tr.Open(ctx, id)
		s.inbox.push(func() {
			if s.epoch != ep {
				if p != nil {
					p.Close()
				}
				return
			}
			if err != nil {
				if errors.Is(err, transport.ErrIDTaken) {
					s.fail("claim room", KindTransport, ErrRoomClaimed, s.room)
					return
				}
				s.fail("open peer", KindTransport, err, id)
				return
			}
			next(p)
		})
	}()
}

func (s *Session) onGuestPeer(ep uint64, p transport.Peer) {
	s.peer = p
	s.selfID = p.ID()
	s.bindPeer(ep, p)

	ch, err := p.Connect(s.room, transport.Metadata{"name": s.name})
	if err != nil {
		s.fail("connect to host", KindTransport, err, s.room)
		return
	}
	s.joinCh = ch
	s.trackChannel(s.room, ch)
	log.Debug().Str("module", "room").Str("self", s.selfID).Str("room", s.room).Msg("connecting to host")
}

// becomeHost drops the guest identity and claims the room id.
func (s *Session) becomeHost() {
	log.Info().Str("module", "room").Str("room", s.room).Msg("room unclaimed, becoming host")

	s.reg.TakeChannel(s.room)
	s.joinCh = nil
	if s.peer != nil {
		s.peer.Close()
		s.peer = nil
	}

	s.epoch++
	ep := s.epoch
	s.openPeer(ep, s.room, func(p transport.Peer) { s.onHostPeer(ep, p) })
}

func (s *Session) onHostPeer(ep uint64, p transport.Peer) {
	s.peer = p
	s.selfID = p.ID()
	s.isHost = true
	s.rendezvous = true
	s.connected = true
	s.connecting = false
	s.roster.Reset()
	s.roster.Add(Participant{ID: s.selfID, Name: s.name, IsHost: true})
	s.bindPeer(ep, p)
	s.system(fmt.Sprintf("You created room %s", s.room))
}
