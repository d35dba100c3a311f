package room

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/whisper786/chat/internal/protocol"
	"github.com/whisper786/chat/internal/transport"
)

// admit validates a join on the room's well-known identity. A clashing
// name is refused and the channel closed once the refusal had time to
// arrive; otherwise the guest gets the full roster and everyone else
// learns about the guest.
func (s *Session) admit(id string, ch transport.Channel) {
	name := strings.TrimSpace(ch.Metadata()["name"])
	if name == "" || s.roster.HasName(name) {
		log.Info().Str("module", "room").Str("peer", id).Str("name", name).Msg("join refused, name taken")
		s.reg.RemoveChannel(id, ch)
		s.sendOn(ch, protocol.NameTaken{Name: name})
		s.closeLater(ch)
		return
	}

	p := Participant{ID: id, Name: name}
	s.roster.Add(p)
	s.sendOn(ch, protocol.AllParticipants{Participants: s.roster.Wire()})
	s.broadcast(protocol.UserJoined{Participant: p.wire()}, id)
	s.system(fmt.Sprintf("%s joined", name))
	log.Info().Str("module", "room").Str("peer", id).Str("name", name).Int("roster", s.roster.Len()).Msg("participant admitted")
}

func (s *Session) onAllParticipants(env protocol.AllParticipants) {
	s.roster.Replace(env.Participants)
	if self, ok := s.roster.Get(s.selfID); ok {
		s.isHost = s.isHost || self.IsHost
	}

	if !s.connected {
		s.connected = true
		s.connecting = false
		s.system(fmt.Sprintf("Joined room %s", s.room))
	}

	for _, p := range s.roster.Snapshot() {
		if p.ID != s.selfID {
			s.connectTo(p.ID)
		}
	}
}

func (s *Session) onUserJoined(env protocol.UserJoined) {
	p := fromWire(env.Participant)
	if p.ID == s.selfID || !s.roster.Add(p) {
		return
	}
	s.system(fmt.Sprintf("%s joined", p.Name))
}

func (s *Session) onUserLeft(env protocol.UserLeft) {
	if env.ID == s.selfID {
		return
	}
	if ch := s.reg.TakeChannel(env.ID); ch != nil {
		ch.Close()
	}
	s.resetCallWith(env.ID)
	if _, ok := s.roster.Remove(env.ID); !ok {
		return
	}
	if env.Reason == protocol.ReasonKicked {
		s.system(fmt.Sprintf("%s was removed from the room", env.Name))
		return
	}
	s.system(fmt.Sprintf("%s left", env.Name))
}

// peerGone handles a channel that closed under us. Hosts announce the
// departure; everyone else only updates locally.
func (s *Session) peerGone(id string) {
	s.resetCallWith(id)

	p, ok := s.roster.Remove(id)
	if !ok {
		return
	}

	if s.isHost {
		s.broadcast(protocol.UserLeft{ID: p.ID, Name: p.Name, Reason: protocol.ReasonLeft}, "")
	}
	s.system(fmt.Sprintf("%s left", p.Name))

	if id == s.room && !s.rendezvous {
		s.hostLost = true
		s.system("The host left. The room has no host now and nobody new can join")
	}
}

func (s *Session) kick(id string) {
	if !s.isHost {
		log.Debug().Str("module", "room").Err(NewError("kick", KindIgnored, ErrNotHost)).Msg("kick ignored")
		return
	}
	p, ok := s.roster.Get(id)
	if !ok || id == s.selfID {
		return
	}

	s.sendTo(id, protocol.Kick{By: s.name})
	ch := s.reg.TakeChannel(id)
	s.broadcast(protocol.UserLeft{ID: p.ID, Name: p.Name, Reason: protocol.ReasonKicked}, id)
	s.roster.Remove(id)
	s.resetCallWith(id)
	if ch != nil {
		s.closeLater(ch)
	}
	s.system(fmt.Sprintf("You removed %s", p.Name))
}

func (s *Session) promote(id string) {
	if !s.isHost {
		log.Debug().Str("module", "room").Err(NewError("promote", KindIgnored, ErrNotHost)).Msg("promote ignored")
		return
	}
	p, ok := s.roster.Get(id)
	if !ok || p.IsHost {
		return
	}
	s.broadcast(protocol.PromoteHost{TargetID: id, PromoterName: s.name}, "")
	s.roster.SetHost(id)
	s.system(fmt.Sprintf("You made %s a host", p.Name))
}

func (s *Session) onPromote(env protocol.PromoteHost) {
	if !s.roster.SetHost(env.TargetID) {
		return
	}
	if env.TargetID == s.selfID {
		s.isHost = true
		s.system(fmt.Sprintf("%s made you a host", env.PromoterName))
		return
	}
	if p, ok := s.roster.Get(env.TargetID); ok {
		s.system(fmt.Sprintf("%s is now a host", p.Name))
	}
}

// closeLater closes ch after the grace delay so an envelope sent just
// before it can still be delivered.
func (s *Session) closeLater(ch transport.Channel) {
	time.AfterFunc(s.graceDelay, func() { ch.Close() })
}
