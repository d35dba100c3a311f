package room

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/whisper786/chat/internal/media"
	"github.com/whisper786/chat/internal/protocol"
	"github.com/whisper786/chat/internal/transport"
)

type CallState int

const (
	CallIdle CallState = iota
	CallOutgoing
	CallIncoming
	CallConnected
)

func (c CallState) String() string {
	switch c {
	case CallIdle:
		return "idle"
	case CallOutgoing:
		return "outgoing"
	case CallIncoming:
		return "incoming"
	case CallConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// callSlot is the single call a session can be part of.
type callSlot struct {
	state   CallState
	partner *Participant
}

func (c *callSlot) with(id string) bool {
	return c.partner != nil && c.partner.ID == id
}

func (c *callSlot) reset() {
	c.state = CallIdle
	c.partner = nil
}

func (s *Session) makeCall(target string) {
	if s.call.state != CallIdle {
		s.callNotice(ErrCallInProgress, "")
		return
	}
	p, ok := s.roster.Get(target)
	if !ok || target == s.selfID {
		s.callNotice(ErrUnknownPeer, target)
		return
	}
	if !s.sendTo(target, protocol.CallRequest{CallerID: s.selfID, CallerName: s.name}) {
		s.callNotice(ErrNoChannel, p.Name)
		return
	}
	s.call.state = CallOutgoing
	s.call.partner = &p
	s.system(fmt.Sprintf("Calling %s...", p.Name))
}

func (s *Session) answerCall() {
	if s.call.state != CallIncoming {
		return
	}
	partner := s.call.partner
	if s.local == nil {
		s.mediaUnavailable(partner.ID)
		return
	}
	s.sendTo(partner.ID, protocol.CallAccepted{CalleeID: s.selfID})
	s.call.state = CallConnected
	s.system(fmt.Sprintf("Call with %s connected", partner.Name))
}

func (s *Session) rejectCall() {
	if s.call.state != CallIncoming {
		return
	}
	s.sendTo(s.call.partner.ID, protocol.CallRejected{Reason: protocol.RejectDeclined})
	s.call.reset()
}

func (s *Session) hangUp() {
	if s.call.state != CallConnected && s.call.state != CallOutgoing {
		return
	}
	partner := s.call.partner
	s.sendTo(partner.ID, protocol.CallEnded{FromID: s.selfID})
	s.closeMedia(partner.ID)
	s.call.reset()
	s.system("Call ended")
}

func (s *Session) onCallRequest(from string, env protocol.CallRequest) {
	caller, ok := s.roster.Get(from)
	if !ok {
		log.Debug().Str("module", "room").Str("from", from).Msg("call-request from unknown peer dropped")
		return
	}
	if s.call.state != CallIdle {
		s.sendTo(from, protocol.CallRejected{Reason: protocol.RejectBusy})
		log.Debug().Str("module", "room").Str("from", from).Str("state", s.call.state.String()).Msg("busy, call rejected")
		return
	}
	s.call.state = CallIncoming
	s.call.partner = &caller
	s.system(fmt.Sprintf("Incoming call from %s", caller.Name))
}

func (s *Session) onCallAccepted(from string) {
	if s.call.state != CallOutgoing || !s.call.with(from) {
		log.Debug().Str("module", "room").Str("from", from).Msg("unexpected call-accepted dropped")
		return
	}
	if s.local == nil {
		s.mediaUnavailable(from)
		return
	}

	mc, err := s.peer.Call(from, s.local)
	if err != nil {
		s.system(fmt.Sprintf("Call failed: %v", err))
		s.sendTo(from, protocol.CallEnded{FromID: s.selfID})
		s.call.reset()
		return
	}
	s.trackMedia(from, mc)
	s.call.state = CallConnected
	s.system(fmt.Sprintf("Call with %s connected", s.call.partner.Name))
}

func (s *Session) onCallRejected(from string, env protocol.CallRejected) {
	if s.call.state != CallOutgoing || !s.call.with(from) {
		return
	}
	name := s.call.partner.Name
	s.call.reset()
	switch env.Reason {
	case protocol.RejectBusy:
		s.system(fmt.Sprintf("%s is busy", name))
	default:
		s.system(fmt.Sprintf("%s declined the call", name))
	}
}

func (s *Session) onCallEnded(from string, env protocol.CallEnded) {
	if !s.call.with(from) {
		// The media close can overtake the envelope and reset the slot first.
		if p, ok := s.roster.Get(from); ok && env.Reason == protocol.EndMediaUnavailable && s.call.state == CallIdle {
			s.system(fmt.Sprintf("%s has no camera or microphone", p.Name))
		}
		return
	}
	name := s.call.partner.Name
	s.closeMedia(from)
	s.call.reset()
	if env.Reason == protocol.EndMediaUnavailable {
		s.system(fmt.Sprintf("Call ended: %s has no camera or microphone", name))
		return
	}
	s.system("Call ended")
}

// mediaUnavailable ends the call on both sides when this process cannot
// originate media.
func (s *Session) mediaUnavailable(partner string) {
	s.callNotice(ErrMediaUnavailable, "")
	s.sendTo(partner, protocol.CallEnded{FromID: s.selfID, Reason: protocol.EndMediaUnavailable})
	s.closeMedia(partner)
	s.call.reset()
}

// onIncomingMedia answers every inbound media call with the local handle.
func (s *Session) onIncomingMedia(mc transport.MediaChannel) {
	from := mc.RemoteID()
	if s.local == nil {
		if s.call.with(from) {
			s.mediaUnavailable(from)
		} else {
			s.callNotice(ErrMediaUnavailable, "")
		}
		mc.Close()
		return
	}

	s.trackMedia(from, mc)
	if err := mc.Answer(s.local); err != nil {
		log.Warn().Str("module", "room").Str("peer", from).Err(err).Msg("answer media call")
	}
}

func (s *Session) trackMedia(id string, mc transport.MediaChannel) {
	if old := s.reg.AddMedia(id, mc); old != nil {
		old.Close()
	}
	ep := s.epoch
	mc.Bind(transport.MediaEvents{
		OnStream: func(stream media.Stream) {
			s.post(ep, func() { s.onStream(id, mc, stream) })
		},
		OnClose: func() {
			s.post(ep, func() { s.onMediaGone(id, mc, nil) })
		},
		OnError: func(err error) {
			s.post(ep, func() { s.onMediaGone(id, mc, err) })
		},
	})
}

func (s *Session) onStream(id string, mc transport.MediaChannel, stream media.Stream) {
	if !s.reg.OwnsMedia(id, mc) {
		return
	}
	s.roster.SetStream(id, stream)
	if s.call.with(id) {
		s.call.partner.Stream = stream
	}
}

func (s *Session) onMediaGone(id string, mc transport.MediaChannel, err error) {
	if !s.reg.RemoveMedia(id, mc) {
		return
	}
	s.roster.SetStream(id, nil)
	if err != nil {
		log.Warn().Str("module", "room").Str("peer", id).Err(err).Msg("media channel error")
	}
	if s.call.state == CallConnected && s.call.with(id) {
		s.call.reset()
		if err != nil {
			s.system(fmt.Sprintf("Call dropped: %v", err))
		} else {
			s.system("Call ended")
		}
	}
}

// closeMedia drops the media channel to id before closing it so its close
// event is not treated as a dropped call.
func (s *Session) closeMedia(id string) {
	if mc := s.reg.TakeMedia(id); mc != nil {
		mc.Close()
	}
	s.roster.SetStream(id, nil)
}

// resetCallWith clears the call slot if id was the partner.
func (s *Session) resetCallWith(id string) {
	if !s.call.with(id) {
		return
	}
	s.closeMedia(id)
	s.call.reset()
	s.system("Call ended")
}

func (s *Session) callNotice(err error, details string) {
	e := WrapError("call", KindCall, err, details)
	log.Debug().Str("module", "room").Err(e).Msg("call notice")
	if details != "" {
		s.system(fmt.Sprintf("Call: %v (%s)", err, details))
		return
	}
	s.system(fmt.Sprintf("Call: %v", err))
}
