package room

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/whisper786/chat/internal/protocol"
	"github.com/whisper786/chat/internal/transport"
)

func (s *Session) sendMessage(text string) {
	text = strings.TrimSpace(text)
	if text == "" || !s.connected {
		return
	}

	env := protocol.Chat{
		ID:         "msg-" + uuid.NewString(),
		SenderID:   s.selfID,
		SenderName: s.name,
		Text:       text,
	}
	s.broadcast(env, "")

	s.messages = append(s.messages, Message{
		ID:         env.ID,
		Kind:       MessageChat,
		SenderID:   env.SenderID,
		SenderName: env.SenderName,
		Text:       env.Text,
		Self:       true,
		At:         time.Now(),
	})
}

func (s *Session) onChat(env protocol.Chat) {
	s.messages = append(s.messages, Message{
		ID:         env.ID,
		Kind:       MessageChat,
		SenderID:   env.SenderID,
		SenderName: env.SenderName,
		Text:       env.Text,
		Self:       env.SenderID == s.selfID,
		At:         time.Now(),
	})
}

// system appends a local notice to the message log.
func (s *Session) system(text string) {
	s.messages = append(s.messages, Message{
		ID:   "sys-" + uuid.NewString(),
		Kind: MessageSystem,
		Text: text,
		At:   time.Now(),
	})
}

// broadcast sends env on every open channel except the one to skip.
func (s *Session) broadcast(env protocol.Envelope, skip string) int {
	data, err := protocol.Encode(env)
	if err != nil {
		log.Error().Str("module", "room").Str("type", string(env.Kind())).Err(err).Msg("encode envelope")
		return 0
	}

	sent := 0
	for _, id := range s.reg.OpenIDs() {
		if id == skip {
			continue
		}
		ch, _ := s.reg.OpenChannel(id)
		if err := ch.Send(data); err != nil {
			log.Warn().Str("module", "room").Str("peer", id).Err(err).Msg("broadcast send failed")
			continue
		}
		sent++
	}
	log.Debug().Str("module", "room").Str("type", string(env.Kind())).Int("sent_to", sent).Msg("broadcast")
	return sent
}

// sendTo sends env to one peer and reports whether it was handed to the
// transport.
func (s *Session) sendTo(id string, env protocol.Envelope) bool {
	ch, ok := s.reg.OpenChannel(id)
	if !ok {
		log.Debug().Str("module", "room").Str("peer", id).Str("type", string(env.Kind())).Msg("no open channel")
		return false
	}
	return s.sendOn(ch, env)
}

func (s *Session) sendOn(ch transport.Channel, env protocol.Envelope) bool {
	data, err := protocol.Encode(env)
	if err != nil {
		log.Error().Str("module", "room").Str("type", string(env.Kind())).Err(err).Msg("encode envelope")
		return false
	}
	if err := ch.Send(data); err != nil {
		log.Warn().Str("module", "room").Str("type", string(env.Kind())).Err(err).Msg("send failed")
		return false
	}
	return true
}
