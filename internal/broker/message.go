package broker

import (
	"github.com/rs/zerolog/log"

	"github.com/whisper786/chat/internal/signaling"
)

// inbound is a message read from a client, tagged with its sender. It is
// used internally by the Hub and never sent over the wire.
type inbound struct {
	client *Client
	msg    *signaling.Message
}

func errorMessage(kind, peer, connectionID, text string) *signaling.Message {
	msg, err := signaling.NewMessage(signaling.MessageTypeError, signaling.ErrorPayload{
		Kind:         kind,
		Peer:         peer,
		ConnectionID: connectionID,
		Error:        text,
	})
	if err != nil {
		log.Error().Str("module", "broker").Err(err).Msg("encode error payload")
		return &signaling.Message{Type: signaling.MessageTypeError}
	}
	return msg
}
