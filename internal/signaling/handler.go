package signaling

import (
	"github.com/rs/zerolog/log"
)

// Signal is a relayed SignalPayload together with the id of its sender.
type Signal struct {
	From    string
	Payload SignalPayload
}

// Handler routes incoming broker messages to typed channels. Done is
// closed once the broker connection is gone and every message was routed.
type Handler struct {
	client *Client
	Opened chan string
	Signal chan *Signal
	Error  chan *ErrorPayload
	Done   chan struct{}
}

// NewHandler creates a new message handler.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client: client,
		Opened: make(chan string, 1),
		Signal: make(chan *Signal, 32),
		Error:  make(chan *ErrorPayload, 8),
		Done:   make(chan struct{}),
	}
}

// Start routes messages until the client's incoming channel closes.
func (h *Handler) Start() {
	defer close(h.Done)

	for msg := range h.client.Incoming() {
		switch msg.Type {
		case MessageTypeOpened:
			select {
			case h.Opened <- msg.ID:
			default:
			}

		case MessageTypeSignal:
			h.handleSignal(msg)

		case MessageTypeError:
			h.handleError(msg)

		default:
			log.Debug().Str("module", "signaling").Str("type", msg.Type).Msg("unknown message type")
		}
	}
}

// handleSignal parses the relayed signaling payload and sends it.
func (h *Handler) handleSignal(msg *Message) {
	var payload SignalPayload
	if err := msg.DecodePayload(&payload); err != nil {
		log.Warn().Str("module", "signaling").Str("src", msg.Src).Err(err).Msg("bad signal payload")
		return
	}
	h.Signal <- &Signal{From: msg.Src, Payload: payload}
}

// handleError parses the error message and sends it through the Error channel.
func (h *Handler) handleError(msg *Message) {
	var errPayload ErrorPayload
	if err := msg.DecodePayload(&errPayload); err != nil {
		errPayload = ErrorPayload{Kind: ErrorInvalidMessage, Error: "unknown error from broker"}
	}
	h.Error <- &errPayload
}
