// Package broker assigns peer identities and relays connection setup
// signals between peers. It knows nothing about rooms.
package broker

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/whisper786/chat/internal/signaling"
)

// Hub owns the id -> client map. Only Run touches it.
type Hub struct {
	peers   map[string]*Client
	clients map[*Client]struct{}

	// Register receives clients whose connection was just upgraded.
	Register chan *Client

	// Unregister receives clients whose connection ended.
	Unregister chan *Client

	// inbound carries every message read from any client.
	inbound chan *inbound

	done  chan struct{}
	count atomic.Int64
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		peers:      make(map[string]*Client),
		clients:    make(map[*Client]struct{}),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		inbound:    make(chan *inbound),
		done:       make(chan struct{}),
	}
}

// Peers reports how many identities are currently open.
func (h *Hub) Peers() int {
	return int(h.count.Load())
}

// generateID creates a random memorable id, word-word-word-word, that is
// not currently in use.
func (h *Hub) generateID() string {
	for {
		order := make([]int, len(wordPools))
		for i := range order {
			order[i] = i
		}
		for i := len(order) - 1; i > 0; i-- {
			j := randomIndex(i + 1)
			order[i], order[j] = order[j], order[i]
		}

		words := make([]string, 4)
		for i := range words {
			pool := wordPools[order[i]]
			words[i] = pool[randomIndex(len(pool))]
		}

		id := strings.Join(words, "-")
		if _, ok := h.peers[id]; !ok {
			return id
		}
	}
}

// randomIndex returns a cryptographically secure random index below max.
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		log.Panic().Err(err).Msg("failed to generate random index")
	}
	return int(n.Int64())
}

// Run is the single goroutine that manages all identities. It returns when
// ctx is done, closing every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.Send)
			}
			clear(h.clients)
			clear(h.peers)
			h.count.Store(0)
			return

		case client := <-h.Register:
			h.clients[client] = struct{}{}
			log.Debug().Str("module", "broker").Str("remote", client.Conn.RemoteAddr().String()).Msg("client registered")

		case client := <-h.Unregister:
			if client.ID != "" && h.peers[client.ID] == client {
				delete(h.peers, client.ID)
				h.count.Add(-1)
				log.Info().Str("module", "broker").Str("id", client.ID).Msg("identity released")
			}
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}

		case in := <-h.inbound:
			switch in.msg.Type {
			case signaling.MessageTypeOpen:
				h.handleOpen(in.client, in.msg)
			case signaling.MessageTypeSignal:
				h.handleSignal(in.client, in.msg)
			default:
				log.Debug().Str("module", "broker").Str("type", in.msg.Type).Msg("unknown message type")
				h.send(in.client, errorMessage(signaling.ErrorInvalidMessage, "", "", "unknown message type "+in.msg.Type))
			}
		}
	}
}

func (h *Hub) handleOpen(c *Client, msg *signaling.Message) {
	if c.ID != "" {
		h.send(c, errorMessage(signaling.ErrorAlreadyOpen, c.ID, "", "identity already open"))
		return
	}

	id := strings.TrimSpace(msg.ID)
	if id == "" {
		id = h.generateID()
	} else if _, taken := h.peers[id]; taken {
		log.Info().Str("module", "broker").Str("id", id).Msg("identity unavailable")
		h.send(c, errorMessage(signaling.ErrorUnavailableID, id, "", "id is taken"))
		return
	}

	c.ID = id
	h.peers[id] = c
	h.count.Add(1)
	log.Info().Str("module", "broker").Str("id", id).Msg("identity opened")
	h.send(c, &signaling.Message{Type: signaling.MessageTypeOpened, ID: id})
}

func (h *Hub) handleSignal(c *Client, msg *signaling.Message) {
	if c.ID == "" {
		h.send(c, errorMessage(signaling.ErrorNotOpen, "", "", "open an identity first"))
		return
	}

	var payload signaling.SignalPayload
	if err := msg.DecodePayload(&payload); err != nil || payload.ConnectionID == "" {
		log.Warn().Str("module", "broker").Str("src", c.ID).Str("dst", msg.Dst).Err(err).Msg("malformed signal dropped")
		h.send(c, errorMessage(signaling.ErrorInvalidMessage, msg.Dst, "", "signal payload needs a connection id"))
		return
	}

	target, ok := h.peers[msg.Dst]
	if !ok {
		log.Debug().Str("module", "broker").Str("src", c.ID).Str("dst", msg.Dst).Msg("signal target unavailable")
		h.send(c, errorMessage(signaling.ErrorPeerUnavailable, msg.Dst, payload.ConnectionID, "could not connect to peer "+msg.Dst))
		return
	}

	h.send(target, &signaling.Message{
		Type:    signaling.MessageTypeSignal,
		Src:     c.ID,
		Dst:     msg.Dst,
		Payload: msg.Payload,
	})
}

// send queues msg for c without blocking the hub. A client that cannot
// keep up loses the message.
func (h *Hub) send(c *Client, msg *signaling.Message) {
	select {
	case c.Send <- msg:
	default:
		log.Warn().Str("module", "broker").Str("id", c.ID).Str("type", msg.Type).Msg("client send buffer full, message dropped")
	}
}
