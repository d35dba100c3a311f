package broker

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/whisper786/chat/internal/signaling"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. SDP with gathered candidates
	// fits comfortably.
	maxMessageSize = 64 * 1024
)

// Client is one websocket connection to the broker.
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn

	// ID is the identity this connection opened. Set only by the hub.
	ID string

	// Send is drained by WritePump. The hub closes it on unregister.
	Send chan *signaling.Message
}

// ReadPump pumps messages from the websocket connection to the hub. It is
// the only reader of the connection.
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.Hub.Unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg signaling.Message
		if err := c.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().Str("module", "broker").Str("remote", c.Conn.RemoteAddr().String()).Err(err).Msg("read failed")
			}
			return
		}

		select {
		case c.Hub.inbound <- &inbound{client: c, msg: &msg}:
		case <-c.Hub.done:
			return
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection. It is
// the only writer of the connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteJSON(message); err != nil {
				log.Warn().Str("module", "broker").Str("remote", c.Conn.RemoteAddr().String()).Err(err).Msg("write failed")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
