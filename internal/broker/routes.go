package broker

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/whisper786/chat/internal/signaling"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16 * 1024,
	WriteBufferSize: 16 * 1024,

	// Peers connect from terminals and arbitrary origins; identities are
	// not credentials.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWs upgrades a request to a websocket and attaches it to the hub.
func ServeWs(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Str("module", "broker").Err(err).Msg("failed to upgrade connection")
			return
		}

		client := &Client{
			Hub:  hub,
			Conn: conn,
			Send: make(chan *signaling.Message, 256),
		}

		select {
		case hub.Register <- client:
		case <-hub.done:
			conn.Close()
			return
		}

		go client.WritePump()
		go client.ReadPump()
	}
}

// ServeHealth reports liveness and the number of open identities.
func ServeHealth(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"peers":  hub.Peers(),
		})
	}
}

// Routes wires the broker endpoints.
func Routes(hub *Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", ServeWs(hub))
	mux.HandleFunc("GET /health", ServeHealth(hub))
	return mux
}

// NewServer returns an http.Server for the broker on addr.
func NewServer(addr string, hub *Hub) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           Routes(hub),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
