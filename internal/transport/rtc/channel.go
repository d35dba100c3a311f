package rtc

import (
	"sync"

	pion "github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/whisper786/chat/internal/transport"
)

// dataConn is one peer connection carrying a single ordered data channel.
type dataConn struct {
	p      *peer
	id     string
	remote string
	md     transport.Metadata
	pc     *pion.PeerConnection
	events *transport.EventBuffer[transport.ChannelEvents]

	mu     sync.Mutex
	dc     *pion.DataChannel
	opened bool
	done   bool
}

func newDataConn(p *peer, id, remote string, md map[string]string, pc *pion.PeerConnection) *dataConn {
	cp := make(transport.Metadata, len(md))
	for k, v := range md {
		cp[k] = v
	}
	c := &dataConn{
		p:      p,
		id:     id,
		remote: remote,
		md:     cp,
		pc:     pc,
		events: transport.NewEventBuffer[transport.ChannelEvents](p.box),
	}
	pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		log.Debug().Str("module", "rtc").Str("connection", id).Str("state", state.String()).Msg("data connection state")
		if state == pion.PeerConnectionStateFailed || state == pion.PeerConnectionStateClosed {
			c.finish(false)
		}
	})
	return c
}

func (c *dataConn) RemoteID() string { return c.remote }

func (c *dataConn) Metadata() transport.Metadata { return c.md }

func (c *dataConn) Bind(ev transport.ChannelEvents) { c.events.Bind(ev) }

func (c *dataConn) attach(dc *pion.DataChannel) {
	c.mu.Lock()
	c.dc = dc
	c.mu.Unlock()

	dc.OnOpen(c.markOpen)
	dc.OnMessage(func(msg pion.DataChannelMessage) {
		// A message can beat the open callback on the answering side.
		c.markOpen()
		data := msg.Data
		c.events.Fire(func(ev transport.ChannelEvents) {
			if ev.OnData != nil {
				ev.OnData(data)
			}
		})
	})
	dc.OnClose(func() { c.finish(false) })
	dc.OnError(func(err error) {
		c.events.Fire(func(ev transport.ChannelEvents) {
			if ev.OnError != nil {
				ev.OnError(err)
			}
		})
	})
}

// markOpen fires OnOpen the first time it is called.
func (c *dataConn) markOpen() {
	c.mu.Lock()
	if c.opened || c.done {
		c.mu.Unlock()
		return
	}
	c.opened = true
	c.mu.Unlock()

	c.events.Fire(func(ev transport.ChannelEvents) {
		if ev.OnOpen != nil {
			ev.OnOpen()
		}
	})
}

func (c *dataConn) Send(data []byte) error {
	c.mu.Lock()
	dc, ready := c.dc, c.opened && !c.done
	c.mu.Unlock()
	if !ready || dc == nil {
		return transport.ErrChannelClosed
	}
	return dc.Send(data)
}

func (c *dataConn) Close() error {
	c.finish(true)
	return nil
}

func (c *dataConn) onAnswer(answer pion.SessionDescription) {
	if err := c.pc.SetRemoteDescription(answer); err != nil {
		c.fail(err)
	}
}

// fail tears the connection down and reports err instead of a close.
func (c *dataConn) fail(err error) {
	if !c.end() {
		return
	}
	log.Debug().Str("module", "rtc").Str("connection", c.id).Str("remote", c.remote).Err(err).Msg("data connection failed")
	c.events.Fire(func(ev transport.ChannelEvents) {
		if ev.OnError != nil {
			ev.OnError(err)
		}
	})
}

// finish closes the connection and fires OnClose once. bye tells the
// remote end through the broker.
func (c *dataConn) finish(bye bool) {
	if !c.end() {
		return
	}
	if bye {
		c.p.bye(c.remote, c.id)
	}
	c.events.Fire(func(ev transport.ChannelEvents) {
		if ev.OnClose != nil {
			ev.OnClose()
		}
	})
}

// end marks the connection done and releases it. It reports false if it
// already ended.
func (c *dataConn) end() bool {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return false
	}
	c.done = true
	c.mu.Unlock()

	c.p.take(c.id)
	// pion may call back into us while closing.
	go c.pc.Close()
	return true
}
