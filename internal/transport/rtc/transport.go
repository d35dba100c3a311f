// Package rtc implements the peer transport over WebRTC. Identities and
// connection setup go through the broker; data and media flow peer to peer.
package rtc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	pion "github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/whisper786/chat/internal/config"
	"github.com/whisper786/chat/internal/media"
	"github.com/whisper786/chat/internal/signaling"
	"github.com/whisper786/chat/internal/transport"
)

var (
	_ transport.Transport    = (*Transport)(nil)
	_ transport.Peer         = (*peer)(nil)
	_ transport.Channel      = (*dataConn)(nil)
	_ transport.MediaChannel = (*mediaConn)(nil)
)

// ErrUnsupportedStream is returned when a call is placed or answered with a
// stream that carries no local tracks.
var ErrUnsupportedStream = errors.New("stream has no local tracks")

// Transport opens peers registered with the broker at cfg.WebSocketURL.
type Transport struct {
	cfg *config.Config
}

func New(cfg *config.Config) *Transport {
	return &Transport{cfg: cfg}
}

func (t *Transport) Open(ctx context.Context, id string) (transport.Peer, error) {
	client := signaling.NewClient(t.cfg.WebSocketURL)
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}

	handler := signaling.NewHandler(client)
	go handler.Start()

	if err := client.SendMessage(&signaling.Message{Type: signaling.MessageTypeOpen, ID: id}); err != nil {
		client.Close()
		return nil, err
	}

	select {
	case opened := <-handler.Opened:
		p := newPeer(t.cfg, opened, client, handler)
		go p.run()
		log.Debug().Str("module", "rtc").Str("id", opened).Msg("identity opened")
		return p, nil

	case e := <-handler.Error:
		client.Close()
		if e.Kind == signaling.ErrorUnavailableID {
			return nil, transport.ErrIDTaken
		}
		return nil, fmt.Errorf("open %q: %s", id, e.Error)

	case <-handler.Done:
		return nil, transport.ErrDisconnected

	case <-ctx.Done():
		client.Close()
		return nil, ctx.Err()
	}
}

// link is a data or media connection keyed by its connection id.
type link interface {
	onAnswer(pion.SessionDescription)
	fail(error)
	finish(bye bool)
}

type peer struct {
	id      string
	cfg     *config.Config
	client  *signaling.Client
	handler *signaling.Handler
	box     *transport.Mailbox
	events  *transport.EventBuffer[transport.PeerEvents]

	// ctx is cancelled on Close and bounds ICE gathering.
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	links  map[string]link
}

func newPeer(cfg *config.Config, id string, client *signaling.Client, handler *signaling.Handler) *peer {
	box := transport.NewMailbox()
	ctx, cancel := context.WithCancel(context.Background())
	return &peer{
		id:      id,
		cfg:     cfg,
		client:  client,
		handler: handler,
		box:     box,
		events:  transport.NewEventBuffer[transport.PeerEvents](box),
		ctx:     ctx,
		cancel:  cancel,
		links:   make(map[string]link),
	}
}

func (p *peer) ID() string { return p.id }

func (p *peer) Bind(ev transport.PeerEvents) { p.events.Bind(ev) }

// run routes broker traffic until the broker connection ends or the peer
// is closed.
func (p *peer) run() {
	for {
		select {
		case sig := <-p.handler.Signal:
			p.route(sig)

		case e := <-p.handler.Error:
			p.onBrokerError(e)

		case <-p.handler.Done:
			if !p.isClosed() {
				log.Warn().Str("module", "rtc").Str("id", p.id).Msg("broker connection lost")
				p.events.Fire(func(ev transport.PeerEvents) {
					if ev.OnError != nil {
						ev.OnError(transport.ErrDisconnected)
					}
				})
			}
			p.shutdown(false)
			return

		case <-p.ctx.Done():
			return
		}
	}
}

func (p *peer) route(sig *signaling.Signal) {
	pl := sig.Payload

	if pl.Kind == signaling.SignalBye {
		if l := p.take(pl.ConnectionID); l != nil {
			l.finish(false)
		}
		return
	}

	sd, err := sessionDescription(pl.SDPType, pl.SDP)
	if err != nil {
		log.Debug().Str("module", "rtc").Str("from", sig.From).Err(err).Msg("ignoring signal")
		return
	}

	if l := p.lookup(pl.ConnectionID); l != nil {
		if sd.Type == pion.SDPTypeAnswer {
			l.onAnswer(sd)
		}
		return
	}
	if sd.Type != pion.SDPTypeOffer {
		log.Debug().Str("module", "rtc").Str("connection", pl.ConnectionID).Msg("answer for unknown connection")
		return
	}

	switch pl.Kind {
	case signaling.SignalData:
		p.acceptData(sig.From, pl.ConnectionID, pl.Metadata, sd)
	case signaling.SignalMedia:
		p.acceptCall(sig.From, pl.ConnectionID, sd)
	default:
		log.Debug().Str("module", "rtc").Str("kind", pl.Kind).Msg("unknown signal kind")
	}
}

func (p *peer) onBrokerError(e *signaling.ErrorPayload) {
	if e.Kind == signaling.ErrorPeerUnavailable && e.ConnectionID != "" {
		if l := p.take(e.ConnectionID); l != nil {
			l.fail(transport.ErrPeerUnavailable)
		}
		return
	}
	log.Warn().Str("module", "rtc").Str("kind", e.Kind).Str("error", e.Error).Msg("broker error")
}

// signal sends one setup step for a connection to target.
func (p *peer) signal(target string, payload signaling.SignalPayload) error {
	msg, err := signaling.NewMessage(signaling.MessageTypeSignal, payload)
	if err != nil {
		return err
	}
	msg.Dst = target
	return p.client.SendMessage(msg)
}

func (p *peer) bye(target, connectionID string) {
	p.signal(target, signaling.SignalPayload{ConnectionID: connectionID, Kind: signaling.SignalBye})
}

func (p *peer) register(id string, l link) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.links[id] = l
	return true
}

func (p *peer) lookup(id string) link {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.links[id]
}

func (p *peer) take(id string) link {
	p.mu.Lock()
	defer p.mu.Unlock()
	l := p.links[id]
	delete(p.links, id)
	return l
}

func (p *peer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *peer) Connect(target string, md transport.Metadata) (transport.Channel, error) {
	if p.isClosed() {
		return nil, transport.ErrChannelClosed
	}

	pc, err := newPeerConnection(p.cfg)
	if err != nil {
		return nil, err
	}
	dc, err := createDataChannel(pc)
	if err != nil {
		pc.Close()
		return nil, err
	}

	c := newDataConn(p, uuid.NewString(), target, md, pc)
	c.attach(dc)
	if !p.register(c.id, c) {
		pc.Close()
		return nil, transport.ErrChannelClosed
	}

	go func() {
		offer, err := createOffer(p.ctx, pc)
		if err != nil {
			c.fail(err)
			return
		}
		err = p.signal(target, signaling.SignalPayload{
			ConnectionID: c.id,
			Kind:         signaling.SignalData,
			SDPType:      "offer",
			SDP:          offer.SDP,
			Metadata:     md,
		})
		if err != nil {
			c.fail(err)
		}
	}()
	return c, nil
}

func (p *peer) acceptData(from, connectionID string, md map[string]string, offer pion.SessionDescription) {
	pc, err := newPeerConnection(p.cfg)
	if err != nil {
		log.Warn().Str("module", "rtc").Str("from", from).Err(err).Msg("cannot accept connection")
		return
	}

	c := newDataConn(p, connectionID, from, md, pc)
	pc.OnDataChannel(c.attach)
	if !p.register(c.id, c) {
		pc.Close()
		return
	}
	p.events.Fire(func(ev transport.PeerEvents) {
		if ev.OnConnection != nil {
			ev.OnConnection(c)
		}
	})

	go func() {
		answer, err := createAnswer(p.ctx, pc, offer)
		if err != nil {
			c.fail(err)
			return
		}
		err = p.signal(from, signaling.SignalPayload{
			ConnectionID: connectionID,
			Kind:         signaling.SignalData,
			SDPType:      "answer",
			SDP:          answer.SDP,
		})
		if err != nil {
			c.fail(err)
		}
	}()
}

func (p *peer) Call(target string, local media.Stream) (transport.MediaChannel, error) {
	l, ok := local.(*media.Local)
	if !ok {
		return nil, ErrUnsupportedStream
	}
	if p.isClosed() {
		return nil, transport.ErrChannelClosed
	}

	pc, err := newPeerConnection(p.cfg)
	if err != nil {
		return nil, err
	}
	if err := addTracks(pc, l); err != nil {
		pc.Close()
		return nil, err
	}

	m := newMediaConn(p, uuid.NewString(), target)
	m.watch(pc)
	if !p.register(m.id, m) {
		pc.Close()
		return nil, transport.ErrChannelClosed
	}

	go func() {
		offer, err := createOffer(p.ctx, pc)
		if err != nil {
			m.fail(err)
			return
		}
		err = p.signal(target, signaling.SignalPayload{
			ConnectionID: m.id,
			Kind:         signaling.SignalMedia,
			SDPType:      "offer",
			SDP:          offer.SDP,
		})
		if err != nil {
			m.fail(err)
		}
	}()
	return m, nil
}

func (p *peer) acceptCall(from, connectionID string, offer pion.SessionDescription) {
	m := newMediaConn(p, connectionID, from)
	m.offer = &offer
	if !p.register(m.id, m) {
		return
	}
	p.events.Fire(func(ev transport.PeerEvents) {
		if ev.OnCall != nil {
			ev.OnCall(m)
		}
	})
}

func (p *peer) Close() error {
	p.shutdown(true)
	return nil
}

// shutdown closes every link, releases the identity and stops event
// delivery once the queued close events have run.
func (p *peer) shutdown(bye bool) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	links := p.links
	p.links = make(map[string]link)
	p.mu.Unlock()

	for _, l := range links {
		l.finish(bye)
	}
	p.cancel()
	p.client.Close()
	p.box.Stop()
}
