package transport

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/whisper786/chat/internal/media"
)

// Compile-time interface checks.
var (
	_ Transport    = (*Network)(nil)
	_ Peer         = (*memPeer)(nil)
	_ Channel      = (*memChannel)(nil)
	_ MediaChannel = (*memMedia)(nil)
)

// Network is an in-process Transport. Peers opened on the same Network
// reach each other by id without any signaling server. Each peer delivers
// its events on a single worker, so callbacks for one peer never overlap.
type Network struct {
	mu    sync.Mutex
	peers map[string]*memPeer
}

func NewNetwork() *Network {
	return &Network{peers: make(map[string]*memPeer)}
}

func (n *Network) Open(ctx context.Context, id string) (Peer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if id == "" {
		id = "peer-" + uuid.NewString()[:8]
	}
	if _, ok := n.peers[id]; ok {
		return nil, ErrIDTaken
	}

	box := NewMailbox()
	p := &memPeer{
		id:       id,
		net:      n,
		box:      box,
		events:   NewEventBuffer[PeerEvents](box),
		channels: make(map[*memChannel]struct{}),
		calls:    make(map[*memMedia]struct{}),
	}
	n.peers[id] = p
	return p, nil
}

// Drop simulates the peer losing its connection to the network: it reports
// ErrDisconnected and every link it holds closes on both ends.
func (n *Network) Drop(id string) {
	p := n.lookup(id)
	if p == nil {
		return
	}
	p.events.Fire(func(ev PeerEvents) {
		if ev.OnError != nil {
			ev.OnError(ErrDisconnected)
		}
	})
	p.shutdown()
}

// Peers lists the ids currently registered.
func (n *Network) Peers() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	ids := make([]string, 0, len(n.peers))
	for id := range n.peers {
		ids = append(ids, id)
	}
	return ids
}

func (n *Network) lookup(id string) *memPeer {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.peers[id]
}

func (n *Network) remove(p *memPeer) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.peers[p.id] == p {
		delete(n.peers, p.id)
	}
}

type memPeer struct {
	id     string
	net    *Network
	box    *Mailbox
	events *EventBuffer[PeerEvents]

	mu       sync.Mutex
	closed   bool
	channels map[*memChannel]struct{}
	calls    map[*memMedia]struct{}
}

func (p *memPeer) ID() string { return p.id }

func (p *memPeer) Bind(ev PeerEvents) { p.events.Bind(ev) }

func (p *memPeer) Connect(target string, md Metadata) (Channel, error) {
	if !p.track(nil, nil) {
		return nil, ErrChannelClosed
	}

	local := newMemChannel(p, target, md)
	remotePeer := p.net.lookup(target)
	if remotePeer == nil || remotePeer == p {
		local.fail(ErrPeerUnavailable)
		return local, nil
	}

	remote := newMemChannel(remotePeer, p.id, md)
	local.remote = remote
	remote.remote = local
	if !p.track(local, nil) || !remotePeer.track(remote, nil) {
		local.fail(ErrPeerUnavailable)
		return local, nil
	}

	// The initiator's open is fired first so that it is queued ahead of
	// any data the receiver sends from its own open handler.
	local.fireOpen()
	remotePeer.events.Fire(func(ev PeerEvents) {
		if ev.OnConnection != nil {
			ev.OnConnection(remote)
		}
	})
	remote.fireOpen()
	return local, nil
}

func (p *memPeer) Call(target string, local media.Stream) (MediaChannel, error) {
	if !p.track(nil, nil) {
		return nil, ErrChannelClosed
	}

	out := newMemMedia(p, target, local)
	remotePeer := p.net.lookup(target)
	if remotePeer == nil || remotePeer == p {
		out.fail(ErrPeerUnavailable)
		return out, nil
	}

	in := newMemMedia(remotePeer, p.id, nil)
	out.remote = in
	in.remote = out
	if !p.track(nil, out) || !remotePeer.track(nil, in) {
		out.fail(ErrPeerUnavailable)
		return out, nil
	}

	remotePeer.events.Fire(func(ev PeerEvents) {
		if ev.OnCall != nil {
			ev.OnCall(in)
		}
	})
	return out, nil
}

func (p *memPeer) Close() error {
	p.shutdown()
	return nil
}

func (p *memPeer) shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	channels := p.channels
	calls := p.calls
	p.channels = nil
	p.calls = nil
	p.mu.Unlock()

	p.net.remove(p)
	for c := range channels {
		c.Close()
	}
	for m := range calls {
		m.Close()
	}
	p.box.Stop()
}

// track registers a link with the peer. It reports false once the peer is
// closed. Passing two nils only checks liveness.
func (p *memPeer) track(c *memChannel, m *memMedia) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	if c != nil {
		p.channels[c] = struct{}{}
	}
	if m != nil {
		p.calls[m] = struct{}{}
	}
	return true
}

func (p *memPeer) untrack(c *memChannel, m *memMedia) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	delete(p.channels, c)
	delete(p.calls, m)
}

type memChannel struct {
	owner    *memPeer
	remoteID string
	md       Metadata
	events   *EventBuffer[ChannelEvents]
	remote   *memChannel

	mu     sync.Mutex
	closed bool
}

func newMemChannel(owner *memPeer, remoteID string, md Metadata) *memChannel {
	cp := make(Metadata, len(md))
	for k, v := range md {
		cp[k] = v
	}
	return &memChannel{
		owner:    owner,
		remoteID: remoteID,
		md:       cp,
		events:   NewEventBuffer[ChannelEvents](owner.box),
	}
}

func (c *memChannel) RemoteID() string { return c.remoteID }

func (c *memChannel) Metadata() Metadata { return c.md }

func (c *memChannel) Bind(ev ChannelEvents) { c.events.Bind(ev) }

func (c *memChannel) Send(data []byte) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed || c.remote == nil {
		return ErrChannelClosed
	}

	buf := append([]byte(nil), data...)
	c.remote.events.Fire(func(ev ChannelEvents) {
		if ev.OnData != nil {
			ev.OnData(buf)
		}
	})
	return nil
}

func (c *memChannel) Close() error {
	c.closeEnd()
	if c.remote != nil {
		c.remote.closeEnd()
	}
	return nil
}

// closeEnd marks this end closed and fires OnClose exactly once.
func (c *memChannel) closeEnd() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.owner.untrack(c, nil)
	c.events.Fire(func(ev ChannelEvents) {
		if ev.OnClose != nil {
			ev.OnClose()
		}
	})
}

func (c *memChannel) fireOpen() {
	c.events.Fire(func(ev ChannelEvents) {
		if ev.OnOpen != nil {
			ev.OnOpen()
		}
	})
}

func (c *memChannel) fail(err error) {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.events.Fire(func(ev ChannelEvents) {
		if ev.OnError != nil {
			ev.OnError(err)
		}
	})
}

type memMedia struct {
	owner    *memPeer
	remoteID string
	local    media.Stream
	events   *EventBuffer[MediaEvents]
	remote   *memMedia

	mu     sync.Mutex
	closed bool
}

func newMemMedia(owner *memPeer, remoteID string, local media.Stream) *memMedia {
	return &memMedia{
		owner:    owner,
		remoteID: remoteID,
		local:    local,
		events:   NewEventBuffer[MediaEvents](owner.box),
	}
}

func (m *memMedia) RemoteID() string { return m.remoteID }

func (m *memMedia) Bind(ev MediaEvents) { m.events.Bind(ev) }

// Answer accepts an inbound call. Both ends then see the other's stream.
func (m *memMedia) Answer(local media.Stream) error {
	m.mu.Lock()
	if m.closed || m.remote == nil {
		m.mu.Unlock()
		return ErrChannelClosed
	}
	m.local = local
	m.mu.Unlock()

	caller := m.remote
	caller.mu.Lock()
	callerStream := caller.local
	caller.mu.Unlock()

	caller.fireStream(local)
	m.fireStream(callerStream)
	return nil
}

func (m *memMedia) Close() error {
	m.closeEnd()
	if m.remote != nil {
		m.remote.closeEnd()
	}
	return nil
}

func (m *memMedia) closeEnd() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	m.owner.untrack(nil, m)
	m.events.Fire(func(ev MediaEvents) {
		if ev.OnClose != nil {
			ev.OnClose()
		}
	})
}

func (m *memMedia) fireStream(s media.Stream) {
	if s == nil {
		return
	}
	m.events.Fire(func(ev MediaEvents) {
		if ev.OnStream != nil {
			ev.OnStream(s)
		}
	})
}

func (m *memMedia) fail(err error) {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.events.Fire(func(ev MediaEvents) {
		if ev.OnError != nil {
			ev.OnError(err)
		}
	})
}
