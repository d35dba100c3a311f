package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/whisper786/chat/internal/media"
)

func mustRecv[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
	var zero T
	return zero
}

func mustOpen(t *testing.T, n *Network, id string) Peer {
	t.Helper()
	p, err := n.Open(context.Background(), id)
	if err != nil {
		t.Fatalf("open %q: %v", id, err)
	}
	return p
}

func TestOpenAssignsAndClaimsIDs(t *testing.T) {
	n := NewNetwork()

	random := mustOpen(t, n, "")
	if random.ID() == "" {
		t.Fatal("expected generated id")
	}

	mustOpen(t, n, "demo")
	if _, err := n.Open(context.Background(), "demo"); !errors.Is(err, ErrIDTaken) {
		t.Fatalf("expected ErrIDTaken, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := n.Open(ctx, "other"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestConnectUnavailable(t *testing.T) {
	n := NewNetwork()
	p := mustOpen(t, n, "")

	ch, err := p.Connect("nobody", Metadata{"name": "Alice"})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	errs := make(chan error, 1)
	ch.Bind(ChannelEvents{OnError: func(err error) { errs <- err }})

	if err := mustRecv(t, errs, "channel error"); !errors.Is(err, ErrPeerUnavailable) {
		t.Fatalf("expected ErrPeerUnavailable, got %v", err)
	}
	if err := ch.Send([]byte("x")); !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("expected ErrChannelClosed on send, got %v", err)
	}
}

func TestChannelDeliversInOrder(t *testing.T) {
	n := NewNetwork()
	host := mustOpen(t, n, "demo")
	guest := mustOpen(t, n, "")

	inbound := make(chan Channel, 1)
	host.Bind(PeerEvents{OnConnection: func(c Channel) { inbound <- c }})

	out, err := guest.Connect("demo", Metadata{"name": "Alice"})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	opened := make(chan struct{}, 1)
	out.Bind(ChannelEvents{OnOpen: func() { opened <- struct{}{} }})
	mustRecv(t, opened, "initiator open")

	in := mustRecv(t, inbound, "inbound connection")
	if in.RemoteID() != guest.ID() {
		t.Fatalf("remote id = %q, want %q", in.RemoteID(), guest.ID())
	}
	if in.Metadata()["name"] != "Alice" {
		t.Fatalf("metadata not delivered: %v", in.Metadata())
	}

	// Data sent before the receiver binds is buffered.
	for _, s := range []string{"one", "two", "three"} {
		if err := out.Send([]byte(s)); err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	data := make(chan string, 3)
	in.Bind(ChannelEvents{OnData: func(b []byte) { data <- string(b) }})

	for _, want := range []string{"one", "two", "three"} {
		if got := mustRecv(t, data, "data"); got != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	}
}

func TestReceiverSendInOpenArrivesAfterInitiatorOpen(t *testing.T) {
	n := NewNetwork()
	host := mustOpen(t, n, "demo")
	guest := mustOpen(t, n, "")

	host.Bind(PeerEvents{OnConnection: func(c Channel) {
		c.Bind(ChannelEvents{OnOpen: func() { c.Send([]byte("welcome")) }})
	}})

	out, err := guest.Connect("demo", nil)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	order := make(chan string, 2)
	out.Bind(ChannelEvents{
		OnOpen: func() { order <- "open" },
		OnData: func(b []byte) { order <- string(b) },
	})

	if got := mustRecv(t, order, "first event"); got != "open" {
		t.Fatalf("first event = %q, want open", got)
	}
	if got := mustRecv(t, order, "second event"); got != "welcome" {
		t.Fatalf("second event = %q, want welcome", got)
	}
}

func TestCloseFiresOnBothEndsOnce(t *testing.T) {
	n := NewNetwork()
	host := mustOpen(t, n, "demo")
	guest := mustOpen(t, n, "")

	hostClosed := make(chan struct{}, 2)
	host.Bind(PeerEvents{OnConnection: func(c Channel) {
		c.Bind(ChannelEvents{OnClose: func() { hostClosed <- struct{}{} }})
	}})

	out, _ := guest.Connect("demo", nil)
	guestClosed := make(chan struct{}, 2)
	out.Bind(ChannelEvents{OnClose: func() { guestClosed <- struct{}{} }})

	out.Close()
	out.Close()

	mustRecv(t, guestClosed, "initiator close")
	mustRecv(t, hostClosed, "receiver close")

	select {
	case <-guestClosed:
		t.Fatal("close fired twice")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPeerCloseReleasesIdentity(t *testing.T) {
	n := NewNetwork()
	host := mustOpen(t, n, "demo")
	guest := mustOpen(t, n, "")

	host.Bind(PeerEvents{})
	out, _ := guest.Connect("demo", nil)
	closed := make(chan struct{}, 1)
	out.Bind(ChannelEvents{OnClose: func() { closed <- struct{}{} }})

	host.Close()
	mustRecv(t, closed, "close after host shutdown")

	mustOpen(t, n, "demo")
}

func TestDropReportsDisconnected(t *testing.T) {
	n := NewNetwork()
	p := mustOpen(t, n, "")

	errs := make(chan error, 1)
	p.Bind(PeerEvents{OnError: func(err error) { errs <- err }})

	n.Drop(p.ID())
	if err := mustRecv(t, errs, "peer error"); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("expected ErrDisconnected, got %v", err)
	}
	if len(n.Peers()) != 0 {
		t.Fatalf("expected no peers, got %v", n.Peers())
	}
}

func TestCallExchangesStreams(t *testing.T) {
	n := NewNetwork()
	caller := mustOpen(t, n, "")
	callee := mustOpen(t, n, "demo")

	callerStream := media.Handle("caller-cam")
	calleeStream := media.Handle("callee-cam")

	calleeGot := make(chan media.Stream, 1)
	callee.Bind(PeerEvents{OnCall: func(mc MediaChannel) {
		mc.Bind(MediaEvents{OnStream: func(s media.Stream) { calleeGot <- s }})
		if err := mc.Answer(calleeStream); err != nil {
			t.Errorf("answer: %v", err)
		}
	}})

	mc, err := caller.Call("demo", callerStream)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	callerGot := make(chan media.Stream, 1)
	closed := make(chan struct{}, 1)
	mc.Bind(MediaEvents{
		OnStream: func(s media.Stream) { callerGot <- s },
		OnClose:  func() { closed <- struct{}{} },
	})

	if s := mustRecv(t, callerGot, "caller stream"); s.ID() != "callee-cam" {
		t.Fatalf("caller got %q", s.ID())
	}
	if s := mustRecv(t, calleeGot, "callee stream"); s.ID() != "caller-cam" {
		t.Fatalf("callee got %q", s.ID())
	}

	callee.Close()
	mustRecv(t, closed, "media close")
}
