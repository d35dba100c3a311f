package rtc

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	pion "github.com/pion/webrtc/v4"

	"github.com/whisper786/chat/internal/broker"
	"github.com/whisper786/chat/internal/config"
	"github.com/whisper786/chat/internal/media"
	"github.com/whisper786/chat/internal/transport"
)

func TestICEConfiguration(t *testing.T) {
	never := func() bool { return false }
	always := func() bool { return true }

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		detect  func() bool
		servers int
		policy  pion.ICETransportPolicy
	}{
		{"stun and turn", func(*config.Config) {}, never, 2, pion.ICETransportPolicyAll},
		{"forced relay", func(c *config.Config) { c.ForceRelay = true }, never, 2, pion.ICETransportPolicyRelay},
		{"detected relay", func(*config.Config) {}, always, 2, pion.ICETransportPolicyRelay},
		{"relay needs turn", func(c *config.Config) { c.TURNServer = ""; c.ForceRelay = true }, always, 1, pion.ICETransportPolicyAll},
		{"no servers", func(c *config.Config) { c.TURNServer = ""; c.STUNServer = "" }, never, 0, pion.ICETransportPolicyAll},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			got := iceConfiguration(cfg, tt.detect)
			if len(got.ICEServers) != tt.servers {
				t.Fatalf("servers = %d, want %d", len(got.ICEServers), tt.servers)
			}
			if got.ICETransportPolicy != tt.policy {
				t.Fatalf("policy = %v, want %v", got.ICETransportPolicy, tt.policy)
			}
		})
	}
}

// startBroker runs a broker and returns a config pointing at it with no
// ICE servers, so peers connect over host candidates.
func startBroker(t *testing.T) (*config.Config, context.CancelFunc) {
	t.Helper()

	hub := broker.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(broker.Routes(hub))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})

	cfg := config.Default()
	cfg.STUNServer = ""
	cfg.TURNServer = ""
	cfg.WebSocketURL = "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	return cfg, cancel
}

func openPeer(t *testing.T, tr *Transport, id string) transport.Peer {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p, err := tr.Open(ctx, id)
	if err != nil {
		t.Fatalf("open %q: %v", id, err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func mustRecv[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(15 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
	var zero T
	return zero
}

func TestOpenClaimsIdentity(t *testing.T) {
	cfg, _ := startBroker(t)
	tr := New(cfg)

	random := openPeer(t, tr, "")
	if random.ID() == "" {
		t.Fatal("expected a generated id")
	}

	openPeer(t, tr, "lobby")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := tr.Open(ctx, "lobby"); !errors.Is(err, transport.ErrIDTaken) {
		t.Fatalf("second claim = %v, want ErrIDTaken", err)
	}
}

func TestConnectToMissingPeer(t *testing.T) {
	cfg, _ := startBroker(t)
	p := openPeer(t, New(cfg), "")

	ch, err := p.Connect("nobody-home", transport.Metadata{"name": "Ann"})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	errs := make(chan error, 1)
	ch.Bind(transport.ChannelEvents{OnError: func(err error) { errs <- err }})

	if err := mustRecv(t, errs, "channel error"); !errors.Is(err, transport.ErrPeerUnavailable) {
		t.Fatalf("error = %v, want ErrPeerUnavailable", err)
	}
}

func TestDataChannelRoundTrip(t *testing.T) {
	cfg, _ := startBroker(t)
	tr := New(cfg)
	host := openPeer(t, tr, "room")
	guest := openPeer(t, tr, "")

	inbound := make(chan transport.Channel, 1)
	host.Bind(transport.PeerEvents{OnConnection: func(c transport.Channel) { inbound <- c }})

	hostData := make(chan []byte, 1)
	hostClosed := make(chan struct{}, 1)

	out, err := guest.Connect("room", transport.Metadata{"name": "Ann"})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	opened := make(chan struct{}, 1)
	guestData := make(chan []byte, 1)
	out.Bind(transport.ChannelEvents{
		OnOpen: func() { opened <- struct{}{} },
		OnData: func(b []byte) { guestData <- b },
	})

	in := mustRecv(t, inbound, "inbound connection")
	if in.RemoteID() != guest.ID() || in.Metadata()["name"] != "Ann" {
		t.Fatalf("inbound channel from %q with %v", in.RemoteID(), in.Metadata())
	}
	in.Bind(transport.ChannelEvents{
		OnOpen:  func() { in.Send([]byte("welcome")) },
		OnData:  func(b []byte) { hostData <- b },
		OnClose: func() { hostClosed <- struct{}{} },
	})

	mustRecv(t, opened, "guest open")
	if got := mustRecv(t, guestData, "welcome"); string(got) != "welcome" {
		t.Fatalf("guest got %q", got)
	}
	if err := out.Send([]byte("hi")); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := mustRecv(t, hostData, "hi"); string(got) != "hi" {
		t.Fatalf("host got %q", got)
	}

	out.Close()
	mustRecv(t, hostClosed, "host close")
	if err := out.Send([]byte("late")); !errors.Is(err, transport.ErrChannelClosed) {
		t.Fatalf("send after close = %v", err)
	}
}

// feed writes opus frames into l until the test ends, standing in for a
// microphone.
func feed(t *testing.T, l *media.Local) {
	t.Helper()
	l.ToggleMic()
	done := make(chan struct{})
	t.Cleanup(func() { close(done) })
	go func() {
		tick := time.NewTicker(20 * time.Millisecond)
		defer tick.Stop()
		frame := []byte{0xf8, 0xff, 0xfe}
		for {
			select {
			case <-done:
				return
			case <-tick.C:
				l.WriteAudio(frame, 20*time.Millisecond)
			}
		}
	}()
}

func TestMediaCallRoundTrip(t *testing.T) {
	cfg, _ := startBroker(t)
	tr := New(cfg)
	callee := openPeer(t, tr, "callee")
	caller := openPeer(t, tr, "")

	callerMedia, err := media.NewLocal()
	if err != nil {
		t.Fatalf("caller media: %v", err)
	}
	calleeMedia, err := media.NewLocal()
	if err != nil {
		t.Fatalf("callee media: %v", err)
	}
	feed(t, callerMedia)
	feed(t, calleeMedia)

	incoming := make(chan transport.MediaChannel, 1)
	callee.Bind(transport.PeerEvents{OnCall: func(mc transport.MediaChannel) { incoming <- mc }})

	out, err := caller.Call("callee", callerMedia)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	callerStreams := make(chan media.Stream, 1)
	out.Bind(transport.MediaEvents{OnStream: func(s media.Stream) { callerStreams <- s }})

	in := mustRecv(t, incoming, "inbound call")
	if in.RemoteID() != caller.ID() {
		t.Fatalf("inbound call from %q, want %q", in.RemoteID(), caller.ID())
	}
	calleeStreams := make(chan media.Stream, 1)
	calleeClosed := make(chan struct{}, 1)
	in.Bind(transport.MediaEvents{
		OnStream: func(s media.Stream) { calleeStreams <- s },
		OnClose:  func() { calleeClosed <- struct{}{} },
	})
	if err := in.Answer(calleeMedia); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if err := in.Answer(calleeMedia); !errors.Is(err, errAlreadyAnswered) {
		t.Fatalf("second answer = %v", err)
	}

	if got := mustRecv(t, callerStreams, "callee stream"); got.ID() != calleeMedia.ID() {
		t.Fatalf("caller got stream %q, want %q", got.ID(), calleeMedia.ID())
	}
	if got := mustRecv(t, calleeStreams, "caller stream"); got.ID() != callerMedia.ID() {
		t.Fatalf("callee got stream %q, want %q", got.ID(), callerMedia.ID())
	}

	out.Close()
	mustRecv(t, calleeClosed, "callee close")
}

func TestBrokerLossReportsDisconnect(t *testing.T) {
	cfg, stop := startBroker(t)
	p := openPeer(t, New(cfg), "")

	errs := make(chan error, 1)
	p.Bind(transport.PeerEvents{OnError: func(err error) { errs <- err }})
	stop()

	if err := mustRecv(t, errs, "peer error"); !errors.Is(err, transport.ErrDisconnected) {
		t.Fatalf("error = %v, want ErrDisconnected", err)
	}
}

func TestCallRequiresLocalTracks(t *testing.T) {
	cfg, _ := startBroker(t)
	p := openPeer(t, New(cfg), "")
	if _, err := p.Call("anyone", nil); !errors.Is(err, ErrUnsupportedStream) {
		t.Fatalf("call with no stream = %v", err)
	}
}
