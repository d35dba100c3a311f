package room

import (
	"testing"

	"github.com/whisper786/chat/internal/media"
	"github.com/whisper786/chat/internal/protocol"
	"github.com/whisper786/chat/internal/transport"
)

type stubChannel struct {
	remote string
	closed int
}

func (c *stubChannel) RemoteID() string             { return c.remote }
func (c *stubChannel) Metadata() transport.Metadata { return nil }
func (c *stubChannel) Bind(transport.ChannelEvents) {}
func (c *stubChannel) Send([]byte) error            { return nil }
func (c *stubChannel) Close() error                 { c.closed++; return nil }

type stubMedia struct{ remote string }

func (m *stubMedia) RemoteID() string           { return m.remote }
func (m *stubMedia) Bind(transport.MediaEvents) {}
func (m *stubMedia) Answer(media.Stream) error  { return nil }
func (m *stubMedia) Close() error               { return nil }

func TestRegistryIgnoresStaleChannels(t *testing.T) {
	r := newRegistry()
	first := &stubChannel{remote: "p1"}
	second := &stubChannel{remote: "p1"}

	if old := r.AddChannel("p1", first); old != nil {
		t.Fatal("nothing should be displaced")
	}
	if old := r.AddChannel("p1", second); old != first {
		t.Fatal("expected first channel to be displaced")
	}

	if r.MarkOpen("p1", first) {
		t.Fatal("stale channel must not be marked open")
	}
	if r.RemoveChannel("p1", first) {
		t.Fatal("stale channel must not remove the current one")
	}
	if !r.Owns("p1", second) {
		t.Fatal("second channel should be registered")
	}

	if _, ok := r.OpenChannel("p1"); ok {
		t.Fatal("channel not open yet")
	}
	r.MarkOpen("p1", second)
	if ids := r.OpenIDs(); len(ids) != 1 || ids[0] != "p1" {
		t.Fatalf("unexpected open ids %v", ids)
	}

	if !r.RemoveChannel("p1", second) {
		t.Fatal("current channel should be removable")
	}
	if _, ok := r.Channel("p1"); ok {
		t.Fatal("channel should be gone")
	}
}

func TestRegistryMediaAndDrain(t *testing.T) {
	r := newRegistry()
	mc := &stubMedia{remote: "p1"}
	r.AddMedia("p1", mc)
	r.AddChannel("p1", &stubChannel{remote: "p1"})
	r.AddChannel("p2", &stubChannel{remote: "p2"})

	if r.RemoveMedia("p1", &stubMedia{remote: "p1"}) {
		t.Fatal("foreign media channel removed")
	}
	if !r.OwnsMedia("p1", mc) {
		t.Fatal("media channel should be registered")
	}

	chs, mcs := r.Drain()
	if len(chs) != 2 || len(mcs) != 1 {
		t.Fatalf("drain returned %d channels and %d media", len(chs), len(mcs))
	}
	if r.TakeMedia("p1") != nil || r.TakeChannel("p1") != nil {
		t.Fatal("registry should be empty after drain")
	}
}

func TestRosterOperations(t *testing.T) {
	var r Roster
	if !r.Add(Participant{ID: "demo", Name: "Host", IsHost: true}) {
		t.Fatal("first add should change roster")
	}
	if r.Add(Participant{ID: "demo", Name: "Other"}) {
		t.Fatal("duplicate id must not be added")
	}
	r.Add(Participant{ID: "p1", Name: "Alice"})

	if !r.HasName("ALICE") || r.HasName("bob") {
		t.Fatal("name matching should be case-insensitive")
	}

	r.SetStream("p1", media.Handle("cam"))
	r.Replace([]protocol.Participant{
		{ID: "demo", Name: "Host", IsHost: true},
		{ID: "p1", Name: "Alice"},
		{ID: "p1", Name: "Alice"},
		{ID: "p2", Name: "Bob"},
	})
	if r.Len() != 3 {
		t.Fatalf("expected 3 entries after replace, got %d", r.Len())
	}
	if p, _ := r.Get("p1"); p.Stream == nil {
		t.Fatal("stream should survive roster replace")
	}

	r.SetHost("p2")
	if p, _ := r.Get("p2"); !p.IsHost {
		t.Fatal("promotion not recorded")
	}

	if _, ok := r.Remove("p1"); !ok {
		t.Fatal("remove failed")
	}
	if _, ok := r.Remove("p1"); ok {
		t.Fatal("second remove should report absence")
	}
	if len(r.Wire()) != 2 {
		t.Fatalf("unexpected wire roster %v", r.Wire())
	}
}
