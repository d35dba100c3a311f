package media

import (
	"testing"
	"time"
)

func TestLocalTracksStartDisabled(t *testing.T) {
	l, err := NewLocal()
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	if l.AudioEnabled() || l.VideoEnabled() {
		t.Fatal("tracks should start disabled")
	}
	if len(l.Tracks()) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(l.Tracks()))
	}

	if !l.ToggleMic() || !l.AudioEnabled() {
		t.Fatal("mic should be enabled after first toggle")
	}
	if l.ToggleMic() {
		t.Fatal("mic should be disabled after second toggle")
	}
	if !l.ToggleCamera() {
		t.Fatal("camera should be enabled after toggle")
	}
}

func TestHandleID(t *testing.T) {
	var s Stream = Handle("cam-1")
	if s.ID() != "cam-1" {
		t.Fatalf("unexpected id %q", s.ID())
	}
}

func TestWriteWithoutCallIsNoop(t *testing.T) {
	l, err := NewLocal()
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	frame := []byte{0xf8, 0xff, 0xfe}
	if err := l.WriteAudio(frame, 20*time.Millisecond); err != nil {
		t.Fatalf("write while muted: %v", err)
	}
	l.ToggleMic()
	if err := l.WriteAudio(frame, 20*time.Millisecond); err != nil {
		t.Fatalf("write with no peer connection: %v", err)
	}
}
