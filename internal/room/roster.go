package room

import (
	"strings"

	"github.com/whisper786/chat/internal/media"
	"github.com/whisper786/chat/internal/protocol"
)

// Participant is one roster entry. Stream is local only and is set when a
// media channel with this participant yields a live stream.
type Participant struct {
	ID     string
	Name   string
	IsHost bool
	Stream media.Stream
}

func (p Participant) wire() protocol.Participant {
	return protocol.Participant{ID: p.ID, Name: p.Name, IsHost: p.IsHost}
}

func fromWire(p protocol.Participant) Participant {
	return Participant{ID: p.ID, Name: p.Name, IsHost: p.IsHost}
}

// Roster holds at most one entry per id, in join order.
type Roster struct {
	entries []Participant
}

func (r *Roster) Len() int { return len(r.entries) }

func (r *Roster) index(id string) int {
	for i, p := range r.entries {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (r *Roster) Get(id string) (Participant, bool) {
	if i := r.index(id); i >= 0 {
		return r.entries[i], true
	}
	return Participant{}, false
}

func (r *Roster) Has(id string) bool { return r.index(id) >= 0 }

// HasName matches names case-insensitively, the way joins are validated.
func (r *Roster) HasName(name string) bool {
	for _, p := range r.entries {
		if strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

// Add appends p unless its id is already present. It reports whether the
// roster changed.
func (r *Roster) Add(p Participant) bool {
	if r.Has(p.ID) {
		return false
	}
	r.entries = append(r.entries, p)
	return true
}

func (r *Roster) Remove(id string) (Participant, bool) {
	i := r.index(id)
	if i < 0 {
		return Participant{}, false
	}
	p := r.entries[i]
	r.entries = append(r.entries[:i], r.entries[i+1:]...)
	return p, true
}

func (r *Roster) SetHost(id string) bool {
	i := r.index(id)
	if i < 0 {
		return false
	}
	r.entries[i].IsHost = true
	return true
}

func (r *Roster) SetStream(id string, s media.Stream) bool {
	i := r.index(id)
	if i < 0 {
		return false
	}
	r.entries[i].Stream = s
	return true
}

// Replace swaps in a whole roster received from the host. Streams already
// attached locally survive for ids that are still present.
func (r *Roster) Replace(list []protocol.Participant) {
	next := make([]Participant, 0, len(list))
	seen := make(map[string]bool, len(list))
	for _, wp := range list {
		if seen[wp.ID] {
			continue
		}
		seen[wp.ID] = true
		p := fromWire(wp)
		if old, ok := r.Get(p.ID); ok {
			p.Stream = old.Stream
		}
		next = append(next, p)
	}
	r.entries = next
}

func (r *Roster) Reset() { r.entries = nil }

func (r *Roster) Wire() []protocol.Participant {
	out := make([]protocol.Participant, len(r.entries))
	for i, p := range r.entries {
		out[i] = p.wire()
	}
	return out
}

// Snapshot returns a copy safe to hand outside the event loop.
func (r *Roster) Snapshot() []Participant {
	return append([]Participant(nil), r.entries...)
}
