package room

import (
	"sort"

	"github.com/whisper786/chat/internal/transport"
)

type link struct {
	ch   transport.Channel
	open bool
}

// Registry owns the data and media channels of a session, keyed by remote
// peer id. Only the session event loop touches it.
type Registry struct {
	channels map[string]*link
	media    map[string]transport.MediaChannel
}

func newRegistry() *Registry {
	return &Registry{
		channels: make(map[string]*link),
		media:    make(map[string]transport.MediaChannel),
	}
}

// AddChannel stores ch for id and returns the channel it displaced, if any.
func (r *Registry) AddChannel(id string, ch transport.Channel) transport.Channel {
	var old transport.Channel
	if l, ok := r.channels[id]; ok && l.ch != ch {
		old = l.ch
	}
	r.channels[id] = &link{ch: ch}
	return old
}

func (r *Registry) Channel(id string) (transport.Channel, bool) {
	l, ok := r.channels[id]
	if !ok {
		return nil, false
	}
	return l.ch, true
}

// Owns reports whether ch is still the channel registered for id. Events
// from channels that were replaced or dropped fail this check.
func (r *Registry) Owns(id string, ch transport.Channel) bool {
	l, ok := r.channels[id]
	return ok && l.ch == ch
}

func (r *Registry) MarkOpen(id string, ch transport.Channel) bool {
	l, ok := r.channels[id]
	if !ok || l.ch != ch {
		return false
	}
	l.open = true
	return true
}

// OpenChannel returns the channel for id only if it has opened.
func (r *Registry) OpenChannel(id string) (transport.Channel, bool) {
	l, ok := r.channels[id]
	if !ok || !l.open {
		return nil, false
	}
	return l.ch, true
}

func (r *Registry) RemoveChannel(id string, ch transport.Channel) bool {
	if !r.Owns(id, ch) {
		return false
	}
	delete(r.channels, id)
	return true
}

// TakeChannel unregisters whatever channel id has and returns it.
func (r *Registry) TakeChannel(id string) transport.Channel {
	l, ok := r.channels[id]
	if !ok {
		return nil
	}
	delete(r.channels, id)
	return l.ch
}

// OpenIDs lists peers with an open channel, sorted for stable fan-out.
func (r *Registry) OpenIDs() []string {
	ids := make([]string, 0, len(r.channels))
	for id, l := range r.channels {
		if l.open {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) AddMedia(id string, mc transport.MediaChannel) transport.MediaChannel {
	old := r.media[id]
	if old == mc {
		old = nil
	}
	r.media[id] = mc
	return old
}

func (r *Registry) OwnsMedia(id string, mc transport.MediaChannel) bool {
	cur, ok := r.media[id]
	return ok && cur == mc
}

func (r *Registry) RemoveMedia(id string, mc transport.MediaChannel) bool {
	if !r.OwnsMedia(id, mc) {
		return false
	}
	delete(r.media, id)
	return true
}

func (r *Registry) TakeMedia(id string) transport.MediaChannel {
	mc, ok := r.media[id]
	if !ok {
		return nil
	}
	delete(r.media, id)
	return mc
}

// Drain empties the registry and returns everything it held.
func (r *Registry) Drain() ([]transport.Channel, []transport.MediaChannel) {
	chs := make([]transport.Channel, 0, len(r.channels))
	for _, l := range r.channels {
		chs = append(chs, l.ch)
	}
	mcs := make([]transport.MediaChannel, 0, len(r.media))
	for _, mc := range r.media {
		mcs = append(mcs, mc)
	}
	r.channels = make(map[string]*link)
	r.media = make(map[string]transport.MediaChannel)
	return chs, mcs
}
