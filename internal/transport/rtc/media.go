package rtc

import (
	"errors"
	"fmt"
	"sync"

	pion "github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/whisper786/chat/internal/media"
	"github.com/whisper786/chat/internal/signaling"
	"github.com/whisper786/chat/internal/transport"
)

var errAlreadyAnswered = errors.New("call already answered")

// mediaConn is one peer connection carrying the audio and video of a call.
// An inbound call has no peer connection until it is answered.
type mediaConn struct {
	p      *peer
	id     string
	remote string
	events *transport.EventBuffer[transport.MediaEvents]

	mu     sync.Mutex
	pc     *pion.PeerConnection
	offer  *pion.SessionDescription
	stream *media.Remote
	done   bool
}

func newMediaConn(p *peer, id, remote string) *mediaConn {
	return &mediaConn{
		p:      p,
		id:     id,
		remote: remote,
		events: transport.NewEventBuffer[transport.MediaEvents](p.box),
	}
}

func addTracks(pc *pion.PeerConnection, local *media.Local) error {
	for _, track := range local.Tracks() {
		if _, err := pc.AddTrack(track); err != nil {
			return fmt.Errorf("add track %s: %w", track.ID(), err)
		}
	}
	return nil
}

func (m *mediaConn) RemoteID() string { return m.remote }

func (m *mediaConn) Bind(ev transport.MediaEvents) { m.events.Bind(ev) }

// watch attaches the connection's callbacks to pc.
func (m *mediaConn) watch(pc *pion.PeerConnection) {
	m.mu.Lock()
	m.pc = pc
	m.mu.Unlock()

	pc.OnTrack(func(track *pion.TrackRemote, _ *pion.RTPReceiver) {
		m.onTrack(track)
	})
	pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		log.Debug().Str("module", "rtc").Str("connection", m.id).Str("state", state.String()).Msg("media connection state")
		if state == pion.PeerConnectionStateFailed || state == pion.PeerConnectionStateClosed {
			m.finish(false)
		}
	})
}

// onTrack groups remote tracks into one stream and reports it when the
// first track arrives.
func (m *mediaConn) onTrack(track *pion.TrackRemote) {
	m.mu.Lock()
	first := m.stream == nil
	if first {
		m.stream = media.NewRemote(track.StreamID())
	}
	stream := m.stream
	m.mu.Unlock()

	stream.AddTrack(track)
	if first {
		m.events.Fire(func(ev transport.MediaEvents) {
			if ev.OnStream != nil {
				ev.OnStream(stream)
			}
		})
	}
}

// Answer accepts an inbound call, sending local back to the caller.
func (m *mediaConn) Answer(local media.Stream) error {
	l, ok := local.(*media.Local)
	if !ok {
		return ErrUnsupportedStream
	}

	m.mu.Lock()
	offer, done := m.offer, m.done
	m.offer = nil
	m.mu.Unlock()
	if done {
		return transport.ErrChannelClosed
	}
	if offer == nil {
		return errAlreadyAnswered
	}

	pc, err := newPeerConnection(m.p.cfg)
	if err != nil {
		return err
	}
	if err := addTracks(pc, l); err != nil {
		pc.Close()
		return err
	}
	m.watch(pc)

	go func() {
		answer, err := createAnswer(m.p.ctx, pc, *offer)
		if err != nil {
			m.fail(err)
			return
		}
		err = m.p.signal(m.remote, signaling.SignalPayload{
			ConnectionID: m.id,
			Kind:         signaling.SignalMedia,
			SDPType:      "answer",
			SDP:          answer.SDP,
		})
		if err != nil {
			m.fail(err)
		}
	}()
	return nil
}

func (m *mediaConn) Close() error {
	m.finish(true)
	return nil
}

func (m *mediaConn) onAnswer(answer pion.SessionDescription) {
	m.mu.Lock()
	pc := m.pc
	m.mu.Unlock()
	if pc == nil {
		return
	}
	if err := pc.SetRemoteDescription(answer); err != nil {
		m.fail(err)
	}
}

func (m *mediaConn) fail(err error) {
	if !m.end() {
		return
	}
	log.Debug().Str("module", "rtc").Str("connection", m.id).Str("remote", m.remote).Err(err).Msg("media connection failed")
	m.events.Fire(func(ev transport.MediaEvents) {
		if ev.OnError != nil {
			ev.OnError(err)
		}
	})
}

func (m *mediaConn) finish(bye bool) {
	if !m.end() {
		return
	}
	if bye {
		m.p.bye(m.remote, m.id)
	}
	m.events.Fire(func(ev transport.MediaEvents) {
		if ev.OnClose != nil {
			ev.OnClose()
		}
	})
}

func (m *mediaConn) end() bool {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return false
	}
	m.done = true
	pc := m.pc
	m.mu.Unlock()

	m.p.take(m.id)
	if pc != nil {
		go pc.Close()
	}
	return true
}
