package media

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
)

// Stream is the opaque media handle passed to Peer.Call and
// MediaChannel.Answer and attached to roster entries for rendering.
type Stream interface {
	ID() string
}

// Local owns the outgoing audio and video tracks. Both start disabled;
// a capture source feeds them through WriteAudio and WriteVideo.
type Local struct {
	id    string
	audio *webrtc.TrackLocalStaticSample
	video *webrtc.TrackLocalStaticSample

	mu           sync.RWMutex
	audioEnabled bool
	videoEnabled bool
}

// NewLocal creates opus audio and VP8 video tracks under one stream id.
func NewLocal() (*Local, error) {
	id := "whisper-" + uuid.NewString()

	audio, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio", id,
	)
	if err != nil {
		return nil, err
	}

	video, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
		"video", id,
	)
	if err != nil {
		return nil, err
	}

	return &Local{id: id, audio: audio, video: video}, nil
}

func (l *Local) ID() string { return l.id }

// Tracks returns the tracks to add to an outgoing peer connection.
func (l *Local) Tracks() []webrtc.TrackLocal {
	return []webrtc.TrackLocal{l.audio, l.video}
}

// ToggleMic flips the audio enabled flag and returns it. Audio samples
// written while it is off are dropped.
func (l *Local) ToggleMic() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.audioEnabled = !l.audioEnabled
	return l.audioEnabled
}

// ToggleCamera flips the video enabled flag and returns it.
func (l *Local) ToggleCamera() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.videoEnabled = !l.videoEnabled
	return l.videoEnabled
}

func (l *Local) AudioEnabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.audioEnabled
}

func (l *Local) VideoEnabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.videoEnabled
}

// WriteAudio sends one encoded opus frame lasting d. It is a no-op while
// the microphone is off or before the track joins a call.
func (l *Local) WriteAudio(frame []byte, d time.Duration) error {
	if !l.AudioEnabled() {
		return nil
	}
	return l.audio.WriteSample(pionmedia.Sample{Data: frame, Duration: d})
}

// WriteVideo sends one encoded VP8 frame lasting d.
func (l *Local) WriteVideo(frame []byte, d time.Duration) error {
	if !l.VideoEnabled() {
		return nil
	}
	return l.video.WriteSample(pionmedia.Sample{Data: frame, Duration: d})
}

// Remote collects the tracks a peer sent us.
type Remote struct {
	id string

	mu     sync.Mutex
	tracks []*webrtc.TrackRemote
}

func NewRemote(id string) *Remote {
	return &Remote{id: id}
}

func (r *Remote) ID() string { return r.id }

func (r *Remote) AddTrack(t *webrtc.TrackRemote) {
	r.mu.Lock()
	r.tracks = append(r.tracks, t)
	r.mu.Unlock()
}

func (r *Remote) Tracks() []*webrtc.TrackRemote {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*webrtc.TrackRemote(nil), r.tracks...)
}

// Handle is a bare Stream, used where only the identity of a stream matters.
type Handle string

func (h Handle) ID() string { return string(h) }
