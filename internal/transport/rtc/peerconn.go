package rtc

import (
	"context"
	"fmt"
	"time"

	pion "github.com/pion/webrtc/v4"

	"github.com/whisper786/chat/internal/config"
	"github.com/whisper786/chat/internal/utils"
)

const (
	channelLabel  = "whisper"
	gatherTimeout = 10 * time.Second
)

// iceConfiguration builds the pion configuration from the STUN/TURN
// settings. Relay-only is used when asked for, or when the host looks like
// it sits behind a VPN or CGNAT, and only if a TURN server exists.
func iceConfiguration(cfg *config.Config, detectRelay func() bool) pion.Configuration {
	var iceServers []pion.ICEServer
	if stun := cfg.GetSTUNServers(); stun != nil {
		iceServers = append(iceServers, pion.ICEServer{URLs: stun})
	}

	turnServers := cfg.GetTURNServers()
	if turnServers != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, pion.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	policy := pion.ICETransportPolicyAll
	if turnServers != nil && (cfg.ForceRelay || detectRelay()) {
		policy = pion.ICETransportPolicyRelay
	}

	return pion.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	}
}

func newPeerConnection(cfg *config.Config) (*pion.PeerConnection, error) {
	pc, err := pion.NewPeerConnection(iceConfiguration(cfg, utils.ShouldForceRelay))
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}
	return pc, nil
}

func createDataChannel(pc *pion.PeerConnection) (*pion.DataChannel, error) {
	ordered := true
	dc, err := pc.CreateDataChannel(channelLabel, &pion.DataChannelInit{
		Ordered: &ordered,
	})
	if err != nil {
		return nil, fmt.Errorf("create data channel: %w", err)
	}
	return dc, nil
}

// createOffer sets the local offer and waits for ICE gathering, so the
// returned description already carries every candidate.
func createOffer(ctx context.Context, pc *pion.PeerConnection) (*pion.SessionDescription, error) {
	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return nil, fmt.Errorf("create offer: %w", err)
	}

	gatherComplete := pion.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}
	return awaitGathering(ctx, pc, gatherComplete)
}

// createAnswer applies the remote offer and returns the gathered answer.
func createAnswer(ctx context.Context, pc *pion.PeerConnection, offer pion.SessionDescription) (*pion.SessionDescription, error) {
	if err := pc.SetRemoteDescription(offer); err != nil {
		return nil, fmt.Errorf("set remote description: %w", err)
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return nil, fmt.Errorf("create answer: %w", err)
	}

	gatherComplete := pion.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}
	return awaitGathering(ctx, pc, gatherComplete)
}

func awaitGathering(ctx context.Context, pc *pion.PeerConnection, done <-chan struct{}) (*pion.SessionDescription, error) {
	timer := time.NewTimer(gatherTimeout)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		return nil, fmt.Errorf("ICE gathering timed out after %s", gatherTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return pc.LocalDescription(), nil
}

func sessionDescription(sdpType, sdp string) (pion.SessionDescription, error) {
	switch sdpType {
	case "offer":
		return pion.SessionDescription{Type: pion.SDPTypeOffer, SDP: sdp}, nil
	case "answer":
		return pion.SessionDescription{Type: pion.SDPTypeAnswer, SDP: sdp}, nil
	}
	return pion.SessionDescription{}, fmt.Errorf("unexpected sdp type %q", sdpType)
}
