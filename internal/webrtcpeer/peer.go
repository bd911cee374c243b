// Package webrtcpeer establishes the media connection for one call attempt
// using a pion peer connection. It satisfies the call.Negotiator port.
package webrtcpeer

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/Kartikjoshi26/WeCall/internal/api"
)

// Peer wraps one webrtc.PeerConnection. One Peer serves one call attempt;
// after Close it cannot be reused.
type Peer struct {
	mu          sync.Mutex
	pc          *webrtc.PeerConnection
	onCandidate func(webrtc.ICECandidateInit)
	closed      bool
	mediaReady  bool
}

// New builds a peer connection from the server-provided configuration.
func New(pcConfig api.PeerConnectionConfig) (*Peer, error) {
	pc, err := webrtc.NewPeerConnection(pcConfig.WebrtcConfiguration())
	if err != nil {
		return nil, fmt.Errorf("cannot create peer connection: %w", err)
	}

	p := &Peer{pc: pc}

	pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate == nil {
			return
		}
		p.mu.Lock()
		fn := p.onCandidate
		p.mu.Unlock()
		if fn != nil {
			fn(candidate.ToJSON())
		}
	})
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		slog.Debug("peer connection state changed", "state", state.String())
	})

	return p, nil
}

// AttachLocalMedia adds the sendrecv audio and video transceivers. Tracks
// are fed by the application once the connection is up.
func (p *Peer) AttachLocalMedia() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return webrtc.ErrConnectionClosed
	}
	if p.mediaReady {
		return nil
	}

	if _, err := p.pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionSendrecv,
	}); err != nil {
		return fmt.Errorf("cannot add audio transceiver: %w", err)
	}
	if _, err := p.pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionSendrecv,
	}); err != nil {
		return fmt.Errorf("cannot add video transceiver: %w", err)
	}
	p.mediaReady = true
	return nil
}

func (p *Peer) CreateOffer() (webrtc.SessionDescription, error) {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("cannot create offer: %w", err)
	}
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("cannot set local description: %w", err)
	}
	return offer, nil
}

func (p *Peer) CreateAnswer(offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	if err := p.pc.SetRemoteDescription(offer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("cannot set remote description: %w", err)
	}
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("cannot create answer: %w", err)
	}
	if err := p.pc.SetLocalDescription(answer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("cannot set local description: %w", err)
	}
	return answer, nil
}

func (p *Peer) SetRemoteAnswer(answer webrtc.SessionDescription) error {
	if err := p.pc.SetRemoteDescription(answer); err != nil {
		return fmt.Errorf("cannot apply answer: %w", err)
	}
	return nil
}

func (p *Peer) AddRemoteCandidate(candidate webrtc.ICECandidateInit) error {
	return p.pc.AddICECandidate(candidate)
}

func (p *Peer) OnICECandidate(fn func(webrtc.ICECandidateInit)) {
	p.mu.Lock()
	p.onCandidate = fn
	p.mu.Unlock()
}

// Close shuts the peer connection down and releases its transceivers.
func (p *Peer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.onCandidate = nil
	p.mu.Unlock()

	return p.pc.Close()
}
