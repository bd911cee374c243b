package call

import "github.com/pion/webrtc/v4"

// Signaler sends session messages to the peer through the signalling server.
// Delivery is best-effort; the session's own timers cover lost messages.
type Signaler interface {
	Invite(to, callerName, sessionID string) error
	Accept(callerIdentity, sessionID string) error
	Reject(callerIdentity, sessionID string) error
	MissCall(targetIdentity string) error
	SendOffer(targetIdentity, sessionID string, offer webrtc.SessionDescription) error
	SendAnswer(targetIdentity, sessionID string, answer webrtc.SessionDescription) error
	SendCandidate(targetIdentity, sessionID string, candidate webrtc.ICECandidateInit) error
	HangUp(sessionID string) error
	PeerRefresh(sessionID, targetIdentity string) error
}

// Negotiator is the opaque connection-establishment capability. The session
// never looks inside offers, answers, or candidates; it only moves them
// between the Signaler and this interface.
//
// Close releases local media and cancels candidate discovery. It must be
// safe to call more than once.
type Negotiator interface {
	AttachLocalMedia() error
	CreateOffer() (webrtc.SessionDescription, error)
	CreateAnswer(offer webrtc.SessionDescription) (webrtc.SessionDescription, error)
	SetRemoteAnswer(answer webrtc.SessionDescription) error
	AddRemoteCandidate(candidate webrtc.ICECandidateInit) error
	// OnICECandidate subscribes fn to locally discovered candidates for the
	// lifetime of this call attempt. A nil fn unsubscribes.
	OnICECandidate(fn func(webrtc.ICECandidateInit))
	Close() error
}
