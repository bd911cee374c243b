package api

import "github.com/pion/webrtc/v4"

type Event string

// Client-originated events.
const (
	EventCallInvite   = Event("call-invite")
	EventAcceptCall   = Event("accept-call")
	EventRejectCall   = Event("reject-call")
	EventMissCall     = Event("miss-call")
	EventOffer        = Event("offer")
	EventAnswer       = Event("answer")
	EventIceCandidate = Event("ice-candidate")
	EventHangUp       = Event("hang-up")
	EventPeerRefresh  = Event("peer-refresh")
	EventPong         = Event("pong")
)

// Server-originated events.
const (
	EventIdentityBound    = Event("identity-bound")
	EventPresenceSnapshot = Event("presence-snapshot")
	EventIncomingCall     = Event("incoming-call")
	EventUserUnavailable  = Event("user-unavailable")
	EventOfferReceived    = Event("offer-received")
	EventAnswerReceived   = Event("answer-received")
	EventUserHungUp       = Event("user-hung-up")
	EventPing             = Event("ping")
)

// Message is the single frame exchanged on the signalling socket in both
// directions. Event selects which payload pointer is populated.
type Message struct {
	Event         Event                 `json:"event"`
	IdentityBound *IdentityBoundMessage `json:"identityBound,omitempty"`
	Presence      *PresenceMessage      `json:"presence,omitempty"`
	Invite        *InviteMessage        `json:"invite,omitempty"`
	Unavailable   *UnavailableMessage   `json:"unavailable,omitempty"`
	Accept        *AcceptMessage        `json:"accept,omitempty"`
	Reject        *RejectMessage        `json:"reject,omitempty"`
	MissCall      *MissCallMessage      `json:"missCall,omitempty"`
	Offer         *OfferMessage         `json:"offer,omitempty"`
	Answer        *AnswerMessage        `json:"answer,omitempty"`
	Ice           *IceMessage           `json:"ice,omitempty"`
	HangUp        *HangUpMessage        `json:"hangUp,omitempty"`
	PeerRefresh   *PeerRefreshMessage   `json:"peerRefresh,omitempty"`
	Ping          *PingMessage          `json:"ping,omitempty"`
}

// IdentityBoundMessage is sent once per connection right after the upgrade.
// PcConfig carries the ICE servers the client should dial with.
type IdentityBoundMessage struct {
	ConnectionID string               `json:"connectionId"`
	Identity     string               `json:"identity,omitempty"`
	PcConfig     PeerConnectionConfig `json:"pcConfig"`
	PingInterval int                  `json:"pingInterval"`
}

type PresenceMessage struct {
	Identities []string `json:"identities"`
}

// InviteMessage starts a call attempt. From and CallerName are filled by the
// server on delivery; the sender supplies To and SessionID.
type InviteMessage struct {
	From       string `json:"from,omitempty"`
	To         string `json:"to"`
	CallerName string `json:"callerName"`
	SessionID  string `json:"sessionId"`
}

type UnavailableMessage struct {
	To string `json:"to"`
}

type AcceptMessage struct {
	CallerIdentity string `json:"callerIdentity"`
	CalleeIdentity string `json:"calleeIdentity"`
	SessionID      string `json:"sessionId"`
}

type RejectMessage struct {
	CallerIdentity string `json:"callerIdentity"`
	CalleeIdentity string `json:"calleeIdentity"`
	SessionID      string `json:"sessionId"`
}

type MissCallMessage struct {
	TargetIdentity string `json:"targetIdentity"`
}

type OfferMessage struct {
	TargetIdentity string                    `json:"targetIdentity"`
	SenderIdentity string                    `json:"senderIdentity,omitempty"`
	SessionID      string                    `json:"sessionId"`
	Offer          webrtc.SessionDescription `json:"offer"`
}

type AnswerMessage struct {
	TargetIdentity string                    `json:"targetIdentity"`
	SenderIdentity string                    `json:"senderIdentity,omitempty"`
	SessionID      string                    `json:"sessionId"`
	Answer         webrtc.SessionDescription `json:"answer"`
}

type IceMessage struct {
	TargetIdentity string                  `json:"targetIdentity"`
	SenderIdentity string                  `json:"senderIdentity,omitempty"`
	SessionID      string                  `json:"sessionId"`
	Candidate      webrtc.ICECandidateInit `json:"candidate"`
}

type HangUpMessage struct {
	SessionID string `json:"sessionId"`
	ByName    string `json:"byName,omitempty"`
}

// PeerRefreshMessage tells the other participant that this client lost its
// in-memory session (reload, tab close) without a clean hang-up.
type PeerRefreshMessage struct {
	SessionID      string `json:"sessionId"`
	TargetIdentity string `json:"targetIdentity,omitempty"`
}

type PingMessage struct {
	Timestamp int64 `json:"timestamp"`
}
