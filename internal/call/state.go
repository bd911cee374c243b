package call

// State of one call attempt on one participant. A session moves strictly
// forward; StateEnded is terminal and no transition ever leaves it.
type State string

const (
	StateIdle        = State("idle")
	StateInviting    = State("inviting")    // caller, waiting for acceptance
	StateRinging     = State("ringing")     // callee, waiting for decision/offer
	StateNegotiating = State("negotiating") // offer/answer in flight
	StateActive      = State("active")
	StateEnded       = State("ended")
)

// EndReason says why a session reached StateEnded.
type EndReason string

const (
	EndHungUp      = EndReason("hung-up")
	EndPeerHungUp  = EndReason("peer-hung-up")
	EndPeerLost    = EndReason("peer-lost") // peer torn down without clean hang-up
	EndRejected    = EndReason("rejected")
	EndUnavailable = EndReason("unavailable")
	EndTimedOut    = EndReason("timed-out")
	EndCancelled   = EndReason("cancelled")
	EndFailed      = EndReason("failed") // negotiation capability failure
)

type Role string

const (
	RoleCaller = Role("caller")
	RoleCallee = Role("callee")
)
