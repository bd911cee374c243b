package call

import (
	"log/slog"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
)

const DefaultInviteTimeout = 25 * time.Second

// Options configures a Session. Zero values fall back to defaults.
type Options struct {
	InviteTimeout time.Duration
	Recovery      *RecoveryStore
	// OnEnd runs once, outside the session lock, when the session reaches
	// StateEnded.
	OnEnd func(EndReason)
}

// Session drives one call attempt on one participant from invitation to a
// terminal state. All signalling events are fed in through the Handle*
// methods; the session decides what is valid in its current state and drops
// the rest. Every path out of the session releases local media exactly once.
type Session struct {
	mu sync.Mutex

	id       string
	role     Role
	self     string
	selfName string
	peer     string
	peerName string

	state     State
	endReason EndReason

	signaler   Signaler
	negotiator Negotiator

	timer    *time.Timer
	timerGen int

	inviteTimeout time.Duration
	recovery      *RecoveryStore
	onEnd         func(EndReason)
}

func newSession(role Role, id, self, selfName, peer string, signaler Signaler, negotiator Negotiator, opts Options) *Session {
	timeout := opts.InviteTimeout
	if timeout <= 0 {
		timeout = DefaultInviteTimeout
	}
	s := &Session{
		id:            id,
		role:          role,
		self:          self,
		selfName:      selfName,
		peer:          peer,
		state:         StateIdle,
		signaler:      signaler,
		negotiator:    negotiator,
		inviteTimeout: timeout,
		recovery:      opts.Recovery,
		onEnd:         opts.OnEnd,
	}
	negotiator.OnICECandidate(s.onLocalCandidate)
	return s
}

// NewOutgoing prepares a caller-side session. Nothing is sent until Start.
func NewOutgoing(id, self, selfName, peer string, signaler Signaler, negotiator Negotiator, opts Options) *Session {
	return newSession(RoleCaller, id, self, selfName, peer, signaler, negotiator, opts)
}

// NewIncoming prepares a callee-side session for a received invitation and
// puts it in StateRinging with the answer window already running. The
// invitation stays pending until Accept or Reject.
func NewIncoming(id, self, peer, peerName string, signaler Signaler, negotiator Negotiator, opts Options) *Session {
	s := newSession(RoleCallee, id, self, "", peer, signaler, negotiator, opts)
	s.peerName = peerName

	s.mu.Lock()
	s.state = StateRinging
	s.armTimerLocked(s.inviteTimeout, s.onDeadlineExpired)
	s.mu.Unlock()
	return s
}

func (s *Session) ID() string   { return s.id }
func (s *Session) Peer() string { return s.peer }
func (s *Session) PeerName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.peerName == "" {
		return s.peer
	}
	return s.peerName
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) EndReason() EndReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endReason
}

// Start sends the invitation. Caller side only.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.role != RoleCaller || s.state != StateIdle {
		s.mu.Unlock()
		return nil
	}
	s.state = StateInviting
	s.mu.Unlock()

	if err := s.negotiator.AttachLocalMedia(); err != nil {
		s.terminate(EndFailed)
		return err
	}
	s.saveRecovery()
	if err := s.signaler.Invite(s.peer, s.selfName, s.id); err != nil {
		slog.Warn("invite send failed", "sessionID", s.id, "error", err)
	}

	// The peer may have answered unavailable before we get back here; only a
	// still-pending invitation gets a deadline.
	s.mu.Lock()
	if s.state == StateInviting {
		s.armTimerLocked(s.inviteTimeout, s.onDeadlineExpired)
	}
	s.mu.Unlock()
	return nil
}

// Accept takes the pending invitation. Callee side only. The answer window
// restarts: the peer now owes us an offer within the same deadline.
func (s *Session) Accept() error {
	s.mu.Lock()
	if s.state != StateRinging {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if err := s.negotiator.AttachLocalMedia(); err != nil {
		s.terminate(EndFailed)
		return err
	}
	s.saveRecovery()
	if err := s.signaler.Accept(s.peer, s.id); err != nil {
		slog.Warn("accept send failed", "sessionID", s.id, "error", err)
	}

	s.mu.Lock()
	if s.state == StateRinging {
		s.armTimerLocked(s.inviteTimeout, s.onDeadlineExpired)
	}
	s.mu.Unlock()
	return nil
}

// Reject declines the pending invitation and ends the session.
func (s *Session) Reject() {
	s.mu.Lock()
	if s.state != StateRinging {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if err := s.signaler.Reject(s.peer, s.id); err != nil {
		slog.Warn("reject send failed", "sessionID", s.id, "error", err)
	}
	s.terminate(EndRejected)
}

// HangUp ends the session from the local side and tells the peer.
func (s *Session) HangUp() {
	if s.State() == StateEnded {
		return
	}
	if err := s.signaler.HangUp(s.id); err != nil {
		slog.Warn("hang-up send failed", "sessionID", s.id, "error", err)
	}
	s.terminate(EndHungUp)
}

// Cancel abandons the attempt before it became active. The peer learns
// through the hang-up fan-out if it already joined, or through its own
// timeout otherwise.
func (s *Session) Cancel() {
	if s.State() == StateEnded {
		return
	}
	if err := s.signaler.HangUp(s.id); err != nil {
		slog.Debug("cancel hang-up send failed", "sessionID", s.id, "error", err)
	}
	s.terminate(EndCancelled)
}

// Abandon tears the session down on process exit. It sends a peer-refresh so
// the other side ends immediately instead of waiting out a timer.
func (s *Session) Abandon() {
	if s.State() == StateEnded {
		return
	}
	if err := s.signaler.PeerRefresh(s.id, s.peer); err != nil {
		slog.Debug("peer-refresh send failed", "sessionID", s.id, "error", err)
	}
	s.terminate(EndCancelled)
}

// HandleAccepted reacts to the callee taking the call. Caller side: create
// the offer and send it.
func (s *Session) HandleAccepted() {
	s.mu.Lock()
	if s.role != RoleCaller || s.state != StateInviting {
		s.mu.Unlock()
		return
	}
	s.stopTimerLocked()
	s.state = StateNegotiating
	s.mu.Unlock()

	offer, err := s.negotiator.CreateOffer()
	if err != nil {
		slog.Error("offer creation failed", "sessionID", s.id, "error", err)
		s.terminate(EndFailed)
		return
	}

	s.mu.Lock()
	stillNegotiating := s.state == StateNegotiating
	s.mu.Unlock()
	if !stillNegotiating {
		return
	}
	if err := s.signaler.SendOffer(s.peer, s.id, offer); err != nil {
		slog.Warn("offer send failed", "sessionID", s.id, "error", err)
	}
}

// HandleOffer reacts to the caller's offer. Callee side: produce and send
// the answer, then the call is up.
func (s *Session) HandleOffer(offer webrtc.SessionDescription) {
	s.mu.Lock()
	if s.role != RoleCallee || s.state != StateRinging {
		s.mu.Unlock()
		return
	}
	s.stopTimerLocked()
	s.state = StateNegotiating
	s.mu.Unlock()

	answer, err := s.negotiator.CreateAnswer(offer)
	if err != nil {
		slog.Error("answer creation failed", "sessionID", s.id, "error", err)
		s.terminate(EndFailed)
		return
	}

	s.mu.Lock()
	if s.state != StateNegotiating {
		s.mu.Unlock()
		return
	}
	s.state = StateActive
	s.mu.Unlock()

	if err := s.signaler.SendAnswer(s.peer, s.id, answer); err != nil {
		slog.Warn("answer send failed", "sessionID", s.id, "error", err)
	}
}

// HandleAnswer applies the callee's answer. Caller side: the call is up.
func (s *Session) HandleAnswer(answer webrtc.SessionDescription) {
	s.mu.Lock()
	if s.role != RoleCaller || s.state != StateNegotiating {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if err := s.negotiator.SetRemoteAnswer(answer); err != nil {
		slog.Error("applying answer failed", "sessionID", s.id, "error", err)
		s.terminate(EndFailed)
		return
	}

	s.mu.Lock()
	if s.state == StateNegotiating {
		s.state = StateActive
	}
	s.mu.Unlock()
}

// HandleCandidate feeds a remote ICE candidate into the negotiator.
// Candidates outside the negotiation window are dropped.
func (s *Session) HandleCandidate(candidate webrtc.ICECandidateInit) {
	s.mu.Lock()
	inWindow := s.state == StateNegotiating || s.state == StateActive
	s.mu.Unlock()
	if !inWindow {
		return
	}
	if err := s.negotiator.AddRemoteCandidate(candidate); err != nil {
		slog.Debug("remote candidate dropped", "sessionID", s.id, "error", err)
	}
}

// HandleRejected ends the attempt after the peer declined.
func (s *Session) HandleRejected() {
	s.mu.Lock()
	valid := s.state == StateInviting || s.state == StateNegotiating
	s.mu.Unlock()
	if valid {
		s.terminate(EndRejected)
	}
}

// HandleUnavailable ends the attempt because the peer is not registered.
func (s *Session) HandleUnavailable() {
	s.mu.Lock()
	valid := s.state == StateInviting || s.state == StateIdle
	s.mu.Unlock()
	if valid {
		s.terminate(EndUnavailable)
	}
}

// HandleMissedCall ends a still-ringing callee session: the caller gave up
// waiting and the invitation is void.
func (s *Session) HandleMissedCall() {
	s.mu.Lock()
	valid := s.state == StateRinging
	s.mu.Unlock()
	if valid {
		s.terminate(EndTimedOut)
	}
}

// HandlePeerHangUp ends the session after the peer hung up cleanly.
func (s *Session) HandlePeerHangUp() {
	if s.State() != StateEnded {
		s.terminate(EndPeerHungUp)
	}
}

// HandlePeerRefresh ends the session after the peer went away without a
// clean hang-up.
func (s *Session) HandlePeerRefresh() {
	if s.State() != StateEnded {
		s.terminate(EndPeerLost)
	}
}

// onDeadlineExpired runs with the lock held via the timer trampoline.
func (s *Session) onDeadlineExpired() {
	switch s.state {
	case StateInviting:
		// End the attempt before releasing the lock for the miss-call send.
		// An acceptance racing this timer must find the session already
		// terminal, or the caller would proceed to negotiate with no
		// deadline left while the callee gets a miss-call that voids its
		// still-ringing invitation.
		s.terminateLocked(EndTimedOut)
		peer := s.peer
		s.mu.Unlock()
		if err := s.signaler.MissCall(peer); err != nil {
			slog.Debug("miss-call send failed", "sessionID", s.id, "error", err)
		}
		s.mu.Lock()
	case StateRinging:
		s.terminateLocked(EndTimedOut)
	}
}

func (s *Session) onLocalCandidate(candidate webrtc.ICECandidateInit) {
	s.mu.Lock()
	inWindow := s.state == StateNegotiating || s.state == StateActive
	s.mu.Unlock()
	if !inWindow {
		return
	}
	if err := s.signaler.SendCandidate(s.peer, s.id, candidate); err != nil {
		slog.Debug("candidate send failed", "sessionID", s.id, "error", err)
	}
}

// armTimerLocked schedules fn under the session lock. The generation counter
// voids timers that were stopped or superseded while their callback was
// already in flight.
func (s *Session) armTimerLocked(d time.Duration, fn func()) {
	s.stopTimerLocked()
	s.timerGen++
	gen := s.timerGen
	s.timer = time.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.timerGen != gen || s.state == StateEnded {
			return
		}
		fn()
	})
}

func (s *Session) stopTimerLocked() {
	s.timerGen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) terminate(reason EndReason) {
	s.mu.Lock()
	s.terminateLocked(reason)
	s.mu.Unlock()
}

// terminateLocked moves the session to StateEnded. Idempotent: only the
// first caller releases media and fires OnEnd.
func (s *Session) terminateLocked(reason EndReason) {
	if s.state == StateEnded {
		return
	}
	s.stopTimerLocked()
	s.state = StateEnded
	s.endReason = reason

	s.negotiator.OnICECandidate(nil)
	if err := s.negotiator.Close(); err != nil {
		slog.Debug("negotiator close failed", "sessionID", s.id, "error", err)
	}
	if s.recovery != nil {
		if err := s.recovery.Clear(); err != nil {
			slog.Debug("clearing recovery record failed", "error", err)
		}
	}
	slog.Info("call ended", "sessionID", s.id, "peer", s.peer, "reason", reason)

	if s.onEnd != nil {
		onEnd := s.onEnd
		s.onEnd = nil
		go onEnd(reason)
	}
}

func (s *Session) saveRecovery() {
	if s.recovery == nil {
		return
	}
	if err := s.recovery.Save(RecoveryRecord{
		SessionID:    s.id,
		PeerIdentity: s.peer,
		SavedAt:      time.Now(),
	}); err != nil {
		slog.Warn("saving recovery record failed", "error", err)
	}
}
