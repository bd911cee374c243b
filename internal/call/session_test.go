package call

import (
	"sync"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
)

type fakeSignaler struct {
	mu         sync.Mutex
	invites    []string
	accepts    []string
	rejects    []string
	missCalls  []string
	offers     []string
	answers    []string
	candidates []string
	hangUps    []string
	refreshes  []string

	// onInvite and onMissCall, when set, run synchronously inside their
	// send. They simulate a server message that races the delivery.
	onInvite   func()
	onMissCall func()
}

func (f *fakeSignaler) Invite(to, callerName, sessionID string) error {
	f.mu.Lock()
	f.invites = append(f.invites, to)
	cb := f.onInvite
	f.mu.Unlock()
	if cb != nil {
		cb()
	}
	return nil
}

func (f *fakeSignaler) Accept(callerIdentity, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accepts = append(f.accepts, callerIdentity)
	return nil
}

func (f *fakeSignaler) Reject(callerIdentity, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejects = append(f.rejects, callerIdentity)
	return nil
}

func (f *fakeSignaler) MissCall(targetIdentity string) error {
	f.mu.Lock()
	f.missCalls = append(f.missCalls, targetIdentity)
	cb := f.onMissCall
	f.mu.Unlock()
	if cb != nil {
		cb()
	}
	return nil
}

func (f *fakeSignaler) SendOffer(target, sessionID string, offer webrtc.SessionDescription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offers = append(f.offers, target)
	return nil
}

func (f *fakeSignaler) SendAnswer(target, sessionID string, answer webrtc.SessionDescription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, target)
	return nil
}

func (f *fakeSignaler) SendCandidate(target, sessionID string, candidate webrtc.ICECandidateInit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.candidates = append(f.candidates, target)
	return nil
}

func (f *fakeSignaler) HangUp(sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hangUps = append(f.hangUps, sessionID)
	return nil
}

func (f *fakeSignaler) PeerRefresh(sessionID, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes = append(f.refreshes, target)
	return nil
}

func (f *fakeSignaler) count(slice *[]string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(*slice)
}

type fakeNegotiator struct {
	mu            sync.Mutex
	attached      int
	closed        int
	remoteAnswers int
	remoteCands   int
	onCand        func(webrtc.ICECandidateInit)

	offerErr  error
	answerErr error
}

func (f *fakeNegotiator) AttachLocalMedia() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attached++
	return nil
}

func (f *fakeNegotiator) CreateOffer() (webrtc.SessionDescription, error) {
	if f.offerErr != nil {
		return webrtc.SessionDescription{}, f.offerErr
	}
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0 offer"}, nil
}

func (f *fakeNegotiator) CreateAnswer(offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	if f.answerErr != nil {
		return webrtc.SessionDescription{}, f.answerErr
	}
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0 answer"}, nil
}

func (f *fakeNegotiator) SetRemoteAnswer(answer webrtc.SessionDescription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remoteAnswers++
	return nil
}

func (f *fakeNegotiator) AddRemoteCandidate(candidate webrtc.ICECandidateInit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remoteCands++
	return nil
}

func (f *fakeNegotiator) OnICECandidate(fn func(webrtc.ICECandidateInit)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onCand = fn
}

func (f *fakeNegotiator) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeNegotiator) emitCandidate() {
	f.mu.Lock()
	fn := f.onCand
	f.mu.Unlock()
	if fn != nil {
		fn(webrtc.ICECandidateInit{Candidate: "candidate:0"})
	}
}

func (f *fakeNegotiator) closedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fixture struct {
	signaler   *fakeSignaler
	negotiator *fakeNegotiator
	ended      chan EndReason
}

func newFixture() *fixture {
	return &fixture{
		signaler:   &fakeSignaler{},
		negotiator: &fakeNegotiator{},
		ended:      make(chan EndReason, 1),
	}
}

func (f *fixture) options(timeout time.Duration) Options {
	return Options{
		InviteTimeout: timeout,
		OnEnd:         func(reason EndReason) { f.ended <- reason },
	}
}

func (f *fixture) waitEnd(t *testing.T) EndReason {
	t.Helper()
	select {
	case reason := <-f.ended:
		return reason
	case <-time.After(2 * time.Second):
		t.Fatalf("session never ended")
		return ""
	}
}

func TestCallerHappyPath(t *testing.T) {
	f := newFixture()
	s := NewOutgoing("session-1", "alice@example.com", "Alice", "bob@example.com", f.signaler, f.negotiator, f.options(time.Minute))

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := s.State(); got != StateInviting {
		t.Fatalf("got state %q, want %q", got, StateInviting)
	}
	if got := f.signaler.count(&f.signaler.invites); got != 1 {
		t.Fatalf("got %d invites, want 1", got)
	}

	s.HandleAccepted()
	if got := f.signaler.count(&f.signaler.offers); got != 1 {
		t.Fatalf("got %d offers, want 1", got)
	}
	if got := s.State(); got != StateNegotiating {
		t.Fatalf("got state %q, want %q", got, StateNegotiating)
	}

	s.HandleAnswer(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0"})
	if got := s.State(); got != StateActive {
		t.Fatalf("got state %q, want %q", got, StateActive)
	}

	s.HangUp()
	if got := f.waitEnd(t); got != EndHungUp {
		t.Fatalf("got reason %q, want %q", got, EndHungUp)
	}
	if got := f.signaler.count(&f.signaler.hangUps); got != 1 {
		t.Fatalf("got %d hang-ups, want 1", got)
	}
	if got := f.negotiator.closedCount(); got != 1 {
		t.Fatalf("media released %d times, want 1", got)
	}
}

func TestCalleeHappyPath(t *testing.T) {
	f := newFixture()
	s := NewIncoming("session-1", "bob@example.com", "alice@example.com", "Alice", f.signaler, f.negotiator, f.options(time.Minute))

	if got := s.State(); got != StateRinging {
		t.Fatalf("got state %q, want %q", got, StateRinging)
	}
	if got := s.PeerName(); got != "Alice" {
		t.Fatalf("got peer name %q, want Alice", got)
	}

	if err := s.Accept(); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if got := f.signaler.count(&f.signaler.accepts); got != 1 {
		t.Fatalf("got %d accepts, want 1", got)
	}

	s.HandleOffer(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0"})
	if got := f.signaler.count(&f.signaler.answers); got != 1 {
		t.Fatalf("got %d answers, want 1", got)
	}
	if got := s.State(); got != StateActive {
		t.Fatalf("got state %q, want %q", got, StateActive)
	}

	s.HandlePeerHangUp()
	if got := f.waitEnd(t); got != EndPeerHungUp {
		t.Fatalf("got reason %q, want %q", got, EndPeerHungUp)
	}
	if got := f.negotiator.closedCount(); got != 1 {
		t.Fatalf("media released %d times, want 1", got)
	}
}

func TestCalleeReject(t *testing.T) {
	f := newFixture()
	s := NewIncoming("session-1", "bob@example.com", "alice@example.com", "Alice", f.signaler, f.negotiator, f.options(time.Minute))

	s.Reject()

	if got := f.waitEnd(t); got != EndRejected {
		t.Fatalf("got reason %q, want %q", got, EndRejected)
	}
	if got := f.signaler.count(&f.signaler.rejects); got != 1 {
		t.Fatalf("got %d rejects, want 1", got)
	}
	// Media was never attached, but the negotiator is still torn down.
	if got := f.negotiator.closedCount(); got != 1 {
		t.Fatalf("got closed=%d, want 1", got)
	}
}

func TestCallerRejectedByPeer(t *testing.T) {
	f := newFixture()
	s := NewOutgoing("session-1", "alice@example.com", "Alice", "bob@example.com", f.signaler, f.negotiator, f.options(time.Minute))
	_ = s.Start()

	s.HandleRejected()

	if got := f.waitEnd(t); got != EndRejected {
		t.Fatalf("got reason %q, want %q", got, EndRejected)
	}
}

func TestCallerTimeoutSendsOneMissCall(t *testing.T) {
	f := newFixture()
	s := NewOutgoing("session-1", "alice@example.com", "Alice", "bob@example.com", f.signaler, f.negotiator, f.options(20*time.Millisecond))
	_ = s.Start()

	if got := f.waitEnd(t); got != EndTimedOut {
		t.Fatalf("got reason %q, want %q", got, EndTimedOut)
	}
	if got := f.signaler.count(&f.signaler.missCalls); got != 1 {
		t.Fatalf("got %d miss-calls, want exactly 1", got)
	}

	// A late acceptance must change nothing.
	s.HandleAccepted()
	if got := s.State(); got != StateEnded {
		t.Fatalf("got state %q, want %q", got, StateEnded)
	}
	if got := f.signaler.count(&f.signaler.offers); got != 0 {
		t.Fatalf("got %d offers after timeout, want 0", got)
	}
}

func TestAcceptanceRacingTimeoutStaysTimedOut(t *testing.T) {
	f := newFixture()
	var s *Session
	// The callee's acceptance arrives in the window where the expired timer
	// is sending the miss-call. The timeout must win: no offer, no
	// resurrected session.
	f.signaler.onMissCall = func() { s.HandleAccepted() }
	s = NewOutgoing("session-1", "alice@example.com", "Alice", "bob@example.com", f.signaler, f.negotiator, f.options(20*time.Millisecond))
	_ = s.Start()

	if got := f.waitEnd(t); got != EndTimedOut {
		t.Fatalf("got reason %q, want %q", got, EndTimedOut)
	}
	if got := s.State(); got != StateEnded {
		t.Fatalf("got state %q, want %q", got, StateEnded)
	}
	if got := f.signaler.count(&f.signaler.offers); got != 0 {
		t.Fatalf("got %d offers after timeout, want 0", got)
	}
	if got := f.signaler.count(&f.signaler.missCalls); got != 1 {
		t.Fatalf("got %d miss-calls, want exactly 1", got)
	}
}

func TestCalleeTimeoutSendsNoMissCall(t *testing.T) {
	f := newFixture()
	s := NewIncoming("session-1", "bob@example.com", "alice@example.com", "Alice", f.signaler, f.negotiator, f.options(20*time.Millisecond))

	if got := f.waitEnd(t); got != EndTimedOut {
		t.Fatalf("got reason %q, want %q", got, EndTimedOut)
	}
	if got := f.signaler.count(&f.signaler.missCalls); got != 0 {
		t.Fatalf("got %d miss-calls, want 0", got)
	}
	_ = s
}

func TestUnavailableBeforeStartReturns(t *testing.T) {
	f := newFixture()
	var s *Session
	// The server answers unavailable while the invite is still being sent.
	f.signaler.onInvite = func() { s.HandleUnavailable() }
	s = NewOutgoing("session-1", "alice@example.com", "Alice", "bob@example.com", f.signaler, f.negotiator, f.options(20*time.Millisecond))

	_ = s.Start()

	if got := f.waitEnd(t); got != EndUnavailable {
		t.Fatalf("got reason %q, want %q", got, EndUnavailable)
	}

	// No deadline was armed, so no miss-call can ever fire.
	time.Sleep(60 * time.Millisecond)
	if got := f.signaler.count(&f.signaler.missCalls); got != 0 {
		t.Fatalf("got %d miss-calls, want 0", got)
	}
}

func TestMissedCallEndsRingingSession(t *testing.T) {
	f := newFixture()
	s := NewIncoming("session-1", "bob@example.com", "alice@example.com", "Alice", f.signaler, f.negotiator, f.options(time.Minute))

	s.HandleMissedCall()

	if got := f.waitEnd(t); got != EndTimedOut {
		t.Fatalf("got reason %q, want %q", got, EndTimedOut)
	}
}

func TestPeerRefreshEndsActiveSession(t *testing.T) {
	f := newFixture()
	s := NewOutgoing("session-1", "alice@example.com", "Alice", "bob@example.com", f.signaler, f.negotiator, f.options(time.Minute))
	_ = s.Start()
	s.HandleAccepted()
	s.HandleAnswer(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0"})

	s.HandlePeerRefresh()

	if got := f.waitEnd(t); got != EndPeerLost {
		t.Fatalf("got reason %q, want %q", got, EndPeerLost)
	}
}

func TestMediaReleasedOnceAcrossDuplicateEnds(t *testing.T) {
	f := newFixture()
	s := NewOutgoing("session-1", "alice@example.com", "Alice", "bob@example.com", f.signaler, f.negotiator, f.options(time.Minute))
	_ = s.Start()

	s.HangUp()
	s.HangUp()
	s.HandlePeerHangUp()
	s.HandleRejected()

	if got := f.waitEnd(t); got != EndHungUp {
		t.Fatalf("got reason %q, want %q", got, EndHungUp)
	}
	if got := f.negotiator.closedCount(); got != 1 {
		t.Fatalf("media released %d times, want 1", got)
	}
	if got := f.signaler.count(&f.signaler.hangUps); got != 1 {
		t.Fatalf("got %d hang-ups, want 1", got)
	}
}

func TestRemoteCandidatesOutsideWindowDropped(t *testing.T) {
	f := newFixture()
	s := NewOutgoing("session-1", "alice@example.com", "Alice", "bob@example.com", f.signaler, f.negotiator, f.options(time.Minute))
	_ = s.Start()

	// Still inviting: candidates have nowhere to go yet.
	s.HandleCandidate(webrtc.ICECandidateInit{Candidate: "candidate:0"})
	f.negotiator.mu.Lock()
	got := f.negotiator.remoteCands
	f.negotiator.mu.Unlock()
	if got != 0 {
		t.Fatalf("got %d remote candidates, want 0", got)
	}

	s.HandleAccepted()
	s.HandleCandidate(webrtc.ICECandidateInit{Candidate: "candidate:0"})
	f.negotiator.mu.Lock()
	got = f.negotiator.remoteCands
	f.negotiator.mu.Unlock()
	if got != 1 {
		t.Fatalf("got %d remote candidates, want 1", got)
	}
}

func TestLocalCandidatesForwardedOnlyWhileNegotiating(t *testing.T) {
	f := newFixture()
	s := NewOutgoing("session-1", "alice@example.com", "Alice", "bob@example.com", f.signaler, f.negotiator, f.options(time.Minute))
	_ = s.Start()

	f.negotiator.emitCandidate()
	if got := f.signaler.count(&f.signaler.candidates); got != 0 {
		t.Fatalf("got %d candidates while inviting, want 0", got)
	}

	s.HandleAccepted()
	f.negotiator.emitCandidate()
	if got := f.signaler.count(&f.signaler.candidates); got != 1 {
		t.Fatalf("got %d candidates, want 1", got)
	}
}

func TestOfferFailureEndsSession(t *testing.T) {
	f := newFixture()
	f.negotiator.offerErr = webrtc.ErrConnectionClosed
	s := NewOutgoing("session-1", "alice@example.com", "Alice", "bob@example.com", f.signaler, f.negotiator, f.options(time.Minute))
	_ = s.Start()

	s.HandleAccepted()

	if got := f.waitEnd(t); got != EndFailed {
		t.Fatalf("got reason %q, want %q", got, EndFailed)
	}
	if got := f.signaler.count(&f.signaler.offers); got != 0 {
		t.Fatalf("got %d offers, want 0", got)
	}
}

func TestAbandonNotifiesPeer(t *testing.T) {
	f := newFixture()
	s := NewOutgoing("session-1", "alice@example.com", "Alice", "bob@example.com", f.signaler, f.negotiator, f.options(time.Minute))
	_ = s.Start()

	s.Abandon()

	if got := f.waitEnd(t); got != EndCancelled {
		t.Fatalf("got reason %q, want %q", got, EndCancelled)
	}
	if got := f.signaler.count(&f.signaler.refreshes); got != 1 {
		t.Fatalf("got %d peer-refreshes, want 1", got)
	}
}

func TestRecoveryRecordLifecycle(t *testing.T) {
	f := newFixture()
	store := NewRecoveryStore(t.TempDir() + "/pending-session.json")
	opts := f.options(time.Minute)
	opts.Recovery = store

	s := NewOutgoing("session-1", "alice@example.com", "Alice", "bob@example.com", f.signaler, f.negotiator, opts)
	_ = s.Start()

	rec, ok := store.Load()
	if !ok {
		t.Fatalf("no recovery record after leaving idle")
	}
	if rec.SessionID != "session-1" || rec.PeerIdentity != "bob@example.com" {
		t.Fatalf("got record %+v", rec)
	}

	s.HangUp()
	_ = f.waitEnd(t)

	if _, ok := store.Load(); ok {
		t.Fatalf("recovery record survived a clean end")
	}
}
