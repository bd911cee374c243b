// Command wecall is a terminal dashboard for the signalling server: it shows
// who is online, places and answers calls, and drives the negotiation for
// one call at a time.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/lmittmann/tint"

	"github.com/Kartikjoshi26/WeCall/internal/api"
	"github.com/Kartikjoshi26/WeCall/internal/call"
	"github.com/Kartikjoshi26/WeCall/internal/client"
	"github.com/Kartikjoshi26/WeCall/internal/webrtcpeer"
)

type dashboard struct {
	mu      sync.Mutex
	client  *client.Client
	session *call.Session

	name     string
	timeout  time.Duration
	recovery *call.RecoveryStore
}

func main() {
	serverURL := flag.String("server", "http://localhost:3000", "signalling server url")
	token := flag.String("token", "", "identity token")
	name := flag.String("name", "", "display name shown to the peer")
	callTarget := flag.String("call", "", "identity to call right after connecting")
	timeout := flag.Duration("timeout", call.DefaultInviteTimeout, "invite answer window")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	})))

	if *token == "" {
		slog.Error("a token is required, mint one with POST /api/admin/token")
		os.Exit(1)
	}

	d := &dashboard{
		name:     *name,
		timeout:  *timeout,
		recovery: call.NewRecoveryStore(call.DefaultRecoveryPath()),
	}

	c, err := client.Connect(client.Config{ServerURL: *serverURL, Token: *token}, client.Events{
		OnPresence:     d.onPresence,
		OnIncomingCall: d.onIncomingCall,
		OnUnavailable:  d.onUnavailable,
		OnAccepted:     d.onAccepted,
		OnRejected:     d.onRejected,
		OnMissedCall:   d.onMissedCall,
		OnOffer:        d.onOffer,
		OnAnswer:       d.onAnswer,
		OnCandidate:    d.onCandidate,
		OnHangUp:       d.onHangUp,
		OnPeerRefresh:  d.onPeerRefresh,
		OnDisconnect: func(err error) {
			slog.Info("disconnected from server")
		},
	})
	if err != nil {
		slog.Error("cannot connect", "error", err)
		os.Exit(1)
	}
	d.client = c
	if d.name == "" {
		d.name = c.Identity()
	}
	slog.Info("connected", "identity", c.Identity())

	// A leftover record means the last run died mid-call. Tell the stale
	// peer so they stop waiting; the call itself is gone for good.
	d.recovery.Resolve(c)

	if *callTarget != "" {
		d.placeCall(*callTarget)
	}

	go d.commandLoop()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigs:
		d.mu.Lock()
		s := d.session
		d.mu.Unlock()
		if s != nil {
			s.Abandon()
		}
	case <-c.Done():
	}
	_ = c.Close()
}

func (d *dashboard) commandLoop() {
	fmt.Println("commands: call <identity> | accept | reject | hangup | quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		cmd, arg, _ := strings.Cut(strings.TrimSpace(scanner.Text()), " ")
		switch cmd {
		case "":
		case "call":
			if arg == "" {
				fmt.Println("usage: call <identity>")
				continue
			}
			d.placeCall(arg)
		case "accept":
			d.withSession(func(s *call.Session) { _ = s.Accept() })
		case "reject":
			d.withSession(func(s *call.Session) { s.Reject() })
		case "hangup":
			d.withSession(func(s *call.Session) { s.HangUp() })
		case "quit":
			d.withSession(func(s *call.Session) { s.Abandon() })
			_ = d.client.Close()
			return
		default:
			fmt.Printf("unknown command %q\n", cmd)
		}
	}
}

func (d *dashboard) placeCall(target string) {
	d.mu.Lock()
	if d.session != nil && d.session.State() != call.StateEnded {
		d.mu.Unlock()
		fmt.Println("already in a call, hang up first")
		return
	}
	d.mu.Unlock()

	peer, err := webrtcpeer.New(d.client.PeerConfig())
	if err != nil {
		slog.Error("cannot create peer connection", "error", err)
		return
	}

	s := call.NewOutgoing(uuid.NewString(), d.client.Identity(), d.name, target, d.client, peer, call.Options{
		InviteTimeout: d.timeout,
		Recovery:      d.recovery,
		OnEnd:         d.onSessionEnd,
	})
	d.setSession(s)
	fmt.Printf("calling %s...\n", target)
	if err := s.Start(); err != nil {
		slog.Error("call failed to start", "error", err)
	}
}

func (d *dashboard) onIncomingCall(invite api.InviteMessage) {
	d.mu.Lock()
	busy := d.session != nil && d.session.State() != call.StateEnded
	d.mu.Unlock()
	if busy {
		slog.Info("ignoring incoming call while busy", "from", invite.From)
		return
	}

	peer, err := webrtcpeer.New(d.client.PeerConfig())
	if err != nil {
		slog.Error("cannot create peer connection", "error", err)
		return
	}

	s := call.NewIncoming(invite.SessionID, d.client.Identity(), invite.From, invite.CallerName, d.client, peer, call.Options{
		InviteTimeout: d.timeout,
		Recovery:      d.recovery,
		OnEnd:         d.onSessionEnd,
	})
	d.setSession(s)
	fmt.Printf("incoming call from %s (accept/reject)\n", s.PeerName())
}

func (d *dashboard) onSessionEnd(reason call.EndReason) {
	fmt.Printf("call ended: %s\n", reason)
}

func (d *dashboard) setSession(s *call.Session) {
	d.mu.Lock()
	d.session = s
	d.mu.Unlock()
}

// withSession runs fn against the current session, if any.
func (d *dashboard) withSession(fn func(*call.Session)) {
	d.mu.Lock()
	s := d.session
	d.mu.Unlock()
	if s == nil {
		fmt.Println("no active call")
		return
	}
	fn(s)
}

// forSession runs fn only when the event belongs to the current session.
// Events for finished or foreign sessions are dropped.
func (d *dashboard) forSession(sessionID string, fn func(*call.Session)) {
	d.mu.Lock()
	s := d.session
	d.mu.Unlock()
	if s == nil || (sessionID != "" && s.ID() != sessionID) {
		return
	}
	fn(s)
}

func (d *dashboard) onPresence(identities []string) {
	others := make([]string, 0, len(identities))
	for _, identity := range identities {
		if identity != d.client.Identity() {
			others = append(others, identity)
		}
	}
	slog.Info("online", "users", strings.Join(others, ", "))
}

func (d *dashboard) onUnavailable(msg api.UnavailableMessage) {
	fmt.Printf("%s is unavailable\n", msg.To)
	d.forSession("", func(s *call.Session) { s.HandleUnavailable() })
}

func (d *dashboard) onAccepted(msg api.AcceptMessage) {
	d.forSession(msg.SessionID, func(s *call.Session) { s.HandleAccepted() })
}

func (d *dashboard) onRejected(msg api.RejectMessage) {
	d.forSession(msg.SessionID, func(s *call.Session) { s.HandleRejected() })
}

func (d *dashboard) onMissedCall(api.MissCallMessage) {
	d.forSession("", func(s *call.Session) { s.HandleMissedCall() })
}

func (d *dashboard) onOffer(msg api.OfferMessage) {
	d.forSession(msg.SessionID, func(s *call.Session) { s.HandleOffer(msg.Offer) })
}

func (d *dashboard) onAnswer(msg api.AnswerMessage) {
	d.forSession(msg.SessionID, func(s *call.Session) { s.HandleAnswer(msg.Answer) })
}

func (d *dashboard) onCandidate(msg api.IceMessage) {
	d.forSession(msg.SessionID, func(s *call.Session) { s.HandleCandidate(msg.Candidate) })
}

func (d *dashboard) onHangUp(msg api.HangUpMessage) {
	d.forSession(msg.SessionID, func(s *call.Session) { s.HandlePeerHangUp() })
}

func (d *dashboard) onPeerRefresh(msg api.PeerRefreshMessage) {
	d.forSession(msg.SessionID, func(s *call.Session) { s.HandlePeerRefresh() })
}
