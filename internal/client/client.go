// Package client is the dashboard-side transport: one authenticated
// websocket to the signalling server, typed send methods for every outbound
// event, and a dispatch loop for inbound ones.
package client

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/pion/webrtc/v4"

	"github.com/Kartikjoshi26/WeCall/internal/api"
)

type Config struct {
	// ServerURL is the signalling server base, http(s) or ws(s) scheme.
	ServerURL string
	// Token is the signed identity token sent with the handshake.
	Token string
}

// Events holds the application callbacks for inbound server events. Nil
// callbacks drop their event. All callbacks run on the read loop goroutine.
type Events struct {
	OnPresence     func(identities []string)
	OnIncomingCall func(invite api.InviteMessage)
	OnUnavailable  func(msg api.UnavailableMessage)
	OnAccepted     func(msg api.AcceptMessage)
	OnRejected     func(msg api.RejectMessage)
	OnMissedCall   func(msg api.MissCallMessage)
	OnOffer        func(msg api.OfferMessage)
	OnAnswer       func(msg api.AnswerMessage)
	OnCandidate    func(msg api.IceMessage)
	OnHangUp       func(msg api.HangUpMessage)
	OnPeerRefresh  func(msg api.PeerRefreshMessage)
	// OnDisconnect fires once when the read loop exits.
	OnDisconnect func(err error)
}

// Client is one live connection. Safe for concurrent sends.
type Client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	connectionID string
	identity     string
	pcConfig     api.PeerConnectionConfig

	events Events

	closeOnce sync.Once
	done      chan struct{}
}

// Connect dials the server and waits for the identity-bound handshake. It
// fails when the server leaves the connection unbound: an unbound dashboard
// cannot send or receive anything useful.
func Connect(cfg Config, events Events) (*Client, error) {
	wsURL, err := websocketURL(cfg.ServerURL, cfg.Token)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot dial signalling server: %w", err)
	}

	var hello api.Message
	if err := conn.ReadJSON(&hello); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("handshake read failed: %w", err)
	}
	if hello.Event != api.EventIdentityBound || hello.IdentityBound == nil {
		_ = conn.Close()
		return nil, fmt.Errorf("unexpected handshake event %q", hello.Event)
	}
	if hello.IdentityBound.Identity == "" {
		_ = conn.Close()
		return nil, errors.New("server did not bind an identity, check the token")
	}

	c := &Client{
		conn:         conn,
		connectionID: hello.IdentityBound.ConnectionID,
		identity:     hello.IdentityBound.Identity,
		pcConfig:     hello.IdentityBound.PcConfig,
		events:       events,
		done:         make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) Identity() string                     { return c.identity }
func (c *Client) ConnectionID() string                 { return c.connectionID }
func (c *Client) PeerConfig() api.PeerConnectionConfig { return c.pcConfig }

// Done closes when the connection is gone.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}

func (c *Client) send(msg api.Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(msg)
}

// Invite and the methods below make Client the session's Signaler.

func (c *Client) Invite(to, callerName, sessionID string) error {
	return c.send(api.Message{
		Event: api.EventCallInvite,
		Invite: &api.InviteMessage{
			From:       c.identity,
			To:         to,
			CallerName: callerName,
			SessionID:  sessionID,
		},
	})
}

func (c *Client) Accept(callerIdentity, sessionID string) error {
	return c.send(api.Message{
		Event: api.EventAcceptCall,
		Accept: &api.AcceptMessage{
			CallerIdentity: callerIdentity,
			SessionID:      sessionID,
		},
	})
}

func (c *Client) Reject(callerIdentity, sessionID string) error {
	return c.send(api.Message{
		Event: api.EventRejectCall,
		Reject: &api.RejectMessage{
			CallerIdentity: callerIdentity,
			SessionID:      sessionID,
		},
	})
}

func (c *Client) MissCall(targetIdentity string) error {
	return c.send(api.Message{
		Event:    api.EventMissCall,
		MissCall: &api.MissCallMessage{TargetIdentity: targetIdentity},
	})
}

func (c *Client) SendOffer(targetIdentity, sessionID string, offer webrtc.SessionDescription) error {
	return c.send(api.Message{
		Event: api.EventOffer,
		Offer: &api.OfferMessage{
			TargetIdentity: targetIdentity,
			SessionID:      sessionID,
			Offer:          offer,
		},
	})
}

func (c *Client) SendAnswer(targetIdentity, sessionID string, answer webrtc.SessionDescription) error {
	return c.send(api.Message{
		Event: api.EventAnswer,
		Answer: &api.AnswerMessage{
			TargetIdentity: targetIdentity,
			SessionID:      sessionID,
			Answer:         answer,
		},
	})
}

func (c *Client) SendCandidate(targetIdentity, sessionID string, candidate webrtc.ICECandidateInit) error {
	return c.send(api.Message{
		Event: api.EventIceCandidate,
		Ice: &api.IceMessage{
			TargetIdentity: targetIdentity,
			SessionID:      sessionID,
			Candidate:      candidate,
		},
	})
}

func (c *Client) HangUp(sessionID string) error {
	return c.send(api.Message{
		Event:  api.EventHangUp,
		HangUp: &api.HangUpMessage{SessionID: sessionID},
	})
}

func (c *Client) PeerRefresh(sessionID, targetIdentity string) error {
	return c.send(api.Message{
		Event: api.EventPeerRefresh,
		PeerRefresh: &api.PeerRefreshMessage{
			SessionID:      sessionID,
			TargetIdentity: targetIdentity,
		},
	})
}

func (c *Client) readLoop() {
	defer close(c.done)

	var readErr error
	for {
		var msg api.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			readErr = err
			break
		}
		c.dispatch(msg)
	}
	if c.events.OnDisconnect != nil {
		c.events.OnDisconnect(readErr)
	}
}

func (c *Client) dispatch(msg api.Message) {
	switch msg.Event {
	case api.EventPing:
		if err := c.send(api.Message{
			Event: api.EventPong,
			Ping:  &api.PingMessage{Timestamp: time.Now().Unix()},
		}); err != nil {
			slog.Debug("pong send failed", "error", err)
		}

	case api.EventPresenceSnapshot:
		if msg.Presence != nil && c.events.OnPresence != nil {
			c.events.OnPresence(msg.Presence.Identities)
		}

	case api.EventIncomingCall:
		if msg.Invite != nil && c.events.OnIncomingCall != nil {
			c.events.OnIncomingCall(*msg.Invite)
		}

	case api.EventUserUnavailable:
		if msg.Unavailable != nil && c.events.OnUnavailable != nil {
			c.events.OnUnavailable(*msg.Unavailable)
		}

	case api.EventAcceptCall:
		if msg.Accept != nil && c.events.OnAccepted != nil {
			c.events.OnAccepted(*msg.Accept)
		}

	case api.EventRejectCall:
		if msg.Reject != nil && c.events.OnRejected != nil {
			c.events.OnRejected(*msg.Reject)
		}

	case api.EventMissCall:
		if msg.MissCall != nil && c.events.OnMissedCall != nil {
			c.events.OnMissedCall(*msg.MissCall)
		}

	case api.EventOfferReceived:
		if msg.Offer != nil && c.events.OnOffer != nil {
			c.events.OnOffer(*msg.Offer)
		}

	case api.EventAnswerReceived:
		if msg.Answer != nil && c.events.OnAnswer != nil {
			c.events.OnAnswer(*msg.Answer)
		}

	case api.EventIceCandidate:
		if msg.Ice != nil && c.events.OnCandidate != nil {
			c.events.OnCandidate(*msg.Ice)
		}

	case api.EventUserHungUp:
		if msg.HangUp != nil && c.events.OnHangUp != nil {
			c.events.OnHangUp(*msg.HangUp)
		}

	case api.EventPeerRefresh:
		if msg.PeerRefresh != nil && c.events.OnPeerRefresh != nil {
			c.events.OnPeerRefresh(*msg.PeerRefresh)
		}

	default:
		slog.Debug("ignoring unknown event", "event", msg.Event)
	}
}

func websocketURL(serverURL, token string) (string, error) {
	base := strings.TrimSuffix(serverURL, "/")
	if strings.HasPrefix(base, "http") {
		base = "ws" + base[4:]
	}
	u, err := url.Parse(base + "/ws")
	if err != nil {
		return "", fmt.Errorf("bad server url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("bad server url scheme %q", u.Scheme)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
