package signalling

import (
	"log/slog"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/Kartikjoshi26/WeCall/internal/api"
	"github.com/Kartikjoshi26/WeCall/internal/config"
	"github.com/Kartikjoshi26/WeCall/internal/domain"
	"github.com/Kartikjoshi26/WeCall/internal/metrics"
	"github.com/Kartikjoshi26/WeCall/internal/service"
	"github.com/Kartikjoshi26/WeCall/internal/sockets"
)

type ClientHandler struct {
	config   *config.Manager
	sessions *SessionHandler
	auth     *AuthHandler
	presence *service.PresenceService
	relay    *service.RelayService
}

func NewClientHandler(
	manager *config.Manager,
	sessions *SessionHandler,
	authHandler *AuthHandler,
	presence *service.PresenceService,
	relay *service.RelayService,
) *ClientHandler {
	return &ClientHandler{
		config:   manager,
		sessions: sessions,
		auth:     authHandler,
		presence: presence,
		relay:    relay,
	}
}

// HandleSocket runs the whole lifetime of one client connection: handle
// assignment, identity binding, the read loop, and teardown. It blocks until
// the connection closes.
func (h *ClientHandler) HandleSocket(c *websocket.Conn) {
	session := h.sessions.Register(c)
	defer session.Cleanup()

	identity, bound := h.auth.IdentityFor(c)
	conn := domain.ConnectionID(session.SocketID)

	// Read the config per connection so an edited config file reaches every
	// connection opened after the reload.
	cfg := h.config.Get()

	boundMsg := api.IdentityBoundMessage{
		ConnectionID: string(session.SocketID),
		PcConfig:     cfg.WebRTC.PeerConnectionConfig,
		PingInterval: cfg.Server.PingInterval,
	}
	if bound {
		boundMsg.Identity = string(identity)
	}
	if err := session.Socket.WriteJSON(api.Message{
		Event:         api.EventIdentityBound,
		IdentityBound: &boundMsg,
	}); err != nil {
		slog.Error("failed to send identity-bound", "connectionID", session.SocketID)
		return
	}

	if bound {
		_ = h.presence.Bind(identity, conn)
	} else {
		slog.Warn("connection stays unbound, relay messages will be dropped", "connectionID", session.SocketID)
	}

	loop := NewConnectionLoop(session.Socket, session.SocketID, time.Duration(cfg.Server.PingInterval)*time.Second)
	loop.Start()
	defer loop.Stop()

	h.readMessages(session.Socket, conn, identity, bound)
	slog.Debug("client disconnected", "connectionID", session.SocketID)
}

// readMessages drains the connection until it closes. The frame is reset on
// every iteration: decoding reuses nothing from the previous frame, so a
// payload field absent from one message can never inherit the value a
// previous message carried.
func (h *ClientHandler) readMessages(socket sockets.Socket, conn domain.ConnectionID, from domain.Identity, bound bool) {
	for {
		var message api.Message
		if err := socket.ReadJSON(&message); err != nil {
			return
		}
		h.processMessage(conn, from, bound, message)
	}
}

// processMessage dispatches one inbound frame. Every relay operation
// requires a bound identity and fails closed: frames from unbound
// connections are dropped, not queued.
func (h *ClientHandler) processMessage(conn domain.ConnectionID, from domain.Identity, bound bool, m api.Message) {
	if m.Event == api.EventPong {
		return
	}

	if !bound {
		metrics.DroppedMessagesTotal.WithLabelValues(metrics.DropUnboundSender).Inc()
		return
	}

	switch m.Event {
	case api.EventCallInvite:
		if m.Invite == nil {
			h.dropInvalid(m.Event)
			return
		}
		h.relay.HandleInvite(conn, from, m.Invite)

	case api.EventAcceptCall:
		if m.Accept == nil {
			h.dropInvalid(m.Event)
			return
		}
		h.relay.HandleAccept(conn, from, m.Accept)

	case api.EventRejectCall:
		if m.Reject == nil {
			h.dropInvalid(m.Event)
			return
		}
		h.relay.HandleReject(from, m.Reject)

	case api.EventMissCall:
		if m.MissCall == nil {
			h.dropInvalid(m.Event)
			return
		}
		h.relay.HandleMissCall(m.MissCall)

	case api.EventOffer:
		if m.Offer == nil {
			h.dropInvalid(m.Event)
			return
		}
		h.relay.HandleOffer(from, m.Offer)

	case api.EventAnswer:
		if m.Answer == nil {
			h.dropInvalid(m.Event)
			return
		}
		h.relay.HandleAnswer(from, m.Answer)

	case api.EventIceCandidate:
		if m.Ice == nil {
			h.dropInvalid(m.Event)
			return
		}
		h.relay.HandleIce(from, m.Ice)

	case api.EventHangUp:
		if m.HangUp == nil {
			h.dropInvalid(m.Event)
			return
		}
		h.relay.HandleHangUp(conn, from, m.HangUp)

	case api.EventPeerRefresh:
		if m.PeerRefresh == nil {
			h.dropInvalid(m.Event)
			return
		}
		h.relay.HandlePeerRefresh(conn, from, m.PeerRefresh)

	default:
		slog.Warn("unknown event", "event", m.Event, "connectionID", conn)
		h.dropInvalid(m.Event)
	}
}

func (h *ClientHandler) dropInvalid(event api.Event) {
	slog.Debug("dropping malformed frame", "event", event)
	metrics.DroppedMessagesTotal.WithLabelValues(metrics.DropInvalid).Inc()
}
