package signalling

import (
	"log/slog"

	"github.com/gofiber/contrib/websocket"

	"github.com/Kartikjoshi26/WeCall/internal/domain"
	"github.com/Kartikjoshi26/WeCall/internal/metrics"
	"github.com/Kartikjoshi26/WeCall/internal/service"
	"github.com/Kartikjoshi26/WeCall/internal/sockets"
)

type Session struct {
	Socket   sockets.Socket
	SocketID sockets.SocketID
	Cleanup  func()
}

type SessionHandler struct {
	pool     *sockets.SocketPool
	presence *service.PresenceService
	relay    *service.RelayService
}

func NewSessionHandler(pool *sockets.SocketPool, presence *service.PresenceService, relay *service.RelayService) *SessionHandler {
	return &SessionHandler{
		pool:     pool,
		presence: presence,
		relay:    relay,
	}
}

// Register puts the connection into the pool under a fresh handle. Cleanup
// unbinds the identity (leaving a newer binding of the same identity
// intact), releases room membership, and closes the socket.
func (h *SessionHandler) Register(conn *websocket.Conn) *Session {
	socket := sockets.NewSocket(conn)
	socketID := h.pool.AddSocket(socket)

	metrics.ActiveConnections.Inc()
	metrics.ConnectionsTotal.Inc()

	cleanup := func() {
		metrics.ActiveConnections.Dec()
		metrics.DisconnectionsTotal.Inc()
		h.relay.HandleDisconnect(domain.ConnectionID(socketID))
		_ = h.presence.Unbind(domain.ConnectionID(socketID))
		h.pool.CloseSocket(socketID)
		slog.Info("connection closed", "connectionID", socketID)
	}

	slog.Info("connection opened", "connectionID", socketID, "remote", conn.NetConn().RemoteAddr())

	return &Session{
		Socket:   socket,
		SocketID: socketID,
		Cleanup:  cleanup,
	}
}
