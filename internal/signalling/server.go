package signalling

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Kartikjoshi26/WeCall/internal/api"
	"github.com/Kartikjoshi26/WeCall/internal/auth"
	"github.com/Kartikjoshi26/WeCall/internal/config"
	"github.com/Kartikjoshi26/WeCall/internal/domain"
	"github.com/Kartikjoshi26/WeCall/internal/metrics"
	"github.com/Kartikjoshi26/WeCall/internal/repository/memory"
	"github.com/Kartikjoshi26/WeCall/internal/service"
	"github.com/Kartikjoshi26/WeCall/internal/sockets"
)

// Server wires the signalling endpoint together: one websocket route where
// every client connects, the presence registry behind it, and the relay that
// forwards call negotiation between connections. The server never stores a
// call session and never touches media; it only routes tagged messages
// between live connections.
type Server struct {
	app    *fiber.App
	config *config.Manager

	pool          *sockets.SocketPool
	verifier      *auth.Verifier
	presence      *service.PresenceService
	relay         *service.RelayService
	authHandler   *AuthHandler
	sessions      *SessionHandler
	clientHandler *ClientHandler
}

// NewServer wires the signalling stack. The config manager, not a snapshot,
// is handed down: values consumed per connection or per request (ping
// interval, peer-connection config, admin credential) follow config reloads
// without a restart.
func NewServer(manager *config.Manager, app *fiber.App) *Server {
	pool := sockets.NewSocketPool()
	verifier := auth.NewVerifier(manager.Get().Security.JWTSecret)

	presenceRepo := memory.NewPresenceRepository()
	roomRepo := memory.NewRoomRepository()

	s := &Server{
		app:      app,
		config:   manager,
		pool:     pool,
		verifier: verifier,
	}

	s.presence = service.NewPresenceService(presenceRepo, s)
	s.relay = service.NewRelayService(presenceRepo, roomRepo, s)
	s.authHandler = NewAuthHandler(verifier)
	s.sessions = NewSessionHandler(pool, s.presence, s.relay)
	s.clientHandler = NewClientHandler(manager, s.sessions, s.authHandler, s.presence, s.relay)

	metrics.StartTime.Set(float64(time.Now().Unix()))

	return s
}

func (s *Server) SetupRoutes() {
	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	s.app.Get("/ws", websocket.New(s.clientHandler.HandleSocket))

	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	s.setupAdminApi()
}

func (s *Server) Close() {
	s.pool.Close()
}

// Send implements service.Sender over the socket pool.
func (s *Server) Send(conn domain.ConnectionID, msg api.Message) error {
	soc := s.pool.GetSocket(sockets.SocketID(conn))
	if soc == nil {
		return domain.ErrPeerOffline
	}
	return soc.WriteJSON(msg)
}

// BroadcastPresence implements service.PresenceBroadcaster. Every live
// connection receives the snapshot, including ones with no bound identity.
func (s *Server) BroadcastPresence(identities []domain.Identity) {
	names := make([]string, len(identities))
	for i, identity := range identities {
		names[i] = string(identity)
	}

	msg := api.Message{
		Event:    api.EventPresenceSnapshot,
		Presence: &api.PresenceMessage{Identities: names},
	}
	s.pool.ForEach(func(id sockets.SocketID, soc sockets.Socket) {
		_ = soc.WriteJSON(msg)
	})
}
