package signalling

import (
	"log/slog"

	"github.com/gofiber/contrib/websocket"

	"github.com/Kartikjoshi26/WeCall/internal/auth"
	"github.com/Kartikjoshi26/WeCall/internal/domain"
	"github.com/Kartikjoshi26/WeCall/internal/metrics"
)

type AuthHandler struct {
	verifier *auth.Verifier
}

func NewAuthHandler(verifier *auth.Verifier) *AuthHandler {
	return &AuthHandler{verifier: verifier}
}

// IdentityFor extracts and verifies the identity token of an upgraded
// connection. The token travels as the `token` query parameter or, for
// browser clients, the `uid` cookie set at login. A connection that fails
// here stays unbound: it keeps its socket but cannot appear in the registry
// or send relay messages.
func (h *AuthHandler) IdentityFor(c *websocket.Conn) (domain.Identity, bool) {
	token := c.Query("token")
	if token == "" {
		token = c.Cookies("uid")
	}
	if token == "" {
		return "", false
	}

	identity, err := h.verifier.VerifyIdentity(token)
	if err != nil {
		slog.Warn("identity token rejected", "error", err)
		metrics.AuthFailuresTotal.Inc()
		return "", false
	}
	return domain.Identity(identity), true
}
