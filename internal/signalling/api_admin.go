package signalling

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
)

const adminTokenTTL = 7 * 24 * time.Hour

// setupAdminApi mounts the operator endpoints. The token route stands in
// for the account service during development; production deployments mint
// tokens there with the same secret.
func (s *Server) setupAdminApi() {
	s.app.Route("/api/admin", func(router fiber.Router) {
		router.Use(basicauth.New(basicauth.Config{
			Realm: "Forbidden",
			Authorizer: func(user, pass string) bool {
				credential := s.config.Get().Security.AdminCredential
				return credential == nil ||
					user == "admin" && pass == *credential
			},
		}))

		router.Post("/token", func(c *fiber.Ctx) error {
			var req tokenRequest
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).SendString("Bad Request")
			}
			if req.Identity == "" {
				return c.Status(fiber.StatusBadRequest).SendString("identity required")
			}

			token, err := s.verifier.Sign(req.Identity, adminTokenTTL)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).SendString("Failed to mint token")
			}
			return c.JSON(tokenResponse{Identity: req.Identity, Token: token})
		})

		router.Get("/presence", func(c *fiber.Ctx) error {
			identities := s.presence.Snapshot()
			names := make([]string, len(identities))
			for i, identity := range identities {
				names[i] = string(identity)
			}
			return c.JSON(presenceResponse{Identities: names})
		})
	})
}

type tokenRequest struct {
	Identity string `json:"identity"`
}

type tokenResponse struct {
	Identity string `json:"identity"`
	Token    string `json:"token"`
}

type presenceResponse struct {
	Identities []string `json:"identities"`
}
