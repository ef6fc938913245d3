package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/glamour-salon/salon_api/internal/auth"
)

// AuthMiddlewares are the per-route guards applied to the auth endpoints.
// Nil entries are skipped.
type AuthMiddlewares struct {
	Login       fiber.Handler
	VerifyOTP   fiber.Handler
	Idempotency fiber.Handler
	Session     fiber.Handler
}

// RegisterAuthRoutes wires authentication endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, mw AuthMiddlewares) {
	group := r.Group("/auth")
	group.Post("/signup", chain(mw.Idempotency, h.Signup)...)
	group.Post("/verify-otp", chain(mw.VerifyOTP, h.VerifyOTP)...)
	group.Post("/resend-otp", h.ResendOTP)
	group.Post("/login", chain(mw.Login, h.Login)...)
	group.Post("/google", h.Google)
	group.Post("/logout", h.Logout)
	group.Get("/config", h.Config)
	group.Get("/me", chain(mw.Session, h.Me)...)
}

func chain(handlers ...fiber.Handler) []fiber.Handler {
	out := make([]fiber.Handler, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}
