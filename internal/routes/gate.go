package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/glamour-salon/salon_api/internal/gate"
)

// RegisterGateRoutes exposes the navigation decision endpoint.
func RegisterGateRoutes(r fiber.Router, h *gate.Handler) {
	r.Post("/gate/decide", h.Decide)
}
