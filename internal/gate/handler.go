package gate

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler evaluates client-supplied session snapshots for server-rendered
// navigation.
type Handler struct {
	rules Rules
}

// NewHandler constructs a gate HTTP handler.
func NewHandler(rules Rules) *Handler {
	return &Handler{rules: rules}
}

type decideRequest struct {
	Session Session `json:"session"`
	Path    string  `json:"path"`
}

type decideResponse struct {
	Decision
	State string `json:"state"`
}

// Decide handles POST /api/gate/decide.
func (h *Handler) Decide(c *fiber.Ctx) error {
	var req decideRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	if req.Path == "" {
		return fiber.NewError(http.StatusBadRequest, "path is required")
	}
	return c.Status(http.StatusOK).JSON(decideResponse{
		Decision: h.rules.Decide(req.Session, req.Path),
		State:    req.Session.State().String(),
	})
}
