package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// OTPVerifyLimiter caps verification submissions per client IP and account,
// on top of the per-challenge attempt counter.
func OTPVerifyLimiter(max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			var req struct {
				UserID string `json:"userId"`
			}
			_ = c.BodyParser(&req)
			return "otp:" + c.IP() + ":" + strings.TrimSpace(req.UserID)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"message":     "Too many verification attempts. Please try again shortly.",
				"retry_after": int(window.Seconds()),
			})
		},
		LimiterMiddleware: limiter.SlidingWindow{},
	})
}
