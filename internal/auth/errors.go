package auth

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/glamour-salon/salon_api/internal/identity"
	"github.com/glamour-salon/salon_api/internal/otp"
)

// challengeCodes gives each verification failure a stable machine code.
var challengeCodes = []struct {
	err  error
	code string
}{
	{otp.ErrNotFound, "user_not_found"},
	{otp.ErrNoChallengePending, "no_challenge"},
	{otp.ErrExpired, "otp_expired"},
	{otp.ErrAttemptsExceeded, "attempts_exceeded"},
	{otp.ErrCodeMismatch, "otp_mismatch"},
}

// errorResponse maps a flow error to an HTTP status and JSON body. Unknown
// errors become a generic 500 and are logged.
func errorResponse(logger *slog.Logger, c *fiber.Ctx, err error) (int, fiber.Map) {
	var (
		validation  *identity.ValidationError
		notVerified *identity.NotVerifiedError
		mismatch    *otp.MismatchError
		rateLimited *otp.RateLimitError
	)

	switch {
	case errors.As(err, &validation):
		body := fiber.Map{"message": validation.Message}
		if validation.Field != "" {
			body["field"] = validation.Field
		}
		return http.StatusBadRequest, body

	case errors.As(err, &notVerified):
		return http.StatusForbidden, fiber.Map{
			"message":              "Please verify your email before logging in",
			"userId":               notVerified.User.ID,
			"email":                notVerified.User.Email,
			"requiresVerification": true,
		}

	case errors.Is(err, identity.ErrInvalidCredentials):
		return http.StatusUnauthorized, fiber.Map{"message": "Invalid email or password"}

	case errors.Is(err, ErrTokenMalformed), errors.Is(err, ErrTokenSignature), errors.Is(err, ErrTokenExpired):
		return http.StatusUnauthorized, fiber.Map{"message": err.Error()}

	case errors.Is(err, ErrAlreadyVerified):
		return http.StatusBadRequest, fiber.Map{"message": "Account is already verified"}

	case errors.As(err, &rateLimited):
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(rateLimited.RetryAfter.Seconds()))))
		return http.StatusTooManyRequests, fiber.Map{"message": rateLimited.Error()}

	case errors.Is(err, otp.ErrDelivery):
		return http.StatusBadGateway, fiber.Map{"message": "Could not send verification code, please try again"}

	case errors.Is(err, ErrGoogleDisabled):
		return http.StatusNotImplemented, fiber.Map{"message": "Google sign-in is not available"}
	case errors.Is(err, ErrGoogleEmailUnverified):
		return http.StatusUnauthorized, fiber.Map{"message": "Google email not verified"}
	case errors.Is(err, ErrGoogleTokenInvalid):
		return http.StatusUnauthorized, fiber.Map{"message": "Invalid Google token"}
	case errors.Is(err, identity.ErrGoogleLinked):
		return http.StatusConflict, fiber.Map{"message": "This email is linked to a different Google account"}
	case errors.Is(err, identity.ErrEmailTaken):
		return http.StatusConflict, fiber.Map{"message": "Email already registered"}
	case errors.Is(err, ErrGoogleUnavailable):
		return http.StatusBadGateway, fiber.Map{"message": "Could not verify Google token, please try again"}
	}

	for _, cc := range challengeCodes {
		if !errors.Is(err, cc.err) {
			continue
		}
		body := fiber.Map{
			"message":        cc.err.Error(),
			"code":           cc.code,
			"requiresResend": otp.RequiresResend(err),
		}
		if errors.As(err, &mismatch) {
			body["attemptsLeft"] = mismatch.AttemptsLeft
		}
		return http.StatusBadRequest, body
	}

	requestID, _ := c.Locals("X-Request-ID").(string)
	logger.Error("auth request failed", "path", c.Path(), "request_id", requestID, "error", err)
	return http.StatusInternalServerError, fiber.Map{"message": "Internal server error"}
}
