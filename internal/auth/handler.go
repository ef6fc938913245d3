package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/glamour-salon/salon_api/internal/identity"
	"github.com/glamour-salon/salon_api/internal/logging"
)

// LocalsClaims is the fiber.Ctx locals key holding the verified *Claims.
const LocalsClaims = "auth_claims"

// ClaimsFrom returns the claims stored by the session middleware.
func ClaimsFrom(c *fiber.Ctx) (*Claims, bool) {
	claims, ok := c.Locals(LocalsClaims).(*Claims)
	return claims, ok && claims != nil
}

// Handler exposes the account and session endpoints.
type Handler struct {
	svc            *Service
	googleClientID string
	logger         *slog.Logger
}

// NewHandler constructs the auth HTTP handler.
func NewHandler(svc *Service, googleClientID string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{svc: svc, googleClientID: googleClientID, logger: logger}
}

// UserResponse is the public view of an account. Its shape matches what the
// client persists for the route guard.
type UserResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone,omitempty"`
	Role           string `json:"role"`
	IsVerified     bool   `json:"isVerified"`
	ProfilePicture string `json:"profilePicture,omitempty"`
	Provider       string `json:"provider"`
}

func toUserResponse(u identity.User) UserResponse {
	return UserResponse{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Phone:          u.Phone,
		Role:           u.Role,
		IsVerified:     u.IsVerified,
		ProfilePicture: u.ProfilePicture,
		Provider:       u.Provider,
	}
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

type verifyRequest struct {
	UserID string `json:"userId"`
	OTP    string `json:"otp"`
}

type resendRequest struct {
	UserID string `json:"userId"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleRequest struct {
	Token      string `json:"token"`
	Credential string `json:"credential"`
}

// Signup creates an account and sends its verification code.
func (h *Handler) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, &identity.ValidationError{Message: "Invalid request body"})
	}

	res, err := h.svc.Signup(c.UserContext(), identity.SignupInput{
		Name: req.Name, Email: req.Email, Password: req.Password, Phone: req.Phone,
	})
	if err != nil {
		return h.fail(c, err)
	}

	status := http.StatusCreated
	message := "User created successfully. Please check your email for the verification code."
	if !res.Created {
		status = http.StatusOK
		message = "Account exists but is not verified. A new verification code has been sent."
	}
	if !res.CodeSent {
		message = "Account saved but the verification code could not be sent. Please request a new one."
	}

	return c.Status(status).JSON(fiber.Map{
		"message":              message,
		"userId":               res.User.ID,
		"email":                res.User.Email,
		"requiresVerification": true,
		"codeSent":             res.CodeSent,
	})
}

// VerifyOTP completes verification and returns a session.
func (h *Handler) VerifyOTP(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, &identity.ValidationError{Message: "Invalid request body"})
	}
	session, err := h.svc.VerifyOTP(c.UserContext(), req.UserID, req.OTP)
	if err != nil {
		return h.fail(c, err)
	}
	return h.sendSession(c, "Email verified successfully", session, nil)
}

// ResendOTP sends a replacement code.
func (h *Handler) ResendOTP(c *fiber.Ctx) error {
	var req resendRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, &identity.ValidationError{Message: "Invalid request body"})
	}
	if err := h.svc.ResendOTP(c.UserContext(), req.UserID); err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "A new verification code has been sent to your email"})
}

// Login authenticates with email and password.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, &identity.ValidationError{Message: "Invalid request body"})
	}
	session, err := h.svc.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return h.fail(c, err)
	}
	return h.sendSession(c, "Login successful", session, nil)
}

// Google signs in with a Google ID token.
func (h *Handler) Google(c *fiber.Ctx) error {
	var req googleRequest
	if err := c.BodyParser(&req); err != nil {
		return h.failGoogle(c, &identity.ValidationError{Message: "Invalid request body"})
	}
	token := req.Token
	if token == "" {
		token = req.Credential
	}
	session, err := h.svc.GoogleSignIn(c.UserContext(), token)
	if err != nil {
		return h.failGoogle(c, err)
	}
	return h.sendSession(c, "Google sign-in successful", session, fiber.Map{"success": true})
}

// Logout is stateless: the client discards its token.
func (h *Handler) Logout(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true, "message": "Logged out successfully"})
}

// Me returns the account behind the bearer token.
func (h *Handler) Me(c *fiber.Ctx) error {
	claims, ok := ClaimsFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	user, err := h.svc.Profile(c.UserContext(), claims.UserID)
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, "user not found")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"user": toUserResponse(user)})
}

// Config exposes the public client settings needed to render sign-in.
func (h *Handler) Config(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"googleClientId": h.googleClientID,
		"googleEnabled":  h.svc.GoogleEnabled(),
	})
}

func (h *Handler) sendSession(c *fiber.Ctx, message string, s Session, extra fiber.Map) error {
	body := fiber.Map{
		"message":   message,
		"token":     s.Token,
		"expiresAt": s.ExpiresAt.UTC().Format(time.RFC3339),
		"user":      toUserResponse(s.User),
	}
	for k, v := range extra {
		body[k] = v
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Status(http.StatusOK).JSON(body)
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	status, body := errorResponse(h.logger, c, err)
	return c.Status(status).JSON(body)
}

func (h *Handler) failGoogle(c *fiber.Ctx, err error) error {
	status, body := errorResponse(h.logger, c, err)
	body["success"] = false
	return c.Status(status).JSON(body)
}
