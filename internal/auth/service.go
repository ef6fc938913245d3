package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glamour-salon/salon_api/internal/identity"
	"github.com/glamour-salon/salon_api/internal/logging"
	"github.com/glamour-salon/salon_api/internal/otp"
)

var ErrAlreadyVerified = errors.New("account is already verified")

// Session is the result of a successful sign-in.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      identity.User
}

// SignupResult describes the outcome of a signup request.
type SignupResult struct {
	User identity.User
	// Created is false when an unverified account already existed and a
	// fresh code was issued for it instead.
	Created bool
	// CodeSent is false when the verification message could not be
	// delivered. The account and challenge still exist.
	CodeSent bool
}

// Service drives the signup, verification and sign-in flows.
type Service struct {
	ids    *identity.Service
	repo   identity.Repository
	otps   *otp.Service
	tokens *TokenIssuer
	google GoogleVerifier
	logger *slog.Logger
}

// NewService wires the auth flow. google may be nil, or a nil
// *IDTokenVerifier, when Google sign-in is not configured.
func NewService(ids *identity.Service, otps *otp.Service, tokens *TokenIssuer, google GoogleVerifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	if v, ok := google.(*IDTokenVerifier); ok && v == nil {
		google = nil
	}
	return &Service{ids: ids, repo: ids.Repository(), otps: otps, tokens: tokens, google: google, logger: logger}
}

// Tokens exposes the issuer so middleware can verify bearer tokens.
func (s *Service) Tokens() *TokenIssuer { return s.tokens }

// GoogleEnabled reports whether Google sign-in can be used.
func (s *Service) GoogleEnabled() bool { return s.google != nil }

// Signup registers a password account and sends its first verification code.
// An existing unverified account with the same email gets a new code instead.
func (s *Service) Signup(ctx context.Context, in identity.SignupInput) (SignupResult, error) {
	in, err := identity.ValidateSignup(in)
	if err != nil {
		return SignupResult{}, err
	}

	existing, err := s.repo.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		if existing.IsVerified {
			return SignupResult{}, &identity.ValidationError{Field: "email", Message: "An account with this email already exists"}
		}
		sent, err := s.sendCode(ctx, existing.ID, s.otps.ResendChallenge)
		if err != nil {
			return SignupResult{}, err
		}
		return SignupResult{User: existing, Created: false, CodeSent: sent}, nil
	case !errors.Is(err, identity.ErrNotFound):
		return SignupResult{}, fmt.Errorf("lookup email: %w", err)
	}

	user, err := s.ids.Register(ctx, in)
	if err != nil {
		if errors.Is(err, identity.ErrEmailTaken) {
			return SignupResult{}, &identity.ValidationError{Field: "email", Message: "An account with this email already exists"}
		}
		return SignupResult{}, err
	}
	s.logger.Info("account created", "user_id", user.ID, "provider", user.Provider)

	sent, err := s.sendCode(ctx, user.ID, s.otps.IssueChallenge)
	if err != nil {
		return SignupResult{}, err
	}
	return SignupResult{User: user, Created: true, CodeSent: sent}, nil
}

// sendCode runs issue and downgrades a delivery failure to a logged warning.
func (s *Service) sendCode(ctx context.Context, userID string, issue func(context.Context, string) error) (bool, error) {
	err := issue(ctx, userID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, otp.ErrDelivery) {
		s.logger.Warn("verification code delivery failed", "user_id", userID, "error", errors.Unwrap(err))
		return false, nil
	}
	return false, err
}

// VerifyOTP checks the submitted code and opens a session on success.
func (s *Service) VerifyOTP(ctx context.Context, userID, code string) (Session, error) {
	userID = strings.TrimSpace(userID)
	code = strings.TrimSpace(code)
	if userID == "" || code == "" {
		return Session{}, &identity.ValidationError{Message: "User ID and OTP are required"}
	}
	if !otp.ValidFormat(code) {
		return Session{}, &identity.ValidationError{Field: "otp", Message: otp.ErrInvalidFormat.Error()}
	}

	user, err := s.otps.VerifyChallenge(ctx, userID, code)
	if err != nil {
		return Session{}, err
	}
	s.logger.Info("account verified", "user_id", user.ID)
	return s.open(user)
}

// ResendOTP issues a replacement code for an unverified account.
func (s *Service) ResendOTP(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return &identity.ValidationError{Message: "User ID is required"}
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return otp.ErrNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}
	if user.IsVerified {
		return ErrAlreadyVerified
	}
	return s.otps.ResendChallenge(ctx, user.ID)
}

// Login authenticates a verified password account.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.ids.Authenticate(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	s.logger.Info("login succeeded", "user_id", user.ID)
	return s.open(user)
}

// GoogleSignIn exchanges a Google ID token for a session. The token must
// assert a verified email before any account is created or linked.
func (s *Service) GoogleSignIn(ctx context.Context, idToken string) (Session, error) {
	if !s.GoogleEnabled() {
		return Session{}, ErrGoogleDisabled
	}
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return Session{}, &identity.ValidationError{Message: "Google token is required"}
	}

	profile, err := s.google.Verify(ctx, idToken)
	if err != nil {
		return Session{}, err
	}
	if !profile.EmailVerified {
		return Session{}, ErrGoogleEmailUnverified
	}

	user, err := s.ids.UpsertGoogle(ctx, profile)
	if err != nil {
		return Session{}, err
	}
	s.logger.Info("google sign-in succeeded", "user_id", user.ID)
	return s.open(user)
}

// Profile loads the account behind a verified session.
func (s *Service) Profile(ctx context.Context, userID string) (identity.User, error) {
	return s.repo.FindByID(ctx, userID)
}

func (s *Service) open(user identity.User) (Session, error) {
	token, exp, err := s.tokens.Issue(user)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: exp, User: user}, nil
}
