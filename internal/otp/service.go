package otp

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/glamour-salon/salon_api/internal/identity"
	"github.com/glamour-salon/salon_api/internal/logging"
	"github.com/glamour-salon/salon_api/internal/notification"
)

// notifyTimeout bounds a single provider call during delivery.
const notifyTimeout = 15 * time.Second

// Config controls the challenge lifecycle.
type Config struct {
	AppName     string
	TTL         time.Duration
	MaxAttempts int
	// SendTimeout caps each notifier call. Zero means notifyTimeout.
	SendTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.AppName == "" {
		c.AppName = "GlamourSalon"
	}
	if c.TTL <= 0 {
		c.TTL = 10 * time.Minute
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = notifyTimeout
	}
	return c
}

// channelChecker is implemented by notifiers that can report which channels
// are configured, such as notification.Router.
type channelChecker interface {
	Supports(channel string) bool
}

// Service issues and verifies the one-time codes stored on user records.
type Service struct {
	repo     identity.Repository
	notifier notification.Notifier
	limiter  *Limiter
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
	generate func(digits int) (string, error)
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCodeGenerator overrides the random code source.
func WithCodeGenerator(gen func(digits int) (string, error)) Option {
	return func(s *Service) { s.generate = gen }
}

// NewService wires the OTP service. limiter may be nil.
func NewService(repo identity.Repository, notifier notification.Notifier, limiter *Limiter, cfg Config, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Service{
		repo:     repo,
		notifier: notifier,
		limiter:  limiter,
		cfg:      cfg.withDefaults(),
		logger:   logger,
		now:      time.Now,
		generate: randomCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the validity window of a freshly issued code.
func (s *Service) TTL() time.Duration { return s.cfg.TTL }

// IssueChallenge stores a new code on the user record, replacing any previous
// one, and sends it to the user. The code is persisted before delivery; a
// delivery failure is returned as *DeliveryError.
func (s *Service) IssueChallenge(ctx context.Context, userID string) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}

	code, err := s.generate(CodeLength)
	if err != nil {
		return err
	}
	expiry := s.now().UTC().Add(s.cfg.TTL)

	if err := s.repo.SetChallenge(ctx, user.ID, code, expiry); err != nil {
		return fmt.Errorf("store challenge: %w", err)
	}

	return s.deliver(ctx, user, code)
}

// ResendChallenge is IssueChallenge behind the send limiter.
func (s *Service) ResendChallenge(ctx context.Context, userID string) error {
	if err := s.limiter.Allow(ctx, userID); err != nil {
		return err
	}
	return s.IssueChallenge(ctx, userID)
}

// VerifyChallenge checks a submitted code and, on success, marks the account
// verified and returns the updated user.
func (s *Service) VerifyChallenge(ctx context.Context, userID, code string) (identity.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return identity.User{}, ErrNotFound
		}
		return identity.User{}, fmt.Errorf("load user: %w", err)
	}

	if !user.HasChallenge() {
		return identity.User{}, ErrNoChallengePending
	}

	if s.now().After(user.OTPExpiry) {
		if err := s.repo.ClearChallenge(ctx, user.ID); err != nil {
			s.logger.Warn("clear expired challenge", "user_id", user.ID, "error", err)
		}
		return identity.User{}, ErrExpired
	}

	if user.OTPAttempts >= s.cfg.MaxAttempts {
		return identity.User{}, ErrAttemptsExceeded
	}

	if subtle.ConstantTimeCompare([]byte(code), []byte(user.OTP)) != 1 {
		attempts, err := s.repo.IncrementAttempts(ctx, user.ID)
		if err != nil {
			return identity.User{}, fmt.Errorf("record failed attempt: %w", err)
		}
		left := s.cfg.MaxAttempts - attempts
		if left < 0 {
			left = 0
		}
		s.logger.Info("verification code mismatch", "user_id", user.ID, "attempts", attempts)
		return identity.User{}, &MismatchError{AttemptsLeft: left}
	}

	if err := s.repo.MarkVerified(ctx, user.ID); err != nil {
		return identity.User{}, fmt.Errorf("mark verified: %w", err)
	}
	s.limiter.Reset(ctx, user.ID)

	user.IsVerified = true
	user.OTP = ""
	user.OTPExpiry = time.Time{}
	user.OTPAttempts = 0
	return user, nil
}

func (s *Service) deliver(ctx context.Context, user identity.User, code string) error {
	if s.notifier == nil {
		return &DeliveryError{Err: notification.ErrChannelUnavailable}
	}

	subject, body, err := notification.VerificationEmail(s.cfg.AppName, user.Name, code, s.cfg.TTL)
	if err != nil {
		return &DeliveryError{Err: err}
	}

	err = s.send(ctx, notification.Message{
		Kind:        notification.KindAccountVerification,
		Channel:     notification.ChannelEmail,
		Destination: user.Email,
		Subject:     subject,
		Body:        body,
	})
	if err != nil {
		return &DeliveryError{Err: err}
	}

	if user.Phone != "" && s.supports(notification.ChannelSMS) {
		smsErr := s.send(ctx, notification.Message{
			Kind:        notification.KindAccountVerification,
			Channel:     notification.ChannelSMS,
			Destination: user.Phone,
			Body:        notification.VerificationSMS(s.cfg.AppName, code, s.cfg.TTL),
		})
		if smsErr != nil {
			s.logger.Warn("verification sms failed", "user_id", user.ID, "error", smsErr)
		}
	}

	s.logger.Info("verification code sent", "user_id", user.ID, "destination", logging.MaskDestination(user.Email))
	return nil
}

func (s *Service) send(ctx context.Context, message notification.Message) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	defer cancel()
	return s.notifier.Send(ctx, message)
}

func (s *Service) supports(channel string) bool {
	cc, ok := s.notifier.(channelChecker)
	return ok && cc.Supports(channel)
}
