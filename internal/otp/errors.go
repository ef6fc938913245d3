package otp

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrNoChallengePending = errors.New("no verification code is pending, please request a new one")
	ErrExpired            = errors.New("verification code has expired, please request a new one")
	ErrAttemptsExceeded   = errors.New("too many failed attempts, please request a new code")
	ErrCodeMismatch       = errors.New("invalid verification code")
	ErrInvalidFormat      = errors.New("verification code must be 6 digits")
	ErrDelivery           = errors.New("could not send verification code")
	ErrTooSoon            = errors.New("verification code requested too often")
)

// MismatchError reports a wrong code together with the remaining attempts.
type MismatchError struct {
	AttemptsLeft int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s, %d attempt(s) left", ErrCodeMismatch, e.AttemptsLeft)
}

func (e *MismatchError) Is(target error) bool { return target == ErrCodeMismatch }

// DeliveryError wraps a notifier failure. The challenge it belongs to is
// already persisted, so the caller may simply resend.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string { return ErrDelivery.Error() }

func (e *DeliveryError) Unwrap() error { return e.Err }

func (e *DeliveryError) Is(target error) bool { return target == ErrDelivery }

// RateLimitError is returned when a resend is refused by the Limiter.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("please wait %d seconds before requesting another code", int(e.RetryAfter.Round(time.Second).Seconds()))
}

func (e *RateLimitError) Is(target error) bool { return target == ErrTooSoon }

// RequiresResend reports whether err leaves the user without a usable code.
func RequiresResend(err error) bool {
	return errors.Is(err, ErrNoChallengePending) || errors.Is(err, ErrExpired) || errors.Is(err, ErrAttemptsExceeded)
}
