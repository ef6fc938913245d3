package identity

import "errors"

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrGoogleLinked       = errors.New("google account already linked to another user")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotVerified        = errors.New("account not verified")
)

// ValidationError reports a malformed signup or login payload.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotVerifiedError is returned by Authenticate when the password is correct
// but the account has not completed OTP verification.
type NotVerifiedError struct {
	User User
}

func (e *NotVerifiedError) Error() string { return ErrNotVerified.Error() }

func (e *NotVerifiedError) Is(target error) bool { return target == ErrNotVerified }
