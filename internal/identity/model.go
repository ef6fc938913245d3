package identity

import "time"

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"

	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

// User represents a salon customer or staff account. The pending OTP
// challenge lives on the record itself.
type User struct {
	ID             string
	Email          string
	Name           string
	Phone          string
	PasswordHash   []byte
	Role           string
	IsVerified     bool
	OTP            string
	OTPExpiry      time.Time
	OTPAttempts    int
	GoogleID       string
	ProfilePicture string
	Provider       string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasChallenge reports whether an OTP is currently pending for the user.
func (u User) HasChallenge() bool {
	return u.OTP != "" && !u.OTPExpiry.IsZero()
}

// SignupInput carries the fields accepted by password registration.
type SignupInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
}

// GoogleProfile is the identity asserted by a verified Google ID token.
type GoogleProfile struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}
