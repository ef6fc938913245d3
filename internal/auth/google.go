package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"google.golang.org/api/idtoken"

	"github.com/glamour-salon/salon_api/internal/identity"
)

var (
	ErrGoogleDisabled        = errors.New("google sign-in is not configured")
	ErrGoogleTokenInvalid    = errors.New("invalid google token")
	ErrGoogleEmailUnverified = errors.New("google email not verified")
	ErrGoogleUnavailable     = errors.New("could not verify google token")
)

// googleTimeout bounds a token validation, including the certificate fetch.
const googleTimeout = 10 * time.Second

// GoogleVerifier validates a Google ID token and returns the asserted profile.
type GoogleVerifier interface {
	Verify(ctx context.Context, token string) (identity.GoogleProfile, error)
}

// IDTokenVerifier checks tokens against Google's published keys and the
// configured OAuth client id.
type IDTokenVerifier struct {
	clientID string
	timeout  time.Duration
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

// NewIDTokenVerifier returns nil when clientID is empty.
func NewIDTokenVerifier(clientID string) *IDTokenVerifier {
	if clientID == "" {
		return nil
	}
	return &IDTokenVerifier{clientID: clientID, timeout: googleTimeout, validate: idtoken.Validate}
}

// Verify implements GoogleVerifier.
func (v *IDTokenVerifier) Verify(ctx context.Context, token string) (identity.GoogleProfile, error) {
	if v == nil {
		return identity.GoogleProfile{}, ErrGoogleDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	payload, err := v.validate(ctx, token, v.clientID)
	if err != nil {
		var urlErr *url.Error
		var netErr net.Error
		if errors.As(err, &urlErr) || errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
			return identity.GoogleProfile{}, fmt.Errorf("%w: %v", ErrGoogleUnavailable, err)
		}
		return identity.GoogleProfile{}, fmt.Errorf("%w: %v", ErrGoogleTokenInvalid, err)
	}
	return profileFromClaims(payload.Subject, payload.Claims), nil
}

func profileFromClaims(subject string, claims map[string]any) identity.GoogleProfile {
	str := func(key string) string {
		s, _ := claims[key].(string)
		return s
	}
	if subject == "" {
		subject = str("sub")
	}
	return identity.GoogleProfile{
		Subject:       subject,
		Email:         str("email"),
		EmailVerified: claimBool(claims["email_verified"]),
		Name:          str("name"),
		Picture:       str("picture"),
	}
}

// claimBool accepts both the JSON boolean and the string form Google has
// historically used for email_verified.
func claimBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(b)
		return err == nil && parsed
	default:
		return false
	}
}
