package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/glamour-salon/salon_api/internal/identity"
)

const testSecret = "test-secret-test-secret-test-secret!"

func testUser() identity.User {
	return identity.User{ID: "user-42", Email: "ada@example.com", Name: "Ada", Role: identity.RoleCustomer}
}

func TestTokenRoundTrip(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewTokenIssuer(testSecret, 0, WithTokenClock(func() time.Time { return now }), WithIssuer("salon"))

	token, exp, err := issuer.Issue(testUser())
	require.NoError(t, err)
	require.Equal(t, now.Add(7*24*time.Hour), exp)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-42", claims.UserID)
	require.Equal(t, "ada@example.com", claims.Email)
	require.Equal(t, "Ada", claims.Name)
	require.Equal(t, identity.RoleCustomer, claims.Role)
	require.Equal(t, "salon", claims.Issuer)
	require.NotEmpty(t, claims.ID)
}

func TestTokenWrongSecret(t *testing.T) {
	token, _, err := NewTokenIssuer(testSecret, time.Hour).Issue(testUser())
	require.NoError(t, err)

	_, err = NewTokenIssuer("another-secret-another-secret-xxxx", time.Hour).Verify(token)
	require.ErrorIs(t, err, ErrTokenSignature)
}

func TestTokenTamperedSignature(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)
	a, _, err := issuer.Issue(testUser())
	require.NoError(t, err)
	other := testUser()
	other.ID = "user-43"
	b, _, err := issuer.Issue(other)
	require.NoError(t, err)

	pa := strings.Split(a, ".")
	pb := strings.Split(b, ".")
	forged := pa[0] + "." + pa[1] + "." + pb[2]

	_, err = issuer.Verify(forged)
	require.ErrorIs(t, err, ErrTokenSignature)
}

func TestTokenExpired(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	issuer := NewTokenIssuer(testSecret, 0, WithTokenClock(clock))

	token, _, err := issuer.Issue(testUser())
	require.NoError(t, err)

	later := NewTokenIssuer(testSecret, 0, WithTokenClock(func() time.Time { return now.Add(7*24*time.Hour + time.Minute) }))
	_, err = later.Verify(token)
	require.ErrorIs(t, err, ErrTokenExpired)

	stillValid := NewTokenIssuer(testSecret, 0, WithTokenClock(func() time.Time { return now.Add(6 * 24 * time.Hour) }))
	_, err = stillValid.Verify(token)
	require.NoError(t, err)
}

func TestTokenMalformed(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)
	for _, raw := range []string{"", "not-a-token", "a.b", "a.b.c"} {
		_, err := issuer.Verify(raw)
		require.ErrorIs(t, err, ErrTokenMalformed, "token %q", raw)
	}
}

func TestTokenRejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{
		UserID:           "user-42",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenIssuer(testSecret, time.Hour).Verify(unsigned)
	require.ErrorIs(t, err, ErrTokenSignature)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = NewTokenIssuer(testSecret, time.Hour).Verify(hs512)
	require.ErrorIs(t, err, ErrTokenSignature)
}

func TestTokenNotYetValidReturnsBareSentinel(t *testing.T) {
	claims := Claims{
		UserID: "user-42",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(2 * time.Hour)),
			NotBefore: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	early, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = NewTokenIssuer(testSecret, time.Hour).Verify(early)
	require.Equal(t, ErrTokenMalformed, err)
}
