package gate

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func session(role string, verified bool) Session {
	return Session{Token: "t", User: &StoredUser{ID: "u1", Role: role, IsVerified: verified}}
}

func TestDecideScenarios(t *testing.T) {
	rules := DefaultRules()

	cases := []struct {
		name    string
		session Session
		path    string
		want    Decision
	}{
		{"customer in admin area", session("customer", true), "/admin-dashboard", Decision{Action: ActionRedirect, Target: "/my-bookings"}},
		{"no token on bookings", Session{}, "/my-bookings", Decision{Action: ActionRedirect, Target: "/login"}},
		{"admin on dashboard", session("admin", true), "/dashboard", Decision{Action: ActionRedirect, Target: "/admin-dashboard"}},
		{"admin on bookings", session("admin", true), "/my-bookings", Decision{Action: ActionRedirect, Target: "/admin-dashboard"}},
		{"admin in admin area", session("admin", true), "/admin-dashboard", Decision{Action: ActionRender}},
		{"customer on bookings", session("customer", true), "/my-bookings", Decision{Action: ActionRender}},
		{"customer on other page", session("customer", true), "/services", Decision{Action: ActionRender}},
		{"unverified user treated as anonymous", session("customer", false), "/my-bookings", Decision{Action: ActionRedirect, Target: "/login"}},
		{"token without user", Session{Token: "t"}, "/dashboard", Decision{Action: ActionRedirect, Target: "/login"}},
		{"anonymous on signup", Session{}, "/signup", Decision{Action: ActionAuthPage, Page: "signup"}},
		{"anonymous on verify", Session{}, "/verify-otp?x=1", Decision{Action: ActionAuthPage, Page: "verify-otp"}},
		{"anonymous on login", Session{}, "/login/", Decision{Action: ActionAuthPage, Page: "login"}},
		{"anonymous in admin area", Session{}, "/admin", Decision{Action: ActionRedirect, Target: "/login"}},
		{"customer on auth page", session("customer", true), "/login", Decision{Action: ActionRender}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, rules.Decide(tc.session, tc.path))
		})
	}
}

func TestDefaultAuthPage(t *testing.T) {
	rules := DefaultRules()
	rules.AuthPages["/auth/callback"] = ""
	require.Equal(t, CategoryAuthPage, rules.Categorize("/auth/callback"))
	require.Equal(t, Decision{Action: ActionAuthPage, Page: "login"}, rules.Decide(Session{}, "/auth/callback"))
}

func TestSessionState(t *testing.T) {
	require.Equal(t, Unauthenticated, Session{}.State())
	require.Equal(t, AuthenticatedCustomer, session("customer", true).State())
	require.Equal(t, AuthenticatedCustomer, session("", true).State())
	require.Equal(t, AuthenticatedAdmin, session("admin", true).State())
	require.Equal(t, Unauthenticated, session("admin", false).State())
}

func TestLoadSessionPurgesCorruptUser(t *testing.T) {
	st := NewMemoryStore()
	st.Set(KeyAuthToken, "t")
	st.Set(KeyUser, "{not json")

	s := LoadSession(st)
	require.Equal(t, Unauthenticated, s.State())
	_, ok := st.Get(KeyUser)
	require.False(t, ok)
	_, ok = st.Get(KeyAuthToken)
	require.False(t, ok)
}

func TestSaveLoadClearSession(t *testing.T) {
	st := NewMemoryStore()
	SavePending(st, Pending{UserID: "u1", Email: "a@example.com"})
	p, ok := LoadPending(st)
	require.True(t, ok)
	require.Equal(t, "u1", p.UserID)

	require.NoError(t, SaveSession(st, "tok", StoredUser{ID: "u1", Role: "customer", IsVerified: true}))
	_, ok = LoadPending(st)
	require.False(t, ok, "signing in clears the pending marker")

	s := LoadSession(st)
	require.Equal(t, "tok", s.Token)
	require.Equal(t, AuthenticatedCustomer, s.State())

	raw, _ := st.Get(KeyUser)
	require.Contains(t, raw, `"isVerified":true`)

	ClearSession(st)
	require.Equal(t, Unauthenticated, LoadSession(st).State())
}

func TestGuardRereadsStoreOnNavigate(t *testing.T) {
	st := NewMemoryStore()
	g := NewGuard(DefaultRules(), st)
	require.True(t, g.Loading())

	require.Equal(t, Decision{Action: ActionRedirect, Target: "/login"}, g.Navigate("/my-bookings"))
	require.False(t, g.Loading())

	require.NoError(t, SaveSession(st, "tok", StoredUser{ID: "u1", Role: "admin", IsVerified: true}))
	require.Equal(t, Decision{Action: ActionRedirect, Target: "/admin-dashboard"}, g.Navigate("/my-bookings"))
	require.Equal(t, AuthenticatedAdmin, g.Session().State())

	ClearSession(st)
	require.Equal(t, Decision{Action: ActionRedirect, Target: "/login"}, g.Navigate("/admin-dashboard"))
}

func TestDecideHandler(t *testing.T) {
	app := fiber.New()
	app.Post("/api/gate/decide", NewHandler(DefaultRules()).Decide)

	body := `{"session":{"token":"t","user":{"role":"customer","isVerified":true}},"path":"/admin-dashboard"}`
	req := httptest.NewRequest(fiber.MethodPost, "/api/gate/decide", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Equal(t, "redirect", got["action"])
	require.Equal(t, "/my-bookings", got["target"])
	require.Equal(t, "authenticated_customer", got["state"])

	req = httptest.NewRequest(fiber.MethodPost, "/api/gate/decide", strings.NewReader(`{"session":{}}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
