// Package gate decides, for each navigation, whether to render the requested
// page, send the visitor to an auth page, or redirect by role.
package gate

import "strings"

// State is the authentication state derived from a Session.
type State int

const (
	Unauthenticated State = iota
	AuthenticatedCustomer
	AuthenticatedAdmin
)

func (s State) String() string {
	switch s {
	case AuthenticatedCustomer:
		return "authenticated_customer"
	case AuthenticatedAdmin:
		return "authenticated_admin"
	default:
		return "unauthenticated"
	}
}

// Category classifies a path for the decision table.
type Category int

const (
	CategoryProtected Category = iota
	CategoryAuthPage
	CategoryAdminArea
	CategoryCustomerHome
)

// Action is what the caller should do with a navigation.
type Action string

const (
	ActionRender   Action = "render"
	ActionRedirect Action = "redirect"
	ActionAuthPage Action = "auth_page"
)

// Decision is the outcome of Decide. Target is set for redirects and Page for
// auth pages.
type Decision struct {
	Action Action `json:"action"`
	Target string `json:"target,omitempty"`
	Page   string `json:"page,omitempty"`
}

const RoleAdmin = "admin"

// StoredUser is the user object the client keeps next to its token.
type StoredUser struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	IsVerified bool   `json:"isVerified"`
}

// Session is the explicit session context handed to the gate.
type Session struct {
	Token string      `json:"token"`
	User  *StoredUser `json:"user"`
}

// State derives the authentication state. A session counts as authenticated
// only with a token, a user object and a verified account.
func (s Session) State() State {
	if s.Token == "" || s.User == nil || !s.User.IsVerified {
		return Unauthenticated
	}
	if s.User.Role == RoleAdmin {
		return AuthenticatedAdmin
	}
	return AuthenticatedCustomer
}

// Rules holds the path tables used by Decide. An AuthPages entry with an
// empty page name renders DefaultAuthPage.
type Rules struct {
	LoginPath          string
	AuthPages          map[string]string
	DefaultAuthPage    string
	AdminPrefix        string
	AdminHome          string
	AdminRedirectPaths map[string]bool
	CustomerHome       string
}

// DefaultRules returns the salon site's routing table.
func DefaultRules() Rules {
	return Rules{
		LoginPath: "/login",
		AuthPages: map[string]string{
			"/login":      "login",
			"/signup":     "signup",
			"/verify-otp": "verify-otp",
		},
		DefaultAuthPage: "login",
		AdminPrefix:     "/admin",
		AdminHome:       "/admin-dashboard",
		AdminRedirectPaths: map[string]bool{
			"/dashboard":   true,
			"/my-bookings": true,
		},
		CustomerHome: "/my-bookings",
	}
}

// Categorize places path into exactly one category. Auth pages win over the
// admin prefix so an auth page is never role-redirected.
func (r Rules) Categorize(path string) Category {
	path = normalize(path)
	switch {
	case r.isAuthPage(path):
		return CategoryAuthPage
	case r.AdminPrefix != "" && strings.HasPrefix(path, r.AdminPrefix):
		return CategoryAdminArea
	case r.AdminRedirectPaths[path]:
		return CategoryCustomerHome
	default:
		return CategoryProtected
	}
}

// Decide evaluates one navigation. The rules apply in priority order:
//  1. unauthenticated outside the auth pages goes to login
//  2. admins on a customer page go to the admin dashboard
//  3. non-admins in the admin area go to their bookings
//  4. unauthenticated on an auth page sees that page
//  5. everything else renders
func (r Rules) Decide(s Session, path string) Decision {
	state := s.State()
	path = normalize(path)
	category := r.Categorize(path)

	switch state {
	case Unauthenticated:
		if category != CategoryAuthPage {
			return Decision{Action: ActionRedirect, Target: r.LoginPath}
		}
		return Decision{Action: ActionAuthPage, Page: r.authPage(path)}

	case AuthenticatedAdmin:
		if category == CategoryCustomerHome {
			return Decision{Action: ActionRedirect, Target: r.AdminHome}
		}

	case AuthenticatedCustomer:
		if category == CategoryAdminArea {
			return Decision{Action: ActionRedirect, Target: r.CustomerHome}
		}
	}

	return Decision{Action: ActionRender}
}

func (r Rules) isAuthPage(path string) bool {
	_, ok := r.AuthPages[path]
	return ok
}

func (r Rules) authPage(path string) string {
	if page := r.AuthPages[path]; page != "" {
		return page
	}
	return r.DefaultAuthPage
}

func normalize(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}
