package gate

import "sync"

// Guard re-reads the store and re-decides on every navigation. Loading is
// true only until the first navigation has read the store.
type Guard struct {
	rules Rules
	store Store

	mu      sync.Mutex
	loading bool
	session Session
}

// NewGuard builds a guard over store.
func NewGuard(rules Rules, store Store) *Guard {
	return &Guard{rules: rules, store: store, loading: true}
}

// Loading reports whether the initial session read is still outstanding.
func (g *Guard) Loading() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loading
}

// Navigate evaluates a route change to path.
func (g *Guard) Navigate(path string) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.session = LoadSession(g.store)
	g.loading = false
	return g.rules.Decide(g.session, path)
}

// Session returns the session read by the most recent navigation.
func (g *Guard) Session() Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session
}
