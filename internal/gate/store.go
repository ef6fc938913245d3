package gate

import (
	"encoding/json"
	"sync"
)

// Keys under which the client persists its session.
const (
	KeyAuthToken        = "authToken"
	KeyUser             = "user"
	KeyPendingUserID    = "pendingUserId"
	KeyPendingUserEmail = "pendingUserEmail"
)

// Store is a string key/value store holding the client session.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// MemoryStore is a concurrency-safe in-process Store.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *MemoryStore) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

func (m *MemoryStore) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}

// LoadSession reads the stored session. A user entry that does not decode is
// treated as absent and purged together with the token.
func LoadSession(st Store) Session {
	token, _ := st.Get(KeyAuthToken)
	raw, ok := st.Get(KeyUser)
	if !ok || raw == "" {
		return Session{Token: token}
	}

	var user StoredUser
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		st.Delete(KeyUser)
		st.Delete(KeyAuthToken)
		return Session{}
	}
	return Session{Token: token, User: &user}
}

// SaveSession persists a signed-in session and drops any pending marker.
func SaveSession(st Store, token string, user StoredUser) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	st.Set(KeyAuthToken, token)
	st.Set(KeyUser, string(raw))
	ClearPending(st)
	return nil
}

// ClearSession removes the token and user, which is all logout does.
func ClearSession(st Store) {
	st.Delete(KeyAuthToken)
	st.Delete(KeyUser)
}

// Pending bridges signup and OTP verification.
type Pending struct {
	UserID string
	Email  string
}

// SavePending records the account awaiting verification.
func SavePending(st Store, p Pending) {
	st.Set(KeyPendingUserID, p.UserID)
	st.Set(KeyPendingUserEmail, p.Email)
}

// LoadPending returns the pending marker, if any.
func LoadPending(st Store) (Pending, bool) {
	id, ok := st.Get(KeyPendingUserID)
	if !ok || id == "" {
		return Pending{}, false
	}
	email, _ := st.Get(KeyPendingUserEmail)
	return Pending{UserID: id, Email: email}, true
}

// ClearPending drops the pending marker.
func ClearPending(st Store) {
	st.Delete(KeyPendingUserID)
	st.Delete(KeyPendingUserEmail)
}
