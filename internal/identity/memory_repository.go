package identity

import (
	"context"
	"sync"
	"time"
)

type memoryRepository struct {
	mu       sync.RWMutex
	users    map[string]User
	byEmail  map[string]string
	byGoogle map[string]string
	now      func() time.Time
}

// NewMemoryRepository builds an in-memory user store for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		users:    make(map[string]User),
		byEmail:  make(map[string]string),
		byGoogle: make(map[string]string),
		now:      time.Now,
	}
}

func (r *memoryRepository) Create(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := normalizeEmail(user.Email)
	if _, exists := r.byEmail[key]; exists {
		return ErrEmailTaken
	}
	if _, linked := r.byGoogle[user.GoogleID]; user.GoogleID != "" && linked {
		return ErrGoogleLinked
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}
	r.users[user.ID] = user
	r.byEmail[key] = user.ID
	if user.GoogleID != "" {
		r.byGoogle[user.GoogleID] = user.ID
	}
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[normalizeEmail(email)]
	if !ok {
		return User{}, ErrNotFound
	}
	return r.users[id], nil
}

func (r *memoryRepository) FindByGoogleID(_ context.Context, googleID string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byGoogle[googleID]
	if !ok || googleID == "" {
		return User{}, ErrNotFound
	}
	return r.users[id], nil
}

func (r *memoryRepository) SetChallenge(_ context.Context, id, code string, expiry time.Time) error {
	return r.mutate(id, func(u *User) {
		u.OTP = code
		u.OTPExpiry = expiry.UTC()
		u.OTPAttempts = 0
	})
}

func (r *memoryRepository) IncrementAttempts(_ context.Context, id string) (int, error) {
	var attempts int
	err := r.mutate(id, func(u *User) {
		u.OTPAttempts++
		attempts = u.OTPAttempts
	})
	return attempts, err
}

func (r *memoryRepository) ClearChallenge(_ context.Context, id string) error {
	return r.mutate(id, clearChallenge)
}

func (r *memoryRepository) MarkVerified(_ context.Context, id string) error {
	return r.mutate(id, func(u *User) {
		u.IsVerified = true
		clearChallenge(u)
	})
}

func (r *memoryRepository) LinkGoogle(_ context.Context, id, googleID, picture string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, linked := r.byGoogle[googleID]; linked && owner != id {
		return ErrGoogleLinked
	}
	err := r.mutateLocked(id, func(u *User) {
		if u.GoogleID != "" {
			delete(r.byGoogle, u.GoogleID)
		}
		u.GoogleID = googleID
		u.ProfilePicture = picture
	})
	if err == nil && googleID != "" {
		r.byGoogle[googleID] = id
	}
	return err
}

func (r *memoryRepository) mutate(id string, fn func(*User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mutateLocked(id, fn)
}

func (r *memoryRepository) mutateLocked(id string, fn func(*User)) error {
	user, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	fn(&user)
	user.UpdatedAt = r.now().UTC()
	r.users[id] = user
	return nil
}

func clearChallenge(u *User) {
	u.OTP = ""
	u.OTPExpiry = time.Time{}
	u.OTPAttempts = 0
}
