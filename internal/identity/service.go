package identity

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Service manages the account lifecycle on top of a Repository.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Repository exposes the underlying store to collaborating services.
func (s *Service) Repository() Repository { return s.repo }

// ValidateSignup checks a registration payload without touching the store.
func ValidateSignup(in SignupInput) (SignupInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)

	switch {
	case in.Name == "" || in.Email == "" || in.Password == "":
		return in, &ValidationError{Message: "Please provide all required fields"}
	case !emailPattern.MatchString(in.Email):
		return in, &ValidationError{Field: "email", Message: "Please provide a valid email address"}
	case len(in.Password) < minPasswordLength:
		return in, &ValidationError{Field: "password", Message: "Password must be at least 6 characters long"}
	}
	return in, nil
}

// Register creates an unverified customer with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, in SignupInput) (User, error) {
	in, err := ValidateSignup(in)
	if err != nil {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	now := s.now().UTC()
	user := User{
		ID:           uuid.New().String(),
		Email:        in.Email,
		Name:         in.Name,
		Phone:        in.Phone,
		PasswordHash: hash,
		Role:         RoleCustomer,
		Provider:     ProviderPassword,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}

	return user, nil
}

// Authenticate verifies an email/password pair. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return User{}, &ValidationError{Message: "Please provide email and password"}
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}

	if len(user.PasswordHash) == 0 {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}

	if !user.IsVerified {
		return User{}, &NotVerifiedError{User: user}
	}

	return user, nil
}

// UpsertGoogle returns the account bound to a verified Google identity. The
// Google subject wins over the email: a linked account is returned even when
// its Google email has since changed. Otherwise a verified customer is created
// on first sight, or the subject and picture are back-filled on an existing
// email account.
func (s *Service) UpsertGoogle(ctx context.Context, p GoogleProfile) (User, error) {
	email := normalizeEmail(p.Email)
	if !emailPattern.MatchString(email) || p.Subject == "" {
		return User{}, &ValidationError{Message: "Google profile is missing email or subject"}
	}

	linked, err := s.repo.FindByGoogleID(ctx, p.Subject)
	if err == nil {
		return linked, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	user, err := s.repo.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrNotFound):
		name := strings.TrimSpace(p.Name)
		if name == "" {
			name = email[:strings.IndexByte(email, '@')]
		}
		now := s.now().UTC()
		user = User{
			ID:             uuid.New().String(),
			Email:          email,
			Name:           name,
			Role:           RoleCustomer,
			IsVerified:     true,
			GoogleID:       p.Subject,
			ProfilePicture: p.Picture,
			Provider:       ProviderGoogle,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.repo.Create(ctx, user); err != nil {
			return User{}, err
		}
		return user, nil
	case err != nil:
		return User{}, err
	}

	if user.GoogleID != "" {
		// The email belongs to an account bound to a different Google subject.
		return User{}, ErrGoogleLinked
	}

	picture := user.ProfilePicture
	if picture == "" {
		picture = p.Picture
	}
	if err := s.repo.LinkGoogle(ctx, user.ID, p.Subject, picture); err != nil {
		return User{}, err
	}
	user.GoogleID = p.Subject
	user.ProfilePicture = picture
	return user, nil
}
