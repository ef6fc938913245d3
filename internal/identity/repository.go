package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Repository persists users and their pending verification challenge.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByID(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByGoogleID(ctx context.Context, googleID string) (User, error)
	// SetChallenge stores a fresh code and expiry and resets the attempt counter.
	SetChallenge(ctx context.Context, id, code string, expiry time.Time) error
	// IncrementAttempts bumps the failed attempt counter and returns the new value.
	IncrementAttempts(ctx context.Context, id string) (int, error)
	ClearChallenge(ctx context.Context, id string) error
	// MarkVerified flags the account verified and clears any challenge.
	MarkVerified(ctx context.Context, id string) error
	LinkGoogle(ctx context.Context, id, googleID, picture string) error
}

const (
	uniqueViolation    = "23505"
	googleIDConstraint = "users_google_id_key"
)

const userColumns = `id, email, password_hash, name, phone, role, is_verified, otp, otp_expiry,
	otp_attempts, google_id, profile_picture, provider, created_at, updated_at`

// DB is the subset of *pgxpool.Pool the repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new user.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO users (id, email, password_hash, name, phone, role, is_verified,
        otp, otp_expiry, otp_attempts, google_id, profile_picture, provider, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)`,
		userID, normalizeEmail(user.Email), user.PasswordHash, user.Name, user.Phone, user.Role, user.IsVerified,
		nullString(user.OTP), nullTime(user.OTPExpiry), user.OTPAttempts, nullString(user.GoogleID),
		user.ProfilePicture, user.Provider, user.CreatedAt.UTC())
	return mapUniqueViolation(err)
}

// FindByID fetches a user by primary key.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrNotFound
	}
	return r.scanOne(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
}

// FindByEmail fetches a user by email, case-insensitively.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	return r.scanOne(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = $1`, normalizeEmail(email)))
}

// FindByGoogleID fetches the user linked to a Google subject.
func (r *PostgresRepository) FindByGoogleID(ctx context.Context, googleID string) (User, error) {
	if googleID == "" {
		return User{}, ErrNotFound
	}
	return r.scanOne(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE google_id = $1`, googleID))
}

// SetChallenge replaces any pending code.
func (r *PostgresRepository) SetChallenge(ctx context.Context, id, code string, expiry time.Time) error {
	return r.update(ctx, `UPDATE users SET otp = $2, otp_expiry = $3, otp_attempts = 0, updated_at = NOW()
        WHERE id = $1`, id, code, expiry.UTC())
}

// IncrementAttempts performs the increment in a single statement so concurrent
// wrong guesses are all counted.
func (r *PostgresRepository) IncrementAttempts(ctx context.Context, id string) (int, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return 0, ErrNotFound
	}
	var attempts int
	err = r.db.QueryRow(ctx, `UPDATE users SET otp_attempts = otp_attempts + 1, updated_at = NOW()
        WHERE id = $1 RETURNING otp_attempts`, userID).Scan(&attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return attempts, err
}

// ClearChallenge drops the pending code without verifying the account.
func (r *PostgresRepository) ClearChallenge(ctx context.Context, id string) error {
	return r.update(ctx, `UPDATE users SET otp = NULL, otp_expiry = NULL, otp_attempts = 0, updated_at = NOW()
        WHERE id = $1`, id)
}

// MarkVerified completes verification.
func (r *PostgresRepository) MarkVerified(ctx context.Context, id string) error {
	return r.update(ctx, `UPDATE users SET is_verified = TRUE, otp = NULL, otp_expiry = NULL, otp_attempts = 0,
        updated_at = NOW() WHERE id = $1`, id)
}

// LinkGoogle stores the Google subject and picture for an existing account.
func (r *PostgresRepository) LinkGoogle(ctx context.Context, id, googleID, picture string) error {
	return r.update(ctx, `UPDATE users SET google_id = $2, profile_picture = $3, updated_at = NOW()
        WHERE id = $1`, id, googleID, picture)
}

func (r *PostgresRepository) update(ctx context.Context, sql, id string, args ...any) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, sql, append([]any{userID}, args...)...)
	if err != nil {
		return mapUniqueViolation(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) scanOne(row pgx.Row) (User, error) {
	var (
		id       uuid.UUID
		user     User
		otp      *string
		expiry   *time.Time
		googleID *string
	)
	err := row.Scan(&id, &user.Email, &user.PasswordHash, &user.Name, &user.Phone, &user.Role, &user.IsVerified,
		&otp, &expiry, &user.OTPAttempts, &googleID, &user.ProfilePicture, &user.Provider, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	user.ID = id.String()
	if otp != nil {
		user.OTP = *otp
	}
	if expiry != nil {
		user.OTPExpiry = expiry.UTC()
	}
	if googleID != nil {
		user.GoogleID = *googleID
	}
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return user, nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		if pgErr.ConstraintName == googleIDConstraint {
			return ErrGoogleLinked
		}
		return ErrEmailTaken
	}
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
