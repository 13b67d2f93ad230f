package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// Repository persists users. Emails are stored normalised to lower case.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
	SetVerificationToken(ctx context.Context, id, token string) error
	// VerifyByToken marks the owner of token verified and clears the token.
	VerifyByToken(ctx context.Context, token string) (User, error)
	// UpdatePassword stores hash and bumps the token version.
	UpdatePassword(ctx context.Context, id string, hash []byte) error
	UpdateTokenVersion(ctx context.Context, id string, version int) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, email, first_name, last_name, mobile, password_hash, verified, coalesce(verification_token, ''), token_version, created_at`

// Create inserts a new user.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO users (id, email, first_name, last_name, mobile, password_hash, verified, token_version, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		userID, user.Email, user.FirstName, user.LastName, user.Mobile, user.PasswordHash, user.Verified, user.TokenVersion, user.CreatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrUserExists
	}
	return err
}

// FindByEmail fetches a user by email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	return r.scan(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// FindByID fetches a user by id.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrUserNotFound
	}
	return r.scan(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
}

// SetVerificationToken replaces the outstanding email verification token.
func (r *PostgresRepository) SetVerificationToken(ctx context.Context, id, token string) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return ErrUserNotFound
	}
	return r.exec(ctx, `UPDATE users SET verification_token = $1 WHERE id = $2`, token, userID)
}

// VerifyByToken consumes a verification token in a single statement.
func (r *PostgresRepository) VerifyByToken(ctx context.Context, token string) (User, error) {
	user, err := r.scan(r.db.QueryRow(ctx, `UPDATE users SET verified = true, verification_token = NULL
        WHERE verification_token = $1 RETURNING `+userColumns, token))
	if errors.Is(err, ErrUserNotFound) {
		return User{}, ErrInvalidVerificationToken
	}
	return user, err
}

// UpdatePassword stores a new hash and invalidates existing sessions.
func (r *PostgresRepository) UpdatePassword(ctx context.Context, id string, hash []byte) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return ErrUserNotFound
	}
	return r.exec(ctx, `UPDATE users SET password_hash = $1, token_version = token_version + 1 WHERE id = $2`, hash, userID)
}

// UpdateTokenVersion sets the session version.
func (r *PostgresRepository) UpdateTokenVersion(ctx context.Context, id string, version int) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return ErrUserNotFound
	}
	return r.exec(ctx, `UPDATE users SET token_version = $1 WHERE id = $2`, version, userID)
}

func (r *PostgresRepository) exec(ctx context.Context, sql string, args ...any) error {
	cmd, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PostgresRepository) scan(row pgx.Row) (User, error) {
	var (
		id        uuid.UUID
		createdAt time.Time
		user      User
	)
	err := row.Scan(&id, &user.Email, &user.FirstName, &user.LastName, &user.Mobile,
		&user.PasswordHash, &user.Verified, &user.VerificationToken, &user.TokenVersion, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	user.ID = id.String()
	user.CreatedAt = createdAt.UTC()
	return user, nil
}
