// Package store provides PostgreSQL access for the remote entity
// collections: articles, comments, profiles and the auth users behind them.
// Each store struct wraps a *sql.DB and exposes typed query methods.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"technexus/internal/models"
)

const userColumns = `id::text, email, password_hash, metadata, totp_secret, totp_enabled, token_version, created_at, updated_at`

// UserStore handles all user-related database operations.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a new UserStore with the given database connection.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// FindByEmail retrieves a user by their email address. Returns nil if not found.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", wrap("find user", err))
	}
	return u, nil
}

// FindByID retrieves a user by id. Returns nil if not found.
func (s *UserStore) FindByID(ctx context.Context, id models.ID) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id::text = $1`, id.String()))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", wrap("find user", err))
	}
	return u, nil
}

// Create inserts a new user with an already hashed password. An empty
// hash creates an account that can only sign in through OAuth.
func (s *UserStore) Create(ctx context.Context, email, passwordHash string, meta models.UserMetadata) (*models.User, error) {
	rawMeta, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}

	u, err := scanUser(s.db.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash, metadata)
		VALUES ($1, $2, $3::jsonb)
		RETURNING `+userColumns,
		email, passwordHash, string(rawMeta),
	))
	if err != nil {
		return nil, fmt.Errorf("create user: %w", wrap("create user", err))
	}
	return u, nil
}

// UpdateMetadata replaces a user's metadata.
func (s *UserStore) UpdateMetadata(ctx context.Context, id models.ID, meta models.UserMetadata) error {
	rawMeta, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE users SET metadata = $1::jsonb, updated_at = NOW() WHERE id::text = $2
	`, string(rawMeta), id.String())
	if err != nil {
		return fmt.Errorf("update metadata: %w", wrap("update user", err))
	}
	return nil
}

// UpdatePasswordHash stores a new password hash and bumps the token
// version, which invalidates every token signed before the change.
func (s *UserStore) UpdatePasswordHash(ctx context.Context, id models.ID, hash string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $1, token_version = token_version + 1, updated_at = NOW()
		WHERE id::text = $2
	`, hash, id.String())
	if err != nil {
		return fmt.Errorf("update password: %w", wrap("update user", err))
	}
	return nil
}

// SetTOTPSecret saves the TOTP secret for a user (during 2FA setup).
func (s *UserStore) SetTOTPSecret(ctx context.Context, id models.ID, secret string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET totp_secret = $1, updated_at = NOW() WHERE id::text = $2
	`, secret, id.String())
	if err != nil {
		return fmt.Errorf("set totp secret: %w", wrap("update user", err))
	}
	return nil
}

// EnableTOTP marks 2FA as active for a user (after successful code verification).
func (s *UserStore) EnableTOTP(ctx context.Context, id models.ID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET totp_enabled = TRUE, updated_at = NOW() WHERE id::text = $1
	`, id.String())
	if err != nil {
		return fmt.Errorf("enable totp: %w", wrap("update user", err))
	}
	return nil
}

// Delete removes a user by ID. Profiles, articles and comments cascade.
func (s *UserStore) Delete(ctx context.Context, id models.ID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id::text = $1`, id.String())
	if err != nil {
		return fmt.Errorf("delete user: %w", wrap("delete user", err))
	}
	return nil
}

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	var meta []byte
	if err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &meta,
		&u.TOTPSecret, &u.TOTPEnabled, &u.TokenVersion, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(meta, &u.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata of user %s: %w", u.ID, err)
	}
	return &u, nil
}
