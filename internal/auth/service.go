// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package auth is the authentication provider: password and OAuth sign-in,
// signed session tokens, password reset links, account updates and optional
// TOTP. Service holds the server-wide state; Client is one browser's view
// of it, keeping the session token in that browser's local cache.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"technexus/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrMFARequired        = errors.New("two-factor code required")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUnknownProvider    = errors.New("unknown oauth provider")
	ErrOAuthState         = errors.New("oauth state mismatch")
)

const minPasswordLength = 6

// Users is the account table.
type Users interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id models.ID) (*models.User, error)
	Create(ctx context.Context, email, passwordHash string, meta models.UserMetadata) (*models.User, error)
	UpdateMetadata(ctx context.Context, id models.ID, meta models.UserMetadata) error
	UpdatePasswordHash(ctx context.Context, id models.ID, hash string) error
	SetTOTPSecret(ctx context.Context, id models.ID, secret string) error
	EnableTOTP(ctx context.Context, id models.ID) error
}

// Config tunes the service.
type Config struct {
	Secret     []byte
	Issuer     string
	SessionTTL time.Duration
	ResetTTL   time.Duration
	BcryptCost int
	OAuth      map[string]*OAuthProvider
}

// Service is the server-wide auth provider.
type Service struct {
	users  Users
	mailer Mailer
	cfg    Config
	now    func() time.Time
}

// New creates the service. A nil mailer logs outgoing mail instead.
func New(users Users, mailer Mailer, cfg Config) *Service {
	if mailer == nil {
		mailer = LogMailer{}
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "technexus"
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}
	if cfg.ResetTTL == 0 {
		cfg.ResetTTL = time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{users: users, mailer: mailer, cfg: cfg, now: time.Now}
}

// Credentials is a password sign-in attempt.
type Credentials struct {
	Email    string
	Password string
	TOTPCode string
}

// SignUp creates a password account and signs it in.
func (s *Service) SignUp(ctx context.Context, email, password string, meta models.UserMetadata) (*models.Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, models.Invalid("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}
	u, err := s.users.Create(ctx, email, hash, meta)
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	slog.Info("user signed up", "user_id", u.ID)
	return s.issueSession(u)
}

// SignInWithPassword checks the credentials, and the TOTP code when the
// account has 2FA enabled.
func (s *Service) SignInWithPassword(ctx context.Context, c Credentials) (*models.Session, error) {
	email, err := normalizeEmail(c.Email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	if u == nil || !checkPassword(u, c.Password) {
		return nil, ErrInvalidCredentials
	}
	if u.TOTPEnabled && u.TOTPSecret != nil {
		if c.TOTPCode == "" {
			return nil, ErrMFARequired
		}
		if !validateTOTP(c.TOTPCode, *u.TOTPSecret, s.now()) {
			return nil, ErrInvalidCredentials
		}
	}
	return s.issueSession(u)
}

// VerifySession checks an access token and returns the session with the
// account's current data.
func (s *Service) VerifySession(ctx context.Context, token string) (*models.Session, error) {
	claims, err := s.parseToken(token, purposeSession)
	if err != nil {
		return nil, err
	}
	u, err := s.currentUser(ctx, claims)
	if errors.Is(err, ErrInvalidToken) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("verify session: %w", err)
	}
	return &models.Session{
		AccessToken: token,
		ExpiresAt:   claims.ExpiresAt.Time.UTC(),
		User:        u.Public(),
	}, nil
}

// UpdateUser changes the metadata and/or password of a user.
func (s *Service) UpdateUser(ctx context.Context, id models.ID, update models.UserUpdate) (*models.AuthUser, error) {
	if update.Password != nil {
		if len(*update.Password) < minPasswordLength {
			return nil, models.Invalid("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
		}
		hash, err := s.hash(*update.Password)
		if err != nil {
			return nil, err
		}
		if err := s.users.UpdatePasswordHash(ctx, id, hash); err != nil {
			return nil, fmt.Errorf("update password: %w", err)
		}
	}
	if update.Data != nil {
		if err := s.users.UpdateMetadata(ctx, id, *update.Data); err != nil {
			return nil, fmt.Errorf("update metadata: %w", err)
		}
	}
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload user: %w", err)
	}
	if u == nil {
		return nil, ErrInvalidToken
	}
	user := u.Public()
	return &user, nil
}

// SendPasswordReset mails a reset link to email if an account exists. An
// unknown address is not reported, so the endpoint cannot be used to enumerate
// accounts.
func (s *Service) SendPasswordReset(ctx context.Context, email, redirectTo string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("password reset: %w", err)
	}
	if u == nil {
		slog.Info("password reset requested for unknown email")
		return nil
	}
	token, _, err := s.signToken(u, purposeReset, s.cfg.ResetTTL)
	if err != nil {
		return err
	}
	link := redirectTo + "?token=" + token
	if strings.Contains(redirectTo, "?") {
		link = redirectTo + "&token=" + token
	}
	body := "Use the link below to choose a new password. It expires in " +
		s.cfg.ResetTTL.String() + ".\n\n" + link + "\n"
	if err := s.mailer.Send(ctx, u.Email, "Reset your password", body); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}
	return nil
}

// ResetPassword sets a new password using a token from SendPasswordReset.
// The password change bumps the token version, so the token works once and
// every session signed before it is revoked.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	claims, err := s.parseToken(token, purposeReset)
	if err != nil {
		return err
	}
	u, err := s.currentUser(ctx, claims)
	if errors.Is(err, ErrInvalidToken) {
		return err
	}
	if err != nil {
		return fmt.Errorf("password reset: %w", err)
	}
	_, err = s.UpdateUser(ctx, u.ID, models.UserUpdate{Password: &password})
	return err
}

// Reissue signs a fresh session for id under its current token version.
func (s *Service) Reissue(ctx context.Context, id models.ID) (*models.Session, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reissue session: %w", err)
	}
	if u == nil {
		return nil, ErrInvalidToken
	}
	return s.issueSession(u)
}

func (s *Service) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// checkPassword verifies a plaintext password against the user's stored hash.
func checkPassword(u *models.User, password string) bool {
	if !u.HasPassword() {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil || addr.Address != strings.TrimSpace(raw) {
		return "", models.Invalid("email", "must be a valid email address")
	}
	return strings.ToLower(addr.Address), nil
}
