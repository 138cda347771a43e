// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package models defines the data structures that map to database tables
// and the local cache, plus the error taxonomy shared across the core.
package models

import "time"

// User is an auth account with its credentials and 2FA state.
type User struct {
	ID           ID           `json:"id"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"` // Empty for OAuth-only accounts
	Metadata     UserMetadata `json:"user_metadata"`
	TOTPSecret   *string      `json:"-"` // Nullable; set during 2FA setup
	TOTPEnabled  bool         `json:"totp_enabled"`
	TokenVersion int          `json:"-"` // Bumped on password change
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// HasPassword reports whether the account can sign in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// Public strips the credential fields.
func (u *User) Public() AuthUser {
	return AuthUser{ID: u.ID, Email: u.Email, Metadata: u.Metadata, CreatedAt: u.CreatedAt}
}

// AuthUser is the user object carried inside a session.
type AuthUser struct {
	ID        ID           `json:"id"`
	Email     string       `json:"email"`
	Metadata  UserMetadata `json:"user_metadata"`
	CreatedAt time.Time    `json:"created_at"`
}

// Identity derives the core identity from the session user.
func (u AuthUser) Identity() *Identity {
	return &Identity{ID: u.ID, Email: u.Email, Username: DisplayName(u.Metadata, u.Email)}
}

// Session is a signed-in auth session.
type Session struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        AuthUser  `json:"user"`
}

// UserUpdate lists the account fields a signed-in user may change.
type UserUpdate struct {
	Password *string
	Data     *UserMetadata
}

// AuthEvent names a session change.
type AuthEvent string

const (
	EventSignedIn    AuthEvent = "SIGNED_IN"
	EventSignedOut   AuthEvent = "SIGNED_OUT"
	EventUserUpdated AuthEvent = "USER_UPDATED"
)
