// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"technexus/internal/localcache"
	"technexus/internal/models"
)

// storedSession is what a browser keeps under localcache.KeyAuthSession.
type storedSession struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type storedState struct {
	Provider string `json:"provider"`
	State    string `json:"state"`
}

// Client is one browser's auth provider. It persists the session token in
// the browser's local cache and tells listeners about session changes.
type Client struct {
	svc   *Service
	store localcache.Store

	mu        sync.Mutex
	listeners map[int]func(models.AuthEvent, *models.Session)
	nextID    int
}

// NewClient binds the service to one browser namespace.
func (s *Service) NewClient(store localcache.Store) *Client {
	return &Client{
		svc:       s,
		store:     store,
		listeners: make(map[int]func(models.AuthEvent, *models.Session)),
	}
}

// GetSession returns the browser's live session, or nil when signed out.
// An expired or tampered token is dropped.
func (c *Client) GetSession(ctx context.Context) (*models.Session, error) {
	raw, err := c.store.Get(ctx, localcache.KeyAuthSession)
	if errors.Is(err, localcache.ErrMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	var stored storedSession
	if err := json.Unmarshal(raw, &stored); err != nil || stored.AccessToken == "" {
		slog.Warn("discarding unreadable session", "error", err)
		c.drop(ctx)
		return nil, nil
	}

	session, err := c.svc.VerifySession(ctx, stored.AccessToken)
	if errors.Is(err, ErrInvalidToken) {
		slog.Debug("session token rejected", "error", err)
		c.drop(ctx)
		return nil, nil
	}
	return session, err
}

// OnAuthStateChange registers fn and returns its unsubscribe function.
func (c *Client) OnAuthStateChange(fn func(models.AuthEvent, *models.Session)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// SignUp creates a password account and signs the browser in.
func (c *Client) SignUp(ctx context.Context, email, password string, meta models.UserMetadata) (*models.Session, error) {
	session, err := c.svc.SignUp(ctx, email, password, meta)
	if err != nil {
		return nil, err
	}
	return session, c.establish(ctx, session)
}

// SignInWithPassword signs the browser in with a password.
func (c *Client) SignInWithPassword(ctx context.Context, creds Credentials) (*models.Session, error) {
	session, err := c.svc.SignInWithPassword(ctx, creds)
	if err != nil {
		return nil, err
	}
	return session, c.establish(ctx, session)
}

// SignInWithOAuth starts an OAuth login and returns the URL to redirect to.
func (c *Client) SignInWithOAuth(ctx context.Context, provider string) (string, error) {
	state := uuid.NewString()
	url, err := c.svc.OAuthURL(provider, state)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(storedState{Provider: provider, State: state})
	if err != nil {
		return "", err
	}
	if err := c.store.Set(ctx, localcache.KeyOAuthState, raw); err != nil {
		return "", fmt.Errorf("save oauth state: %w", err)
	}
	return url, nil
}

// CompleteOAuth finishes the login started by SignInWithOAuth. The state
// is single use.
func (c *Client) CompleteOAuth(ctx context.Context, provider, state, code string) (*models.Session, error) {
	raw, err := c.store.Get(ctx, localcache.KeyOAuthState)
	if err != nil {
		return nil, ErrOAuthState
	}
	if err := c.store.Remove(ctx, localcache.KeyOAuthState); err != nil {
		slog.Warn("remove oauth state failed", "error", err)
	}
	var want storedState
	if json.Unmarshal(raw, &want) != nil || want.State == "" || want.State != state || want.Provider != provider {
		return nil, ErrOAuthState
	}

	session, err := c.svc.CompleteOAuth(ctx, provider, code)
	if err != nil {
		return nil, err
	}
	return session, c.establish(ctx, session)
}

// SignOut forgets the browser's session.
func (c *Client) SignOut(ctx context.Context) error {
	if err := c.store.Remove(ctx, localcache.KeyAuthSession); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	c.emit(models.EventSignedOut, nil)
	return nil
}

// UpdateUser changes the signed-in user's metadata and/or password.
func (c *Client) UpdateUser(ctx context.Context, update models.UserUpdate) (*models.AuthUser, error) {
	session, err := c.requireSession(ctx)
	if err != nil {
		return nil, err
	}
	user, err := c.svc.UpdateUser(ctx, session.User.ID, update)
	if err != nil {
		return nil, err
	}
	if update.Password != nil {
		// The change revoked every session, this browser's included.
		fresh, err := c.svc.Reissue(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		if err := c.save(ctx, fresh); err != nil {
			return nil, err
		}
		session = fresh
	}
	session.User = *user
	c.emit(models.EventUserUpdated, session)
	return user, nil
}

// ResetPasswordForEmail mails a reset link pointing at redirectTo.
func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	return c.svc.SendPasswordReset(ctx, email, redirectTo)
}

// EnrollTOTP starts 2FA setup for the signed-in user.
func (c *Client) EnrollTOTP(ctx context.Context) (*Enrollment, error) {
	session, err := c.requireSession(ctx)
	if err != nil {
		return nil, err
	}
	return c.svc.EnrollTOTP(ctx, session.User.ID)
}

// ConfirmTOTP activates 2FA for the signed-in user.
func (c *Client) ConfirmTOTP(ctx context.Context, code string) error {
	session, err := c.requireSession(ctx)
	if err != nil {
		return err
	}
	return c.svc.ConfirmTOTP(ctx, session.User.ID, code)
}

func (c *Client) requireSession(ctx context.Context) (*models.Session, error) {
	session, err := c.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, models.ErrUnauthenticated
	}
	return session, nil
}

func (c *Client) establish(ctx context.Context, session *models.Session) error {
	if err := c.save(ctx, session); err != nil {
		return err
	}
	c.emit(models.EventSignedIn, session)
	return nil
}

func (c *Client) save(ctx context.Context, session *models.Session) error {
	raw, err := json.Marshal(storedSession{AccessToken: session.AccessToken, ExpiresAt: session.ExpiresAt})
	if err != nil {
		return err
	}
	if err := c.store.Set(ctx, localcache.KeyAuthSession, raw); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (c *Client) drop(ctx context.Context) {
	if err := c.store.Remove(ctx, localcache.KeyAuthSession); err != nil {
		slog.Warn("remove session failed", "error", err)
	}
}

func (c *Client) emit(event models.AuthEvent, session *models.Session) {
	c.mu.Lock()
	fns := make([]func(models.AuthEvent, *models.Session), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(event, session)
	}
}
