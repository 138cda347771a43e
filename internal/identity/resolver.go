// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package identity turns the auth provider's session into the Identity the
// rest of the core works with, and keeps the cached copy under
// "currentUser" in step with session changes.
package identity

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"technexus/internal/localcache"
	"technexus/internal/models"
)

// Provider is the slice of the auth provider the resolver depends on.
type Provider interface {
	// GetSession returns the live session, or nil when signed out.
	GetSession(ctx context.Context) (*models.Session, error)
	// OnAuthStateChange registers fn for session changes and returns a
	// function that removes it.
	OnAuthStateChange(fn func(models.AuthEvent, *models.Session)) func()
	SignOut(ctx context.Context) error
}

// Resolver derives the current identity for one browser.
type Resolver struct {
	provider Provider
	cache    *localcache.Cache

	mu          sync.Mutex
	listeners   map[int]func(*models.Identity)
	nextID      int
	started     bool
	unsubscribe func()
}

// NewResolver creates a resolver over provider and cache.
func NewResolver(provider Provider, cache *localcache.Cache) *Resolver {
	return &Resolver{
		provider:  provider,
		cache:     cache,
		listeners: make(map[int]func(*models.Identity)),
	}
}

// Resolve asks the provider for the session and rewrites "currentUser" to
// match. It never fails: any problem reads as signed out.
func (r *Resolver) Resolve(ctx context.Context) *models.Identity {
	session, err := r.provider.GetSession(ctx)
	if err != nil {
		slog.Warn("session lookup failed, treating as signed out", "error", err)
	}
	if err != nil || session == nil {
		if err := r.cache.ClearCurrentUser(ctx); err != nil {
			slog.Warn("clear current user failed", "error", err)
		}
		return nil
	}

	id := session.User.Identity()
	if err := r.cache.SetCurrentUser(ctx, id); err != nil {
		slog.Warn("cache current user failed", "error", err)
	}
	return id
}

// Start subscribes to the provider's session changes. Every change is
// followed by a fresh Resolve and a notification to subscribers. Calling
// Start twice is a no-op.
func (r *Resolver) Start(ctx context.Context) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.mu.Unlock()

	bg := context.WithoutCancel(ctx)
	unsubscribe := r.provider.OnAuthStateChange(func(event models.AuthEvent, _ *models.Session) {
		slog.Debug("auth state changed", "event", event)
		r.notify(r.Resolve(bg))
	})

	r.mu.Lock()
	r.unsubscribe = unsubscribe
	r.mu.Unlock()
}

// Stop removes the provider subscription.
func (r *Resolver) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}
	r.started = false
}

// Subscribe registers fn to receive every re-resolved identity (nil after
// sign-out). The returned function unregisters it.
func (r *Resolver) Subscribe(fn func(*models.Identity)) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

// SignOut ends the provider session, clears "currentUser" and tells the
// subscribers. The cache is cleared even when the provider call fails.
func (r *Resolver) SignOut(ctx context.Context) error {
	err := r.provider.SignOut(ctx)
	if cerr := r.cache.ClearCurrentUser(ctx); cerr != nil {
		slog.Warn("clear current user failed", "error", cerr)
	}
	r.notify(nil)
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

func (r *Resolver) notify(id *models.Identity) {
	r.mu.Lock()
	fns := make([]func(*models.Identity), 0, len(r.listeners))
	for _, fn := range r.listeners {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(id)
	}
}
