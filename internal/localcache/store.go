// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package localcache is the per-browser key/value cache that mirrors the
// remote entity collections. Every browser gets its own namespace; every
// value is a JSON document replaced wholesale on write.
package localcache

import (
	"context"
	"errors"
)

// Well-known keys.
const (
	KeyArticles     = "articles"
	KeyComments     = "comments"
	KeyCurrentUser  = "currentUser"
	KeyTheme        = "theme"
	KeyUserArticles = "userArticles"
	KeyAuthSession  = "authSession"
	KeyOAuthState   = "oauthState"
)

// ErrMiss is returned by Store.Get when a key holds no value.
var ErrMiss = errors.New("local cache miss")

// ErrConflict is returned when an atomic update kept losing races.
var ErrConflict = errors.New("local cache update conflict")

// Store is one browser's namespace.
type Store interface {
	// Get returns the raw value at key, or ErrMiss.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set replaces the value at key.
	Set(ctx context.Context, key string, value []byte) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
	// Update replaces the value at key with fn's result without letting a
	// concurrent writer slip in between the read and the write. fn sees nil
	// for an absent key; returning nil removes the key.
	Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error
	// Clear removes every key in the namespace.
	Clear(ctx context.Context) error
}
