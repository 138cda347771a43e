// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package workspace assembles everything one browser works with: its local
// cache namespace, its auth client, the identity resolver and the article
// and comment synchronizers.
package workspace

import (
	"context"
	"log/slog"

	"technexus/internal/articles"
	"technexus/internal/auth"
	"technexus/internal/comments"
	"technexus/internal/identity"
	"technexus/internal/localcache"
	"technexus/internal/metrics"
	"technexus/internal/models"
	"technexus/internal/sanitize"
)

// Pool hands out local cache namespaces.
type Pool interface {
	Namespace(ns string) localcache.Store
}

// Remote groups the remote store collections.
type Remote struct {
	Articles articles.Remote
	Comments comments.Remote
	Profiles identity.ProfileRemote
}

// Factory opens workspaces over shared backends.
type Factory struct {
	pool      Pool
	remote    Remote
	auth      *auth.Service
	sanitizer *sanitize.Policy
	recorder  metrics.Recorder
}

// NewFactory creates a factory. rec may be nil.
func NewFactory(pool Pool, remote Remote, authSvc *auth.Service, rec metrics.Recorder) *Factory {
	return &Factory{
		pool:      pool,
		remote:    remote,
		auth:      authSvc,
		sanitizer: sanitize.New(),
		recorder:  metrics.OrNop(rec),
	}
}

// Workspace is one browser's view of the system.
type Workspace struct {
	Namespace string
	Cache     *localcache.Cache
	Auth      *auth.Client
	Identity  *identity.Resolver
	Profiles  *identity.Profiles
	Articles  *articles.Synchronizer
	Comments  *comments.Synchronizer

	unsubscribe func()
}

// Open builds the workspace for browser namespace ns and starts listening
// for session changes. Close releases the subscriptions.
func (f *Factory) Open(ctx context.Context, ns string) *Workspace {
	cache := localcache.New(f.pool.Namespace(ns), f.recorder)
	client := f.auth.NewClient(cache.Store())
	resolver := identity.NewResolver(client, cache)

	w := &Workspace{
		Namespace: ns,
		Cache:     cache,
		Auth:      client,
		Identity:  resolver,
		Profiles:  identity.NewProfiles(f.remote.Profiles, client, resolver),
		Articles:  articles.New(f.remote.Articles, cache, f.sanitizer, f.recorder),
		Comments:  comments.New(f.remote.Articles, f.remote.Comments, cache, f.sanitizer, f.recorder),
	}

	// The per-author list belongs to whoever was signed in when it was
	// cached; a different identity must not see it.
	w.unsubscribe = resolver.Subscribe(func(*models.Identity) {
		if err := cache.InvalidateUserArticles(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("invalidate user articles failed", "namespace", ns, "error", err)
		}
	})
	resolver.Start(ctx)
	return w
}

// Close stops the workspace's session subscriptions.
func (w *Workspace) Close() {
	w.unsubscribe()
	w.Identity.Stop()
}

// Identify resolves the signed-in identity of the browser.
func (w *Workspace) Identify(ctx context.Context) *models.Identity {
	return w.Identity.Resolve(ctx)
}
