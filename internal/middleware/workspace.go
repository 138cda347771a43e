// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"technexus/internal/models"
	"technexus/internal/session"
	"technexus/internal/workspace"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	// WorkspaceKey is the context key for the browser's workspace.
	WorkspaceKey contextKey = "workspace"

	// IdentityKey is the context key for the resolved identity.
	IdentityKey contextKey = "identity"
)

// LoadWorkspace identifies the browser by its cookie, issuing one when
// needed, and opens the browser's workspace for the request. Downstream
// handlers access it via WorkspaceFromCtx().
func LoadWorkspace(browsers *session.Store, factory *workspace.Factory) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ns, err := browsers.Ensure(r.Context(), w, r)
			if err != nil {
				slog.Error("browser identification failed", "error", err)
				writeError(w, http.StatusServiceUnavailable, "unavailable", "Local cache is unavailable.")
				return
			}

			ws := factory.Open(r.Context(), ns)
			defer ws.Close()

			ctx := context.WithValue(r.Context(), WorkspaceKey, ws)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ResolveIdentity asks the auth provider for the browser's session and
// stores the identity, if any, in the request context. It does NOT enforce
// authentication. Must be applied after LoadWorkspace.
func ResolveIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws := WorkspaceFromCtx(r.Context())
		if ws == nil {
			next.ServeHTTP(w, r)
			return
		}
		if id := ws.Identify(r.Context()); id != nil {
			r = r.WithContext(context.WithValue(r.Context(), IdentityKey, id))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireIdentity returns 401 when no identity was resolved. Must be
// applied after ResolveIdentity.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFromCtx(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "Sign in to continue.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WorkspaceFromCtx returns the request's workspace, or nil.
func WorkspaceFromCtx(ctx context.Context) *workspace.Workspace {
	ws, _ := ctx.Value(WorkspaceKey).(*workspace.Workspace)
	return ws
}

// IdentityFromCtx returns the request's identity, or nil when signed out.
func IdentityFromCtx(ctx context.Context) *models.Identity {
	id, _ := ctx.Value(IdentityKey).(*models.Identity)
	return id
}
