// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for the
// Tech Nexus API. Routes are grouped by how much of the browser's state
// they need: none, a workspace, or a signed-in identity.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"technexus/internal/handlers"
	"technexus/internal/metrics"
	"technexus/internal/middleware"
	"technexus/internal/session"
	"technexus/internal/workspace"
)

// Deps is everything the router wires together.
type Deps struct {
	API         *handlers.API
	Browsers    *session.Store
	Workspaces  *workspace.Factory
	Metrics     prometheus.Gatherer
	AuthLimiter *middleware.RateLimiter // nil disables limiting
	CORSOrigins []string
	Secure      bool // cookies are Secure (HTTPS)
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	// Global middleware: applied to every request.
	r.Use(chimw.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)

	// Health check and metrics: no browser state.
	r.Get("/health", healthHandler)
	if d.Metrics != nil {
		r.Handle("/metrics", metrics.Handler(d.Metrics))
	}

	api := d.API
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.CORS(d.CORSOrigins))
		r.Use(middleware.NewCSRF(d.Secure))
		r.Use(middleware.LoadWorkspace(d.Browsers, d.Workspaces))
		r.Use(middleware.ResolveIdentity)

		r.Get("/csrf", api.CSRFToken)
		r.Delete("/browser", api.ForgetBrowser)

		// Theme: per browser, no account needed.
		r.Get("/theme", api.Theme)
		r.Put("/theme", api.SetTheme)
		r.Post("/theme/toggle", api.ToggleTheme)

		// Auth
		r.Route("/auth", func(r chi.Router) {
			r.Get("/session", api.Session)
			r.Post("/signout", api.SignOut)
			r.Get("/oauth/{provider}", api.OAuthStart)
			r.Get("/oauth/{provider}/callback", api.OAuthCallback)

			// Credential endpoints are rate limited per client IP.
			r.Group(func(r chi.Router) {
				if d.AuthLimiter != nil {
					r.Use(d.AuthLimiter.Middleware)
				}
				r.Post("/signup", api.SignUp)
				r.Post("/signin", api.SignIn)
				r.Post("/reset", api.RequestReset)
				r.Post("/reset/confirm", api.ConfirmReset)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireIdentity)
				r.Patch("/user", api.UpdateUser)
				r.Post("/totp", api.EnrollTOTP)
				r.Post("/totp/confirm", api.ConfirmTOTP)
			})
		})

		// Articles and comments: reads are public.
		r.Get("/articles", api.ListArticles)
		r.Get("/highlight.css", api.HighlightCSS)
		r.Get("/articles/{id}", api.GetArticle)
		r.Get("/articles/{id}/comments", api.ListComments)

		// Everything that writes requires a signed-in identity.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireIdentity)

			r.Post("/articles", api.CreateArticle)
			r.Patch("/articles/{id}", api.UpdateArticle)
			r.Delete("/articles/{id}", api.DeleteArticle)

			r.Post("/articles/{id}/comments", api.AddComment)
			r.Delete("/articles/{id}/comments", api.ClearComments)
			r.Patch("/comments/{id}", api.UpdateComment)
			r.Delete("/comments/{id}", api.DeleteComment)

			r.Get("/dashboard", api.Dashboard)
			r.Get("/profile", api.Profile)
			r.Patch("/profile", api.UpdateProfile)

			r.Post("/uploads/thumbnail", api.UploadThumbnail)
		})
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
