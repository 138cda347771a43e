// Package handlers serves the JSON API that stands in for the blog's
// single-page application. Every handler runs inside the requesting
// browser's workspace (see middleware.LoadWorkspace).
package handlers

import (
	"github.com/go-playground/validator/v10"

	"technexus/internal/auth"
	"technexus/internal/session"
	"technexus/internal/storage"
)

// API groups every HTTP handler.
type API struct {
	auth     *auth.Service
	browsers *session.Store
	storage  *storage.Client // nil when uploads are not configured
	validate *validator.Validate
	siteURL  string
}

// New creates the handler group. siteURL is where the SPA is served and is
// used for OAuth and password reset redirects.
func New(authSvc *auth.Service, browsers *session.Store, store *storage.Client, siteURL string) *API {
	return &API{
		auth:     authSvc,
		browsers: browsers,
		storage:  store,
		validate: newValidator(),
		siteURL:  siteURL,
	}
}
