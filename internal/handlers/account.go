package handlers

import (
	"net/http"

	"technexus/internal/middleware"
	"technexus/internal/models"
)

type profileRequest struct {
	Username string `json:"username" validate:"required,max=50"`
}

// Profile handles GET /api/profile.
func (a *API) Profile(w http.ResponseWriter, r *http.Request) {
	ws := middleware.WorkspaceFromCtx(r.Context())
	profile, err := ws.Profiles.Current(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// UpdateProfile handles PATCH /api/profile.
func (a *API) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ws := middleware.WorkspaceFromCtx(r.Context())
	profile, err := ws.Profiles.UpdateUsername(r.Context(), req.Username)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"profile":  profile,
		"identity": ws.Cache.CurrentUser(r.Context()),
	})
}

type themeRequest struct {
	Theme string `json:"theme" validate:"required,oneof=dark light"`
}

// Theme handles GET /api/theme.
func (a *API) Theme(w http.ResponseWriter, r *http.Request) {
	ws := middleware.WorkspaceFromCtx(r.Context())
	writeJSON(w, http.StatusOK, map[string]models.Theme{"theme": ws.Cache.Theme(r.Context())})
}

// SetTheme handles PUT /api/theme.
func (a *API) SetTheme(w http.ResponseWriter, r *http.Request) {
	var req themeRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ws := middleware.WorkspaceFromCtx(r.Context())
	theme := models.ParseTheme(req.Theme)
	if err := ws.Cache.SetTheme(r.Context(), theme); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]models.Theme{"theme": theme})
}

// ToggleTheme handles POST /api/theme/toggle.
func (a *API) ToggleTheme(w http.ResponseWriter, r *http.Request) {
	ws := middleware.WorkspaceFromCtx(r.Context())
	theme, err := ws.Cache.ToggleTheme(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]models.Theme{"theme": theme})
}

// ForgetBrowser handles DELETE /api/browser: the browser's local cache is
// wiped and its cookie expired, as if site data had been cleared.
func (a *API) ForgetBrowser(w http.ResponseWriter, r *http.Request) {
	ws := middleware.WorkspaceFromCtx(r.Context())
	if err := ws.Cache.Clear(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.browsers.Forget(r.Context(), w, r); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CSRFToken handles GET /api/csrf. SPAs that cannot read the cookie fetch
// the token here and echo it in X-CSRF-Token.
func (a *API) CSRFToken(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"token": middleware.CSRFTokenFromCtx(r.Context())})
}
