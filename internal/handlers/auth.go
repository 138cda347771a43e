package handlers

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"technexus/internal/auth"
	"technexus/internal/middleware"
	"technexus/internal/models"
)

type signUpRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	FullName string `json:"full_name" validate:"max=100"`
	Username string `json:"username" validate:"max=50"`
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	TOTPCode string `json:"totp_code" validate:"omitempty,len=6,numeric"`
}

type resetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetConfirmRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type updateUserRequest struct {
	Password  *string `json:"password" validate:"omitempty,min=6,max=72"`
	FullName  *string `json:"full_name" validate:"omitempty,max=100"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,http_url,max=2048"`
}

type totpConfirmRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// sessionResponse is what the browser learns about its session. The token
// itself stays in the browser's local cache.
type sessionResponse struct {
	User      *models.AuthUser `json:"user"`
	Identity  *models.Identity `json:"identity"`
	ExpiresAt string           `json:"expires_at,omitempty"`
}

func (a *API) respondSession(w http.ResponseWriter, r *http.Request, status int, session *models.Session) {
	ws := middleware.WorkspaceFromCtx(r.Context())
	resp := sessionResponse{}
	if session != nil {
		resp.User = &session.User
		resp.ExpiresAt = session.ExpiresAt.UTC().Format(time.RFC3339)
		resp.Identity = ws.Identify(r.Context())
	}
	writeJSON(w, status, resp)
}

// Session handles GET /api/auth/session.
func (a *API) Session(w http.ResponseWriter, r *http.Request) {
	ws := middleware.WorkspaceFromCtx(r.Context())
	session, err := ws.Auth.GetSession(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.respondSession(w, r, http.StatusOK, session)
}

// SignUp handles POST /api/auth/signup.
func (a *API) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ws := middleware.WorkspaceFromCtx(r.Context())
	session, err := ws.Auth.SignUp(r.Context(), req.Email, req.Password, models.UserMetadata{
		FullName: strings.TrimSpace(req.FullName),
		Username: strings.TrimSpace(req.Username),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("account created", "user_id", session.User.ID)
	a.respondSession(w, r, http.StatusCreated, session)
}

// SignIn handles POST /api/auth/signin.
func (a *API) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ws := middleware.WorkspaceFromCtx(r.Context())
	session, err := ws.Auth.SignInWithPassword(r.Context(), auth.Credentials{
		Email:    req.Email,
		Password: req.Password,
		TOTPCode: req.TOTPCode,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.respondSession(w, r, http.StatusOK, session)
}

// SignOut handles POST /api/auth/signout. The cached identity is cleared
// even when the provider fails.
func (a *API) SignOut(w http.ResponseWriter, r *http.Request) {
	ws := middleware.WorkspaceFromCtx(r.Context())
	if err := ws.Identity.SignOut(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// OAuthStart handles GET /api/auth/oauth/{provider} by redirecting to the
// provider's consent page.
func (a *API) OAuthStart(w http.ResponseWriter, r *http.Request) {
	ws := middleware.WorkspaceFromCtx(r.Context())
	target, err := ws.Auth.SignInWithOAuth(r.Context(), chi.URLParam(r, "provider"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// OAuthCallback handles GET /api/auth/oauth/{provider}/callback and sends
// the browser back to the site.
func (a *API) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		slog.Warn("oauth denied", "provider", chi.URLParam(r, "provider"), "error", e)
		http.Redirect(w, r, a.siteRedirect("/login", "oauth_denied"), http.StatusFound)
		return
	}

	ws := middleware.WorkspaceFromCtx(r.Context())
	_, err := ws.Auth.CompleteOAuth(r.Context(), chi.URLParam(r, "provider"), q.Get("state"), q.Get("code"))
	if err != nil {
		slog.Warn("oauth callback failed", "provider", chi.URLParam(r, "provider"), "error", err)
		http.Redirect(w, r, a.siteRedirect("/login", "oauth_failed"), http.StatusFound)
		return
	}
	http.Redirect(w, r, a.siteRedirect("/dashboard", ""), http.StatusFound)
}

func (a *API) siteRedirect(path, errCode string) string {
	target := strings.TrimRight(a.siteURL, "/") + path
	if errCode != "" {
		target += "?error=" + url.QueryEscape(errCode)
	}
	return target
}

// RequestReset handles POST /api/auth/reset. It answers 202 whether or not
// the account exists.
func (a *API) RequestReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ws := middleware.WorkspaceFromCtx(r.Context())
	if err := ws.Auth.ResetPasswordForEmail(r.Context(), req.Email, a.siteRedirect("/reset-password", "")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// ConfirmReset handles POST /api/auth/reset/confirm.
func (a *API) ConfirmReset(w http.ResponseWriter, r *http.Request) {
	var req resetConfirmRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.auth.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateUser handles PATCH /api/auth/user.
func (a *API) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ws := middleware.WorkspaceFromCtx(r.Context())
	update := models.UserUpdate{Password: req.Password}
	if req.FullName != nil || req.AvatarURL != nil {
		session, err := ws.Auth.GetSession(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		if session == nil {
			writeError(w, r, models.ErrUnauthenticated)
			return
		}
		meta := session.User.Metadata
		if req.FullName != nil {
			meta.FullName = strings.TrimSpace(*req.FullName)
		}
		if req.AvatarURL != nil {
			meta.AvatarURL = *req.AvatarURL
		}
		update.Data = &meta
	}
	if update.Password == nil && update.Data == nil {
		writeError(w, r, models.Invalid("body", "nothing to update"))
		return
	}

	user, err := ws.Auth.UpdateUser(r.Context(), update)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":     user,
		"identity": ws.Identify(r.Context()),
	})
}

// EnrollTOTP handles POST /api/auth/totp. The QR code is returned as a
// data URI ready for an <img> tag.
func (a *API) EnrollTOTP(w http.ResponseWriter, r *http.Request) {
	ws := middleware.WorkspaceFromCtx(r.Context())
	enrollment, err := ws.Auth.EnrollTOTP(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"secret":  enrollment.Secret,
		"url":     enrollment.URL,
		"qr_code": "data:image/png;base64," + base64.StdEncoding.EncodeToString(enrollment.QRPNG),
	})
}

// ConfirmTOTP handles POST /api/auth/totp/confirm.
func (a *API) ConfirmTOTP(w http.ResponseWriter, r *http.Request) {
	var req totpConfirmRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ws := middleware.WorkspaceFromCtx(r.Context())
	if err := ws.Auth.ConfirmTOTP(r.Context(), req.Code); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
