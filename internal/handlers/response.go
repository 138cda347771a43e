package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"technexus/internal/auth"
	"technexus/internal/models"
)

// envelope is the shape of every JSON response.
type envelope struct {
	Data  any       `json:"data,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// writeJSON writes data with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Data: data}); err != nil {
		slog.Error("encode response failed", "error", err)
	}
}

// writeError maps err onto a status code and error code. This is the only
// place domain errors become HTTP.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	if status >= 500 {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Error: body})
}

func classify(err error) (int, *apiError) {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, &apiError{Code: "validation", Message: ve.Message, Field: ve.Field}
	}

	switch {
	case errors.Is(err, models.ErrUnauthenticated):
		return http.StatusUnauthorized, &apiError{Code: "unauthenticated", Message: "Sign in to continue."}
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, &apiError{Code: "invalid_credentials", Message: "Invalid email or password."}
	case errors.Is(err, auth.ErrMFARequired):
		return http.StatusUnauthorized, &apiError{Code: "mfa_required", Message: "Enter your two-factor code."}
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, &apiError{Code: "invalid_token", Message: "The link or session has expired."}
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden, &apiError{Code: "forbidden", Message: "You can only change your own content."}
	case errors.Is(err, models.ErrArticleNotFound):
		return http.StatusNotFound, &apiError{Code: "article_not_found", Message: "Article not found."}
	case errors.Is(err, models.ErrCommentNotFound):
		return http.StatusNotFound, &apiError{Code: "comment_not_found", Message: "Comment not found."}
	case errors.Is(err, auth.ErrUnknownProvider):
		return http.StatusNotFound, &apiError{Code: "unknown_provider", Message: "Sign-in provider is not available."}
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, &apiError{Code: "not_found", Message: "Not found."}
	case errors.Is(err, models.ErrNoEffect):
		return http.StatusConflict, &apiError{Code: "no_effect", Message: "Nothing was changed. The comment may not exist or may not be yours."}
	case errors.Is(err, models.ErrEmailTaken):
		return http.StatusConflict, &apiError{Code: "email_taken", Message: "An account with this email already exists."}
	case errors.Is(err, auth.ErrOAuthState):
		return http.StatusBadRequest, &apiError{Code: "oauth_state", Message: "Sign-in request expired. Try again."}
	case auth.IsOAuthError(err):
		return http.StatusBadGateway, &apiError{Code: "oauth_exchange", Message: "The sign-in provider rejected the request."}
	}

	var te *models.TransportError
	if errors.As(err, &te) {
		return http.StatusBadGateway, &apiError{Code: "remote_unavailable", Message: "The content store is unavailable. Try again."}
	}
	return http.StatusInternalServerError, &apiError{Code: "internal", Message: "Internal Server Error"}
}

// decodeJSON reads the request body into dst and validates it.
func (a *API) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return models.Invalid("body", "invalid JSON body")
	}
	return a.check(dst)
}

// writeJSONError writes an error that has no domain error behind it.
func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Error: &apiError{Code: code, Message: message}})
}
