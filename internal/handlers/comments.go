package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"technexus/internal/authz"
	"technexus/internal/middleware"
	"technexus/internal/models"
)

type commentRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
}

type commentView struct {
	models.Comment
	CanEdit bool `json:"can_edit"`
}

// ListComments handles GET /api/articles/{id}/comments?mode=embedded|relational.
// Listing never fails; a broken remote yields an empty list.
func (a *API) ListComments(w http.ResponseWriter, r *http.Request) {
	ws := middleware.WorkspaceFromCtx(r.Context())
	id := middleware.IdentityFromCtx(r.Context())
	articleID := models.ID(chi.URLParam(r, "id"))
	kind := models.ParseCommentKind(r.URL.Query().Get("mode"))

	list := ws.Comments.List(r.Context(), kind, articleID)
	views := make([]commentView, 0, len(list))
	for _, c := range list {
		v := commentView{Comment: c}
		if c.Relational != nil {
			v.CanEdit = authz.CanMutateComment(c.Relational, id)
		}
		views = append(views, v)
	}

	var canClear bool
	if kind == models.CommentEmbedded {
		if article, err := ws.Articles.LoadOne(r.Context(), articleID); err == nil {
			canClear = authz.CanClearEmbeddedComments(article, id)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":      kind,
		"comments":  views,
		"can_clear": canClear,
	})
}

// AddComment handles POST /api/articles/{id}/comments?mode=embedded|relational.
func (a *API) AddComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ws := middleware.WorkspaceFromCtx(r.Context())
	id := middleware.IdentityFromCtx(r.Context())
	articleID := models.ID(chi.URLParam(r, "id"))

	if models.ParseCommentKind(r.URL.Query().Get("mode")) == models.CommentEmbedded {
		c, err := ws.Comments.AddEmbedded(r.Context(), articleID, req.Content, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, commentView{Comment: models.Comment{Kind: models.CommentEmbedded, Embedded: c}})
		return
	}

	c, err := ws.Comments.Add(r.Context(), articleID, req.Content, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, commentView{
		Comment: models.Comment{Kind: models.CommentRelational, Relational: c},
		CanEdit: true,
	})
}

// ClearComments handles DELETE /api/articles/{id}/comments. Only embedded
// comments can be cleared, and only by the article's author.
func (a *API) ClearComments(w http.ResponseWriter, r *http.Request) {
	ws := middleware.WorkspaceFromCtx(r.Context())
	err := ws.Comments.ClearEmbedded(r.Context(), models.ID(chi.URLParam(r, "id")), middleware.IdentityFromCtx(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateComment handles PATCH /api/comments/{id}.
func (a *API) UpdateComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ws := middleware.WorkspaceFromCtx(r.Context())
	err := ws.Comments.Update(r.Context(), models.ID(chi.URLParam(r, "id")), req.Content, requester(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteComment handles DELETE /api/comments/{id}.
func (a *API) DeleteComment(w http.ResponseWriter, r *http.Request) {
	ws := middleware.WorkspaceFromCtx(r.Context())
	if err := ws.Comments.Remove(r.Context(), models.ID(chi.URLParam(r, "id")), requester(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requester is the signed-in user's id, or zero.
func requester(r *http.Request) models.ID {
	if id := middleware.IdentityFromCtx(r.Context()); id != nil {
		return id.ID
	}
	return ""
}
