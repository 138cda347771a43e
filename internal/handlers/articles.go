package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"technexus/internal/articles"
	"technexus/internal/authz"
	"technexus/internal/markdown"
	"technexus/internal/middleware"
	"technexus/internal/models"
)

// tagList accepts tags as a JSON array or as one comma-separated string.
type tagList []string

func (t *tagList) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = models.ParseTags(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}
	*t = list
	return nil
}

type createArticleRequest struct {
	Title     string  `json:"title" validate:"required,max=300"`
	Summary   string  `json:"summary" validate:"max=1000"`
	Content   string  `json:"content" validate:"required,max=100000"`
	Category  string  `json:"category" validate:"max=100"`
	Tags      tagList `json:"tags" validate:"max=20"`
	Thumbnail string  `json:"thumbnail" validate:"omitempty,http_url,max=2048"`
	Format    string  `json:"format" validate:"omitempty,oneof=html markdown"`
}

type updateArticleRequest struct {
	Title     *string  `json:"title" validate:"omitempty,max=300"`
	Summary   *string  `json:"summary" validate:"omitempty,max=1000"`
	Content   *string  `json:"content" validate:"omitempty,max=100000"`
	Category  *string  `json:"category" validate:"omitempty,max=100"`
	Tags      *tagList `json:"tags" validate:"omitempty,max=20"`
	Thumbnail *string  `json:"thumbnail" validate:"omitempty,http_url,max=2048"`
	Format    string   `json:"format" validate:"omitempty,oneof=html markdown"`
}

func (u updateArticleRequest) patch() models.ArticlePatch {
	p := models.ArticlePatch{
		Title:     u.Title,
		Summary:   u.Summary,
		Content:   u.Content,
		Category:  u.Category,
		Thumbnail: u.Thumbnail,
	}
	if u.Tags != nil {
		tags := []string(*u.Tags)
		p.Tags = &tags
	}
	return p
}

// renderContent turns a Markdown body into HTML. HTML bodies pass through;
// either way the synchronizer sanitizes the result.
func renderContent(format, content string) (string, error) {
	if format != "markdown" {
		return content, nil
	}
	return markdown.ToHTML(content)
}

// HighlightCSS handles GET /api/highlight.css, the stylesheet for code
// blocks in Markdown articles.
func (a *API) HighlightCSS(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := markdown.HighlightCSS(&buf); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(buf.Bytes())
}

type articleResponse struct {
	models.Article
	CanEdit bool `json:"can_edit"`
}

// ListArticles handles GET /api/articles. Facets are derived from the whole
// collection; search, category and tag narrow the returned list.
func (a *API) ListArticles(w http.ResponseWriter, r *http.Request) {
	ws := middleware.WorkspaceFromCtx(r.Context())
	all, err := ws.Articles.LoadAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	list := articles.Filter(all, articles.Query{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		Tag:      q.Get("tag"),
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"articles": list,
		"facets":   articles.DeriveFacets(all),
	})
}

// GetArticle handles GET /api/articles/{id}.
func (a *API) GetArticle(w http.ResponseWriter, r *http.Request) {
	ws := middleware.WorkspaceFromCtx(r.Context())
	article, err := ws.Articles.LoadOne(r.Context(), models.ID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	id := middleware.IdentityFromCtx(r.Context())
	writeJSON(w, http.StatusOK, articleResponse{Article: *article, CanEdit: authz.CanMutateArticle(article, id)})
}

// CreateArticle handles POST /api/articles.
func (a *API) CreateArticle(w http.ResponseWriter, r *http.Request) {
	var req createArticleRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	content, err := renderContent(req.Format, req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ws := middleware.WorkspaceFromCtx(r.Context())
	article, err := ws.Articles.Create(r.Context(), models.ArticleFields{
		Title:     req.Title,
		Summary:   req.Summary,
		Content:   content,
		Category:  req.Category,
		Tags:      req.Tags,
		Thumbnail: req.Thumbnail,
	}, middleware.IdentityFromCtx(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, articleResponse{Article: *article, CanEdit: true})
}

// UpdateArticle handles PATCH /api/articles/{id}.
func (a *API) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	var req updateArticleRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	patch := req.patch()
	if patch.IsEmpty() {
		writeError(w, r, models.Invalid("body", "nothing to update"))
		return
	}
	if patch.Content != nil {
		content, err := renderContent(req.Format, *patch.Content)
		if err != nil {
			writeError(w, r, err)
			return
		}
		patch.Content = &content
	}

	ws := middleware.WorkspaceFromCtx(r.Context())
	article, err := ws.Articles.Update(r.Context(), models.ID(chi.URLParam(r, "id")), patch, middleware.IdentityFromCtx(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, articleResponse{Article: *article, CanEdit: true})
}

// DeleteArticle handles DELETE /api/articles/{id}. An uploaded thumbnail
// is removed from object storage afterwards, best effort.
func (a *API) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	ws := middleware.WorkspaceFromCtx(r.Context())
	id := models.ID(chi.URLParam(r, "id"))

	identity := middleware.IdentityFromCtx(r.Context())

	var thumbnail string
	if article, err := ws.Articles.LoadOne(r.Context(), id); err == nil {
		thumbnail = article.Thumbnail
	}
	if err := ws.Articles.Delete(r.Context(), id, identity); err != nil {
		writeError(w, r, err)
		return
	}

	if a.storage != nil && strings.TrimSpace(thumbnail) != "" {
		a.cleanupThumbnail(r, ws.Articles, identity, thumbnail)
	}
	w.WriteHeader(http.StatusNoContent)
}

// cleanupThumbnail deletes the caller's own uploaded thumbnail once no
// stored article references it. Failures are logged only.
func (a *API) cleanupThumbnail(r *http.Request, list *articles.Synchronizer, identity *models.Identity, url string) {
	inUse, err := list.ThumbnailInUse(r.Context(), url)
	if err != nil {
		slog.Warn("thumbnail usage check failed", "url", url, "error", err)
		return
	}
	if inUse {
		return
	}
	if err := a.storage.DeleteThumbnail(r.Context(), identity.ID, url); err != nil {
		slog.Warn("thumbnail cleanup failed", "url", url, "error", err)
	}
}

// Dashboard handles GET /api/dashboard: the signed-in author's profile,
// own articles and totals.
func (a *API) Dashboard(w http.ResponseWriter, r *http.Request) {
	ws := middleware.WorkspaceFromCtx(r.Context())
	id := middleware.IdentityFromCtx(r.Context())

	profile, err := ws.Profiles.Current(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	mine, err := ws.Articles.ListByAuthor(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"profile":  profile,
		"articles": mine,
		"stats":    articles.AuthorStats(mine),
	})
}
