// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package articles keeps a browser's cached article collection in step with
// the remote store. Reads are cache-first; writes go to the remote store
// first and are mirrored into the cache only after they succeed.
package articles

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"technexus/internal/authz"
	"technexus/internal/localcache"
	"technexus/internal/metrics"
	"technexus/internal/models"
)

// Remote is the articles collection of the remote store.
type Remote interface {
	List(ctx context.Context, f models.ArticleFilter) ([]models.Article, error)
	FindByID(ctx context.Context, id models.ID) (*models.Article, error)
	Insert(ctx context.Context, a models.Article) (*models.Article, error)
	Update(ctx context.Context, id models.ID, patch models.ArticlePatch) (*models.Article, error)
	Delete(ctx context.Context, id models.ID) error
}

// Sanitizer cleans article HTML.
type Sanitizer interface {
	Article(raw string) string
}

type passthrough struct{}

func (passthrough) Article(raw string) string { return raw }

// Synchronizer serves one browser's article reads and writes.
type Synchronizer struct {
	remote    Remote
	cache     *localcache.Cache
	sanitizer Sanitizer
	recorder  metrics.Recorder
	now       func() time.Time
}

// New creates a synchronizer. sanitizer and rec may be nil.
func New(remote Remote, cache *localcache.Cache, sanitizer Sanitizer, rec metrics.Recorder) *Synchronizer {
	if sanitizer == nil {
		sanitizer = passthrough{}
	}
	return &Synchronizer{
		remote:    remote,
		cache:     cache,
		sanitizer: sanitizer,
		recorder:  metrics.OrNop(rec),
		now:       time.Now,
	}
}

// LoadAll returns the cached collection when it is non-empty, trusting it
// as is. Otherwise it fetches every article, newest first, and caches the
// result.
func (s *Synchronizer) LoadAll(ctx context.Context) ([]models.Article, error) {
	if cached := s.cache.Articles(ctx); len(cached) > 0 {
		s.recorder.CacheHit(localcache.KeyArticles)
		return cached, nil
	}
	s.recorder.CacheMiss(localcache.KeyArticles)

	start := time.Now()
	rows, err := s.remote.List(ctx, models.ArticleFilter{})
	s.recorder.RemoteCall("articles.list", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	models.NormalizeArticles(rows)

	if err := s.cache.SetArticles(ctx, rows); err != nil {
		slog.Warn("cache articles failed", "error", err)
	}
	return rows, nil
}

// LoadOne returns an article from the cache, or fetches it and appends it
// to the cached collection.
func (s *Synchronizer) LoadOne(ctx context.Context, id models.ID) (*models.Article, error) {
	id = models.ParseID(string(id))
	if id.IsZero() {
		return nil, models.ErrArticleNotFound
	}
	cached := s.cache.Articles(ctx)
	if i := indexOf(cached, id); i >= 0 {
		s.recorder.CacheHit(localcache.KeyArticles)
		return &cached[i], nil
	}
	s.recorder.CacheMiss(localcache.KeyArticles)

	start := time.Now()
	row, err := s.remote.FindByID(ctx, id)
	s.recorder.RemoteCall("articles.find", err, time.Since(start))
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrArticleNotFound
	}
	if err != nil {
		return nil, err
	}
	row.Normalize()

	s.mirror(ctx, "append fetched article", func(list []models.Article) []models.Article {
		return upsert(list, *row, false)
	})
	return row, nil
}

// Create validates fields, stamps the author from identity and stores the
// article. The stored row is appended to the cached collection.
func (s *Synchronizer) Create(ctx context.Context, fields models.ArticleFields, identity *models.Identity) (*models.Article, error) {
	if identity == nil || identity.ID.IsZero() {
		return nil, models.ErrUnauthenticated
	}
	if strings.TrimSpace(fields.Title) == "" {
		return nil, models.Invalid("title", "title is required")
	}
	content := s.sanitizer.Article(fields.Content)
	if strings.TrimSpace(content) == "" {
		return nil, models.Invalid("content", "content is required")
	}

	row := models.Article{
		Title:     strings.TrimSpace(fields.Title),
		Summary:   strings.TrimSpace(fields.Summary),
		Content:   content,
		Category:  strings.TrimSpace(fields.Category),
		Tags:      cleanTags(fields.Tags),
		Author:    identity.Username,
		AuthorID:  identity.ID,
		Thumbnail: strings.TrimSpace(fields.Thumbnail),
	}
	if row.Category == "" {
		row.Category = models.DefaultCategory
	}
	if row.Thumbnail == "" {
		row.Thumbnail = models.DefaultThumbnail
	}

	start := time.Now()
	stored, err := s.remote.Insert(ctx, row)
	s.recorder.RemoteCall("articles.insert", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	stored.Normalize()

	s.mirror(ctx, "append created article", func(list []models.Article) []models.Article {
		return upsert(list, *stored, false)
	})
	s.invalidateUserArticles(ctx)
	slog.Info("article created", "article_id", stored.ID, "author_id", stored.AuthorID)
	return stored, nil
}

// Update applies patch when identity owns the article, stamping
// updated_at. The cached entry is replaced by the stored row.
func (s *Synchronizer) Update(ctx context.Context, id models.ID, patch models.ArticlePatch, identity *models.Identity) (*models.Article, error) {
	current, err := s.LoadOne(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanMutateArticle(current, identity) {
		return nil, models.ErrForbidden
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, models.Invalid("title", "title is required")
		}
		patch.Title = &title
	}
	if patch.Content != nil {
		content := s.sanitizer.Article(*patch.Content)
		if strings.TrimSpace(content) == "" {
			return nil, models.Invalid("content", "content is required")
		}
		patch.Content = &content
	}
	if patch.Tags != nil {
		tags := cleanTags(*patch.Tags)
		patch.Tags = &tags
	}
	now := s.now().UTC()
	patch.UpdatedAt = &now

	start := time.Now()
	stored, err := s.remote.Update(ctx, current.ID, patch)
	s.recorder.RemoteCall("articles.update", err, time.Since(start))
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrArticleNotFound
	}
	if err != nil {
		return nil, err
	}
	stored.Normalize()

	s.mirror(ctx, "replace updated article", func(list []models.Article) []models.Article {
		return upsert(list, *stored, true)
	})
	s.invalidateUserArticles(ctx)
	return stored, nil
}

// Delete removes the article when identity owns it, then drops it and its
// embedded comments from the cache.
func (s *Synchronizer) Delete(ctx context.Context, id models.ID, identity *models.Identity) error {
	current, err := s.LoadOne(ctx, id)
	if err != nil {
		return err
	}
	if !authz.CanMutateArticle(current, identity) {
		return models.ErrForbidden
	}

	start := time.Now()
	err = s.remote.Delete(ctx, current.ID)
	s.recorder.RemoteCall("articles.delete", err, time.Since(start))
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return err
	}

	s.mirror(ctx, "remove deleted article", func(list []models.Article) []models.Article {
		return slices.DeleteFunc(list, func(a models.Article) bool { return a.ID.Equal(current.ID) })
	})
	if err := s.cache.RemoveEmbeddedComments(ctx, current.ID); err != nil {
		slog.Warn("drop cached comments failed", "article_id", current.ID, "error", err)
	}
	s.invalidateUserArticles(ctx)

	if err != nil {
		return models.ErrArticleNotFound
	}
	slog.Info("article deleted", "article_id", current.ID)
	return nil
}

// ThumbnailInUse reports whether any stored article still references url.
// It asks the remote store, never the cache.
func (s *Synchronizer) ThumbnailInUse(ctx context.Context, url string) (bool, error) {
	start := time.Now()
	rows, err := s.remote.List(ctx, models.ArticleFilter{Thumbnail: url})
	s.recorder.RemoteCall("articles.list", err, time.Since(start))
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// ListByAuthor returns identity's own articles, cache-first under
// "userArticles".
func (s *Synchronizer) ListByAuthor(ctx context.Context, identity *models.Identity) ([]models.Article, error) {
	if identity == nil || identity.ID.IsZero() {
		return nil, models.ErrUnauthenticated
	}
	if cached := s.cache.UserArticles(ctx, identity.ID); len(cached) > 0 {
		s.recorder.CacheHit(localcache.KeyUserArticles)
		return cached, nil
	}
	s.recorder.CacheMiss(localcache.KeyUserArticles)

	start := time.Now()
	rows, err := s.remote.List(ctx, models.ArticleFilter{AuthorID: identity.ID})
	s.recorder.RemoteCall("articles.list_by_author", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	models.NormalizeArticles(rows)

	if err := s.cache.SetUserArticles(ctx, identity.ID, rows); err != nil {
		slog.Warn("cache user articles failed", "error", err)
	}
	return rows, nil
}

// AuthorStats counts an author's articles and the embedded comments on them.
func AuthorStats(list []models.Article) models.AuthorStats {
	stats := models.AuthorStats{Articles: len(list)}
	for _, a := range list {
		stats.Comments += len(a.Comments)
	}
	return stats
}

// mirror applies fn to the cached collection. The remote write has already
// happened, so a cache failure is logged and otherwise ignored.
func (s *Synchronizer) mirror(ctx context.Context, what string, fn func([]models.Article) []models.Article) {
	if err := s.cache.UpdateArticles(ctx, fn); err != nil {
		slog.Warn("local cache "+what+" failed", "error", err)
	}
}

func (s *Synchronizer) invalidateUserArticles(ctx context.Context) {
	if err := s.cache.InvalidateUserArticles(ctx); err != nil {
		slog.Warn("invalidate user articles failed", "error", err)
	}
}

func indexOf(list []models.Article, id models.ID) int {
	return slices.IndexFunc(list, func(a models.Article) bool { return a.ID.Equal(id) })
}

// upsert replaces the entry with a's id, or appends a when there is none
// and onlyReplace is false.
func upsert(list []models.Article, a models.Article, onlyReplace bool) []models.Article {
	if i := indexOf(list, a.ID); i >= 0 {
		list[i] = a
		return list
	}
	if onlyReplace {
		return list
	}
	return append(list, a)
}

func cleanTags(tags []string) []string {
	out := []string{}
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
