// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package comments serves the two comment representations: comments
// embedded in the article row, and rows of the relational comments
// collection. Listing never fails; a broken remote degrades to an empty
// list.
package comments

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"technexus/internal/localcache"
	"technexus/internal/metrics"
	"technexus/internal/models"
)

// ArticleRemote is the part of the articles collection embedded comments
// are persisted through.
type ArticleRemote interface {
	FindByID(ctx context.Context, id models.ID) (*models.Article, error)
	Update(ctx context.Context, id models.ID, patch models.ArticlePatch) (*models.Article, error)
}

// Remote is the relational comments collection. UpdateOwned and DeleteOwned
// match on both the comment id and the user id and report rows affected.
type Remote interface {
	FindByID(ctx context.Context, id models.ID) (*models.RelationalComment, error)
	ListByArticle(ctx context.Context, articleID models.ID) ([]models.RelationalComment, error)
	Insert(ctx context.Context, c models.NewComment) (*models.RelationalComment, error)
	UpdateOwned(ctx context.Context, id, userID models.ID, content string) (int64, error)
	DeleteOwned(ctx context.Context, id, userID models.ID) (int64, error)
}

// Sanitizer reduces comment input to plain text.
type Sanitizer interface {
	Comment(raw string) string
}

type trimOnly struct{}

func (trimOnly) Comment(raw string) string { return strings.TrimSpace(raw) }

// Synchronizer serves one browser's comment reads and writes.
type Synchronizer struct {
	articles  ArticleRemote
	comments  Remote
	cache     *localcache.Cache
	sanitizer Sanitizer
	recorder  metrics.Recorder
	now       func() time.Time
	newID     func() (uuid.UUID, error)
}

// New creates a synchronizer. sanitizer and rec may be nil.
func New(articles ArticleRemote, comments Remote, cache *localcache.Cache, sanitizer Sanitizer, rec metrics.Recorder) *Synchronizer {
	if sanitizer == nil {
		sanitizer = trimOnly{}
	}
	return &Synchronizer{
		articles:  articles,
		comments:  comments,
		cache:     cache,
		sanitizer: sanitizer,
		recorder:  metrics.OrNop(rec),
		now:       time.Now,
		newID:     uuid.NewV7,
	}
}

// List returns an article's comments in the given representation.
func (s *Synchronizer) List(ctx context.Context, kind models.CommentKind, articleID models.ID) []models.Comment {
	if kind == models.CommentEmbedded {
		return models.EmbeddedComments(s.ListEmbedded(ctx, articleID))
	}
	return models.RelationalComments(s.ListByArticle(ctx, articleID))
}

// content sanitizes raw and rejects what is left blank.
func (s *Synchronizer) content(raw string) (string, error) {
	content := s.sanitizer.Comment(raw)
	if content == "" {
		return "", models.Invalid("content", "comment cannot be empty")
	}
	return content, nil
}

func (s *Synchronizer) degraded(mode string, articleID models.ID, err error) {
	s.recorder.CommentsDegraded(mode)
	slog.Warn("listing comments failed, returning none",
		"mode", mode, "article_id", articleID, "error", err)
}

func (s *Synchronizer) findArticle(ctx context.Context, id models.ID) (*models.Article, error) {
	id = models.ParseID(string(id))
	if id.IsZero() {
		return nil, models.ErrArticleNotFound
	}
	start := time.Now()
	a, err := s.articles.FindByID(ctx, id)
	s.recorder.RemoteCall("articles.find", err, time.Since(start))
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrArticleNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Normalize()
	return a, nil
}

// replaceCachedArticle swaps the cached copy of a for the stored row, if
// the collection holds one.
func (s *Synchronizer) replaceCachedArticle(ctx context.Context, a *models.Article) {
	err := s.cache.UpdateArticles(ctx, func(list []models.Article) []models.Article {
		if i := slices.IndexFunc(list, func(c models.Article) bool { return c.ID.Equal(a.ID) }); i >= 0 {
			list[i] = *a
		}
		return list
	})
	if err != nil {
		slog.Warn("local cache replace article failed", "article_id", a.ID, "error", err)
	}
}
