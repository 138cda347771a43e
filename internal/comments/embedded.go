// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package comments

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"technexus/internal/authz"
	"technexus/internal/localcache"
	"technexus/internal/models"
)

// AddEmbedded appends a comment to the article's embedded sequence. The
// whole sequence is written back to the article row, then mirrored into the
// comments map.
func (s *Synchronizer) AddEmbedded(ctx context.Context, articleID models.ID, raw string, identity *models.Identity) (*models.EmbeddedComment, error) {
	if identity == nil || identity.ID.IsZero() {
		return nil, models.ErrUnauthenticated
	}
	content, err := s.content(raw)
	if err != nil {
		return nil, err
	}
	article, err := s.findArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}

	id, err := s.newID()
	if err != nil {
		return nil, fmt.Errorf("generate comment id: %w", err)
	}
	comment := models.EmbeddedComment{
		ID:        models.ID(id.String()),
		Content:   content,
		Author:    identity.Username,
		CreatedAt: s.now(),
	}
	comment.Normalize()

	seq := append(article.Comments, comment)
	stored, err := s.writeEmbedded(ctx, article.ID, seq)
	if err != nil {
		return nil, err
	}
	slog.Info("embedded comment added", "article_id", stored.ID, "comment_id", comment.ID)
	return &comment, nil
}

// ListEmbedded returns an article's embedded comments from the comments
// map, falling back to the article row. Failures yield an empty list.
func (s *Synchronizer) ListEmbedded(ctx context.Context, articleID models.ID) []models.EmbeddedComment {
	if list, ok := s.cache.EmbeddedComments(ctx, articleID); ok {
		s.recorder.CacheHit(localcache.KeyComments)
		return list
	}
	s.recorder.CacheMiss(localcache.KeyComments)

	article, err := s.findArticle(ctx, articleID)
	if err != nil {
		s.degraded(string(models.CommentEmbedded), articleID, err)
		return []models.EmbeddedComment{}
	}
	list := article.Comments
	if list == nil {
		list = []models.EmbeddedComment{}
	}
	if err := s.cache.SetEmbeddedComments(ctx, article.ID, list); err != nil {
		slog.Warn("cache embedded comments failed", "article_id", article.ID, "error", err)
	}
	return list
}

// ClearEmbedded removes every embedded comment of an article. Only the
// article's author may do so.
func (s *Synchronizer) ClearEmbedded(ctx context.Context, articleID models.ID, identity *models.Identity) error {
	article, err := s.findArticle(ctx, articleID)
	if err != nil {
		return err
	}
	if !authz.CanClearEmbeddedComments(article, identity) {
		return models.ErrForbidden
	}
	if _, err := s.writeEmbedded(ctx, article.ID, []models.EmbeddedComment{}); err != nil {
		return err
	}
	slog.Info("embedded comments cleared", "article_id", article.ID)
	return nil
}

func (s *Synchronizer) writeEmbedded(ctx context.Context, articleID models.ID, seq []models.EmbeddedComment) (*models.Article, error) {
	start := time.Now()
	stored, err := s.articles.Update(ctx, articleID, models.ArticlePatch{Comments: &seq})
	s.recorder.RemoteCall("articles.update_comments", err, time.Since(start))
	if err != nil {
		return nil, notFound(err, models.ErrArticleNotFound)
	}
	stored.Normalize()

	if err := s.cache.SetEmbeddedComments(ctx, stored.ID, stored.Comments); err != nil {
		slog.Warn("cache embedded comments failed", "article_id", stored.ID, "error", err)
	}
	s.replaceCachedArticle(ctx, stored)
	return stored, nil
}
