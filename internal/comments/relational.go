// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package comments

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"technexus/internal/authz"
	"technexus/internal/models"
)

// Add inserts a relational comment by identity and returns the stored row
// joined with the commenter's display name.
func (s *Synchronizer) Add(ctx context.Context, articleID models.ID, raw string, identity *models.Identity) (*models.RelationalComment, error) {
	if identity == nil || identity.ID.IsZero() {
		return nil, models.ErrUnauthenticated
	}
	content, err := s.content(raw)
	if err != nil {
		return nil, err
	}
	articleID = models.ParseID(string(articleID))
	if articleID.IsZero() {
		return nil, models.ErrArticleNotFound
	}

	start := time.Now()
	stored, err := s.comments.Insert(ctx, models.NewComment{
		ArticleID: articleID,
		Content:   content,
		UserID:    identity.ID,
		UserEmail: identity.Email,
	})
	s.recorder.RemoteCall("comments.insert", err, time.Since(start))
	if err != nil {
		return nil, notFound(err, models.ErrArticleNotFound)
	}
	normalize(stored)
	return stored, nil
}

// Update rewrites a comment's content when requesterID wrote it. A missing
// comment, or one the gate does not let requesterID touch, is reported as
// models.ErrNoEffect.
func (s *Synchronizer) Update(ctx context.Context, commentID models.ID, raw string, requesterID models.ID) error {
	if requesterID.IsZero() {
		return models.ErrUnauthenticated
	}
	commentID = models.ParseID(string(commentID))
	if commentID.IsZero() {
		return models.ErrCommentNotFound
	}
	content, err := s.content(raw)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, commentID, requesterID); err != nil {
		return err
	}

	start := time.Now()
	n, err := s.comments.UpdateOwned(ctx, commentID, requesterID, content)
	s.recorder.RemoteCall("comments.update", err, time.Since(start))
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNoEffect
	}
	return nil
}

// Remove deletes a comment when requesterID wrote it. Missing or foreign
// comments are reported as models.ErrNoEffect.
func (s *Synchronizer) Remove(ctx context.Context, commentID models.ID, requesterID models.ID) error {
	if requesterID.IsZero() {
		return models.ErrUnauthenticated
	}
	commentID = models.ParseID(string(commentID))
	if commentID.IsZero() {
		return models.ErrCommentNotFound
	}
	if err := s.authorize(ctx, commentID, requesterID); err != nil {
		return err
	}

	start := time.Now()
	n, err := s.comments.DeleteOwned(ctx, commentID, requesterID)
	s.recorder.RemoteCall("comments.delete", err, time.Since(start))
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNoEffect
	}
	slog.Info("comment removed", "comment_id", commentID)
	return nil
}

// ListByArticle returns an article's relational comments, newest first.
// Failures yield an empty list.
func (s *Synchronizer) ListByArticle(ctx context.Context, articleID models.ID) []models.RelationalComment {
	start := time.Now()
	rows, err := s.comments.ListByArticle(ctx, models.ParseID(string(articleID)))
	s.recorder.RemoteCall("comments.list", err, time.Since(start))
	if err != nil {
		s.degraded(string(models.CommentRelational), articleID, err)
		return []models.RelationalComment{}
	}
	for i := range rows {
		normalize(&rows[i])
	}
	return rows
}

// authorize loads the comment and consults the gate before any write. The
// owner filter on the write itself still applies.
func (s *Synchronizer) authorize(ctx context.Context, commentID, requesterID models.ID) error {
	start := time.Now()
	current, err := s.comments.FindByID(ctx, commentID)
	s.recorder.RemoteCall("comments.find", err, time.Since(start))
	if errors.Is(err, models.ErrNotFound) {
		return models.ErrNoEffect
	}
	if err != nil {
		return err
	}
	normalize(current)
	if !authz.CanMutateComment(current, &models.Identity{ID: requesterID}) {
		slog.Info("comment change denied", "comment_id", commentID, "requester", requesterID)
		return models.ErrNoEffect
	}
	return nil
}

func normalize(c *models.RelationalComment) {
	c.ID = models.ParseID(string(c.ID))
	c.ArticleID = models.ParseID(string(c.ArticleID))
	c.UserID = models.ParseID(string(c.UserID))
	c.CreatedAt = c.CreatedAt.UTC().Round(0)
}

// notFound maps the store's missing-row error to the domain sentinel.
func notFound(err, sentinel error) error {
	if errors.Is(err, models.ErrNotFound) {
		return sentinel
	}
	return err
}
