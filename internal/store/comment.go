// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"

	"technexus/internal/models"
)

// CommentStore handles the relational comments collection. Reads are
// joined with profiles so each row carries its author's display name.
type CommentStore struct {
	db *sql.DB
}

// NewCommentStore creates a new CommentStore with the given database connection.
func NewCommentStore(db *sql.DB) *CommentStore {
	return &CommentStore{db: db}
}

// ListByArticle returns an article's comments, newest first.
func (s *CommentStore) ListByArticle(ctx context.Context, articleID models.ID) ([]models.RelationalComment, error) {
	key, ok := articleID.Int64()
	if !ok {
		return []models.RelationalComment{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id::text, c.article_id::text, c.content, c.created_at,
		       c.user_id::text, c.user_email, COALESCE(p.username, '')
		FROM comments c
		LEFT JOIN profiles p ON p.id = c.user_id
		WHERE c.article_id = $1
		ORDER BY c.created_at DESC, c.id DESC
	`, key)
	if err != nil {
		return nil, wrap("list comments", err)
	}
	defer rows.Close()

	items := []models.RelationalComment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, wrap("scan comment", err)
		}
		items = append(items, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list comments", err)
	}
	return items, nil
}

// FindByID returns one joined comment or models.ErrNotFound.
func (s *CommentStore) FindByID(ctx context.Context, id models.ID) (*models.RelationalComment, error) {
	key, ok := id.Int64()
	if !ok {
		return nil, models.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT c.id::text, c.article_id::text, c.content, c.created_at,
		       c.user_id::text, c.user_email, COALESCE(p.username, '')
		FROM comments c
		LEFT JOIN profiles p ON p.id = c.user_id
		WHERE c.id = $1
	`, key)
	c, err := scanComment(row)
	if err != nil {
		return nil, wrap("find comment", err)
	}
	return c, nil
}

// Insert stores a comment and returns the joined row. A missing article
// or user surfaces as models.ErrNotFound.
func (s *CommentStore) Insert(ctx context.Context, c models.NewComment) (*models.RelationalComment, error) {
	key, ok := c.ArticleID.Int64()
	if !ok {
		return nil, models.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `
		WITH ins AS (
			INSERT INTO comments (article_id, content, user_id, user_email)
			VALUES ($1, $2, $3::uuid, $4)
			RETURNING id, article_id, content, created_at, user_id, user_email
		)
		SELECT ins.id::text, ins.article_id::text, ins.content, ins.created_at,
		       ins.user_id::text, ins.user_email, COALESCE(p.username, '')
		FROM ins
		LEFT JOIN profiles p ON p.id = ins.user_id
	`, key, c.Content, c.UserID.String(), c.UserEmail)

	stored, err := scanComment(row)
	if err != nil {
		return nil, wrap("insert comment", err)
	}
	return stored, nil
}

// UpdateOwned rewrites the content of a comment that belongs to userID and
// returns how many rows changed.
func (s *CommentStore) UpdateOwned(ctx context.Context, id, userID models.ID, content string) (int64, error) {
	key, ok := id.Int64()
	if !ok {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE comments SET content = $1, updated_at = NOW()
		WHERE id = $2 AND user_id::text = $3
	`, content, key, userID.String())
	if err != nil {
		return 0, wrap("update comment", err)
	}
	n, err := res.RowsAffected()
	return n, wrap("update comment", err)
}

// DeleteOwned removes a comment that belongs to userID and returns how
// many rows went away.
func (s *CommentStore) DeleteOwned(ctx context.Context, id, userID models.ID) (int64, error) {
	key, ok := id.Int64()
	if !ok {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1 AND user_id::text = $2`, key, userID.String())
	if err != nil {
		return 0, wrap("delete comment", err)
	}
	n, err := res.RowsAffected()
	return n, wrap("delete comment", err)
}

func scanComment(row scanner) (*models.RelationalComment, error) {
	var c models.RelationalComment
	var username string
	if err := row.Scan(
		&c.ID, &c.ArticleID, &c.Content, &c.CreatedAt,
		&c.UserID, &c.UserEmail, &username,
	); err != nil {
		return nil, err
	}
	c.Author = models.CommentAuthor(username, c.UserEmail)
	c.CreatedAt = c.CreatedAt.UTC().Round(0)
	return &c, nil
}
