// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"technexus/internal/models"
)

const articleColumns = `id::text, title, summary, content, category, tags, author,
	author_id::text, thumbnail, comments, created_at, updated_at`

// ArticleStore handles the articles collection.
type ArticleStore struct {
	db *sql.DB
}

// NewArticleStore creates a new ArticleStore with the given database connection.
func NewArticleStore(db *sql.DB) *ArticleStore {
	return &ArticleStore{db: db}
}

// List returns the articles matching f, newest first.
func (s *ArticleStore) List(ctx context.Context, f models.ArticleFilter) ([]models.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles`
	var (
		conds []string
		args  []any
	)
	if !f.AuthorID.IsZero() {
		args = append(args, f.AuthorID.String())
		conds = append(conds, fmt.Sprintf("author_id::text = $%d", len(args)))
	}
	if f.Thumbnail != "" {
		args = append(args, f.Thumbnail)
		conds = append(conds, fmt.Sprintf("thumbnail = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("list articles", err)
	}
	defer rows.Close()

	items := []models.Article{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, wrap("scan article", err)
		}
		items = append(items, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list articles", err)
	}
	return items, nil
}

// FindByID returns one article or models.ErrNotFound.
func (s *ArticleStore) FindByID(ctx context.Context, id models.ID) (*models.Article, error) {
	key, ok := id.Int64()
	if !ok {
		return nil, models.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = $1`, key)
	a, err := scanArticle(row)
	if err != nil {
		return nil, wrap("find article", err)
	}
	return a, nil
}

// Insert stores a new article and returns the stored row. ID and
// timestamps on a are ignored.
func (s *ArticleStore) Insert(ctx context.Context, a models.Article) (*models.Article, error) {
	tags, err := encodeJSON(a.Tags, "[]")
	if err != nil {
		return nil, err
	}
	comments, err := encodeJSON(a.Comments, "[]")
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO articles (title, summary, content, category, tags, author, author_id, thumbnail, comments)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7::uuid, $8, $9::jsonb)
		RETURNING `+articleColumns,
		a.Title, a.Summary, a.Content, a.Category, tags, a.Author, a.AuthorID.String(), a.Thumbnail, comments,
	)
	stored, err := scanArticle(row)
	if err != nil {
		return nil, wrap("insert article", err)
	}
	return stored, nil
}

// Update applies patch to one article and returns the stored row.
func (s *ArticleStore) Update(ctx context.Context, id models.ID, patch models.ArticlePatch) (*models.Article, error) {
	key, ok := id.Int64()
	if !ok {
		return nil, models.ErrNotFound
	}
	if patch.IsEmpty() {
		return s.FindByID(ctx, id)
	}

	var sets []string
	var args []any
	add := func(expr string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf(expr, len(args)))
	}
	if patch.Title != nil {
		add("title = $%d", *patch.Title)
	}
	if patch.Summary != nil {
		add("summary = $%d", *patch.Summary)
	}
	if patch.Content != nil {
		add("content = $%d", *patch.Content)
	}
	if patch.Category != nil {
		add("category = $%d", *patch.Category)
	}
	if patch.Tags != nil {
		tags, err := encodeJSON(*patch.Tags, "[]")
		if err != nil {
			return nil, err
		}
		add("tags = $%d::jsonb", tags)
	}
	if patch.Thumbnail != nil {
		add("thumbnail = $%d", *patch.Thumbnail)
	}
	if patch.Comments != nil {
		comments, err := encodeJSON(*patch.Comments, "[]")
		if err != nil {
			return nil, err
		}
		add("comments = $%d::jsonb", comments)
	}
	if patch.UpdatedAt != nil {
		add("updated_at = $%d", *patch.UpdatedAt)
	}

	args = append(args, key)
	query := fmt.Sprintf(`UPDATE articles SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), articleColumns)

	stored, err := scanArticle(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, wrap("update article", err)
	}
	return stored, nil
}

// Delete removes one article. Its relational comments go with it.
func (s *ArticleStore) Delete(ctx context.Context, id models.ID) error {
	key, ok := id.Int64()
	if !ok {
		return models.ErrNotFound
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE id = $1`, key)
	if err != nil {
		return wrap("delete article", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap("delete article", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func scanArticle(row scanner) (*models.Article, error) {
	var a models.Article
	var tags, comments []byte
	if err := row.Scan(
		&a.ID, &a.Title, &a.Summary, &a.Content, &a.Category, &tags, &a.Author,
		&a.AuthorID, &a.Thumbnail, &comments, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tags, &a.Tags); err != nil {
		return nil, fmt.Errorf("decode tags of article %s: %w", a.ID, err)
	}
	if err := json.Unmarshal(comments, &a.Comments); err != nil {
		return nil, fmt.Errorf("decode comments of article %s: %w", a.ID, err)
	}
	a.Normalize()
	return &a, nil
}

// encodeJSON marshals v for a jsonb parameter, using empty for nil slices.
func encodeJSON(v any, empty string) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode json column: %w", err)
	}
	if string(b) == "null" {
		return empty, nil
	}
	return string(b), nil
}
