// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"strings"
	"time"
)

// Defaults applied to fields left blank on create.
const (
	DefaultCategory  = "Product"
	DefaultThumbnail = "https://r2.flowith.net/files/png/YC7WV-tech_article_thumbnail_concept_index_1@1024x1024.png"
)

// Article is a published post. AuthorID is set once on create and never
// changes; ID and the timestamps are assigned by the remote store.
type Article struct {
	ID        ID                `json:"id"`
	Title     string            `json:"title"`
	Summary   string            `json:"summary"`
	Content   string            `json:"content"`
	Category  string            `json:"category"`
	Tags      []string          `json:"tags"`
	Author    string            `json:"author"`
	AuthorID  ID                `json:"author_id"`
	Thumbnail string            `json:"thumbnail"`
	Comments  []EmbeddedComment `json:"comments,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Normalize puts an article into the shape it has after a trip through the
// local cache: UTC timestamps without monotonic readings, canonical ids and
// nil instead of empty comment slices.
func (a *Article) Normalize() {
	a.ID = ParseID(string(a.ID))
	a.AuthorID = ParseID(string(a.AuthorID))
	a.CreatedAt = a.CreatedAt.UTC().Round(0)
	a.UpdatedAt = a.UpdatedAt.UTC().Round(0)
	if len(a.Comments) == 0 {
		a.Comments = nil
	}
	for i := range a.Comments {
		a.Comments[i].Normalize()
	}
}

// NormalizeArticles normalizes every article in place and returns the slice.
func NormalizeArticles(list []Article) []Article {
	for i := range list {
		list[i].Normalize()
	}
	return list
}

// ArticleFields is the user-editable part of a new article.
type ArticleFields struct {
	Title     string
	Summary   string
	Content   string
	Category  string
	Tags      []string
	Thumbnail string
}

// ArticlePatch lists the fields an update replaces. Nil fields are left
// untouched. AuthorID is deliberately absent.
type ArticlePatch struct {
	Title     *string
	Summary   *string
	Content   *string
	Category  *string
	Tags      *[]string
	Thumbnail *string
	Comments  *[]EmbeddedComment
	UpdatedAt *time.Time
}

// IsEmpty reports whether the patch changes nothing.
func (p ArticlePatch) IsEmpty() bool {
	return p.Title == nil && p.Summary == nil && p.Content == nil && p.Category == nil &&
		p.Tags == nil && p.Thumbnail == nil && p.Comments == nil && p.UpdatedAt == nil
}

// Apply returns a copy of a with the patch merged in.
func (p ArticlePatch) Apply(a Article) Article {
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.Summary != nil {
		a.Summary = *p.Summary
	}
	if p.Content != nil {
		a.Content = *p.Content
	}
	if p.Category != nil {
		a.Category = *p.Category
	}
	if p.Tags != nil {
		a.Tags = append([]string(nil), (*p.Tags)...)
	}
	if p.Thumbnail != nil {
		a.Thumbnail = *p.Thumbnail
	}
	if p.Comments != nil {
		a.Comments = append([]EmbeddedComment(nil), (*p.Comments)...)
	}
	if p.UpdatedAt != nil {
		a.UpdatedAt = *p.UpdatedAt
	}
	return a
}

// ArticleFilter holds the equality filters accepted by the remote store.
type ArticleFilter struct {
	AuthorID  ID
	Thumbnail string
}

// ParseTags splits a comma-separated tag list, trimming each entry and
// dropping blanks.
func ParseTags(raw string) []string {
	tags := []string{}
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
