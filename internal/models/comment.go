// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "time"

// CommentKind tags which of the two comment representations a value holds.
type CommentKind string

const (
	CommentEmbedded   CommentKind = "embedded"
	CommentRelational CommentKind = "relational"
)

// ParseCommentKind maps a query value to a kind, defaulting to relational.
func ParseCommentKind(s string) CommentKind {
	if CommentKind(s) == CommentEmbedded {
		return CommentEmbedded
	}
	return CommentRelational
}

// EmbeddedComment lives inside Article.Comments. Its id is generated by the
// writer and it carries no owner, so it can only be cleared in bulk.
type EmbeddedComment struct {
	ID        ID        `json:"id"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// Normalize canonicalizes the id and timestamp.
func (c *EmbeddedComment) Normalize() {
	c.ID = ParseID(string(c.ID))
	c.CreatedAt = c.CreatedAt.UTC().Round(0)
}

// RelationalComment is a row of the comments collection, joined with the
// commenter's profile for Author.
type RelationalComment struct {
	ID        ID        `json:"id"`
	ArticleID ID        `json:"article_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UserID    ID        `json:"user_id"`
	UserEmail string    `json:"user_email"`
	Author    string    `json:"author"`
}

// NewComment is the insert payload for a relational comment.
type NewComment struct {
	ArticleID ID
	Content   string
	UserID    ID
	UserEmail string
}

// Comment is either an embedded or a relational comment.
type Comment struct {
	Kind       CommentKind        `json:"kind"`
	Embedded   *EmbeddedComment   `json:"embedded,omitempty"`
	Relational *RelationalComment `json:"relational,omitempty"`
}

// EmbeddedComments wraps a slice of embedded comments.
func EmbeddedComments(list []EmbeddedComment) []Comment {
	out := make([]Comment, 0, len(list))
	for i := range list {
		c := list[i]
		out = append(out, Comment{Kind: CommentEmbedded, Embedded: &c})
	}
	return out
}

// RelationalComments wraps a slice of relational comments.
func RelationalComments(list []RelationalComment) []Comment {
	out := make([]Comment, 0, len(list))
	for i := range list {
		c := list[i]
		out = append(out, Comment{Kind: CommentRelational, Relational: &c})
	}
	return out
}
