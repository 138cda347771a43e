// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package authz is the single ownership gate for article and comment
// mutations. It only answers yes or no; callers turn a no into
// models.ErrForbidden.
package authz

import "technexus/internal/models"

// CanMutateArticle reports whether id may edit or delete a. Ownership is
// decided by the immutable author id alone, never by email or name.
func CanMutateArticle(a *models.Article, id *models.Identity) bool {
	if a == nil || id == nil {
		return false
	}
	return id.ID.Equal(a.AuthorID)
}

// CanMutateComment reports whether id may edit or delete a relational
// comment.
func CanMutateComment(c *models.RelationalComment, id *models.Identity) bool {
	if c == nil || id == nil {
		return false
	}
	return id.ID.Equal(c.UserID)
}

// CanClearEmbeddedComments reports whether id may wipe an article's
// embedded comments. Embedded comments have no owner of their own, so this
// falls to the article's author.
func CanClearEmbeddedComments(a *models.Article, id *models.Identity) bool {
	return CanMutateArticle(a, id)
}
