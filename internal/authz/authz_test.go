package authz

import (
	"testing"

	"technexus/internal/models"
)

func TestCanMutateArticle(t *testing.T) {
	article := &models.Article{ID: "1", Author: "ada", AuthorID: "u1"}

	tests := []struct {
		name     string
		article  *models.Article
		identity *models.Identity
		want     bool
	}{
		{name: "author", article: article, identity: &models.Identity{ID: "u1"}, want: true},
		{name: "other user", article: article, identity: &models.Identity{ID: "u2"}, want: false},
		{name: "anonymous", article: article, identity: nil, want: false},
		{name: "same email different id", article: &models.Article{AuthorID: "u1"}, identity: &models.Identity{ID: "u2", Email: "ada@x.io"}, want: false},
		{name: "same display name different id", article: article, identity: &models.Identity{ID: "u2", Username: "ada"}, want: false},
		{name: "article without author id", article: &models.Article{ID: "1"}, identity: &models.Identity{}, want: false},
		{name: "numeric ids compare canonically", article: &models.Article{AuthorID: "007"}, identity: &models.Identity{ID: "7"}, want: true},
		{name: "nil article", article: nil, identity: &models.Identity{ID: "u1"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanMutateArticle(tt.article, tt.identity); got != tt.want {
				t.Errorf("CanMutateArticle() = %v, want %v", got, tt.want)
			}
			if got := CanClearEmbeddedComments(tt.article, tt.identity); got != tt.want {
				t.Errorf("CanClearEmbeddedComments() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanMutateComment(t *testing.T) {
	c := &models.RelationalComment{ID: "10", UserID: "u2", UserEmail: "bob@x.io"}

	if !CanMutateComment(c, &models.Identity{ID: "u2"}) {
		t.Error("comment owner was denied")
	}
	if CanMutateComment(c, &models.Identity{ID: "u1", Email: "bob@x.io"}) {
		t.Error("matching email alone should not grant access")
	}
	if CanMutateComment(c, nil) {
		t.Error("anonymous caller was allowed")
	}
}
