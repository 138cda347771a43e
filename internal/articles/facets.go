// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package articles

import (
	"strings"

	"technexus/internal/models"
)

// All is the facet value meaning "no constraint".
const All = "all"

// Facets are the distinct categories and tags of a collection, each led by
// the All sentinel.
type Facets struct {
	Categories []string `json:"categories"`
	Tags       []string `json:"tags"`
}

// DeriveFacets collects categories and tags in first-seen order. Blank
// values are skipped.
func DeriveFacets(list []models.Article) Facets {
	f := Facets{Categories: []string{All}, Tags: []string{All}}
	seenCat := map[string]bool{All: true}
	seenTag := map[string]bool{All: true}
	for _, a := range list {
		if c := strings.TrimSpace(a.Category); c != "" && !seenCat[c] {
			seenCat[c] = true
			f.Categories = append(f.Categories, c)
		}
		for _, t := range a.Tags {
			if t = strings.TrimSpace(t); t != "" && !seenTag[t] {
				seenTag[t] = true
				f.Tags = append(f.Tags, t)
			}
		}
	}
	return f
}

// Query narrows a collection. Empty or All fields impose no constraint.
type Query struct {
	Search   string
	Category string
	Tag      string
}

// Filter keeps the articles matching every part of q, preserving order.
// Search is a case-insensitive substring match over title, summary and tags.
func Filter(list []models.Article, q Query) []models.Article {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	out := []models.Article{}
	for _, a := range list {
		if search != "" && !matchesSearch(a, search) {
			continue
		}
		if constrained(q.Category) && a.Category != q.Category {
			continue
		}
		if constrained(q.Tag) && !hasTag(a, q.Tag) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func constrained(v string) bool {
	return v != "" && v != All
}

func matchesSearch(a models.Article, search string) bool {
	if strings.Contains(strings.ToLower(a.Title), search) ||
		strings.Contains(strings.ToLower(a.Summary), search) {
		return true
	}
	for _, t := range a.Tags {
		if strings.Contains(strings.ToLower(t), search) {
			return true
		}
	}
	return false
}

func hasTag(a models.Article, tag string) bool {
	for _, t := range a.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
