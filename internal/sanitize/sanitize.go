// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package sanitize cleans user-supplied article HTML and comment text
// before it reaches the remote store.
package sanitize

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Policy holds the two allow-lists in use. It is safe for concurrent use.
type Policy struct {
	article *bluemonday.Policy
	comment *bluemonday.Policy
}

// codeClass matches the classes highlighted code carries: the chroma
// wrapper, its line spans, short token classes and fenced-code languages.
var codeClass = regexp.MustCompile(`^(chroma|line|cl|lnt|ln|hl|[a-z][a-z0-9]{0,2}|language-[a-zA-Z0-9]+)$`)

// New builds the policies. Articles come out of a rich-text editor or
// Markdown and keep user-generated-content markup; comments are plain text.
func New() *Policy {
	article := bluemonday.UGCPolicy()
	article.AllowRelativeURLs(false)
	article.AddTargetBlankToFullyQualifiedLinks(true)
	article.RequireNoReferrerOnLinks(true)
	article.AllowAttrs("class").Matching(codeClass).OnElements("span", "pre", "code")

	return &Policy{
		article: article,
		comment: bluemonday.StrictPolicy(),
	}
}

// Article sanitizes article HTML.
func (p *Policy) Article(raw string) string {
	return strings.TrimSpace(p.article.Sanitize(raw))
}

// Comment strips every tag from a comment and returns plain text.
func (p *Policy) Comment(raw string) string {
	return strings.TrimSpace(html.UnescapeString(p.comment.Sanitize(raw)))
}
