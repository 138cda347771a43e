// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "strings"

// Identity is the signed-in user as the rest of the core sees it. It is
// mirrored into the local cache under "currentUser" and can always be
// re-derived from the auth session.
type Identity struct {
	ID       ID     `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// UserMetadata is the free-form metadata the auth provider keeps per user.
type UserMetadata struct {
	FullName  string `json:"full_name,omitempty"`
	Name      string `json:"name,omitempty"`
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// DisplayName picks the name shown for an identity: full name, then
// username, then the local part of the email, then "User".
func DisplayName(meta UserMetadata, email string) string {
	return firstNonEmpty(meta.FullName, meta.Username, emailLocalPart(email), "User")
}

// ProfileUsername picks the username for a freshly created profile row:
// full name, then name, then the local part of the email, then "user".
func ProfileUsername(meta UserMetadata, email string) string {
	return firstNonEmpty(meta.FullName, meta.Name, emailLocalPart(email), "user")
}

// CommentAuthor is the display name joined onto a relational comment.
func CommentAuthor(profileUsername, email string) string {
	return firstNonEmpty(profileUsername, email, "Anonymous")
}

func emailLocalPart(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	return local
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
