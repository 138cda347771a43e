// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "time"

// Profile is the public face of a user, keyed by the user's id.
type Profile struct {
	ID        ID        `json:"id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AuthorStats summarizes an author's dashboard.
type AuthorStats struct {
	Articles int `json:"articles"`
	Comments int `json:"comments"`
}
