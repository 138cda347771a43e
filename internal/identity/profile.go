// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"technexus/internal/models"
)

// ProfileRemote is the profiles collection.
type ProfileRemote interface {
	FindProfile(ctx context.Context, id models.ID) (*models.Profile, error)
	CreateProfile(ctx context.Context, p models.Profile) (*models.Profile, error)
	UpdateUsername(ctx context.Context, id models.ID, username string) (*models.Profile, error)
}

// AccountProvider is the part of the auth provider that profile edits need.
type AccountProvider interface {
	Provider
	UpdateUser(ctx context.Context, update models.UserUpdate) (*models.AuthUser, error)
}

// Profiles reads and edits the signed-in user's profile.
type Profiles struct {
	remote   ProfileRemote
	provider AccountProvider
	resolver *Resolver
}

// NewProfiles creates the profile service.
func NewProfiles(remote ProfileRemote, provider AccountProvider, resolver *Resolver) *Profiles {
	return &Profiles{remote: remote, provider: provider, resolver: resolver}
}

// Current returns the profile of the signed-in user, creating the row on
// first access.
func (p *Profiles) Current(ctx context.Context) (*models.Profile, error) {
	session, err := p.provider.GetSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("current profile: %w", err)
	}
	if session == nil {
		return nil, models.ErrUnauthenticated
	}
	user := session.User

	profile, err := p.remote.FindProfile(ctx, user.ID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	return p.remote.CreateProfile(ctx, models.Profile{
		ID:        user.ID,
		Username:  models.ProfileUsername(user.Metadata, user.Email),
		AvatarURL: user.Metadata.AvatarURL,
	})
}

// UpdateUsername renames the signed-in user. The auth metadata is updated
// first, then the profile row, then "currentUser" is re-derived.
func (p *Profiles) UpdateUsername(ctx context.Context, username string) (*models.Profile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, models.Invalid("username", "username is required")
	}

	current, err := p.Current(ctx)
	if err != nil {
		return nil, err
	}

	session, err := p.provider.GetSession(ctx)
	if err != nil || session == nil {
		return nil, models.ErrUnauthenticated
	}
	meta := session.User.Metadata
	meta.Username = username
	if _, err := p.provider.UpdateUser(ctx, models.UserUpdate{Data: &meta}); err != nil {
		return nil, fmt.Errorf("update auth metadata: %w", err)
	}

	profile, err := p.remote.UpdateUsername(ctx, current.ID, username)
	if err != nil {
		return nil, err
	}
	p.resolver.Resolve(ctx)
	return profile, nil
}
