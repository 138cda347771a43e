// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"

	"technexus/internal/models"
)

const profileColumns = `id::text, username, avatar_url, created_at, updated_at`

// ProfileStore handles the profiles collection.
type ProfileStore struct {
	db *sql.DB
}

// NewProfileStore creates a new ProfileStore with the given database connection.
func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

// FindProfile returns the profile of a user or models.ErrNotFound.
func (s *ProfileStore) FindProfile(ctx context.Context, id models.ID) (*models.Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id::text = $1`, id.String())
	p, err := scanProfile(row)
	if err != nil {
		return nil, wrap("find profile", err)
	}
	return p, nil
}

// CreateProfile inserts a profile. If one already exists for the user the
// stored row is returned unchanged.
func (s *ProfileStore) CreateProfile(ctx context.Context, p models.Profile) (*models.Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO profiles (id, username, avatar_url)
		VALUES ($1::uuid, $2, $3)
		ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
		RETURNING `+profileColumns,
		p.ID.String(), p.Username, p.AvatarURL,
	)
	stored, err := scanProfile(row)
	if err != nil {
		return nil, wrap("create profile", err)
	}
	return stored, nil
}

// UpdateUsername renames a profile and returns the stored row.
func (s *ProfileStore) UpdateUsername(ctx context.Context, id models.ID, username string) (*models.Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE profiles SET username = $1, updated_at = NOW()
		WHERE id::text = $2
		RETURNING `+profileColumns,
		username, id.String(),
	)
	p, err := scanProfile(row)
	if err != nil {
		return nil, wrap("update profile", err)
	}
	return p, nil
}

func scanProfile(row scanner) (*models.Profile, error) {
	var p models.Profile
	if err := row.Scan(&p.ID, &p.Username, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
