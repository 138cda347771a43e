package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

const (
	seedEmail    = "demo@technexus.local"
	seedPassword = "demo1234"
)

// Seed populates the database with initial development data: a demo
// author with a profile and one welcome article. It does nothing once any
// user exists.
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed begin: %w", err)
	}
	defer tx.Rollback()

	var userID string
	err = tx.QueryRow(`
		INSERT INTO users (email, password_hash, metadata)
		VALUES ($1, $2, $3::jsonb)
		RETURNING id::text
	`, seedEmail, string(hash), `{"full_name":"Demo Author","username":"demo"}`).Scan(&userID)
	if err != nil {
		return fmt.Errorf("seed insert user: %w", err)
	}

	if _, err := tx.Exec(`INSERT INTO profiles (id, username) VALUES ($1::uuid, $2)`, userID, "Demo Author"); err != nil {
		return fmt.Errorf("seed insert profile: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO articles (title, summary, content, category, tags, author, author_id, thumbnail)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7::uuid, $8)
	`,
		"Welcome to AI Tech Nexus",
		"What this blog is about and how to write your first article.",
		"<p>Sign in, open the editor and publish. Comments are open to every signed-in reader.</p>",
		"Product",
		`["welcome","ai"]`,
		"Demo Author",
		userID,
		"https://r2.flowith.net/files/png/YC7WV-tech_article_thumbnail_concept_index_1@1024x1024.png",
	)
	if err != nil {
		return fmt.Errorf("seed insert article: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}

	slog.Info("database seeded with demo author",
		"email", seedEmail,
		"password", seedPassword,
	)
	return nil
}
