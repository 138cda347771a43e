// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package memstore is an in-process stand-in for the PostgreSQL remote
// store. It keeps the same method sets as the store package so it can back
// the server in development and the synchronizers in tests.
package memstore

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"technexus/internal/models"
)

// DB holds every collection behind one lock, so deletes can cascade the
// way foreign keys do in PostgreSQL.
type DB struct {
	mu       sync.Mutex
	seq      int64
	last     time.Time
	now      func() time.Time
	failure  error
	articles []models.Article
	comments []commentRow
	profiles map[models.ID]models.Profile
	users    map[models.ID]models.User
}

type commentRow struct {
	models.RelationalComment
	updatedAt time.Time
}

// New creates an empty database.
func New() *DB {
	return &DB{
		now:      time.Now,
		profiles: make(map[models.ID]models.Profile),
		users:    make(map[models.ID]models.User),
	}
}

// SetFailure makes every subsequent call fail with a TransportError
// wrapping err. A nil err restores normal operation.
func (db *DB) SetFailure(err error) {
	db.mu.Lock()
	db.failure = err
	db.mu.Unlock()
}

// Articles returns the articles collection.
func (db *DB) Articles() *ArticleStore { return &ArticleStore{db: db} }

// Comments returns the comments collection.
func (db *DB) Comments() *CommentStore { return &CommentStore{db: db} }

// Profiles returns the profiles collection.
func (db *DB) Profiles() *ProfileStore { return &ProfileStore{db: db} }

// Users returns the auth users.
func (db *DB) Users() *UserStore { return &UserStore{db: db} }

// lock acquires the database and reports the injected failure, if any.
// The caller must unlock even when an error is returned.
func (db *DB) lock(ctx context.Context, op string) error {
	db.mu.Lock()
	if err := ctx.Err(); err != nil {
		return models.Transport(op, err)
	}
	return models.Transport(op, db.failure)
}

// stamp returns a strictly increasing UTC timestamp.
func (db *DB) stamp() time.Time {
	t := db.now().UTC().Round(0)
	if !t.After(db.last) {
		t = db.last.Add(time.Microsecond)
	}
	db.last = t
	return t
}

func (db *DB) nextID() models.ID {
	db.seq++
	return models.ID(strconv.FormatInt(db.seq, 10))
}

// ArticleStore is the in-memory articles collection.
type ArticleStore struct {
	db *DB
}

// List returns the articles matching f, newest first.
func (s *ArticleStore) List(ctx context.Context, f models.ArticleFilter) ([]models.Article, error) {
	defer s.db.mu.Unlock()
	if err := s.db.lock(ctx, "list articles"); err != nil {
		return nil, err
	}
	out := []models.Article{}
	for _, a := range s.db.articles {
		if !f.AuthorID.IsZero() && !a.AuthorID.Equal(f.AuthorID) {
			continue
		}
		if f.Thumbnail != "" && a.Thumbnail != f.Thumbnail {
			continue
		}
		out = append(out, cloneArticle(a))
	}
	slices.SortStableFunc(out, func(a, b models.Article) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

// FindByID returns one article or models.ErrNotFound.
func (s *ArticleStore) FindByID(ctx context.Context, id models.ID) (*models.Article, error) {
	defer s.db.mu.Unlock()
	if err := s.db.lock(ctx, "find article"); err != nil {
		return nil, err
	}
	i := s.db.articleIndex(id)
	if i < 0 {
		return nil, models.ErrNotFound
	}
	a := cloneArticle(s.db.articles[i])
	return &a, nil
}

// Insert stores a new article, assigning its id and timestamps.
func (s *ArticleStore) Insert(ctx context.Context, a models.Article) (*models.Article, error) {
	defer s.db.mu.Unlock()
	if err := s.db.lock(ctx, "insert article"); err != nil {
		return nil, err
	}
	a = cloneArticle(a)
	a.ID = s.db.nextID()
	a.CreatedAt = s.db.stamp()
	a.UpdatedAt = a.CreatedAt
	if a.Tags == nil {
		a.Tags = []string{}
	}
	a.Normalize()
	s.db.articles = append(s.db.articles, a)
	stored := cloneArticle(a)
	return &stored, nil
}

// Update applies patch to one article and returns the stored row.
func (s *ArticleStore) Update(ctx context.Context, id models.ID, patch models.ArticlePatch) (*models.Article, error) {
	defer s.db.mu.Unlock()
	if err := s.db.lock(ctx, "update article"); err != nil {
		return nil, err
	}
	i := s.db.articleIndex(id)
	if i < 0 {
		return nil, models.ErrNotFound
	}
	a := patch.Apply(s.db.articles[i])
	a.Normalize()
	s.db.articles[i] = a
	stored := cloneArticle(a)
	return &stored, nil
}

// Delete removes one article and its relational comments.
func (s *ArticleStore) Delete(ctx context.Context, id models.ID) error {
	defer s.db.mu.Unlock()
	if err := s.db.lock(ctx, "delete article"); err != nil {
		return err
	}
	i := s.db.articleIndex(id)
	if i < 0 {
		return models.ErrNotFound
	}
	s.db.articles = slices.Delete(s.db.articles, i, i+1)
	s.db.comments = slices.DeleteFunc(s.db.comments, func(c commentRow) bool {
		return c.ArticleID.Equal(id)
	})
	return nil
}

func (db *DB) articleIndex(id models.ID) int {
	return slices.IndexFunc(db.articles, func(a models.Article) bool { return a.ID.Equal(id) })
}

func cloneArticle(a models.Article) models.Article {
	a.Tags = slices.Clone(a.Tags)
	a.Comments = slices.Clone(a.Comments)
	return a
}

// CommentStore is the in-memory comments collection.
type CommentStore struct {
	db *DB
}

// ListByArticle returns an article's comments, newest first.
func (s *CommentStore) ListByArticle(ctx context.Context, articleID models.ID) ([]models.RelationalComment, error) {
	defer s.db.mu.Unlock()
	if err := s.db.lock(ctx, "list comments"); err != nil {
		return nil, err
	}
	out := []models.RelationalComment{}
	for _, c := range s.db.comments {
		if c.ArticleID.Equal(articleID) {
			out = append(out, s.db.joinAuthor(c.RelationalComment))
		}
	}
	slices.SortStableFunc(out, func(a, b models.RelationalComment) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

// FindByID returns one joined comment or models.ErrNotFound.
func (s *CommentStore) FindByID(ctx context.Context, id models.ID) (*models.RelationalComment, error) {
	defer s.db.mu.Unlock()
	if err := s.db.lock(ctx, "find comment"); err != nil {
		return nil, err
	}
	for _, c := range s.db.comments {
		if c.ID.Equal(id) {
			joined := s.db.joinAuthor(c.RelationalComment)
			return &joined, nil
		}
	}
	return nil, models.ErrNotFound
}

// Insert stores a comment and returns the joined row.
func (s *CommentStore) Insert(ctx context.Context, c models.NewComment) (*models.RelationalComment, error) {
	defer s.db.mu.Unlock()
	if err := s.db.lock(ctx, "insert comment"); err != nil {
		return nil, err
	}
	if s.db.articleIndex(c.ArticleID) < 0 {
		return nil, models.ErrNotFound
	}
	row := commentRow{RelationalComment: models.RelationalComment{
		ID:        s.db.nextID(),
		ArticleID: models.ParseID(string(c.ArticleID)),
		Content:   c.Content,
		CreatedAt: s.db.stamp(),
		UserID:    models.ParseID(string(c.UserID)),
		UserEmail: c.UserEmail,
	}}
	row.updatedAt = row.CreatedAt
	s.db.comments = append(s.db.comments, row)
	joined := s.db.joinAuthor(row.RelationalComment)
	return &joined, nil
}

// UpdateOwned rewrites a comment that belongs to userID.
func (s *CommentStore) UpdateOwned(ctx context.Context, id, userID models.ID, content string) (int64, error) {
	defer s.db.mu.Unlock()
	if err := s.db.lock(ctx, "update comment"); err != nil {
		return 0, err
	}
	for i, c := range s.db.comments {
		if c.ID.Equal(id) && c.UserID.Equal(userID) {
			s.db.comments[i].Content = content
			s.db.comments[i].updatedAt = s.db.stamp()
			return 1, nil
		}
	}
	return 0, nil
}

// DeleteOwned removes a comment that belongs to userID.
func (s *CommentStore) DeleteOwned(ctx context.Context, id, userID models.ID) (int64, error) {
	defer s.db.mu.Unlock()
	if err := s.db.lock(ctx, "delete comment"); err != nil {
		return 0, err
	}
	before := len(s.db.comments)
	s.db.comments = slices.DeleteFunc(s.db.comments, func(c commentRow) bool {
		return c.ID.Equal(id) && c.UserID.Equal(userID)
	})
	return int64(before - len(s.db.comments)), nil
}

func (db *DB) joinAuthor(c models.RelationalComment) models.RelationalComment {
	c.Author = models.CommentAuthor(db.profiles[c.UserID].Username, c.UserEmail)
	return c
}

// ProfileStore is the in-memory profiles collection.
type ProfileStore struct {
	db *DB
}

// FindProfile returns a profile or models.ErrNotFound.
func (s *ProfileStore) FindProfile(ctx context.Context, id models.ID) (*models.Profile, error) {
	defer s.db.mu.Unlock()
	if err := s.db.lock(ctx, "find profile"); err != nil {
		return nil, err
	}
	p, ok := s.db.profiles[models.ParseID(string(id))]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &p, nil
}

// CreateProfile inserts a profile, returning the existing row if there is one.
func (s *ProfileStore) CreateProfile(ctx context.Context, p models.Profile) (*models.Profile, error) {
	defer s.db.mu.Unlock()
	if err := s.db.lock(ctx, "create profile"); err != nil {
		return nil, err
	}
	p.ID = models.ParseID(string(p.ID))
	if existing, ok := s.db.profiles[p.ID]; ok {
		return &existing, nil
	}
	if _, ok := s.db.users[p.ID]; !ok {
		return nil, models.ErrNotFound
	}
	p.CreatedAt = s.db.stamp()
	p.UpdatedAt = p.CreatedAt
	s.db.profiles[p.ID] = p
	return &p, nil
}

// UpdateUsername renames a profile.
func (s *ProfileStore) UpdateUsername(ctx context.Context, id models.ID, username string) (*models.Profile, error) {
	defer s.db.mu.Unlock()
	if err := s.db.lock(ctx, "update profile"); err != nil {
		return nil, err
	}
	id = models.ParseID(string(id))
	p, ok := s.db.profiles[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	p.Username = username
	p.UpdatedAt = s.db.stamp()
	s.db.profiles[id] = p
	return &p, nil
}

// UserStore is the in-memory auth user table.
type UserStore struct {
	db *DB
}

// FindByEmail returns a user or nil.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	defer s.db.mu.Unlock()
	if err := s.db.lock(ctx, "find user"); err != nil {
		return nil, err
	}
	for _, u := range s.db.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

// FindByID returns a user or nil.
func (s *UserStore) FindByID(ctx context.Context, id models.ID) (*models.User, error) {
	defer s.db.mu.Unlock()
	if err := s.db.lock(ctx, "find user"); err != nil {
		return nil, err
	}
	u, ok := s.db.users[models.ParseID(string(id))]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// Create inserts a user with an already hashed password.
func (s *UserStore) Create(ctx context.Context, email, passwordHash string, meta models.UserMetadata) (*models.User, error) {
	defer s.db.mu.Unlock()
	if err := s.db.lock(ctx, "create user"); err != nil {
		return nil, err
	}
	for _, u := range s.db.users {
		if u.Email == email {
			return nil, models.ErrEmailTaken
		}
	}
	u := models.User{
		ID:           models.ID(uuid.NewString()),
		Email:        email,
		PasswordHash: passwordHash,
		Metadata:     meta,
		CreatedAt:    s.db.stamp(),
	}
	u.UpdatedAt = u.CreatedAt
	s.db.users[u.ID] = u
	return &u, nil
}

// UpdateMetadata replaces a user's metadata.
func (s *UserStore) UpdateMetadata(ctx context.Context, id models.ID, meta models.UserMetadata) error {
	return s.modify(ctx, id, func(u *models.User) { u.Metadata = meta })
}

// UpdatePasswordHash stores an already hashed password and bumps the
// token version.
func (s *UserStore) UpdatePasswordHash(ctx context.Context, id models.ID, hash string) error {
	return s.modify(ctx, id, func(u *models.User) {
		u.PasswordHash = hash
		u.TokenVersion++
	})
}

// SetTOTPSecret saves the TOTP secret for a user.
func (s *UserStore) SetTOTPSecret(ctx context.Context, id models.ID, secret string) error {
	return s.modify(ctx, id, func(u *models.User) { u.TOTPSecret = &secret })
}

// EnableTOTP marks 2FA as active for a user.
func (s *UserStore) EnableTOTP(ctx context.Context, id models.ID) error {
	return s.modify(ctx, id, func(u *models.User) { u.TOTPEnabled = true })
}

func (s *UserStore) modify(ctx context.Context, id models.ID, fn func(*models.User)) error {
	defer s.db.mu.Unlock()
	if err := s.db.lock(ctx, "update user"); err != nil {
		return err
	}
	id = models.ParseID(string(id))
	u, ok := s.db.users[id]
	if !ok {
		return models.ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = s.db.stamp()
	s.db.users[id] = u
	return nil
}
