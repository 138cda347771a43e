// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package localcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"technexus/internal/metrics"
	"technexus/internal/models"
)

// Cache is the typed view over one browser's Store. Reads never fail: an
// absent key, a backend error or a value that does not parse all read as
// empty. Writes report backend errors to the caller.
type Cache struct {
	store    Store
	recorder metrics.Recorder
}

// New wraps store. rec may be nil.
func New(store Store, rec metrics.Recorder) *Cache {
	return &Cache{store: store, recorder: metrics.OrNop(rec)}
}

// Store exposes the underlying namespace.
func (c *Cache) Store() Store { return c.store }

// userArticles is the stored shape of KeyUserArticles. The owner is kept
// so a different identity signing in on the same browser never sees the
// previous owner's list.
type userArticles struct {
	OwnerID  models.ID        `json:"owner_id"`
	Articles []models.Article `json:"articles"`
}

// Articles returns the cached article collection.
func (c *Cache) Articles(ctx context.Context) []models.Article {
	list, _ := load[[]models.Article](ctx, c, KeyArticles)
	return list
}

// SetArticles replaces the cached article collection.
func (c *Cache) SetArticles(ctx context.Context, list []models.Article) error {
	return c.write(ctx, KeyArticles, list)
}

// UpdateArticles applies fn to the cached collection atomically.
func (c *Cache) UpdateArticles(ctx context.Context, fn func([]models.Article) []models.Article) error {
	return c.store.Update(ctx, KeyArticles, func(cur []byte) ([]byte, error) {
		list, _ := parse[[]models.Article](c, KeyArticles, cur)
		return json.Marshal(fn(list))
	})
}

// UserArticles returns the cached list of owner's own articles.
func (c *Cache) UserArticles(ctx context.Context, owner models.ID) []models.Article {
	ua, ok := load[userArticles](ctx, c, KeyUserArticles)
	if !ok || !ua.OwnerID.Equal(owner) {
		return nil
	}
	return ua.Articles
}

// SetUserArticles replaces the cached list of owner's own articles.
func (c *Cache) SetUserArticles(ctx context.Context, owner models.ID, list []models.Article) error {
	return c.write(ctx, KeyUserArticles, userArticles{OwnerID: owner, Articles: list})
}

// InvalidateUserArticles drops the per-author list.
func (c *Cache) InvalidateUserArticles(ctx context.Context) error {
	return c.store.Remove(ctx, KeyUserArticles)
}

// EmbeddedComments returns the cached comments of one article and whether
// the map had an entry for it.
func (c *Cache) EmbeddedComments(ctx context.Context, articleID models.ID) ([]models.EmbeddedComment, bool) {
	m, ok := load[map[models.ID][]models.EmbeddedComment](ctx, c, KeyComments)
	if !ok {
		return nil, false
	}
	list, ok := m[models.ParseID(string(articleID))]
	return list, ok
}

// SetEmbeddedComments replaces one article's entry in the comments map.
func (c *Cache) SetEmbeddedComments(ctx context.Context, articleID models.ID, list []models.EmbeddedComment) error {
	return c.updateCommentMap(ctx, func(m map[models.ID][]models.EmbeddedComment) {
		if list == nil {
			list = []models.EmbeddedComment{}
		}
		m[models.ParseID(string(articleID))] = list
	})
}

// RemoveEmbeddedComments drops one article's entry from the comments map.
func (c *Cache) RemoveEmbeddedComments(ctx context.Context, articleID models.ID) error {
	return c.updateCommentMap(ctx, func(m map[models.ID][]models.EmbeddedComment) {
		delete(m, models.ParseID(string(articleID)))
	})
}

func (c *Cache) updateCommentMap(ctx context.Context, fn func(map[models.ID][]models.EmbeddedComment)) error {
	return c.store.Update(ctx, KeyComments, func(cur []byte) ([]byte, error) {
		m, _ := parse[map[models.ID][]models.EmbeddedComment](c, KeyComments, cur)
		if m == nil {
			m = map[models.ID][]models.EmbeddedComment{}
		}
		fn(m)
		return json.Marshal(m)
	})
}

// CurrentUser returns the cached identity, or nil.
func (c *Cache) CurrentUser(ctx context.Context) *models.Identity {
	id, ok := load[models.Identity](ctx, c, KeyCurrentUser)
	if !ok || id.ID.IsZero() {
		return nil
	}
	return &id
}

// SetCurrentUser mirrors the resolved identity.
func (c *Cache) SetCurrentUser(ctx context.Context, id *models.Identity) error {
	if id == nil {
		return c.ClearCurrentUser(ctx)
	}
	return c.write(ctx, KeyCurrentUser, id)
}

// ClearCurrentUser removes the mirrored identity.
func (c *Cache) ClearCurrentUser(ctx context.Context) error {
	return c.store.Remove(ctx, KeyCurrentUser)
}

// Theme returns the stored theme, dark by default. The value is kept as
// a bare string like the rest of the browser-side settings.
func (c *Cache) Theme(ctx context.Context) models.Theme {
	raw, err := c.store.Get(ctx, KeyTheme)
	if err != nil {
		return models.ThemeDark
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return models.ParseTheme(s)
	}
	return models.ParseTheme(string(raw))
}

// SetTheme stores the theme.
func (c *Cache) SetTheme(ctx context.Context, t models.Theme) error {
	return c.write(ctx, KeyTheme, t)
}

// ToggleTheme flips the stored theme and returns the new one.
func (c *Cache) ToggleTheme(ctx context.Context) (models.Theme, error) {
	var next models.Theme
	err := c.store.Update(ctx, KeyTheme, func(cur []byte) ([]byte, error) {
		current := models.ThemeDark
		var s string
		if cur != nil {
			if json.Unmarshal(cur, &s) == nil {
				current = models.ParseTheme(s)
			} else {
				current = models.ParseTheme(string(cur))
			}
		}
		next = current.Toggle()
		return json.Marshal(next)
	})
	return next, err
}

// Clear drops the whole namespace.
func (c *Cache) Clear(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// load reads and decodes key. It reports false when nothing usable was
// stored there.
func load[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			slog.Warn("local cache read failed", "key", key, "error", err)
		}
		var zero T
		return zero, false
	}
	return parse[T](c, key, raw)
}

func parse[T any](c *Cache, key string, raw []byte) (T, bool) {
	var v T
	if raw == nil {
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		c.recorder.CacheCorrupt(key)
		slog.Warn("local cache value discarded", "key", key,
			"error", fmt.Errorf("%w: %v", models.ErrCacheCorrupt, err))
		var zero T
		return zero, false
	}
	return v, true
}

func (c *Cache) write(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.store.Set(ctx, key, raw)
}
