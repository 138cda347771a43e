package comments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"technexus/internal/localcache"
	"technexus/internal/metrics"
	"technexus/internal/models"
	"technexus/internal/sanitize"
	"technexus/internal/store/memstore"
)

type fixture struct {
	db      *memstore.DB
	cache   *localcache.Cache
	sync    *Synchronizer
	reg     *prometheus.Registry
	article *models.Article
	author  *models.Identity
	reader  *models.Identity
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	db := memstore.New()
	reg := prometheus.NewRegistry()
	rec := metrics.NewCollector(reg)
	cache := localcache.New(localcache.NewMemory(), rec)

	author := identityFor(t, db, "author@example.com", "")
	reader := identityFor(t, db, "reader@example.com", "reader")

	article, err := db.Articles().Insert(ctx, models.Article{Title: "post", Content: "x", AuthorID: author.ID})
	require.NoError(t, err)
	article.Normalize()
	require.NoError(t, cache.SetArticles(ctx, []models.Article{*article}))

	return fixture{
		db:      db,
		cache:   cache,
		sync:    New(db.Articles(), db.Comments(), cache, sanitize.New(), rec),
		reg:     reg,
		article: article,
		author:  author,
		reader:  reader,
	}
}

// identityFor creates a user, and a profile when username is set.
func identityFor(t *testing.T, db *memstore.DB, email, username string) *models.Identity {
	t.Helper()
	ctx := context.Background()
	u, err := db.Users().Create(ctx, email, "", models.UserMetadata{})
	require.NoError(t, err)
	if username != "" {
		_, err = db.Profiles().CreateProfile(ctx, models.Profile{ID: u.ID, Username: username})
		require.NoError(t, err)
	}
	return &models.Identity{ID: u.ID, Email: email, Username: models.DisplayName(u.Metadata, email)}
}

func TestAddEmbedded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.sync.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	c, err := f.sync.AddEmbedded(ctx, f.article.ID, "  <b>Nice</b> &amp; clear ", f.reader)
	require.NoError(t, err)
	assert.False(t, c.ID.IsZero())
	assert.Equal(t, "Nice & clear", c.Content)
	assert.Equal(t, f.reader.Username, c.Author)

	second, err := f.sync.AddEmbedded(ctx, f.article.ID, "again", f.author)
	require.NoError(t, err)
	assert.NotEqual(t, c.ID, second.ID)

	row, err := f.db.Articles().FindByID(ctx, f.article.ID)
	require.NoError(t, err)
	require.Len(t, row.Comments, 2)
	assert.Equal(t, c.ID, row.Comments[0].ID)

	cached, ok := f.cache.EmbeddedComments(ctx, f.article.ID)
	require.True(t, ok)
	assert.Equal(t, row.Comments, cached)

	articles := f.cache.Articles(ctx)
	require.Len(t, articles, 1)
	assert.Len(t, articles[0].Comments, 2, "cached article row is replaced")
}

func TestAddEmbeddedRejects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.sync.AddEmbedded(ctx, f.article.ID, "hi", nil)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)

	_, err = f.sync.AddEmbedded(ctx, f.article.ID, "<script></script>  ", f.reader)
	var ve *models.ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = f.sync.AddEmbedded(ctx, "404", "hi", f.reader)
	assert.ErrorIs(t, err, models.ErrArticleNotFound)

	f.db.SetFailure(errors.New("offline"))
	_, err = f.sync.AddEmbedded(ctx, f.article.ID, "hi", f.reader)
	var te *models.TransportError
	assert.ErrorAs(t, err, &te)
	_, ok := f.cache.EmbeddedComments(ctx, f.article.ID)
	assert.False(t, ok, "nothing cached when the remote write fails")
}

func TestListEmbedded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seq := []models.EmbeddedComment{{ID: "x1", Content: "seeded", Author: "a", CreatedAt: time.Now().UTC().Round(0)}}
	_, err := f.db.Articles().Update(ctx, f.article.ID, models.ArticlePatch{Comments: &seq})
	require.NoError(t, err)

	got := f.sync.ListEmbedded(ctx, f.article.ID)
	require.Len(t, got, 1)
	assert.Equal(t, "seeded", got[0].Content)

	f.db.SetFailure(errors.New("offline"))
	assert.Equal(t, got, f.sync.ListEmbedded(ctx, f.article.ID), "served from the comments map")
}

func TestListEmbeddedDegrades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.db.SetFailure(errors.New("offline"))

	got := f.sync.ListEmbedded(ctx, f.article.ID)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Empty(t, f.sync.ListEmbedded(ctx, "404"))

	n, err := testutil.GatherAndCount(f.reg, "technexus_comment_list_degraded_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestClearEmbedded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.sync.AddEmbedded(ctx, f.article.ID, "one", f.reader)
	require.NoError(t, err)

	assert.ErrorIs(t, f.sync.ClearEmbedded(ctx, f.article.ID, f.reader), models.ErrForbidden)
	assert.ErrorIs(t, f.sync.ClearEmbedded(ctx, f.article.ID, nil), models.ErrForbidden)
	require.NoError(t, f.sync.ClearEmbedded(ctx, f.article.ID, f.author))

	assert.Empty(t, f.sync.ListEmbedded(ctx, f.article.ID))
	row, err := f.db.Articles().FindByID(ctx, f.article.ID)
	require.NoError(t, err)
	assert.Empty(t, row.Comments)
}

func TestRelationalLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	byReader, err := f.sync.Add(ctx, f.article.ID, "first", f.reader)
	require.NoError(t, err)
	assert.Equal(t, "reader", byReader.Author, "joined profile username")
	assert.Equal(t, f.article.ID, byReader.ArticleID)

	byAuthor, err := f.sync.Add(ctx, f.article.ID, "second", f.author)
	require.NoError(t, err)
	assert.Equal(t, "author@example.com", byAuthor.Author, "email when there is no profile")

	list := f.sync.ListByArticle(ctx, f.article.ID)
	require.Len(t, list, 2)
	assert.Equal(t, byAuthor.ID, list[0].ID, "newest first")

	assert.ErrorIs(t, f.sync.Update(ctx, byReader.ID, "hijack", f.author.ID), models.ErrNoEffect)
	assert.ErrorIs(t, f.sync.Remove(ctx, byReader.ID, f.author.ID), models.ErrNoEffect)
	assert.ErrorIs(t, f.sync.Update(ctx, "999", "x", f.reader.ID), models.ErrNoEffect)
	assert.ErrorIs(t, f.sync.Remove(ctx, "999", f.reader.ID), models.ErrNoEffect)

	stored, err := f.db.Comments().FindByID(ctx, byReader.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", stored.Content, "a non-owner update leaves the content alone")

	require.NoError(t, f.sync.Update(ctx, byReader.ID, "edited", f.reader.ID))
	list = f.sync.ListByArticle(ctx, f.article.ID)
	require.Len(t, list, 2)
	assert.Equal(t, "edited", list[1].Content)

	require.NoError(t, f.sync.Remove(ctx, byReader.ID, f.reader.ID))
	assert.Len(t, f.sync.ListByArticle(ctx, f.article.ID), 1)
}

// countingComments records whether the owner-filtered writes were reached.
type countingComments struct {
	Remote
	writes int
}

func (c *countingComments) UpdateOwned(ctx context.Context, id, userID models.ID, content string) (int64, error) {
	c.writes++
	return c.Remote.UpdateOwned(ctx, id, userID, content)
}

func (c *countingComments) DeleteOwned(ctx context.Context, id, userID models.ID) (int64, error) {
	c.writes++
	return c.Remote.DeleteOwned(ctx, id, userID)
}

func TestRelationalGateRunsBeforeWrites(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	remote := &countingComments{Remote: f.db.Comments()}
	sync := New(f.db.Articles(), remote, f.cache, sanitize.New(), nil)

	c, err := sync.Add(ctx, f.article.ID, "mine", f.reader)
	require.NoError(t, err)

	assert.ErrorIs(t, sync.Update(ctx, c.ID, "theirs", f.author.ID), models.ErrNoEffect)
	assert.ErrorIs(t, sync.Remove(ctx, c.ID, f.author.ID), models.ErrNoEffect)
	assert.Zero(t, remote.writes, "denied requests never reach the store write")

	require.NoError(t, sync.Update(ctx, c.ID, "still mine", f.reader.ID))
	assert.Equal(t, 1, remote.writes)
}

func TestRelationalRejects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.sync.Add(ctx, f.article.ID, "hi", nil)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
	_, err = f.sync.Add(ctx, "404", "hi", f.reader)
	assert.ErrorIs(t, err, models.ErrArticleNotFound)
	_, err = f.sync.Add(ctx, f.article.ID, "   ", f.reader)
	var ve *models.ValidationError
	assert.ErrorAs(t, err, &ve)

	assert.ErrorIs(t, f.sync.Update(ctx, "1", "x", ""), models.ErrUnauthenticated)
	assert.ErrorIs(t, f.sync.Update(ctx, "", "x", f.reader.ID), models.ErrCommentNotFound)
	assert.ErrorIs(t, f.sync.Remove(ctx, "", f.reader.ID), models.ErrCommentNotFound)
}

func TestListByArticleDegrades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.sync.Add(ctx, f.article.ID, "hi", f.reader)
	require.NoError(t, err)
	f.db.SetFailure(errors.New("offline"))

	got := f.sync.ListByArticle(ctx, f.article.ID)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	err = f.sync.Update(ctx, "1", "x", f.reader.ID)
	var te *models.TransportError
	assert.ErrorAs(t, err, &te, "writes still surface transport errors")
}

func TestListByKind(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.sync.AddEmbedded(ctx, f.article.ID, "embedded", f.reader)
	require.NoError(t, err)
	_, err = f.sync.Add(ctx, f.article.ID, "relational", f.reader)
	require.NoError(t, err)

	emb := f.sync.List(ctx, models.CommentEmbedded, f.article.ID)
	require.Len(t, emb, 1)
	assert.Equal(t, models.CommentEmbedded, emb[0].Kind)
	assert.Equal(t, "embedded", emb[0].Embedded.Content)

	rel := f.sync.List(ctx, models.CommentRelational, f.article.ID)
	require.Len(t, rel, 1)
	assert.Equal(t, "relational", rel[0].Relational.Content)
}
