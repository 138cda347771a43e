package workspace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"technexus/internal/auth"
	"technexus/internal/localcache"
	"technexus/internal/models"
	"technexus/internal/store/memstore"
)

func newFactory(t *testing.T) (*Factory, *localcache.MemoryPool) {
	t.Helper()
	db := memstore.New()
	svc := auth.New(db.Users(), nil, auth.Config{
		Secret:     []byte("test-secret-at-least-32-bytes-long!!"),
		BcryptCost: bcrypt.MinCost,
	})
	pool := localcache.NewMemoryPool(0)
	remote := Remote{Articles: db.Articles(), Comments: db.Comments(), Profiles: db.Profiles()}
	return NewFactory(pool, remote, svc, nil), pool
}

func TestSignInFlowsIntoCurrentUser(t *testing.T) {
	ctx := context.Background()
	f, _ := newFactory(t)
	w := f.Open(ctx, "browser-a")
	defer w.Close()

	assert.Nil(t, w.Identify(ctx))

	_, err := w.Auth.SignUp(ctx, "ada@example.com", "secret1", models.UserMetadata{FullName: "Ada L"})
	require.NoError(t, err)

	cached := w.Cache.CurrentUser(ctx)
	require.NotNil(t, cached, "sign-up event re-resolves the identity")
	assert.Equal(t, "Ada L", cached.Username)

	id := w.Identify(ctx)
	require.NotNil(t, id)
	assert.Equal(t, cached.ID, id.ID)

	require.NoError(t, w.Identity.SignOut(ctx))
	assert.Nil(t, w.Cache.CurrentUser(ctx))
	assert.Nil(t, w.Identify(ctx))
}

func TestNamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	f, _ := newFactory(t)
	a := f.Open(ctx, "browser-a")
	defer a.Close()
	b := f.Open(ctx, "browser-b")
	defer b.Close()

	_, err := a.Auth.SignUp(ctx, "ada@example.com", "secret1", models.UserMetadata{})
	require.NoError(t, err)
	require.NotNil(t, a.Identify(ctx))
	assert.Nil(t, b.Identify(ctx))

	_, err = b.Cache.ToggleTheme(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ThemeDark, a.Cache.Theme(ctx))
	assert.Equal(t, models.ThemeLight, b.Cache.Theme(ctx))
}

func TestReopenSeesSession(t *testing.T) {
	ctx := context.Background()
	f, _ := newFactory(t)
	first := f.Open(ctx, "browser-a")
	_, err := first.Auth.SignUp(ctx, "ada@example.com", "secret1", models.UserMetadata{})
	require.NoError(t, err)
	first.Close()

	second := f.Open(ctx, "browser-a")
	defer second.Close()
	assert.NotNil(t, second.Identify(ctx))
}

func TestIdentityChangeDropsUserArticles(t *testing.T) {
	ctx := context.Background()
	f, _ := newFactory(t)
	w := f.Open(ctx, "browser-a")
	defer w.Close()

	_, err := w.Auth.SignUp(ctx, "ada@example.com", "secret1", models.UserMetadata{})
	require.NoError(t, err)
	id := w.Identify(ctx)
	require.NotNil(t, id)

	_, err = w.Articles.Create(ctx, models.ArticleFields{Title: "t", Content: "c"}, id)
	require.NoError(t, err)
	mine, err := w.Articles.ListByAuthor(ctx, id)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.NotEmpty(t, w.Cache.UserArticles(ctx, id.ID))

	require.NoError(t, w.Identity.SignOut(ctx))
	assert.Empty(t, w.Cache.UserArticles(ctx, id.ID))
}
