package identity

import (
	"context"
	"errors"
	"sync"
	"testing"

	"technexus/internal/localcache"
	"technexus/internal/models"
	"technexus/internal/store/memstore"
)

// fakeProvider is a scriptable auth provider.
type fakeProvider struct {
	mu        sync.Mutex
	session   *models.Session
	err       error
	signOut   error
	listeners map[int]func(models.AuthEvent, *models.Session)
	next      int
	updates   []models.UserUpdate
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{listeners: make(map[int]func(models.AuthEvent, *models.Session))}
}

func (f *fakeProvider) GetSession(context.Context) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, f.err
}

func (f *fakeProvider) OnAuthStateChange(fn func(models.AuthEvent, *models.Session)) func() {
	f.mu.Lock()
	id := f.next
	f.next++
	f.listeners[id] = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

func (f *fakeProvider) SignOut(context.Context) error {
	f.emit(models.EventSignedOut, nil)
	return f.signOut
}

func (f *fakeProvider) UpdateUser(_ context.Context, u models.UserUpdate) (*models.AuthUser, error) {
	f.mu.Lock()
	f.updates = append(f.updates, u)
	if f.session != nil && u.Data != nil {
		f.session.User.Metadata = *u.Data
	}
	var user models.AuthUser
	if f.session != nil {
		user = f.session.User
	}
	f.mu.Unlock()
	return &user, nil
}

// emit sets the session and fires every listener.
func (f *fakeProvider) emit(event models.AuthEvent, s *models.Session) {
	f.mu.Lock()
	f.session = s
	fns := make([]func(models.AuthEvent, *models.Session), 0, len(f.listeners))
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(event, s)
	}
}

func (f *fakeProvider) listenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

func session(id, email string, meta models.UserMetadata) *models.Session {
	return &models.Session{AccessToken: "tok", User: models.AuthUser{ID: models.ID(id), Email: email, Metadata: meta}}
}

func TestResolveSignedIn(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider()
	p.session = session("u1", "ada@x.io", models.UserMetadata{FullName: "Ada Lovelace"})
	cache := localcache.New(localcache.NewMemory(), nil)
	r := NewResolver(p, cache)

	got := r.Resolve(ctx)
	if got == nil || got.ID != "u1" || got.Username != "Ada Lovelace" || got.Email != "ada@x.io" {
		t.Fatalf("Resolve() = %+v", got)
	}
	if cached := cache.CurrentUser(ctx); cached == nil || *cached != *got {
		t.Errorf("currentUser = %+v, want %+v", cached, got)
	}
}

func TestResolveFailureClearsCache(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider()
	cache := localcache.New(localcache.NewMemory(), nil)
	cache.SetCurrentUser(ctx, &models.Identity{ID: "stale", Username: "ghost"})
	r := NewResolver(p, cache)

	p.err = errors.New("provider unreachable")
	if got := r.Resolve(ctx); got != nil {
		t.Errorf("Resolve() with provider error = %+v, want nil", got)
	}
	if cached := cache.CurrentUser(ctx); cached != nil {
		t.Errorf("currentUser = %+v, want cleared", cached)
	}

	cache.SetCurrentUser(ctx, &models.Identity{ID: "stale"})
	p.err = nil
	if got := r.Resolve(ctx); got != nil {
		t.Errorf("Resolve() without session = %+v, want nil", got)
	}
	if cached := cache.CurrentUser(ctx); cached != nil {
		t.Errorf("currentUser = %+v, want cleared", cached)
	}
}

// TestStartFollowsSessionChanges verifies that every session change is
// re-resolved and pushed to subscribers without polling.
func TestStartFollowsSessionChanges(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider()
	cache := localcache.New(localcache.NewMemory(), nil)
	r := NewResolver(p, cache)
	r.Start(ctx)
	r.Start(ctx)
	defer r.Stop()

	if n := p.listenerCount(); n != 1 {
		t.Fatalf("provider listeners = %d, want 1 after double Start", n)
	}

	var seen []*models.Identity
	unsubscribe := r.Subscribe(func(id *models.Identity) { seen = append(seen, id) })

	p.emit(models.EventSignedIn, session("u7", "grace@navy.mil", models.UserMetadata{}))
	if len(seen) != 1 || seen[0] == nil || seen[0].Username != "grace" {
		t.Fatalf("after sign-in seen = %+v", seen)
	}
	if cached := cache.CurrentUser(ctx); cached == nil || cached.ID != "u7" {
		t.Errorf("currentUser = %+v, want u7", cached)
	}

	p.emit(models.EventSignedOut, nil)
	if len(seen) != 2 || seen[1] != nil {
		t.Fatalf("after sign-out seen = %+v", seen)
	}
	if cache.CurrentUser(ctx) != nil {
		t.Error("currentUser survived sign-out")
	}

	unsubscribe()
	p.emit(models.EventSignedIn, session("u8", "x@y.z", models.UserMetadata{}))
	if len(seen) != 2 {
		t.Errorf("unsubscribed listener still called: %d calls", len(seen))
	}

	r.Stop()
	if n := p.listenerCount(); n != 0 {
		t.Errorf("provider listeners after Stop = %d, want 0", n)
	}
}

func TestSignOut(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider()
	p.session = session("u1", "ada@x.io", models.UserMetadata{})
	cache := localcache.New(localcache.NewMemory(), nil)
	r := NewResolver(p, cache)
	r.Resolve(ctx)

	var last *models.Identity
	called := false
	r.Subscribe(func(id *models.Identity) { called, last = true, id })

	p.signOut = errors.New("network down")
	if err := r.SignOut(ctx); err == nil {
		t.Error("SignOut() should report the provider error")
	}
	if cache.CurrentUser(ctx) != nil {
		t.Error("currentUser should be cleared even when the provider fails")
	}
	if !called || last != nil {
		t.Errorf("subscriber called=%v with %+v, want nil identity", called, last)
	}
}

func TestProfilesCreateOnFirstAccess(t *testing.T) {
	ctx := context.Background()
	db := memstore.New()
	user, err := db.Users().Create(ctx, "alan@turing.org", "", models.UserMetadata{Name: "Alan"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	p := newFakeProvider()
	p.session = &models.Session{User: user.Public()}
	cache := localcache.New(localcache.NewMemory(), nil)
	profiles := NewProfiles(db.Profiles(), p, NewResolver(p, cache))

	got, err := profiles.Current(ctx)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if got.Username != "Alan" || !got.ID.Equal(user.ID) {
		t.Errorf("Current() = %+v, want a fresh profile named Alan", got)
	}

	again, err := profiles.Current(ctx)
	if err != nil || !again.CreatedAt.Equal(got.CreatedAt) {
		t.Errorf("second Current() = %+v, %v; want the same row", again, err)
	}
}

func TestProfilesUpdateUsername(t *testing.T) {
	ctx := context.Background()
	db := memstore.New()
	user, _ := db.Users().Create(ctx, "alan@turing.org", "", models.UserMetadata{})

	p := newFakeProvider()
	p.session = &models.Session{User: user.Public()}
	cache := localcache.New(localcache.NewMemory(), nil)
	profiles := NewProfiles(db.Profiles(), p, NewResolver(p, cache))

	if _, err := profiles.UpdateUsername(ctx, "   "); err == nil {
		t.Error("blank username accepted")
	}

	got, err := profiles.UpdateUsername(ctx, "enigma")
	if err != nil {
		t.Fatalf("UpdateUsername: %v", err)
	}
	if got.Username != "enigma" {
		t.Errorf("profile username = %q, want enigma", got.Username)
	}
	if len(p.updates) != 1 || p.updates[0].Data.Username != "enigma" {
		t.Errorf("auth metadata updates = %+v", p.updates)
	}
	if cached := cache.CurrentUser(ctx); cached == nil || cached.Username != "enigma" {
		t.Errorf("currentUser = %+v, want username enigma", cached)
	}
}

func TestProfilesSignedOut(t *testing.T) {
	p := newFakeProvider()
	profiles := NewProfiles(memstore.New().Profiles(), p, NewResolver(p, localcache.New(localcache.NewMemory(), nil)))
	if _, err := profiles.Current(context.Background()); !errors.Is(err, models.ErrUnauthenticated) {
		t.Errorf("Current() signed out err = %v, want ErrUnauthenticated", err)
	}
}
