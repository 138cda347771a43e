// handler_test.go runs the API against the in-memory remote store and local
// cache through a real HTTP server. Every client has its own cookie jar,
// so every client is a separate browser.
package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"technexus/internal/auth"
	"technexus/internal/localcache"
	"technexus/internal/middleware"
	"technexus/internal/session"
	"technexus/internal/storage"
	"technexus/internal/store/memstore"
	"technexus/internal/workspace"
)

type testEnv struct {
	srv *httptest.Server
	db  *memstore.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithStorage(t, nil)
}

func newTestEnvWithStorage(t *testing.T, objects *storage.Client) *testEnv {
	t.Helper()
	db := memstore.New()
	svc := auth.New(db.Users(), nil, auth.Config{
		Secret:     []byte("test-secret-at-least-32-bytes-long!!"),
		BcryptCost: bcrypt.MinCost,
	})
	factory := workspace.NewFactory(localcache.NewMemoryPool(0),
		workspace.Remote{Articles: db.Articles(), Comments: db.Comments(), Profiles: db.Profiles()}, svc, nil)
	browsers := session.NewStore(session.NewMemoryRegistry(), false)
	api := New(svc, browsers, objects, "http://site.test")

	r := chi.NewRouter()
	r.Use(middleware.LoadWorkspace(browsers, factory))
	r.Use(middleware.ResolveIdentity)
	r.Get("/api/articles", api.ListArticles)
	r.Get("/api/highlight.css", api.HighlightCSS)
	r.Get("/api/articles/{id}", api.GetArticle)
	r.Get("/api/articles/{id}/comments", api.ListComments)
	r.Get("/api/theme", api.Theme)
	r.Put("/api/theme", api.SetTheme)
	r.Post("/api/theme/toggle", api.ToggleTheme)
	r.Delete("/api/browser", api.ForgetBrowser)
	r.Get("/api/auth/session", api.Session)
	r.Post("/api/auth/signup", api.SignUp)
	r.Post("/api/auth/signin", api.SignIn)
	r.Post("/api/auth/signout", api.SignOut)
	r.Post("/api/auth/reset", api.RequestReset)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireIdentity)
		r.Post("/api/articles", api.CreateArticle)
		r.Patch("/api/articles/{id}", api.UpdateArticle)
		r.Delete("/api/articles/{id}", api.DeleteArticle)
		r.Post("/api/articles/{id}/comments", api.AddComment)
		r.Delete("/api/articles/{id}/comments", api.ClearComments)
		r.Patch("/api/comments/{id}", api.UpdateComment)
		r.Delete("/api/comments/{id}", api.DeleteComment)
		r.Get("/api/dashboard", api.Dashboard)
		r.Get("/api/profile", api.Profile)
		r.Patch("/api/profile", api.UpdateProfile)
		r.Post("/api/uploads/thumbnail", api.UploadThumbnail)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, db: db}
}

// browser returns a client with its own cookie jar.
func (e *testEnv) browser(t *testing.T) *testBrowser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &testBrowser{t: t, base: e.srv.URL, client: &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

type testBrowser struct {
	t      *testing.T
	base   string
	client *http.Client
}

type testResponse struct {
	Status int
	Data   json.RawMessage
	Error  *apiError
}

func (b *testBrowser) do(method, path string, body any) testResponse {
	b.t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			b.t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, b.base+path, rd)
	if err != nil {
		b.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return b.send(req)
}

func (b *testBrowser) send(req *http.Request) testResponse {
	b.t.Helper()
	method, path := req.Method, req.URL.Path
	resp, err := b.client.Do(req)
	if err != nil {
		b.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	out := testResponse{Status: resp.StatusCode}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		var env struct {
			Data  json.RawMessage `json:"data"`
			Error *apiError       `json:"error"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			b.t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
		}
		out.Data, out.Error = env.Data, env.Error
	}
	return out
}

// into decodes the response data into dst.
func (r testResponse) into(t *testing.T, dst any) {
	t.Helper()
	if err := json.Unmarshal(r.Data, dst); err != nil {
		t.Fatalf("decode data %s: %v", r.Data, err)
	}
}

func (b *testBrowser) signUp(email, fullName string) {
	b.t.Helper()
	resp := b.do(http.MethodPost, "/api/auth/signup", map[string]string{
		"email": email, "password": "secret1", "full_name": fullName,
	})
	if resp.Status != http.StatusCreated {
		b.t.Fatalf("signup %s: status %d, error %+v", email, resp.Status, resp.Error)
	}
}

func expectStatus(t *testing.T, resp testResponse, want int) {
	t.Helper()
	if resp.Status != want {
		t.Fatalf("status = %d, want %d (error %+v)", resp.Status, want, resp.Error)
	}
}

func expectCode(t *testing.T, resp testResponse, status int, code string) {
	t.Helper()
	expectStatus(t, resp, status)
	if resp.Error == nil || resp.Error.Code != code {
		t.Fatalf("error = %+v, want code %q", resp.Error, code)
	}
}
