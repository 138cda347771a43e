package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

func csrfCookie(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == CSRFCookieName {
			return c
		}
	}
	return nil
}

func TestCSRFIssuesCookie(t *testing.T) {
	for _, secure := range []bool{true, false} {
		handler := NewCSRF(secure)(http.HandlerFunc(okHandler))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/articles", nil))

		c := csrfCookie(rr)
		if c == nil {
			t.Fatal("CSRF cookie not set")
		}
		if c.Secure != secure {
			t.Errorf("cookie Secure: got %v, want %v", c.Secure, secure)
		}
		if c.SameSite != http.SameSiteStrictMode || c.HttpOnly {
			t.Errorf("cookie = %+v, want readable SameSite=Strict", c)
		}
		if len(c.Value) != csrfTokenLength*2 {
			t.Errorf("token length = %d", len(c.Value))
		}
	}
}

func TestCSRFValidation(t *testing.T) {
	var ctxToken string
	handler := NewCSRF(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxToken = CSRFTokenFromCtx(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	getRR := httptest.NewRecorder()
	handler.ServeHTTP(getRR, httptest.NewRequest(http.MethodGet, "/api/csrf", nil))
	cookie := csrfCookie(getRR)
	if cookie == nil || ctxToken != cookie.Value {
		t.Fatalf("context token %q does not match cookie %+v", ctxToken, cookie)
	}

	tests := []struct {
		name   string
		method string
		header string
		want   int
	}{
		{"head passes", http.MethodHead, "", http.StatusOK},
		{"options passes", http.MethodOptions, "", http.StatusOK},
		{"post without token", http.MethodPost, "", http.StatusForbidden},
		{"put without token", http.MethodPut, "", http.StatusForbidden},
		{"patch wrong token", http.MethodPatch, "nope", http.StatusForbidden},
		{"delete without token", http.MethodDelete, "", http.StatusForbidden},
		{"post with token", http.MethodPost, cookie.Value, http.StatusOK},
		{"delete with token", http.MethodDelete, cookie.Value, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/articles/1", nil)
			req.AddCookie(cookie)
			if tt.header != "" {
				req.Header.Set(CSRFHeaderName, tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("status: got %d, want %d", rr.Code, tt.want)
			}
			if csrfCookie(rr) != nil {
				t.Error("existing cookie should be reused")
			}
		})
	}
}

func TestCSRFTokenFromCtxEmpty(t *testing.T) {
	if token := CSRFTokenFromCtx(httptest.NewRequest(http.MethodGet, "/", nil).Context()); token != "" {
		t.Errorf("expected empty string, got %q", token)
	}
}
