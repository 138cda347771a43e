package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterBurstPerClient(t *testing.T) {
	rl := NewRateLimiter(3, time.Second)
	defer rl.Stop()

	for i := 1; i <= 3; i++ {
		if !rl.allow("203.0.113.1") {
			t.Fatalf("request %d within burst was denied", i)
		}
	}
	if rl.allow("203.0.113.1") {
		t.Error("request beyond burst should be denied")
	}
	if !rl.allow("203.0.113.2") {
		t.Error("a second client has its own bucket")
	}
}

func TestRateLimiterRefills(t *testing.T) {
	// Two tokens per 100ms: one token back every 50ms.
	rl := NewRateLimiter(2, 100*time.Millisecond)
	defer rl.Stop()

	rl.allow("client")
	rl.allow("client")
	if rl.allow("client") {
		t.Fatal("bucket should be empty")
	}

	time.Sleep(70 * time.Millisecond)
	if !rl.allow("client") {
		t.Error("one token should have refilled")
	}
	if rl.allow("client") {
		t.Error("only one token should have refilled")
	}
}

func TestRateLimiterMiddlewareRejectsWithJSON(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Stop()

	calls := 0
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/signin", nil)
		req.RemoteAddr = "198.51.100.7:40000"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	if rr := send(); rr.Code != http.StatusNoContent {
		t.Fatalf("first request: got %d, want 204", rr.Code)
	}

	rr := send()
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: got %d, want 429", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After: got %q, want 60", got)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type: got %q, want application/json", ct)
	}
	if calls != 1 {
		t.Errorf("handler calls: got %d, want 1", calls)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "192.0.2.10:5555", "192.0.2.10"},
		{"remote without port", nil, "192.0.2.10", "192.0.2.10"},
		{"forwarded chain", map[string]string{"X-Forwarded-For": " 10.1.1.1 , 10.2.2.2"}, "127.0.0.1:1", "10.1.1.1"},
		{"real ip", map[string]string{"X-Real-IP": "10.3.3.3"}, "127.0.0.1:1", "10.3.3.3"},
		{"forwarded wins", map[string]string{"X-Forwarded-For": "10.4.4.4", "X-Real-IP": "10.5.5.5"}, "127.0.0.1:1", "10.4.4.4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimiterCleanupDropsIdleClients(t *testing.T) {
	rl := NewRateLimiter(5, 50*time.Millisecond)
	defer rl.Stop()

	rl.allow("idle")
	time.Sleep(120 * time.Millisecond)
	rl.allow("active")
	rl.cleanup()

	rl.mu.Lock()
	_, idle := rl.clients["idle"]
	_, active := rl.clients["active"]
	rl.mu.Unlock()

	if idle {
		t.Error("idle client should have been dropped")
	}
	if !active {
		t.Error("active client should be kept")
	}
}
