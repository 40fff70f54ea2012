package routing_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/km-arc/go-ioc/framework/routing"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, path, nil))
	return rr
}

// ── HTTP verbs ────────────────────────────────────────────────────────────────

func TestRouter_Verbs(t *testing.T) {
	r := routing.New(nil)
	r.Get("/users", okHandler)
	r.Post("/users", okHandler)
	r.Put("/users/{id}", okHandler)
	r.Delete("/users/{id}", okHandler)

	tests := []struct{ method, path string }{
		{http.MethodGet, "/users"},
		{http.MethodPost, "/users"},
		{http.MethodPut, "/users/1"},
		{http.MethodDelete, "/users/1"},
	}
	for _, tt := range tests {
		if rr := do(t, r, tt.method, tt.path); rr.Code != http.StatusOK {
			t.Errorf("%s %s: got %d want 200", tt.method, tt.path, rr.Code)
		}
	}
	if rr := do(t, r, http.MethodPatch, "/users/1"); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("PATCH: got %d want 405", rr.Code)
	}
}

func TestRouter_Param(t *testing.T) {
	r := routing.New(nil)
	var got string
	r.Get("/users/{id}", func(w http.ResponseWriter, req *http.Request) {
		got = routing.Param(req, "id")
	})

	do(t, r, http.MethodGet, "/users/7")
	if got != "7" {
		t.Errorf("Param: got %q want 7", got)
	}
}

// ── Groups & Prefixes ────────────────────────────────────────────────────────

func TestRouter_PrefixAndGroup(t *testing.T) {
	r := routing.New(nil)
	r.Prefix("/api/v1", func(api *routing.Router) {
		api.Get("/ping", okHandler)
	})
	r.Group(func(g *routing.Router) {
		g.Middleware(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			})
		})
		g.Get("/private", okHandler)
	})

	if rr := do(t, r, http.MethodGet, "/api/v1/ping"); rr.Code != http.StatusOK {
		t.Errorf("prefixed route: got %d", rr.Code)
	}
	if rr := do(t, r, http.MethodGet, "/private"); rr.Code != http.StatusUnauthorized {
		t.Errorf("group middleware: got %d want 401", rr.Code)
	}
}

func TestRouter_Mount(t *testing.T) {
	r := routing.New(nil)
	r.Mount("/debug", http.HandlerFunc(okHandler))

	if rr := do(t, r, http.MethodGet, "/debug/anything"); rr.Code != http.StatusOK {
		t.Errorf("mounted handler: got %d", rr.Code)
	}
}

func TestRouter_RecoversPanics(t *testing.T) {
	r := routing.New(nil)
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	if rr := do(t, r, http.MethodGet, "/boom"); rr.Code != http.StatusInternalServerError {
		t.Errorf("panic: got %d want 500", rr.Code)
	}
}

// ── Introspection ────────────────────────────────────────────────────────────

func TestRouter_Routes(t *testing.T) {
	r := routing.New(nil)
	r.Post("/b", okHandler)
	r.Get("/b", okHandler)
	r.Get("/a", okHandler)

	got := r.Routes()
	want := []routing.Route{
		{Method: http.MethodGet, Pattern: "/a"},
		{Method: http.MethodGet, Pattern: "/b"},
		{Method: http.MethodPost, Pattern: "/b"},
	}
	if len(got) != len(want) {
		t.Fatalf("Routes: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("route %d: got %v want %v", i, got[i], want[i])
		}
	}
}

// ── Logging ──────────────────────────────────────────────────────────────────

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := routing.New(zap.New(core))
	r.Get("/hello", okHandler)

	do(t, r, http.MethodGet, "/hello")

	entries := logs.FilterMessage("http request").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["path"] != "/hello" || fields["status"] != int64(200) {
		t.Errorf("unexpected fields %v", fields)
	}
}
