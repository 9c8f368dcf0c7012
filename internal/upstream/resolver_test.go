package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"go.uber.org/zap"
)

type routeScript map[string]int

type scriptedServer struct {
	mu     sync.Mutex
	calls  []string
	script routeScript
	bodies map[string]string
}

func newScriptedServer(script routeScript, bodies map[string]string) (*scriptedServer, *httptest.Server) {
	s := &scriptedServer{script: script, bodies: bodies}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls = append(s.calls, r.URL.Path)
		s.mu.Unlock()

		status, ok := s.script[r.URL.Path]
		if !ok {
			status = http.StatusNotFound
		}
		w.WriteHeader(status)
		if body, ok := s.bodies[r.URL.Path]; ok {
			w.Write([]byte(body))
		}
	}))
	return s, srv
}

func (s *scriptedServer) callLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

func TestResolveStopsAtFirstSuccess(t *testing.T) {
	script, srv := newScriptedServer(routeScript{
		"/api/a/": http.StatusNotFound,
		"/api/b/": http.StatusOK,
		"/api/c/": http.StatusOK,
	}, map[string]string{"/api/b/": `{"ok":true}`})
	defer srv.Close()

	resolver := NewResolver(srv.URL, srv.Client(), zap.NewNop())
	res, err := resolver.Resolve(context.Background(), Request{
		Method:     http.MethodGet,
		Candidates: []string{"/api/a/", "/api/b/", "/api/c/"},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Path != "/api/b/" {
		t.Fatalf("winning path: got %s, want /api/b/", res.Path)
	}
	if string(res.Body) != `{"ok":true}` {
		t.Fatalf("unexpected body: %s", res.Body)
	}

	calls := script.callLog()
	if len(calls) != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d: %v", len(calls), calls)
	}
	if calls[0] != "/api/a/" || calls[1] != "/api/b/" {
		t.Fatalf("attempts out of order: %v", calls)
	}
}

func TestResolveExhaustsAllCandidatesOn404(t *testing.T) {
	script, srv := newScriptedServer(routeScript{}, nil)
	defer srv.Close()

	resolver := NewResolver(srv.URL, srv.Client(), zap.NewNop())
	candidates := []string{"/api/a/", "/api/b/", "/api/c/"}
	_, err := resolver.Resolve(context.Background(), Request{
		Method:     http.MethodGet,
		Candidates: candidates,
	})
	if !errors.Is(err, ErrNoEndpoint) {
		t.Fatalf("expected ErrNoEndpoint, got %v", err)
	}
	if got := len(script.callLog()); got != len(candidates) {
		t.Fatalf("expected %d attempts, got %d", len(candidates), got)
	}
}

func TestStrictPolicyStopsAtServerError(t *testing.T) {
	script, srv := newScriptedServer(routeScript{
		"/api/a/": http.StatusNotFound,
		"/api/b/": http.StatusInternalServerError,
		"/api/c/": http.StatusOK,
	}, nil)
	defer srv.Close()

	resolver := NewResolver(srv.URL, srv.Client(), zap.NewNop())
	_, err := resolver.Resolve(context.Background(), Request{
		Method:     http.MethodGet,
		Candidates: []string{"/api/a/", "/api/b/", "/api/c/"},
	})

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Status != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", statusErr.Status)
	}
	if statusErr.Path != "/api/b/" {
		t.Fatalf("path: got %s, want /api/b/", statusErr.Path)
	}
	if got := len(script.callLog()); got != 2 {
		t.Fatalf("expected the walk to stop after 2 attempts, got %d", got)
	}
}

func TestLenientPolicySkipsServerErrors(t *testing.T) {
	script, srv := newScriptedServer(routeScript{
		"/api/a/": http.StatusNotFound,
		"/api/b/": http.StatusInternalServerError,
		"/api/c/": http.StatusOK,
	}, map[string]string{"/api/c/": `{"x":1}`})
	defer srv.Close()

	resolver := NewResolver(srv.URL, srv.Client(), zap.NewNop())
	res, err := resolver.Resolve(context.Background(), Request{
		Method:     http.MethodGet,
		Candidates: []string{"/api/a/", "/api/b/", "/api/c/"},
		Policy:     FallthroughAll,
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Path != "/api/c/" {
		t.Fatalf("winning path: got %s, want /api/c/", res.Path)
	}
	if string(res.Body) != `{"x":1}` {
		t.Fatalf("unexpected body: %s", res.Body)
	}
	if got := len(script.callLog()); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestResolveSetsTokenHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	resolver := NewResolver(srv.URL, srv.Client(), zap.NewNop())
	_, err := resolver.Resolve(context.Background(), Request{
		Method:     http.MethodGet,
		Candidates: []string{"/api/me/"},
		Token:      "abc123",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if gotAuth != "Token abc123" {
		t.Fatalf("authorization header: got %q, want %q", gotAuth, "Token abc123")
	}
}

func TestResolveRejectsEmptyCandidates(t *testing.T) {
	resolver := NewResolver("http://localhost", nil, zap.NewNop())
	if _, err := resolver.Resolve(context.Background(), Request{Method: http.MethodGet}); err == nil {
		t.Fatal("expected an error for empty candidates")
	}
}
