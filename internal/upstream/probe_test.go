package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// probeBackend fakes the four role-scoped endpoints with fixed status codes
// and optional profile bodies.
type probeBackend struct {
	statuses map[string]int
	bodies   map[string]string
	hits     []string
}

func (b *probeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.hits = append(b.hits, r.URL.Path)
	status, ok := b.statuses[r.URL.Path]
	if !ok {
		status = http.StatusNotFound
	}
	w.WriteHeader(status)
	if body, ok := b.bodies[r.URL.Path]; ok && status == http.StatusOK {
		w.Write([]byte(body))
	}
}

func TestProbeRole_FirstMatchWins(t *testing.T) {
	// Both the doctor and laboratory probes would match; the doctor probe
	// comes first in the declared order and must win.
	backend := &probeBackend{
		statuses: map[string]int{
			"/admin/statistics":        http.StatusUnauthorized,
			"/doctors/profile/me":      http.StatusOK,
			"/laboratories/profile/me": http.StatusOK,
		},
		bodies: map[string]string{
			"/doctors/profile/me": `{"user":{"email":"doc@h.c"}}`,
		},
	}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	c := NewClient(srv.URL)
	role, profile, err := c.ProbeRole(context.Background(), "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if role != "doctor" {
		t.Fatalf("role = %q, want doctor", role)
	}
	if profile["email"] != "doc@h.c" {
		t.Errorf("profile = %v, want doctor profile", profile)
	}
	for _, path := range backend.hits {
		if path == "/laboratories/profile/me" || path == "/patients/profile" {
			t.Errorf("probe %s issued after a match", path)
		}
	}
}

func TestProbeRole_ForbiddenIsPositive(t *testing.T) {
	// A 403 means "authenticated but wrong operation" and counts as a role
	// match, exactly like a 200.
	backend := &probeBackend{
		statuses: map[string]int{
			"/admin/statistics":        http.StatusUnauthorized,
			"/doctors/profile/me":      http.StatusUnauthorized,
			"/laboratories/profile/me": http.StatusForbidden,
		},
	}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	c := NewClient(srv.URL)
	role, profile, err := c.ProbeRole(context.Background(), "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if role != "laboratory" {
		t.Fatalf("role = %q, want laboratory", role)
	}
	if profile != nil {
		t.Errorf("expected no profile when the probe answered 403, got %v", profile)
	}
}

func TestProbeRole_AdminHasNoProfileFetch(t *testing.T) {
	backend := &probeBackend{
		statuses: map[string]int{"/admin/statistics": http.StatusOK},
	}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	c := NewClient(srv.URL)
	role, profile, err := c.ProbeRole(context.Background(), "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if role != "admin" {
		t.Fatalf("role = %q, want admin", role)
	}
	if profile != nil {
		t.Errorf("admin has no profile endpoint, got %v", profile)
	}
	if len(backend.hits) != 1 {
		t.Errorf("expected a single probe request, got %v", backend.hits)
	}
}

func TestProbeRole_AllUnauthorized(t *testing.T) {
	backend := &probeBackend{
		statuses: map[string]int{
			"/admin/statistics":        http.StatusUnauthorized,
			"/doctors/profile/me":      http.StatusUnauthorized,
			"/laboratories/profile/me": http.StatusUnauthorized,
			"/patients/profile":        http.StatusUnauthorized,
		},
	}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	c := NewClient(srv.URL)
	_, _, err := c.ProbeRole(context.Background(), "tok")
	if !errors.Is(err, ErrTokenRejected) {
		t.Fatalf("expected ErrTokenRejected, got %v", err)
	}
}

func TestProbeRole_MixedFailuresResolveUnknown(t *testing.T) {
	// 404s and 500s do not prove the token is bad; no match resolves to an
	// empty role without an error so the caller can keep the session.
	backend := &probeBackend{
		statuses: map[string]int{
			"/admin/statistics":        http.StatusUnauthorized,
			"/doctors/profile/me":      http.StatusNotFound,
			"/laboratories/profile/me": http.StatusInternalServerError,
			"/patients/profile":        http.StatusUnauthorized,
		},
	}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	c := NewClient(srv.URL)
	role, _, err := c.ProbeRole(context.Background(), "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if role != "" {
		t.Fatalf("role = %q, want empty", role)
	}
}
