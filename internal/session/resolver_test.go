package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/M1-Gl-UY1/TOPITO/internal/upstream"
)

// fakeBackend routes requests by path to canned JSON responses and records
// the bodies it received, one slice entry per call.
type fakeBackend struct {
	t         *testing.T
	responses map[string]fakeResponse
	bodies    map[string][]map[string]interface{}
}

type fakeResponse struct {
	status int
	body   string
}

func newFakeBackend(t *testing.T) *fakeBackend {
	return &fakeBackend{
		t:         t,
		responses: make(map[string]fakeResponse),
		bodies:    make(map[string][]map[string]interface{}),
	}
}

func (f *fakeBackend) on(path string, status int, body string) {
	f.responses[path] = fakeResponse{status: status, body: body}
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var received map[string]interface{}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&received)
	}
	f.bodies[r.URL.Path] = append(f.bodies[r.URL.Path], received)

	resp, ok := f.responses[r.URL.Path]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	_, _ = w.Write([]byte(resp.body))
}

func (f *fakeBackend) lastBody(path string) map[string]interface{} {
	calls := f.bodies[path]
	if len(calls) == 0 {
		f.t.Fatalf("no request captured for %s", path)
	}
	return calls[len(calls)-1]
}

func newTestResolver(t *testing.T, backend *fakeBackend) (*Resolver, Store) {
	t.Helper()

	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	store, err := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return NewResolver(upstream.NewClient(srv.URL), store, zerolog.Nop()), store
}

func TestLogin_InlineAdminUser(t *testing.T) {
	backend := newFakeBackend(t)
	backend.on("/jwt/auth", http.StatusOK,
		`{"accessToken":"t1","data":{"is_superuser":true,"email":"root@system","id":7}}`)

	r, store := newTestResolver(t, backend)

	result, err := r.Login(context.Background(), "sid-1", "root@system", "pw", RoleAdmin)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Session.Role != RoleAdmin {
		t.Errorf("role = %s, want admin", result.Session.Role)
	}
	if result.Session.Token != "t1" {
		t.Errorf("token = %q, want t1", result.Session.Token)
	}
	if result.Session.Profile.Email != "root@system" {
		t.Errorf("email = %q, want root@system", result.Session.Profile.Email)
	}
	if result.Session.Profile.ID != "7" {
		t.Errorf("id = %q, want 7", result.Session.Profile.ID)
	}

	st, err := store.Get(context.Background(), "sid-1")
	if err != nil {
		t.Fatalf("state not persisted: %v", err)
	}
	if st.Token != "t1" || st.AuthStep != StepAuthenticated || st.TargetRole != RoleAdmin {
		t.Errorf("state = %+v, want token t1, step authenticated, target admin", st)
	}
}

func TestLogin_RoleMismatchLeavesStateUntouched(t *testing.T) {
	backend := newFakeBackend(t)
	backend.on("/jwt/auth", http.StatusOK, `{"token":"t2","role":"doctor","email":"doc@x"}`)

	r, store := newTestResolver(t, backend)

	_, err := r.Login(context.Background(), "sid-1", "doc@x", "pw", RolePatient)
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want *AuthError", err)
	}

	if _, err := store.Get(context.Background(), "sid-1"); !errors.Is(err, ErrStateNotFound) {
		t.Errorf("token was persisted despite role mismatch: %v", err)
	}
	if _, ok := r.Current("sid-1"); ok {
		t.Error("session was cached despite role mismatch")
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	backend := newFakeBackend(t)
	backend.on("/jwt/auth", http.StatusUnauthorized, `{"message":"invalid credentials"}`)

	r, store := newTestResolver(t, backend)

	_, err := r.Login(context.Background(), "sid-1", "x@y", "wrong", RolePatient)
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want *AuthError", err)
	}
	if authErr.Reason != "invalid credentials" {
		t.Errorf("reason = %q, want backend message", authErr.Reason)
	}
	if _, err := store.Get(context.Background(), "sid-1"); !errors.Is(err, ErrStateNotFound) {
		t.Error("state persisted for failed login")
	}
}

func TestLogin_MissingToken(t *testing.T) {
	backend := newFakeBackend(t)
	backend.on("/jwt/auth", http.StatusOK, `{"user":{"role":"patient"}}`)

	r, _ := newTestResolver(t, backend)

	_, err := r.Login(context.Background(), "sid-1", "x@y", "pw", RolePatient)
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want *AuthError", err)
	}
}

func TestLogin_PatientFetchesMedicalRecords(t *testing.T) {
	backend := newFakeBackend(t)
	backend.on("/jwt/auth", http.StatusOK,
		`{"token":"t3","user":{"role":"patient","email":"pat@x","first_name":"Ana"}}`)
	backend.on("/patients/medical-records", http.StatusOK,
		`{"records":[{"id":1,"title":"checkup"}]}`)

	r, _ := newTestResolver(t, backend)

	result, err := r.Login(context.Background(), "sid-1", "pat@x", "pw", RolePatient)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Session.Role != RolePatient {
		t.Errorf("role = %s, want patient", result.Session.Role)
	}
	if len(result.MedicalRecords) != 1 {
		t.Errorf("records = %d, want 1", len(result.MedicalRecords))
	}
}

func TestLogin_UserRoleIsPatientCompatible(t *testing.T) {
	backend := newFakeBackend(t)
	backend.on("/jwt/auth", http.StatusOK, `{"token":"t4","user":{"email":"u@x"}}`)
	backend.on("/patients/medical-records", http.StatusOK, `[]`)

	r, _ := newTestResolver(t, backend)

	result, err := r.Login(context.Background(), "sid-1", "u@x", "pw", RolePatient)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Session.Role != RoleUser {
		t.Errorf("role = %s, want user", result.Session.Role)
	}
}

func TestLogin_RecordsFailureDoesNotFailLogin(t *testing.T) {
	backend := newFakeBackend(t)
	backend.on("/jwt/auth", http.StatusOK, `{"token":"t5","user":{"role":"patient"}}`)
	backend.on("/patients/medical-records", http.StatusInternalServerError, `boom`)

	r, _ := newTestResolver(t, backend)

	result, err := r.Login(context.Background(), "sid-1", "p@x", "pw", RolePatient)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if len(result.MedicalRecords) != 0 {
		t.Errorf("records = %d, want empty on fetch failure", len(result.MedicalRecords))
	}
}

func TestLogin_ProbeFallbackWhenNoInlineUser(t *testing.T) {
	backend := newFakeBackend(t)
	backend.on("/jwt/auth", http.StatusOK, `{"token":"t6"}`)
	// Admin probe says no, doctor probe matches and carries the profile.
	backend.on("/admin/statistics", http.StatusNotFound, ``)
	backend.on("/doctors/profile/me", http.StatusOK, `{"data":{"email":"doc@x","specialty":"cardio"}}`)

	r, _ := newTestResolver(t, backend)

	result, err := r.Login(context.Background(), "sid-1", "doc@x", "pw", RoleDoctor)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Session.Role != RoleDoctor {
		t.Errorf("role = %s, want doctor", result.Session.Role)
	}
	if result.Session.Profile.Email != "doc@x" {
		t.Errorf("email = %q, want doc@x", result.Session.Profile.Email)
	}
}

func TestLogin_InFlightGuard(t *testing.T) {
	backend := newFakeBackend(t)
	r, _ := newTestResolver(t, backend)

	if err := r.acquire("sid-1"); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer r.release("sid-1")

	_, err := r.Login(context.Background(), "sid-1", "x@y", "pw", RolePatient)
	if !errors.Is(err, ErrOperationInFlight) {
		t.Errorf("err = %v, want ErrOperationInFlight", err)
	}
}

func TestBootstrap_NoStoredToken(t *testing.T) {
	backend := newFakeBackend(t)
	r, store := newTestResolver(t, backend)

	result, err := r.Bootstrap(context.Background(), "sid-1")
	if err != nil || result != nil {
		t.Fatalf("Bootstrap = (%v, %v), want (nil, nil)", result, err)
	}

	// A theme-only record is still unauthenticated.
	if err := store.Put(context.Background(), State{ID: "sid-2", Theme: "neon"}); err != nil {
		t.Fatal(err)
	}
	result, err = r.Bootstrap(context.Background(), "sid-2")
	if err != nil || result != nil {
		t.Fatalf("Bootstrap = (%v, %v), want (nil, nil)", result, err)
	}
}

func TestBootstrap_ProbesStoredToken(t *testing.T) {
	backend := newFakeBackend(t)
	backend.on("/admin/statistics", http.StatusNotFound, ``)
	backend.on("/doctors/profile/me", http.StatusNotFound, ``)
	backend.on("/laboratories/profile/me", http.StatusNotFound, ``)
	backend.on("/patients/profile", http.StatusOK, `{"email":"pat@x","blood_type":"O+"}`)
	backend.on("/patients/medical-records", http.StatusOK, `[{"id":1}]`)

	r, store := newTestResolver(t, backend)
	if err := store.Put(context.Background(), State{ID: "sid-1", Token: "tok", AuthStep: StepAuthenticated}); err != nil {
		t.Fatal(err)
	}

	result, err := r.Bootstrap(context.Background(), "sid-1")
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if result.Session.Role != RolePatient {
		t.Errorf("role = %s, want patient", result.Session.Role)
	}
	if result.Session.Profile.Patient == nil || result.Session.Profile.Patient.BloodType != "O+" {
		t.Errorf("patient details not populated: %+v", result.Session.Profile.Patient)
	}
	if len(result.MedicalRecords) != 1 {
		t.Errorf("records = %d, want 1", len(result.MedicalRecords))
	}
}

func TestBootstrap_ForbiddenStillMatchesRole(t *testing.T) {
	backend := newFakeBackend(t)
	// 403 on the admin probe is a positive match.
	backend.on("/admin/statistics", http.StatusForbidden, ``)

	r, store := newTestResolver(t, backend)
	if err := store.Put(context.Background(), State{ID: "sid-1", Token: "tok"}); err != nil {
		t.Fatal(err)
	}

	result, err := r.Bootstrap(context.Background(), "sid-1")
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if result.Session.Role != RoleAdmin {
		t.Errorf("role = %s, want admin", result.Session.Role)
	}
}

func TestBootstrap_RejectedTokenForcesLogout(t *testing.T) {
	backend := newFakeBackend(t)
	for _, path := range []string{"/admin/statistics", "/doctors/profile/me", "/laboratories/profile/me", "/patients/profile"} {
		backend.on(path, http.StatusUnauthorized, ``)
	}

	r, store := newTestResolver(t, backend)
	if err := store.Put(context.Background(), State{ID: "sid-1", Token: "stale", Theme: "vintage"}); err != nil {
		t.Fatal(err)
	}

	_, err := r.Bootstrap(context.Background(), "sid-1")
	if !errors.Is(err, upstream.ErrTokenRejected) {
		t.Fatalf("err = %v, want ErrTokenRejected", err)
	}

	st, err := store.Get(context.Background(), "sid-1")
	if err != nil {
		t.Fatalf("state gone entirely, theme should survive: %v", err)
	}
	if st.Token != "" {
		t.Error("stale token not cleared")
	}
	if st.Theme != "vintage" {
		t.Errorf("theme = %q, want vintage", st.Theme)
	}
}

func TestBootstrap_ProbeFailureDowngradesToUnknown(t *testing.T) {
	backend := newFakeBackend(t)
	backend.on("/admin/statistics", http.StatusUnauthorized, ``)
	backend.on("/doctors/profile/me", http.StatusInternalServerError, ``)
	backend.on("/laboratories/profile/me", http.StatusUnauthorized, ``)
	backend.on("/patients/profile", http.StatusUnauthorized, ``)

	r, store := newTestResolver(t, backend)
	if err := store.Put(context.Background(), State{ID: "sid-1", Token: "tok"}); err != nil {
		t.Fatal(err)
	}

	result, err := r.Bootstrap(context.Background(), "sid-1")
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if result.Session.Role != RoleUnknown {
		t.Errorf("role = %s, want unknown", result.Session.Role)
	}
	if result.Session.Profile.Email != "unknown@user" {
		t.Errorf("email = %q, want placeholder", result.Session.Profile.Email)
	}
	if _, err := store.Get(context.Background(), "sid-1"); err != nil {
		t.Error("session cleared on a non-rejection failure")
	}
}

func TestBootstrap_ReusesCachedSession(t *testing.T) {
	backend := newFakeBackend(t)
	backend.on("/jwt/auth", http.StatusOK, `{"token":"t7","user":{"role":"doctor","email":"d@x"}}`)

	r, _ := newTestResolver(t, backend)
	if _, err := r.Login(context.Background(), "sid-1", "d@x", "pw", RoleDoctor); err != nil {
		t.Fatalf("Login: %v", err)
	}

	// No probe endpoints registered: a probe after login would resolve to 404s.
	result, err := r.Bootstrap(context.Background(), "sid-1")
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if result.Session.Role != RoleDoctor {
		t.Errorf("role = %s, want doctor from cache", result.Session.Role)
	}
}

func TestLogoutThenBootstrapIsUnauthenticated(t *testing.T) {
	backend := newFakeBackend(t)
	backend.on("/jwt/auth", http.StatusOK, `{"token":"t8","user":{"role":"doctor"}}`)

	r, _ := newTestResolver(t, backend)
	if _, err := r.Login(context.Background(), "sid-1", "d@x", "pw", RoleDoctor); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := r.Logout(context.Background(), "sid-1"); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	if _, ok := r.Current("sid-1"); ok {
		t.Error("cached session survived logout")
	}
	result, err := r.Bootstrap(context.Background(), "sid-1")
	if err != nil || result != nil {
		t.Fatalf("Bootstrap after logout = (%v, %v), want (nil, nil)", result, err)
	}
}

func TestRegister_PayloadShaping(t *testing.T) {
	base := Registration{
		Email:         "new@x",
		Password:      "pw",
		FirstName:     "Ana",
		LastName:      "Lima",
		Phone:         "123",
		DateOfBirth:   "1990-01-01",
		Gender:        "female",
		LicenseNumber: "L-42",
		Specialty:     "cardio",
		Hospital:      "central",
	}

	tests := []struct {
		name    string
		target  Role
		role    string
		present []string
		absent  []string
	}{
		{
			name:    "patient",
			target:  RolePatient,
			role:    "patient",
			present: []string{"date_of_birth", "gender"},
			absent:  []string{"license_number", "specialty", "hospital"},
		},
		{
			name:    "doctor",
			target:  RoleDoctor,
			role:    "doctor",
			present: []string{"license_number", "specialty", "hospital"},
			absent:  []string{"date_of_birth", "gender"},
		},
		{
			name:    "laboratory",
			target:  RoleLaboratory,
			role:    "laboratory",
			present: []string{"license_number"},
			absent:  []string{"date_of_birth", "gender", "specialty", "hospital"},
		},
		{
			name:    "admin target falls back to bare patient shape",
			target:  RoleAdmin,
			role:    "patient",
			absent:  []string{"date_of_birth", "gender", "license_number", "specialty", "hospital"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend(t)
			backend.on("/jwt/register", http.StatusCreated, `{}`)
			r, _ := newTestResolver(t, backend)

			if err := r.Register(context.Background(), "sid-1", base, tt.target); err != nil {
				t.Fatalf("Register: %v", err)
			}

			body := backend.lastBody("/jwt/register")
			if body["role"] != tt.role {
				t.Errorf("role = %v, want %s", body["role"], tt.role)
			}
			if body["email"] != "new@x" {
				t.Errorf("email = %v, want new@x", body["email"])
			}
			for _, key := range tt.present {
				if _, ok := body[key]; !ok {
					t.Errorf("missing field %s", key)
				}
			}
			for _, key := range tt.absent {
				if v, ok := body[key]; ok {
					t.Errorf("field %s = %v, want omitted", key, v)
				}
			}
		})
	}
}

func TestRegister_BackendError(t *testing.T) {
	backend := newFakeBackend(t)
	backend.on("/jwt/register", http.StatusConflict, `{"message":"email already in use"}`)

	r, _ := newTestResolver(t, backend)

	err := r.Register(context.Background(), "sid-1", Registration{Email: "dup@x"}, RolePatient)
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want *AuthError", err)
	}
	if authErr.Reason != "email already in use" {
		t.Errorf("reason = %q, want backend message", authErr.Reason)
	}
}
