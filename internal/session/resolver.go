package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/M1-Gl-UY1/TOPITO/internal/upstream"
)

// Resolver derives a Session from a bearer token — freshly issued at login,
// or recovered from the state store at bootstrap — and enforces the
// role/claim compatibility rule at login time. Resolved sessions live in
// memory for the process lifetime; only the token is persisted.
type Resolver struct {
	api   *upstream.Client
	store Store
	log   zerolog.Logger

	mu       sync.Mutex
	sessions map[string]Session
	inflight map[string]bool
}

func NewResolver(api *upstream.Client, store Store, log zerolog.Logger) *Resolver {
	return &Resolver{
		api:      api,
		store:    store,
		log:      log,
		sessions: make(map[string]Session),
		inflight: make(map[string]bool),
	}
}

// LoginResult carries the established session plus the follow-on medical
// record fetch that patient logins (and only patient logins) incur.
type LoginResult struct {
	Session        Session
	MedicalRecords []map[string]interface{}
}

// BootstrapResult is the startup equivalent: the session recovered from a
// stored token, with the role-dependent extras the portal home screen needs.
type BootstrapResult struct {
	Session        Session
	MedicalRecords []map[string]interface{}
	AdminStats     map[string]interface{}
}

// Registration is the gateway-side registration form. The Resolver shapes
// it into the role-specific wire payload.
type Registration struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Phone         string `json:"phone"`
	DateOfBirth   string `json:"date_of_birth"`
	Gender        string `json:"gender"`
	LicenseNumber string `json:"license_number"`
	Specialty     string `json:"specialty"`
	Hospital      string `json:"hospital"`
}

// Login authenticates against the backend and establishes a session for sid,
// but only when the resolved role is compatible with the portal the user
// selected. A failed attempt — bad credentials, missing token field, role
// mismatch — leaves both the stored state and any cached session untouched.
func (r *Resolver) Login(ctx context.Context, sid, email, password string, target Role) (*LoginResult, error) {
	if !IsPortalRole(target) {
		return nil, authErrorf("no portal selected")
	}
	if err := r.acquire(sid); err != nil {
		return nil, err
	}
	defer r.release(sid)

	body, err := r.api.Authenticate(ctx, email, password)
	if err != nil {
		var apiErr *upstream.APIError
		if errors.As(err, &apiErr) {
			return nil, &AuthError{Reason: apiErr.Message}
		}
		return nil, err
	}

	token, ok := upstream.ExtractToken(body)
	if !ok {
		return nil, authErrorf("missing token")
	}

	var resolved Role
	var profile UserProfile
	if user, ok := upstream.ExtractUser(body); ok {
		resolved = ParseRole(upstream.InferredRole(user))
		profile = ProfileFromMap(user)
	} else {
		resolved, profile, _ = r.resolveFromToken(ctx, token)
	}

	if !Compatible(target, resolved) {
		return nil, authErrorf("role mismatch: account is not authorized for the %s portal", target)
	}

	st := r.stateFor(ctx, sid)
	st.Token = token
	st.AuthStep = StepAuthenticated
	st.TargetRole = target
	if err := r.store.Put(ctx, st); err != nil {
		return nil, fmt.Errorf("persist token: %w", err)
	}

	sess := Session{Token: token, Role: resolved, Profile: profile}
	r.mu.Lock()
	r.sessions[sid] = sess
	r.mu.Unlock()

	result := &LoginResult{Session: sess, MedicalRecords: []map[string]interface{}{}}
	if IsPatientAlias(resolved) {
		records, err := r.api.MedicalRecords(ctx, token, "")
		if err != nil {
			// Partial failure after a successful login is not rolled back.
			r.log.Warn().Err(err).Msg("medical records fetch after login failed")
		} else {
			result.MedicalRecords = records
		}
	}
	return result, nil
}

// Bootstrap recovers a session from the token stored for sid, running the
// role probes since no role survives a restart. A nil result means
// unauthenticated. The failure policy is uniform with in-session
// resolution: only a token rejected outright by the backend (every probe
// answering 401) forces a logout — the error is then upstream.
// ErrTokenRejected and the stored token is already cleared. Every other
// failure downgrades to RoleUnknown with the session kept.
func (r *Resolver) Bootstrap(ctx context.Context, sid string) (*BootstrapResult, error) {
	st, err := r.store.Get(ctx, sid)
	if err != nil {
		if errors.Is(err, ErrStateNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load session state: %w", err)
	}
	if st.Token == "" {
		return nil, nil
	}

	r.mu.Lock()
	cached, ok := r.sessions[sid]
	r.mu.Unlock()
	if ok && cached.Token == st.Token {
		return &BootstrapResult{Session: cached}, nil
	}

	resolved, profile, err := r.resolveFromToken(ctx, st.Token)
	if errors.Is(err, upstream.ErrTokenRejected) {
		r.log.Info().Str("session_id", sid).Msg("stored token rejected, clearing session")
		if lerr := r.Logout(ctx, sid); lerr != nil {
			return nil, lerr
		}
		return nil, err
	}

	sess := Session{Token: st.Token, Role: resolved, Profile: profile}
	r.mu.Lock()
	r.sessions[sid] = sess
	r.mu.Unlock()

	result := &BootstrapResult{Session: sess}
	switch resolved {
	case RolePatient:
		records, err := r.api.MedicalRecords(ctx, st.Token, RolePatient.String())
		if err != nil {
			r.log.Warn().Err(err).Msg("medical records fetch at bootstrap failed")
		} else {
			result.MedicalRecords = records
		}
	case RoleAdmin:
		stats, err := r.api.AdminStatistics(ctx, st.Token)
		if err != nil {
			r.log.Warn().Err(err).Msg("admin statistics fetch at bootstrap failed")
		} else {
			result.AdminStats = stats
		}
	}
	return result, nil
}

// Current returns the cached resolved session for sid, if any.
func (r *Resolver) Current(sid string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[sid]
	return sess, ok
}

// Logout clears the persisted token, drops the cached session, and resets
// the navigation position back to role selection. The theme preference is
// kept: it belongs to the device, not the account. No backend call is
// involved.
func (r *Resolver) Logout(ctx context.Context, sid string) error {
	r.mu.Lock()
	delete(r.sessions, sid)
	r.mu.Unlock()

	st, err := r.store.Get(ctx, sid)
	if err != nil {
		if errors.Is(err, ErrStateNotFound) {
			return nil
		}
		return fmt.Errorf("load session state: %w", err)
	}
	if st.Theme == "" {
		if err := r.store.Delete(ctx, sid); err != nil {
			return fmt.Errorf("clear session state: %w", err)
		}
		return nil
	}
	cleared := State{ID: sid, Theme: st.Theme, AuthStep: StepRoleSelection}
	if err := r.store.Put(ctx, cleared); err != nil {
		return fmt.Errorf("clear session state: %w", err)
	}
	return nil
}

// Register shapes the registration form into the role-specific payload and
// submits it. Success does not log the account in.
func (r *Resolver) Register(ctx context.Context, sid string, reg Registration, target Role) error {
	if err := r.acquire(sid); err != nil {
		return err
	}
	defer r.release(sid)

	payload := upstream.RegistrationPayload{
		Email:     reg.Email,
		Password:  reg.Password,
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
		Phone:     reg.Phone,
	}
	switch target {
	case RoleLaboratory:
		payload.Role = RoleLaboratory.String()
		payload.LicenseNumber = reg.LicenseNumber
	case RoleDoctor:
		payload.Role = RoleDoctor.String()
		payload.LicenseNumber = reg.LicenseNumber
		payload.Specialty = reg.Specialty
		payload.Hospital = reg.Hospital
	default:
		payload.Role = RolePatient.String()
		if target == RolePatient {
			payload.DateOfBirth = reg.DateOfBirth
			payload.Gender = reg.Gender
		}
	}

	if err := r.api.Register(ctx, payload); err != nil {
		var apiErr *upstream.APIError
		if errors.As(err, &apiErr) {
			return &AuthError{Reason: apiErr.Message}
		}
		return err
	}
	return nil
}

// resolveFromToken runs the ordered role probes and assembles the profile
// for the matched role. Admins have no profile endpoint, so their profile is
// synthesized from the token's decodable payload segment; an unmatched token
// resolves to RoleUnknown with a placeholder profile rather than an error.
func (r *Resolver) resolveFromToken(ctx context.Context, token string) (Role, UserProfile, error) {
	roleStr, profileMap, err := r.api.ProbeRole(ctx, token)
	if err != nil {
		if errors.Is(err, upstream.ErrTokenRejected) {
			return RoleUnknown, placeholderProfile(token, "unknown@user"), err
		}
		return RoleUnknown, placeholderProfile(token, "unknown@user"), nil
	}

	switch roleStr {
	case "":
		return RoleUnknown, placeholderProfile(token, "unknown@user"), nil
	case RoleAdmin.String():
		return RoleAdmin, placeholderProfile(token, "admin@system"), nil
	}

	resolved := ParseRole(roleStr)
	profile := ProfileFromMap(profileMap)
	if resolved == RolePatient {
		profile.Patient = PatientDetailsFromMap(profileMap)
	}
	if profile.ID == "" || profile.Email == "" {
		id, email := tokenClaims(token)
		if profile.ID == "" {
			profile.ID = id
		}
		if profile.Email == "" {
			profile.Email = email
		}
	}
	return resolved, profile, nil
}

// placeholderProfile builds a minimal profile from whatever the token's
// payload segment yields, falling back to the given email when decoding
// gives nothing. Decode failures are non-fatal.
func placeholderProfile(token, fallbackEmail string) UserProfile {
	id, email := tokenClaims(token)
	if email == "" {
		email = fallbackEmail
	}
	return UserProfile{ID: id, Email: email}
}

// tokenClaims decodes the token's middle segment without verifying the
// signature — the backend owns token validity; the gateway only wants the
// email and subject claims.
func tokenClaims(token string) (id, email string) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", ""
	}
	email, _ = claims["email"].(string)
	switch v := claims["userId"].(type) {
	case string:
		id = v
	case float64:
		id = fmt.Sprintf("%.0f", v)
	}
	if id == "" {
		if sub, err := claims.GetSubject(); err == nil {
			id = sub
		}
	}
	return id, email
}

// stateFor loads the state record for sid, or starts a fresh one.
func (r *Resolver) stateFor(ctx context.Context, sid string) State {
	st, err := r.store.Get(ctx, sid)
	if err != nil {
		return State{ID: sid}
	}
	return st
}

func (r *Resolver) acquire(sid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inflight[sid] {
		return ErrOperationInFlight
	}
	r.inflight[sid] = true
	return nil
}

func (r *Resolver) release(sid string) {
	r.mu.Lock()
	delete(r.inflight, sid)
	r.mu.Unlock()
}
