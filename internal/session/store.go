package session

import (
	"context"
	"errors"
	"time"
)

// AuthStep is the position in the unauthenticated flow: the user first picks
// a portal role, then moves between the login and register forms, and only a
// login that passes the role compatibility check reaches StepAuthenticated.
type AuthStep string

const (
	StepRoleSelection AuthStep = "role-selection"
	StepLogin         AuthStep = "login"
	StepRegister      AuthStep = "register"
	StepAuthenticated AuthStep = "authenticated"
)

// State is the persisted per-browser record, the gateway's stand-in for the
// SPA's localStorage: one bearer token, one theme preference, plus the
// navigation position. Tokens are stored as plain strings; encrypting them
// at rest is an explicit non-goal.
type State struct {
	ID         string    `json:"id"`
	Token      string    `json:"token,omitempty"`
	Theme      string    `json:"theme,omitempty"`
	AuthStep   AuthStep  `json:"auth_step,omitempty"`
	TargetRole Role      `json:"target_role,omitempty"`
	ActiveTab  string    `json:"active_tab,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ErrStateNotFound is returned by Store.Get for an unknown session ID.
var ErrStateNotFound = errors.New("session state not found")

// Store persists State records. Two backends exist: a JSON file (default)
// and Postgres when a database is configured.
type Store interface {
	Get(ctx context.Context, id string) (State, error)
	Put(ctx context.Context, st State) error
	Delete(ctx context.Context, id string) error
}
