package session

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists session state in Postgres, for deployments that run more
// than one gateway replica behind a balancer.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// EnsureSchema creates the backing table if it does not exist.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS portal_session (
			id          TEXT PRIMARY KEY,
			token       TEXT NOT NULL DEFAULT '',
			theme       TEXT NOT NULL DEFAULT '',
			auth_step   TEXT NOT NULL DEFAULT '',
			target_role TEXT NOT NULL DEFAULT '',
			active_tab  TEXT NOT NULL DEFAULT '',
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	return err
}

const stateCols = `id, token, theme, auth_step, target_role, active_tab, updated_at`

func (s *PGStore) scanState(row pgx.Row) (State, error) {
	var st State
	var step, role string
	err := row.Scan(&st.ID, &st.Token, &st.Theme, &step, &role, &st.ActiveTab, &st.UpdatedAt)
	st.AuthStep = AuthStep(step)
	st.TargetRole = Role(role)
	return st, err
}

func (s *PGStore) Get(ctx context.Context, id string) (State, error) {
	st, err := s.scanState(s.pool.QueryRow(ctx,
		`SELECT `+stateCols+` FROM portal_session WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return State{}, ErrStateNotFound
	}
	return st, err
}

func (s *PGStore) Put(ctx context.Context, st State) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO portal_session (id, token, theme, auth_step, target_role, active_tab, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET
			token = EXCLUDED.token,
			theme = EXCLUDED.theme,
			auth_step = EXCLUDED.auth_step,
			target_role = EXCLUDED.target_role,
			active_tab = EXCLUDED.active_tab,
			updated_at = EXCLUDED.updated_at`,
		st.ID, st.Token, st.Theme, string(st.AuthStep), string(st.TargetRole),
		st.ActiveTab, time.Now().UTC())
	return err
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM portal_session WHERE id = $1`, id)
	return err
}
