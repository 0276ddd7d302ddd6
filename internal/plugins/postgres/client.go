package postgres

import (
	"context"
	"database/sql"

	"github.com/framous/server/internal/core/domain"
)

/*
	-- Naming clients (one row per live browser session)
	CREATE TABLE clients (
		session_id   TEXT PRIMARY KEY,
		connected_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
*/

type ClientRepo struct {
	db *sql.DB
}

func NewClientRepo(db *sql.DB) *ClientRepo {
	return &ClientRepo{db: db}
}

// CreateClient inserts the session row. The primary key makes a duplicate
// connect for the same session a unique violation, which the pairing flow
// turns into already-connected.
func (r *ClientRepo) CreateClient(ctx context.Context, c *domain.Client) error {
	if c.SessionID == "" {
		return domain.ErrClientNotFound
	}
	exec := GetExecutor(ctx, r.db)
	err := exec.QueryRowContext(ctx, `
		INSERT INTO clients (session_id)
		VALUES ($1)
		RETURNING connected_at
	`, c.SessionID).Scan(&c.ConnectedAt)
	return mapStoreErr(err)
}

func (r *ClientRepo) DeleteClient(ctx context.Context, session string) error {
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
		DELETE FROM clients WHERE session_id = $1
	`, session)
	return mapStoreErr(err)
}

// FindIdleClient picks the longest-connected client that holds no naming job.
// SKIP LOCKED keeps two concurrent frame connects from grabbing the same
// client.
func (r *ClientRepo) FindIdleClient(ctx context.Context) (*domain.Client, error) {
	exec := GetExecutor(ctx, r.db)
	row := exec.QueryRowContext(ctx, `
		SELECT c.session_id, c.connected_at
		FROM clients c
		WHERE NOT EXISTS (
			SELECT 1 FROM naming_jobs j WHERE j.assignee_session = c.session_id
		)
		ORDER BY c.connected_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`)
	var c domain.Client
	err := row.Scan(&c.SessionID, &c.ConnectedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, mapStoreErr(err)
	}
	return &c, nil
}
