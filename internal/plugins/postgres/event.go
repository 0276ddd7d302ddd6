package postgres

import (
	"context"
	"database/sql"

	"github.com/framous/server/internal/core/domain"

	"github.com/google/uuid"
)

/*
	-- Naming audit trail, written by the journal worker
	CREATE TABLE naming_events (
		id         UUID PRIMARY KEY,
		frame_id   UUID NOT NULL,
		kind       TEXT NOT NULL,
		name       TEXT,
		created_at TIMESTAMPTZ NOT NULL
	);
*/

type NamingEventRepo struct {
	db *sql.DB
}

func NewNamingEventRepo(db *sql.DB) *NamingEventRepo {
	return &NamingEventRepo{db: db}
}

func (r *NamingEventRepo) InsertEvent(ctx context.Context, e *domain.NamingEvent) error {
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
		INSERT INTO naming_events (id, frame_id, kind, name, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, e.ID, e.FrameID, e.Kind, nullIfEmpty(e.Name), e.CreatedAt)
	return mapStoreErr(err)
}

func (r *NamingEventRepo) ListEventsByFrame(ctx context.Context, frameID uuid.UUID) ([]domain.NamingEvent, error) {
	if frameID == uuid.Nil {
		return nil, domain.ErrInvalidFrameID
	}
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT id, frame_id, kind, COALESCE(name, ''), created_at
		FROM naming_events
		WHERE frame_id = $1
		ORDER BY created_at ASC
	`, frameID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	defer rows.Close()
	var events []domain.NamingEvent
	for rows.Next() {
		var e domain.NamingEvent
		if err := rows.Scan(&e.ID, &e.FrameID, &e.Kind, &e.Name, &e.CreatedAt); err != nil {
			return nil, mapStoreErr(err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
