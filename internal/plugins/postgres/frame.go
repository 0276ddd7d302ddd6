package postgres

import (
	"context"
	"database/sql"

	"github.com/framous/server/internal/core/domain"

	"github.com/google/uuid"
)

/*
	-- Frames
	CREATE TABLE frames (
		id           UUID PRIMARY KEY,
		name         TEXT UNIQUE,
		session_id   TEXT,
		slideshow_id UUID,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	);
*/

type FrameRepo struct {
	db *sql.DB
}

func NewFrameRepo(db *sql.DB) *FrameRepo {
	return &FrameRepo{db: db}
}

func (r *FrameRepo) GetFrameByID(ctx context.Context, id uuid.UUID) (*domain.Frame, error) {
	if id == uuid.Nil {
		return nil, domain.ErrInvalidFrameID
	}
	exec := GetExecutor(ctx, r.db)
	row := exec.QueryRowContext(ctx, `
		SELECT id, name, session_id, slideshow_id, created_at
		FROM frames
		WHERE id = $1
	`, id)
	return scanFrame(row)
}

func (r *FrameRepo) GetFrameByName(ctx context.Context, name string) (*domain.Frame, error) {
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	exec := GetExecutor(ctx, r.db)
	row := exec.QueryRowContext(ctx, `
		SELECT id, name, session_id, slideshow_id, created_at
		FROM frames
		WHERE name = $1
	`, name)
	f, err := scanFrame(row)
	if err == domain.ErrFrameNotFound {
		return nil, nil
	}
	return f, err
}

func (r *FrameRepo) ListFrames(ctx context.Context) ([]domain.Frame, error) {
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT id, name, session_id, slideshow_id, created_at
		FROM frames
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	defer rows.Close()
	var frames []domain.Frame
	for rows.Next() {
		var f domain.Frame
		if err := rows.Scan(&f.ID, &f.Name, &f.SessionID, &f.SlideshowID, &f.CreatedAt); err != nil {
			return nil, mapStoreErr(err)
		}
		frames = append(frames, f)
	}
	return frames, rows.Err()
}

func (r *FrameRepo) CreateFrame(ctx context.Context, f *domain.Frame) error {
	if f.ID == uuid.Nil {
		return domain.ErrInvalidFrameID
	}
	exec := GetExecutor(ctx, r.db)
	err := exec.QueryRowContext(ctx, `
		INSERT INTO frames (id, name, session_id, slideshow_id)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, f.ID, f.Name, f.SessionID, f.SlideshowID).Scan(&f.CreatedAt)
	return mapStoreErr(err)
}

func (r *FrameRepo) SetFrameSession(ctx context.Context, id uuid.UUID, session *string) error {
	if id == uuid.Nil {
		return domain.ErrInvalidFrameID
	}
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, `
		UPDATE frames
		SET session_id = $2
		WHERE id = $1
	`, id, session)
	if err != nil {
		return mapStoreErr(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return mapStoreErr(err)
	}
	if rows == 0 {
		return domain.ErrFrameNotFound
	}
	return nil
}

func (r *FrameRepo) ClearFrameSessionFor(ctx context.Context, session string) error {
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
		UPDATE frames
		SET session_id = NULL
		WHERE session_id = $1
	`, session)
	return mapStoreErr(err)
}

// SetFrameName names a still-unnamed frame. The WHERE name IS NULL guard keeps
// Named terminal; a frame that is already named reports a conflict rather than
// being renamed.
func (r *FrameRepo) SetFrameName(ctx context.Context, id uuid.UUID, name string) error {
	if id == uuid.Nil {
		return domain.ErrInvalidFrameID
	}
	if name == "" {
		return domain.ErrInvalidName
	}
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, `
		UPDATE frames
		SET name = $2
		WHERE id = $1 AND name IS NULL
	`, id, name)
	if err != nil {
		return mapStoreErr(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return mapStoreErr(err)
	}
	if rows == 0 {
		if _, err := r.GetFrameByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrNameConflict
	}
	return nil
}

func scanFrame(row *sql.Row) (*domain.Frame, error) {
	var f domain.Frame
	err := row.Scan(&f.ID, &f.Name, &f.SessionID, &f.SlideshowID, &f.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrFrameNotFound
		}
		return nil, mapStoreErr(err)
	}
	return &f, nil
}
