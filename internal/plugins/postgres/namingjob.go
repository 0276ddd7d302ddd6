package postgres

import (
	"context"
	"database/sql"

	"github.com/framous/server/internal/core/domain"

	"github.com/google/uuid"
)

/*
	-- Naming jobs (at most one open job per frame)
	CREATE TABLE naming_jobs (
		frame_id         UUID PRIMARY KEY REFERENCES frames (id),
		assignee_session TEXT,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	);
*/

type NamingJobRepo struct {
	db *sql.DB
}

func NewNamingJobRepo(db *sql.DB) *NamingJobRepo {
	return &NamingJobRepo{db: db}
}

func (r *NamingJobRepo) CreateJob(ctx context.Context, j *domain.NamingJob) error {
	if j.FrameID == uuid.Nil {
		return domain.ErrInvalidFrameID
	}
	exec := GetExecutor(ctx, r.db)
	err := exec.QueryRowContext(ctx, `
		INSERT INTO naming_jobs (frame_id, assignee_session)
		VALUES ($1, $2)
		RETURNING created_at
	`, j.FrameID, j.AssigneeSession).Scan(&j.CreatedAt)
	return mapStoreErr(err)
}

func (r *NamingJobRepo) GetJobByFrame(ctx context.Context, frameID uuid.UUID) (*domain.NamingJob, error) {
	if frameID == uuid.Nil {
		return nil, domain.ErrInvalidFrameID
	}
	exec := GetExecutor(ctx, r.db)
	row := exec.QueryRowContext(ctx, `
		SELECT frame_id, assignee_session, created_at
		FROM naming_jobs
		WHERE frame_id = $1
	`, frameID)
	var j domain.NamingJob
	err := row.Scan(&j.FrameID, &j.AssigneeSession, &j.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, mapStoreErr(err)
	}
	return &j, nil
}

// ClaimOldestUnassigned assigns the oldest unassigned job to the session in
// one statement. SKIP LOCKED makes concurrent claims take distinct jobs; two
// claimers can never both win the same row.
func (r *NamingJobRepo) ClaimOldestUnassigned(ctx context.Context, session string) (*domain.NamingJob, error) {
	exec := GetExecutor(ctx, r.db)
	row := exec.QueryRowContext(ctx, `
		UPDATE naming_jobs
		SET assignee_session = $1
		WHERE frame_id = (
			SELECT frame_id FROM naming_jobs
			WHERE assignee_session IS NULL
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING frame_id, assignee_session, created_at
	`, session)
	var j domain.NamingJob
	err := row.Scan(&j.FrameID, &j.AssigneeSession, &j.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, mapStoreErr(err)
	}
	return &j, nil
}

func (r *NamingJobRepo) ReleaseByAssignee(ctx context.Context, session string) error {
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
		UPDATE naming_jobs
		SET assignee_session = NULL
		WHERE assignee_session = $1
	`, session)
	return mapStoreErr(err)
}

func (r *NamingJobRepo) DeleteJob(ctx context.Context, frameID uuid.UUID) error {
	if frameID == uuid.Nil {
		return domain.ErrInvalidFrameID
	}
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
		DELETE FROM naming_jobs WHERE frame_id = $1
	`, frameID)
	return mapStoreErr(err)
}
