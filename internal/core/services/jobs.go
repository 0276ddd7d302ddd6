package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/framous/server/internal/core/domain"

	"github.com/google/uuid"
)

type IJobService interface {
	// CreateUnassigned opens a job for an unnamed frame; ErrDuplicateJob when
	// one already exists.
	CreateUnassigned(ctx context.Context, frameID uuid.UUID) error
	// ClaimNext assigns the oldest unassigned job (FIFO by creation order) to
	// the session; ErrNoPendingJob when none is available.
	ClaimNext(ctx context.Context, clientSession string) (*domain.NamingJob, error)
	// Release frees any job held by the session. Idempotent.
	Release(ctx context.Context, clientSession string) error
	// Complete deletes the frame's job; silent no-op when none exists.
	Complete(ctx context.Context, frameID uuid.UUID) error
	// GetByFrame returns the frame's open job, or nil when none exists.
	GetByFrame(ctx context.Context, frameID uuid.UUID) (*domain.NamingJob, error)
}

// JobService is the naming job queue. Its methods run on whatever transaction
// the caller carries in ctx; the pairing state machine composes them with its
// other mutations inside one atomic unit.
type JobService struct {
	jobs domain.NamingJobRepository
	log  *slog.Logger
}

func NewJobService(log *slog.Logger, jobs domain.NamingJobRepository) *JobService {
	return &JobService{
		log:  log,
		jobs: jobs,
	}
}

func (s *JobService) CreateUnassigned(ctx context.Context, frameID uuid.UUID) error {
	err := s.jobs.CreateJob(ctx, &domain.NamingJob{FrameID: frameID})
	if err != nil {
		if errors.Is(err, domain.ErrUniqueViolation) {
			return domain.ErrDuplicateJob
		}
		s.log.ErrorContext(ctx, "jobs - create unassigned - create job failed", "frame_id", frameID, "err", err)
		return err
	}
	s.log.InfoContext(ctx, "jobs - create unassigned - job opened", "frame_id", frameID)
	return nil
}

func (s *JobService) ClaimNext(ctx context.Context, clientSession string) (*domain.NamingJob, error) {
	job, err := s.jobs.ClaimOldestUnassigned(ctx, clientSession)
	if err != nil {
		s.log.ErrorContext(ctx, "jobs - claim next - claim failed", "session", clientSession, "err", err)
		return nil, err
	}
	if job == nil {
		return nil, domain.ErrNoPendingJob
	}
	s.log.InfoContext(ctx, "jobs - claim next - job claimed", "frame_id", job.FrameID, "session", clientSession)
	return job, nil
}

func (s *JobService) Release(ctx context.Context, clientSession string) error {
	if err := s.jobs.ReleaseByAssignee(ctx, clientSession); err != nil {
		s.log.ErrorContext(ctx, "jobs - release - release failed", "session", clientSession, "err", err)
		return err
	}
	return nil
}

func (s *JobService) Complete(ctx context.Context, frameID uuid.UUID) error {
	if err := s.jobs.DeleteJob(ctx, frameID); err != nil {
		s.log.ErrorContext(ctx, "jobs - complete - delete job failed", "frame_id", frameID, "err", err)
		return err
	}
	return nil
}

func (s *JobService) GetByFrame(ctx context.Context, frameID uuid.UUID) (*domain.NamingJob, error) {
	return s.jobs.GetJobByFrame(ctx, frameID)
}
