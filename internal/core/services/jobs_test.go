package services_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/framous/server/internal/core/domain"
	"github.com/framous/server/internal/core/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJobService(store *memStore) *services.JobService {
	return services.NewJobService(slog.New(slog.NewTextHandler(io.Discard, nil)), store)
}

func TestClaimNextIsFIFO(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newJobService(store)

	first, second, third := uuid.New(), uuid.New(), uuid.New()
	for _, id := range []uuid.UUID{first, second, third} {
		require.NoError(t, svc.CreateUnassigned(ctx, id))
	}

	job, err := svc.ClaimNext(ctx, "session-a")
	require.NoError(t, err)
	assert.Equal(t, first, job.FrameID)

	job, err = svc.ClaimNext(ctx, "session-b")
	require.NoError(t, err)
	assert.Equal(t, second, job.FrameID)

	job, err = svc.ClaimNext(ctx, "session-c")
	require.NoError(t, err)
	assert.Equal(t, third, job.FrameID)
}

func TestClaimNextNoPendingJob(t *testing.T) {
	ctx := context.Background()
	svc := newJobService(newMemStore())

	job, err := svc.ClaimNext(ctx, "session-a")
	assert.ErrorIs(t, err, domain.ErrNoPendingJob)
	assert.Nil(t, job)
}

func TestCreateUnassignedRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	svc := newJobService(newMemStore())

	id := uuid.New()
	require.NoError(t, svc.CreateUnassigned(ctx, id))
	assert.ErrorIs(t, svc.CreateUnassigned(ctx, id), domain.ErrDuplicateJob)
}

func TestReleaseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newJobService(store)

	id := uuid.New()
	require.NoError(t, svc.CreateUnassigned(ctx, id))
	_, err := svc.ClaimNext(ctx, "session-a")
	require.NoError(t, err)

	require.NoError(t, svc.Release(ctx, "session-a"))
	require.NoError(t, svc.Release(ctx, "session-a"))
	require.NoError(t, svc.Release(ctx, "never-claimed"))

	// Released, not deleted: the job is claimable again.
	job, err := svc.ClaimNext(ctx, "session-b")
	require.NoError(t, err)
	assert.Equal(t, id, job.FrameID)
}

func TestCompleteIsSilentWithoutJob(t *testing.T) {
	ctx := context.Background()
	svc := newJobService(newMemStore())

	assert.NoError(t, svc.Complete(ctx, uuid.New()))
}

func TestCompleteRemovesJob(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newJobService(store)

	id := uuid.New()
	require.NoError(t, svc.CreateUnassigned(ctx, id))
	require.NoError(t, svc.Complete(ctx, id))

	job, err := svc.GetByFrame(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, job)
}
