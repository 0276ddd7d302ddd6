package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/framous/server/internal/core/contracts"
	"github.com/framous/server/internal/core/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("pairing-service")

type IPairingService interface {
	// HandleFrameConnect registers or re-binds a device session. An empty
	// rawFrameID mints a new frame. Returns the frame id and whether this was
	// a duplicate connect of the session already on record.
	HandleFrameConnect(ctx context.Context, session string, rawFrameID string) (uuid.UUID, bool, error)
	// HandleClientConnect registers a naming client and hands it the oldest
	// pending job, if any. ErrAlreadyConnected on a duplicate session.
	HandleClientConnect(ctx context.Context, session string) error
	// HandleProposeName delivers a candidate name to the client and the target
	// frame through a one-shot rendezvous group.
	HandleProposeName(ctx context.Context, session string, rawFrameID string, name string) error
	// HandleConfirmName resolves a proposal: commit the name and close the
	// job, or leave the job open on reject/conflict.
	HandleConfirmName(ctx context.Context, session string, rawFrameID string, name string, accepted bool) error
	// HandleDisconnect releases the session's job, deletes its client record,
	// and clears its frame binding as one atomic unit.
	HandleDisconnect(ctx context.Context, session string) error
	// HandleHeartbeat refreshes the frame's presence entry until ctx ends.
	HandleHeartbeat(ctx context.Context, frameID string) error
}

// PairingService is the pairing state machine. Every mutation runs inside one
// store transaction; conflict detection is optimistic, resolved at commit via
// unique constraints. Notifications go out only after a successful commit, so
// an aborted transition is invisible to both parties.
type PairingService struct {
	frames     domain.FrameRepository
	clients    domain.ClientRepository
	jobs       IJobService
	events     IEventService
	registry   contracts.Registry
	rendezvous contracts.Rendezvous
	presence   contracts.PresenceStore
	txManager  contracts.TxManager
	heartbeat  time.Duration
	ttl        time.Duration
	log        *slog.Logger
}

func NewPairingService(
	log *slog.Logger,
	frames domain.FrameRepository,
	clients domain.ClientRepository,
	jobs IJobService,
	events IEventService,
	registry contracts.Registry,
	rendezvous contracts.Rendezvous,
	presence contracts.PresenceStore,
	txManager contracts.TxManager,
	heartbeat, ttl time.Duration,
) *PairingService {
	return &PairingService{
		log:        log,
		frames:     frames,
		clients:    clients,
		jobs:       jobs,
		events:     events,
		registry:   registry,
		rendezvous: rendezvous,
		presence:   presence,
		txManager:  txManager,
		heartbeat:  heartbeat,
		ttl:        ttl,
	}
}

func (p *PairingService) HandleFrameConnect(
	ctx context.Context,
	session string,
	rawFrameID string,
) (uuid.UUID, bool, error) {
	ctx, span := tracer.Start(ctx, "PairingService.HandleFrameConnect", trace.WithAttributes(
		attribute.String("session", session),
		attribute.String("frame_id", rawFrameID),
	))
	defer span.End()

	if rawFrameID == "" {
		id, err := p.registerFrame(ctx, session)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "register frame failed")
			return uuid.Nil, false, err
		}
		span.SetStatus(codes.Ok, "frame registered")
		return id, false, nil
	}

	id, err := uuid.Parse(rawFrameID)
	if err != nil {
		span.RecordError(err)
		p.log.ErrorContext(ctx, "pairing - frame connect - wrong frame id", "frame_id", rawFrameID, "err", err)
		return uuid.Nil, false, domain.ErrInvalidFrameID
	}
	frame, err := p.frames.GetFrameByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		p.log.ErrorContext(ctx, "pairing - frame connect - get frame failed", "frame_id", id, "err", err)
		return uuid.Nil, false, err
	}
	if frame.SessionID != nil && *frame.SessionID == session {
		p.log.InfoContext(ctx, "pairing - frame connect - duplicate connect", "frame_id", id, "session", session)
		return id, true, nil
	}

	var claimed *domain.NamingJob
	err = p.txManager.WithTx(ctx, func(txCtx context.Context) error {
		claimed = nil
		if err := p.frames.SetFrameSession(txCtx, id, &session); err != nil {
			return err
		}
		if frame.Named() {
			return nil
		}
		// The job should already exist for an unnamed frame that has been
		// seen; recreate it if the invariant was broken upstream.
		job, err := p.jobs.GetByFrame(txCtx, id)
		if err != nil {
			return err
		}
		if job != nil {
			return nil
		}
		if err := p.jobs.CreateUnassigned(txCtx, id); err != nil && !errors.Is(err, domain.ErrDuplicateJob) {
			return err
		}
		claimed, err = p.tryAssign(txCtx)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rebind failed")
		p.log.ErrorContext(ctx, "pairing - frame connect - rebind session failed", "frame_id", id, "session", session, "err", err)
		return uuid.Nil, false, err
	}
	p.notifyNamingRequest(ctx, claimed)
	span.SetStatus(codes.Ok, "frame reconnected")
	return id, false, nil
}

// registerFrame handles a device with no prior identifier: mint a frame, open
// its naming job, and hand the job to an idle client when one is connected.
func (p *PairingService) registerFrame(ctx context.Context, session string) (uuid.UUID, error) {
	frame := &domain.Frame{
		ID:        uuid.New(),
		SessionID: &session,
	}
	var claimed *domain.NamingJob
	err := p.txManager.WithTx(ctx, func(txCtx context.Context) error {
		claimed = nil
		if err := p.frames.CreateFrame(txCtx, frame); err != nil {
			return err
		}
		if err := p.jobs.CreateUnassigned(txCtx, frame.ID); err != nil {
			return err
		}
		var err error
		claimed, err = p.tryAssign(txCtx)
		return err
	})
	if err != nil {
		p.log.ErrorContext(ctx, "pairing - frame connect - register frame failed", "session", session, "err", err)
		return uuid.Nil, err
	}
	p.log.InfoContext(ctx, "pairing - frame connect - frame registered", "frame_id", frame.ID, "session", session)
	p.notifyNamingRequest(ctx, claimed)
	p.events.Record(ctx, domain.EventFrameRegistered, frame.ID, "")
	return frame.ID, nil
}

// tryAssign hands the oldest unassigned job to the longest-connected idle
// client. At most one job is in flight per client at a time, enforced by the
// idle check.
func (p *PairingService) tryAssign(txCtx context.Context) (*domain.NamingJob, error) {
	client, err := p.clients.FindIdleClient(txCtx)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, nil
	}
	job, err := p.jobs.ClaimNext(txCtx, client.SessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNoPendingJob) {
			return nil, nil
		}
		return nil, err
	}
	return job, nil
}

func (p *PairingService) notifyNamingRequest(ctx context.Context, job *domain.NamingJob) {
	if job == nil || !job.Assigned() {
		return
	}
	msg := domain.NamingRequest{
		Type:    domain.TypeNamingRequest,
		FrameID: job.FrameID.String(),
	}
	if err := p.registry.Send(ctx, *job.AssigneeSession, msg); err != nil {
		p.log.ErrorContext(ctx, "pairing - notify - naming request undelivered", "frame_id", job.FrameID, "session", *job.AssigneeSession, "err", err)
	}
}

func (p *PairingService) HandleClientConnect(ctx context.Context, session string) error {
	ctx, span := tracer.Start(ctx, "PairingService.HandleClientConnect", trace.WithAttributes(
		attribute.String("session", session),
	))
	defer span.End()

	client := &domain.Client{SessionID: session}
	var claimed *domain.NamingJob
	err := p.txManager.WithTx(ctx, func(txCtx context.Context) error {
		claimed = nil
		if err := p.clients.CreateClient(txCtx, client); err != nil {
			if errors.Is(err, domain.ErrUniqueViolation) {
				return domain.ErrAlreadyConnected
			}
			return err
		}
		job, err := p.jobs.ClaimNext(txCtx, session)
		if err != nil {
			if errors.Is(err, domain.ErrNoPendingJob) {
				return nil
			}
			return err
		}
		claimed = job
		return nil
	})
	if err != nil {
		// A duplicate-connect race rolls back the claim with the rest of the
		// transaction; the caller only signals already-connected.
		span.RecordError(err)
		if !errors.Is(err, domain.ErrAlreadyConnected) {
			span.SetStatus(codes.Error, "client connect failed")
		}
		p.log.ErrorContext(ctx, "pairing - client connect - failed", "session", session, "err", err)
		return err
	}
	p.log.InfoContext(ctx, "pairing - client connect - client registered", "session", session, "claimed", claimed != nil)
	p.notifyNamingRequest(ctx, claimed)
	span.SetStatus(codes.Ok, "client connected")
	return nil
}

func (p *PairingService) HandleProposeName(
	ctx context.Context,
	session string,
	rawFrameID string,
	name string,
) error {
	ctx, span := tracer.Start(ctx, "PairingService.HandleProposeName", trace.WithAttributes(
		attribute.String("session", session),
		attribute.String("frame_id", rawFrameID),
	))
	defer span.End()

	id, err := uuid.Parse(rawFrameID)
	if err != nil {
		span.RecordError(err)
		return domain.ErrInvalidFrameID
	}
	if name == "" {
		return domain.ErrInvalidName
	}
	holder, err := p.frames.GetFrameByName(ctx, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "name lookup failed")
		p.log.ErrorContext(ctx, "pairing - propose name - name lookup failed", "name", name, "err", err)
		return err
	}
	if holder != nil {
		// Taken name: tell only the proposer, leave the job assigned and
		// unresolved.
		p.sendNameConflict(ctx, session, name)
		p.events.Record(ctx, domain.EventNameConflict, id, name)
		p.log.InfoContext(ctx, "pairing - propose name - name taken", "frame_id", id, "name", name, "holder", holder.ID)
		return nil
	}
	frame, err := p.frames.GetFrameByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		p.log.ErrorContext(ctx, "pairing - propose name - get frame failed", "frame_id", id, "err", err)
		return err
	}

	// One-shot rendezvous: proposer plus the frame's current session. An
	// offline frame simply misses the delivery.
	h := p.rendezvous.Open()
	defer p.rendezvous.Dissolve(h)
	if err := p.rendezvous.Join(h, session); err != nil {
		return err
	}
	if frame.SessionID != nil {
		_ = p.rendezvous.Join(h, *frame.SessionID)
	}
	proposal := domain.NameProposal{
		Type:    domain.TypeNameProposal,
		FrameID: id.String(),
		Name:    name,
	}
	if err := p.rendezvous.Broadcast(ctx, h, proposal); err != nil {
		span.RecordError(err)
		return err
	}
	p.events.Record(ctx, domain.EventNameProposed, id, name)
	p.log.InfoContext(ctx, "pairing - propose name - proposal broadcast", "frame_id", id, "name", name)
	span.SetStatus(codes.Ok, "proposal delivered")
	return nil
}

func (p *PairingService) HandleConfirmName(
	ctx context.Context,
	session string,
	rawFrameID string,
	name string,
	accepted bool,
) error {
	ctx, span := tracer.Start(ctx, "PairingService.HandleConfirmName", trace.WithAttributes(
		attribute.String("session", session),
		attribute.String("frame_id", rawFrameID),
		attribute.Bool("accepted", accepted),
	))
	defer span.End()

	id, err := uuid.Parse(rawFrameID)
	if err != nil {
		span.RecordError(err)
		return domain.ErrInvalidFrameID
	}
	frame, err := p.frames.GetFrameByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		p.log.ErrorContext(ctx, "pairing - confirm name - get frame failed", "frame_id", id, "err", err)
		return err
	}

	if !accepted {
		// Rejection: clear the frame's confirmation UI, keep the job open for
		// a new proposal.
		p.sendToFrame(ctx, frame, domain.ClearConfirmation{Type: domain.TypeClearConfirmation})
		p.log.InfoContext(ctx, "pairing - confirm name - proposal rejected", "frame_id", id, "name", name)
		return nil
	}

	err = p.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := p.frames.SetFrameName(txCtx, id, name); err != nil {
			return err
		}
		return p.jobs.Complete(txCtx, id)
	})
	if errors.Is(err, domain.ErrUniqueViolation) || errors.Is(err, domain.ErrNameConflict) {
		// Lost the uniqueness race: the name assignment rolled back with the
		// job deletion, so the job stays open. Notify both parties.
		p.sendToFrame(ctx, frame, domain.ClearConfirmation{Type: domain.TypeClearConfirmation})
		p.sendNameConflict(ctx, session, name)
		p.events.Record(ctx, domain.EventNameConflict, id, name)
		p.log.InfoContext(ctx, "pairing - confirm name - lost naming race", "frame_id", id, "name", name)
		return nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "confirm transaction failed")
		p.log.ErrorContext(ctx, "pairing - confirm name - transaction failed", "frame_id", id, "name", name, "err", err)
		return err
	}
	p.sendToFrame(ctx, frame, domain.NameConfirmed{Type: domain.TypeNameConfirmed})
	p.events.Record(ctx, domain.EventNameConfirmed, id, name)
	p.log.InfoContext(ctx, "pairing - confirm name - name committed", "frame_id", id, "name", name)
	span.SetStatus(codes.Ok, "name confirmed")
	return nil
}

func (p *PairingService) HandleDisconnect(ctx context.Context, session string) error {
	ctx, span := tracer.Start(ctx, "PairingService.HandleDisconnect", trace.WithAttributes(
		attribute.String("session", session),
	))
	defer span.End()

	// Job release, client deletion, and frame session clearing commit as one
	// unit so a crash mid-cleanup cannot leave an orphaned binding.
	err := p.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := p.jobs.Release(txCtx, session); err != nil {
			return err
		}
		if err := p.clients.DeleteClient(txCtx, session); err != nil {
			return err
		}
		return p.frames.ClearFrameSessionFor(txCtx, session)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cleanup failed")
		p.log.ErrorContext(ctx, "pairing - disconnect - cleanup failed", "session", session, "err", err)
		return err
	}
	p.log.InfoContext(ctx, "pairing - disconnect - session cleaned up", "session", session)
	return nil
}

func (p *PairingService) HandleHeartbeat(ctx context.Context, frameID string) error {
	if frameID == "" {
		return domain.ErrInvalidFrameID
	}
	if err := p.presence.MarkOnline(ctx, frameID, p.ttl); err != nil {
		p.log.ErrorContext(ctx, "pairing - heartbeat - initial presence update failed", "frame_id", frameID, "err", err)
	}
	ticker := time.NewTicker(p.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := p.presence.MarkOffline(context.WithoutCancel(ctx), frameID); err != nil {
				p.log.Error("pairing - heartbeat - mark offline failed", "frame_id", frameID, "err", err)
			}
			p.log.Info("pairing - heartbeat - stopped", "frame_id", frameID)
			return nil
		case <-ticker.C:
			if err := p.presence.MarkOnline(ctx, frameID, p.ttl); err != nil {
				p.log.ErrorContext(ctx, "pairing - heartbeat - presence update failed", "frame_id", frameID, "err", err)
			}
		}
	}
}

func (p *PairingService) sendToFrame(ctx context.Context, frame *domain.Frame, msg any) {
	if frame.SessionID == nil {
		return
	}
	if err := p.registry.Send(ctx, *frame.SessionID, msg); err != nil {
		p.log.ErrorContext(ctx, "pairing - notify - frame undelivered", "frame_id", frame.ID, "err", err)
	}
}

func (p *PairingService) sendNameConflict(ctx context.Context, session string, name string) {
	msg := domain.NameConflict{
		Type:    domain.TypeNameConflict,
		Message: "name " + name + " is already taken",
	}
	if err := p.registry.Send(ctx, session, msg); err != nil {
		p.log.ErrorContext(ctx, "pairing - notify - conflict undelivered", "session", session, "err", err)
	}
}
