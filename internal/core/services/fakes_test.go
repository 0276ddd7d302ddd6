package services_test

import (
	"context"
	"sync"
	"time"

	"github.com/framous/server/internal/core/domain"

	"github.com/google/uuid"
)

// memStore is an in-memory stand-in for the entity store. WithTx snapshots
// the maps and restores them when fn fails, so rollback semantics are
// observable in tests. Uniqueness rules mirror the table constraints.
type memStore struct {
	mu      sync.Mutex
	frames  map[uuid.UUID]*domain.Frame
	clients map[string]*domain.Client
	jobs    map[uuid.UUID]*domain.NamingJob
	seq     int
	base    time.Time

	// failOn injects a store failure into the named operation.
	failOn map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		frames:  make(map[uuid.UUID]*domain.Frame),
		clients: make(map[string]*domain.Client),
		jobs:    make(map[uuid.UUID]*domain.NamingJob),
		base:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		failOn:  map[string]error{},
	}
}

func (m *memStore) tick() time.Time {
	m.seq++
	return m.base.Add(time.Duration(m.seq) * time.Second)
}

func (m *memStore) fail(op string) error {
	if err, ok := m.failOn[op]; ok {
		return err
	}
	return nil
}

func (m *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	frames := make(map[uuid.UUID]*domain.Frame, len(m.frames))
	for k, v := range m.frames {
		c := *v
		frames[k] = &c
	}
	clients := make(map[string]*domain.Client, len(m.clients))
	for k, v := range m.clients {
		c := *v
		clients[k] = &c
	}
	jobs := make(map[uuid.UUID]*domain.NamingJob, len(m.jobs))
	for k, v := range m.jobs {
		c := *v
		jobs[k] = &c
	}
	seq := m.seq
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.frames = frames
		m.clients = clients
		m.jobs = jobs
		m.seq = seq
		m.mu.Unlock()
		return err
	}
	return nil
}

// FrameRepository

func (m *memStore) GetFrameByID(ctx context.Context, id uuid.UUID) (*domain.Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetFrameByID"); err != nil {
		return nil, err
	}
	f, ok := m.frames[id]
	if !ok {
		return nil, domain.ErrFrameNotFound
	}
	c := *f
	return &c, nil
}

func (m *memStore) GetFrameByName(ctx context.Context, name string) (*domain.Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetFrameByName"); err != nil {
		return nil, err
	}
	for _, f := range m.frames {
		if f.Name != nil && *f.Name == name {
			c := *f
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListFrames(ctx context.Context) ([]domain.Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Frame
	for _, f := range m.frames {
		out = append(out, *f)
	}
	return out, nil
}

func (m *memStore) CreateFrame(ctx context.Context, f *domain.Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateFrame"); err != nil {
		return err
	}
	if _, ok := m.frames[f.ID]; ok {
		return domain.ErrUniqueViolation
	}
	f.CreatedAt = m.tick()
	c := *f
	m.frames[f.ID] = &c
	return nil
}

func (m *memStore) SetFrameSession(ctx context.Context, id uuid.UUID, session *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.frames[id]
	if !ok {
		return domain.ErrFrameNotFound
	}
	f.SessionID = session
	return nil
}

func (m *memStore) ClearFrameSessionFor(ctx context.Context, session string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ClearFrameSessionFor"); err != nil {
		return err
	}
	for _, f := range m.frames {
		if f.SessionID != nil && *f.SessionID == session {
			f.SessionID = nil
		}
	}
	return nil
}

func (m *memStore) SetFrameName(ctx context.Context, id uuid.UUID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.frames[id]
	if !ok {
		return domain.ErrFrameNotFound
	}
	if f.Name != nil {
		return domain.ErrNameConflict
	}
	for other, of := range m.frames {
		if other != id && of.Name != nil && *of.Name == name {
			return domain.ErrUniqueViolation
		}
	}
	f.Name = &name
	return nil
}

// ClientRepository

func (m *memStore) CreateClient(ctx context.Context, c *domain.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[c.SessionID]; ok {
		return domain.ErrUniqueViolation
	}
	c.ConnectedAt = m.tick()
	cp := *c
	m.clients[c.SessionID] = &cp
	return nil
}

func (m *memStore) DeleteClient(ctx context.Context, session string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.clients, session)
	return nil
}

func (m *memStore) FindIdleClient(ctx context.Context) (*domain.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	assigned := make(map[string]bool)
	for _, j := range m.jobs {
		if j.AssigneeSession != nil {
			assigned[*j.AssigneeSession] = true
		}
	}
	var best *domain.Client
	for _, c := range m.clients {
		if assigned[c.SessionID] {
			continue
		}
		if best == nil || c.ConnectedAt.Before(best.ConnectedAt) {
			best = c
		}
	}
	if best == nil {
		return nil, nil
	}
	c := *best
	return &c, nil
}

// NamingJobRepository

func (m *memStore) CreateJob(ctx context.Context, j *domain.NamingJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[j.FrameID]; ok {
		return domain.ErrUniqueViolation
	}
	j.CreatedAt = m.tick()
	c := *j
	m.jobs[j.FrameID] = &c
	return nil
}

func (m *memStore) GetJobByFrame(ctx context.Context, frameID uuid.UUID) (*domain.NamingJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[frameID]
	if !ok {
		return nil, nil
	}
	c := *j
	return &c, nil
}

func (m *memStore) ClaimOldestUnassigned(ctx context.Context, session string) (*domain.NamingJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *domain.NamingJob
	for _, j := range m.jobs {
		if j.AssigneeSession != nil {
			continue
		}
		if best == nil || j.CreatedAt.Before(best.CreatedAt) {
			best = j
		}
	}
	if best == nil {
		return nil, nil
	}
	best.AssigneeSession = &session
	c := *best
	return &c, nil
}

func (m *memStore) ReleaseByAssignee(ctx context.Context, session string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.AssigneeSession != nil && *j.AssigneeSession == session {
			j.AssigneeSession = nil
		}
	}
	return nil
}

func (m *memStore) DeleteJob(ctx context.Context, frameID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, frameID)
	return nil
}

// NamingEventRepository

type memEventRepo struct {
	mu     sync.Mutex
	events []domain.NamingEvent
}

func (m *memEventRepo) InsertEvent(ctx context.Context, e *domain.NamingEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *e)
	return nil
}

func (m *memEventRepo) ListEventsByFrame(ctx context.Context, frameID uuid.UUID) ([]domain.NamingEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.NamingEvent
	for _, e := range m.events {
		if e.FrameID == frameID {
			out = append(out, e)
		}
	}
	return out, nil
}
