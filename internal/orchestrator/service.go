package orchestrator

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"arena/internal/agent"
	"arena/internal/board"
	"arena/internal/events"
	"arena/internal/roles"
	"arena/internal/session"
	"arena/internal/store"
)

// Service is the control surface over missions: start, resume, stop,
// list and export. It owns no goroutines; callers run the returned
// router themselves.
type Service struct {
	store   session.Store
	factory agent.Factory
	bus     *events.Bus
	log     *slog.Logger

	mu      sync.Mutex
	routers map[string]*Router
}

// NewService wires the control surface. The factory builds one agent
// client per participant; the bus carries the event stream to consumers.
func NewService(st session.Store, factory agent.Factory, bus *events.Bus, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:   st,
		factory: factory,
		bus:     bus,
		log:     log,
		routers: make(map[string]*Router),
	}
}

// StartParams describes a new mission.
type StartParams struct {
	Mission string
	Doers   []string
	Budget  int
}

// Start creates and persists a new session and returns the router that
// will drive it. The caller runs Router.Run.
func (s *Service) Start(p StartParams) (*Router, error) {
	if p.Mission == "" {
		return nil, fmt.Errorf("mission text is required")
	}
	if len(p.Doers) == 0 {
		return nil, fmt.Errorf("at least one doer role is required")
	}
	if p.Budget <= 0 {
		return nil, fmt.Errorf("turn budget must be positive")
	}

	now := time.Now().UTC()
	sess := &session.Session{
		ID:        uuid.NewString(),
		Mission:   p.Mission,
		DoerRoles: p.Doers,
		Budget:    p.Budget,
		Status:    session.StatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(sess); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	r, err := s.build(sess, board.New(), func(st session.Store) (*session.Manager, map[string]string, error) {
		handles := freshHandles(sess)
		return session.NewManager(st, sess, handles), handles, nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("mission started", "session", sess.ID, "doers", len(p.Doers), "budget", p.Budget)
	return r, nil
}

// Resume rebuilds a paused session and returns the router to continue it.
// A terminal session returns (nil, nil): there is nothing to resume and
// that is not an error.
func (s *Service) Resume(id string) (*Router, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if sess.Status.Terminal() {
		return nil, nil
	}

	snap, err := s.store.Board(id)
	if err != nil {
		return nil, fmt.Errorf("loading board: %w", err)
	}
	msgs, err := s.store.Transcript(id)
	if err != nil {
		return nil, fmt.Errorf("loading transcript: %w", err)
	}
	sess.Status = session.StatusRunning
	sess.Reason = ""
	sess.UpdatedAt = time.Now().UTC()
	if err := s.store.Save(sess); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}

	r, err := s.build(sess, board.FromSnapshot(snap), func(st session.Store) (*session.Manager, map[string]string, error) {
		handles := freshHandles(sess)
		mgr, err := session.Rebuild(st, sess, handles)
		return mgr, handles, err
	})
	if err != nil {
		return nil, err
	}
	// Doers dispatched after the resume still see peer previews from before
	// the pause.
	r.recent = msgs
	// Re-link doers to their open tasks so a clarification can still lift a
	// block taken before the pause.
	for _, task := range snap.Tasks {
		if task.Assignee == "" || task.Status.Terminal() {
			continue
		}
		if a := r.mgr.Agent(task.Assignee); a != nil {
			a.CurrentTaskID = task.ID
		}
	}
	s.log.Info("mission resumed", "session", sess.ID, "turns_used", sess.TurnsUsed)
	return r, nil
}

type buildManager func(session.Store) (*session.Manager, map[string]string, error)

func (s *Service) build(sess *session.Session, brd *board.Board, mk buildManager) (*Router, error) {
	mgr, handles, err := mk(s.store)
	if err != nil {
		return nil, err
	}

	directorClient, err := s.factory(session.DirectorID, handles[session.DirectorID])
	if err != nil {
		return nil, fmt.Errorf("building director client: %w", err)
	}
	classifier := roles.NewMarkerClassifier(sess.DoerRoles)
	director := roles.NewDirector(directorClient, classifier, sess.Mission)

	doers := make(map[string]*roles.Doer, len(sess.DoerRoles))
	for _, role := range sess.DoerRoles {
		client, err := s.factory(role, handles[role])
		if err != nil {
			return nil, fmt.Errorf("building client for %s: %w", role, err)
		}
		doers[role] = roles.NewDoer(role, client)
	}

	r := newRouter(mgr, s.store, brd, director, doers, s.bus, s.log)
	s.mu.Lock()
	s.routers[sess.ID] = r
	s.mu.Unlock()
	return r, nil
}

// Stop requests a cooperative stop of a running mission. Returns false
// when no router for the id is active in this process.
func (s *Service) Stop(id string) bool {
	s.mu.Lock()
	r, ok := s.routers[id]
	s.mu.Unlock()
	if ok {
		r.Stop()
	}
	return ok
}

// List returns session records, newest last, optionally filtered by
// status. An empty filter returns everything.
func (s *Service) List(filter session.Status) ([]*session.Session, error) {
	all, err := s.store.List()
	if err != nil {
		return nil, err
	}
	if filter == "" {
		return all, nil
	}
	out := all[:0]
	for _, sess := range all {
		if sess.Status == filter {
			out = append(out, sess)
		}
	}
	return out, nil
}

// Export renders one session as a markdown document.
func (s *Service) Export(id string) (string, error) {
	return store.ExportMarkdown(s.store, id)
}

func freshHandles(sess *session.Session) map[string]string {
	handles := map[string]string{session.DirectorID: uuid.NewString()}
	for _, role := range sess.DoerRoles {
		handles[role] = uuid.NewString()
	}
	return handles
}
