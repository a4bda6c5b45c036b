package session

import (
	"fmt"
	"time"
)

// Manager owns the run-time state of one mission: the session record, one
// AgentState per participant, and turn accounting. It is the only writer of
// the shared turn counter and only ever called from the router's control
// goroutine, so it carries no locking.
type Manager struct {
	store  Store
	sess   *Session
	agents map[string]*AgentState
	order  []string // director first, then doers in roster order
}

// NewManager builds run-time state for a fresh session and allocates the
// turn budget across participants (even split, remainder to the director).
// The handles map provides each participant's conversation handle.
func NewManager(st Store, sess *Session, handles map[string]string) *Manager {
	m := &Manager{store: st, sess: sess, agents: make(map[string]*AgentState)}

	participants := 1 + len(sess.DoerRoles)
	share := 0
	if sess.Budget > 0 {
		share = sess.Budget / participants
	}
	m.add(&AgentState{
		ID:             DirectorID,
		Kind:           RoleDirector,
		Status:         AgentIdle,
		Handle:         handles[DirectorID],
		TurnsAllocated: sess.Budget - share*(participants-1),
	})
	for _, role := range sess.DoerRoles {
		m.add(&AgentState{
			ID:             role,
			Kind:           RoleDoer,
			Role:           role,
			Status:         AgentIdle,
			Handle:         handles[role],
			TurnsAllocated: share,
		})
	}
	return m
}

// Rebuild reconstructs run-time state for a resumed session. Per-agent turn
// counts are recovered by counting transcript messages authored by each
// participant; conversation handles are fresh (the underlying agent's own
// memory is addressed server-side by the stable handle).
func Rebuild(st Store, sess *Session, handles map[string]string) (*Manager, error) {
	m := NewManager(st, sess, handles)
	transcript, err := st.Transcript(sess.ID)
	if err != nil {
		return nil, fmt.Errorf("reading transcript: %w", err)
	}
	for _, msg := range transcript {
		if a, ok := m.agents[msg.From]; ok {
			a.TurnsUsed++
		}
	}
	sess.TurnsUsed = len(transcript)
	return m, nil
}

func (m *Manager) add(a *AgentState) {
	m.agents[a.ID] = a
	m.order = append(m.order, a.ID)
}

// Session returns the managed session record.
func (m *Manager) Session() *Session { return m.sess }

// Agent returns run-time state for one participant, or nil.
func (m *Manager) Agent(id string) *AgentState { return m.agents[id] }

// Agents returns all participants, director first.
func (m *Manager) Agents() []*AgentState {
	out := make([]*AgentState, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.agents[id])
	}
	return out
}

// SetAgentStatus updates a participant's run-time status.
func (m *Manager) SetAgentStatus(id string, status AgentStatus) {
	if a, ok := m.agents[id]; ok {
		a.Status = status
	}
}

// RecordTurn appends one transcript message and advances the shared turn
// counter and the author's per-agent counter. The append is fatal on
// failure; the counter never moves unless the message was persisted.
func (m *Manager) RecordTurn(msg Message) error {
	if err := m.store.AppendMessage(m.sess.ID, msg); err != nil {
		return fmt.Errorf("appending transcript: %w", err)
	}
	m.sess.TurnsUsed++
	if a, ok := m.agents[msg.From]; ok {
		a.TurnsUsed++
	}
	m.sess.UpdatedAt = time.Now().UTC()
	if err := m.store.Save(m.sess); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Exhausted reports whether the shared turn budget has been consumed. The
// check is made after a message completes, so a single in-flight overrun is
// possible by design.
func (m *Manager) Exhausted() bool {
	return m.sess.TurnsUsed >= m.sess.Budget
}

// SetPhase records a phase transition on the session.
func (m *Manager) SetPhase(phase string) error {
	m.sess.Phase = phase
	m.sess.UpdatedAt = time.Now().UTC()
	return m.store.Save(m.sess)
}

// BudgetReport snapshots per-agent turn usage, director first.
func (m *Manager) BudgetReport() []BudgetEntry {
	out := make([]BudgetEntry, 0, len(m.order))
	for _, id := range m.order {
		a := m.agents[id]
		out = append(out, BudgetEntry{
			AgentID:        a.ID,
			Role:           a.Role,
			TurnsUsed:      a.TurnsUsed,
			TurnsAllocated: a.TurnsAllocated,
		})
	}
	return out
}

// Complete terminates the session normally and persists the final record
// and budget report.
func (m *Manager) Complete(reason string) error {
	return m.terminate(StatusCompleted, reason)
}

// Pause suspends the session; it can be resumed later.
func (m *Manager) Pause(reason string) error {
	return m.terminate(StatusPaused, reason)
}

// Fail terminates the session with a failure reason.
func (m *Manager) Fail(reason string) error {
	return m.terminate(StatusFailed, reason)
}

func (m *Manager) terminate(status Status, reason string) error {
	m.sess.Status = status
	m.sess.Reason = reason
	m.sess.UpdatedAt = time.Now().UTC()
	if err := m.store.Save(m.sess); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	if err := m.store.SaveBudget(m.sess.ID, m.BudgetReport()); err != nil {
		return fmt.Errorf("saving budget report: %w", err)
	}
	return nil
}
