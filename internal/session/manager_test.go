package session

import (
	"errors"
	"testing"
	"time"

	"arena/internal/board"
)

// fakeStore is a minimal Store for manager tests.
type fakeStore struct {
	sessions   map[string]Session
	messages   map[string][]Message
	budgets    map[string][]BudgetEntry
	failAppend bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: make(map[string]Session),
		messages: make(map[string][]Message),
		budgets:  make(map[string][]BudgetEntry),
	}
}

func (f *fakeStore) Create(s *Session) error { return f.Save(s) }
func (f *fakeStore) Save(s *Session) error   { f.sessions[s.ID] = *s; return nil }
func (f *fakeStore) Get(id string) (*Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}
func (f *fakeStore) List() ([]*Session, error) { return nil, nil }
func (f *fakeStore) AppendMessage(id string, m Message) error {
	if f.failAppend {
		return errors.New("disk full")
	}
	f.messages[id] = append(f.messages[id], m)
	return nil
}
func (f *fakeStore) Transcript(id string) ([]Message, error) { return f.messages[id], nil }
func (f *fakeStore) AppendDecision(string, DecisionRecord) error {
	return nil
}
func (f *fakeStore) Decisions(string) ([]DecisionRecord, error)  { return nil, nil }
func (f *fakeStore) SaveBoard(string, board.Snapshot) error      { return nil }
func (f *fakeStore) Board(string) (board.Snapshot, error)        { return board.Snapshot{}, nil }
func (f *fakeStore) SaveBudget(id string, e []BudgetEntry) error { f.budgets[id] = e; return nil }
func (f *fakeStore) Budget(id string) ([]BudgetEntry, error)     { return f.budgets[id], nil }

func testSession(budget int, doers ...string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        "s-1",
		Mission:   "test mission",
		DoerRoles: doers,
		Budget:    budget,
		Status:    StatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TestBudgetAllocation verifies the even split with the remainder going to
// the director.
func TestBudgetAllocation(t *testing.T) {
	tests := []struct {
		budget       int
		doers        []string
		wantDirector int
		wantPerDoer  int
	}{
		{10, []string{"a", "b"}, 4, 3},  // 10/3 = 3 each, +1 remainder
		{9, []string{"a", "b"}, 3, 3},   // even split
		{1, []string{"a"}, 1, 0},        // everything to the director
		{20, []string{"a", "b", "c"}, 5, 5},
	}
	for _, tt := range tests {
		m := NewManager(newFakeStore(), testSession(tt.budget, tt.doers...), nil)

		total := 0
		for _, a := range m.Agents() {
			total += a.TurnsAllocated
		}
		if total != tt.budget {
			t.Errorf("budget %d: allocations sum to %d", tt.budget, total)
		}
		if got := m.Agent(DirectorID).TurnsAllocated; got != tt.wantDirector {
			t.Errorf("budget %d: director allocation = %d, want %d", tt.budget, got, tt.wantDirector)
		}
		for _, d := range tt.doers {
			if got := m.Agent(d).TurnsAllocated; got != tt.wantPerDoer {
				t.Errorf("budget %d: doer %s allocation = %d, want %d", tt.budget, d, got, tt.wantPerDoer)
			}
		}
	}
}

// TestRecordTurn verifies the shared counter, the per-agent counter and
// that both equal the persisted transcript length.
func TestRecordTurn(t *testing.T) {
	st := newFakeStore()
	sess := testSession(10, "coder")
	m := NewManager(st, sess, nil)

	msgs := []Message{
		{From: DirectorID, To: "coder", Type: MessageTask, Content: "go"},
		{From: "coder", To: DirectorID, Type: MessageResponse, Content: "done"},
		{From: DirectorID, To: "all", Type: MessageDecision, Content: "MISSION COMPLETE"},
	}
	for _, msg := range msgs {
		if err := m.RecordTurn(msg); err != nil {
			t.Fatalf("RecordTurn failed: %v", err)
		}
	}

	if sess.TurnsUsed != 3 {
		t.Errorf("turns used = %d, want 3", sess.TurnsUsed)
	}
	if got := m.Agent(DirectorID).TurnsUsed; got != 2 {
		t.Errorf("director turns = %d, want 2", got)
	}
	if got := m.Agent("coder").TurnsUsed; got != 1 {
		t.Errorf("coder turns = %d, want 1", got)
	}
	if len(st.messages["s-1"]) != 3 {
		t.Errorf("persisted %d messages, want 3", len(st.messages["s-1"]))
	}

	// Per-agent counters always sum to the shared counter.
	sum := 0
	for _, e := range m.BudgetReport() {
		sum += e.TurnsUsed
	}
	if sum != sess.TurnsUsed {
		t.Errorf("per-agent sum %d != turns used %d", sum, sess.TurnsUsed)
	}
}

// TestRecordTurn_AppendFailureLeavesCountersUntouched verifies the counter
// only moves when the message was persisted.
func TestRecordTurn_AppendFailureLeavesCountersUntouched(t *testing.T) {
	st := newFakeStore()
	st.failAppend = true
	sess := testSession(10, "coder")
	m := NewManager(st, sess, nil)

	if err := m.RecordTurn(Message{From: DirectorID, Content: "x"}); err == nil {
		t.Fatal("expected error from failing append")
	}
	if sess.TurnsUsed != 0 {
		t.Errorf("turns used = %d, want 0", sess.TurnsUsed)
	}
	if got := m.Agent(DirectorID).TurnsUsed; got != 0 {
		t.Errorf("director turns = %d, want 0", got)
	}
}

// TestExhausted verifies the soft ceiling is checked, not enforced ahead of
// time.
func TestExhausted(t *testing.T) {
	sess := testSession(2, "coder")
	m := NewManager(newFakeStore(), sess, nil)

	if m.Exhausted() {
		t.Error("fresh session should not be exhausted")
	}
	m.RecordTurn(Message{From: DirectorID, Content: "a"})
	if m.Exhausted() {
		t.Error("one of two turns should not exhaust")
	}
	m.RecordTurn(Message{From: "coder", Content: "b"})
	if !m.Exhausted() {
		t.Error("two of two turns should exhaust")
	}
}

// TestRebuild verifies resume recovers counters from the transcript.
func TestRebuild(t *testing.T) {
	st := newFakeStore()
	sess := testSession(10, "coder", "reviewer")
	st.messages[sess.ID] = []Message{
		{From: DirectorID, Content: "a"},
		{From: "coder", Content: "b"},
		{From: DirectorID, Content: "c"},
		{From: "reviewer", Content: "d"},
	}

	m, err := Rebuild(st, sess, nil)
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if sess.TurnsUsed != 4 {
		t.Errorf("turns used = %d, want 4", sess.TurnsUsed)
	}
	if got := m.Agent(DirectorID).TurnsUsed; got != 2 {
		t.Errorf("director turns = %d, want 2", got)
	}
	if got := m.Agent("coder").TurnsUsed; got != 1 {
		t.Errorf("coder turns = %d, want 1", got)
	}
	if got := m.Agent("reviewer").TurnsUsed; got != 1 {
		t.Errorf("reviewer turns = %d, want 1", got)
	}
}

// TestTerminate verifies Complete, Pause and Fail persist the status, the
// reason and a budget report.
func TestTerminate(t *testing.T) {
	tests := []struct {
		name   string
		call   func(*Manager) error
		want   Status
		reason string
	}{
		{"complete", func(m *Manager) error { return m.Complete("budget exhausted") }, StatusCompleted, "budget exhausted"},
		{"pause", func(m *Manager) error { return m.Pause("stopped by operator") }, StatusPaused, "stopped by operator"},
		{"fail", func(m *Manager) error { return m.Fail("disk full") }, StatusFailed, "disk full"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newFakeStore()
			sess := testSession(5, "coder")
			m := NewManager(st, sess, nil)

			if err := tt.call(m); err != nil {
				t.Fatalf("%s failed: %v", tt.name, err)
			}
			saved := st.sessions[sess.ID]
			if saved.Status != tt.want || saved.Reason != tt.reason {
				t.Errorf("saved session = %s (%s), want %s (%s)", saved.Status, saved.Reason, tt.want, tt.reason)
			}
			if len(st.budgets[sess.ID]) != 2 {
				t.Errorf("budget report entries = %d, want 2", len(st.budgets[sess.ID]))
			}
		})
	}
}

// TestAgentsOrder verifies the director is always listed first.
func TestAgentsOrder(t *testing.T) {
	m := NewManager(newFakeStore(), testSession(6, "b", "a"), map[string]string{
		DirectorID: "h0", "b": "h1", "a": "h2",
	})

	agents := m.Agents()
	if agents[0].ID != DirectorID || agents[1].ID != "b" || agents[2].ID != "a" {
		t.Errorf("unexpected order: %s, %s, %s", agents[0].ID, agents[1].ID, agents[2].ID)
	}
	if agents[0].Handle != "h0" || agents[2].Handle != "h2" {
		t.Error("handles not applied from the map")
	}
}
