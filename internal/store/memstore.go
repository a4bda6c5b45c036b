package store

import (
	"fmt"
	"sort"
	"sync"

	"arena/internal/board"
	"arena/internal/session"
)

// MemStore is an in-memory session.Store for tests. It mirrors FileStore
// semantics, including append-only transcripts and decision logs.
type MemStore struct {
	mu        sync.Mutex
	sessions  map[string]session.Session
	messages  map[string][]session.Message
	decisions map[string][]session.DecisionRecord
	boards    map[string]board.Snapshot
	budgets   map[string][]session.BudgetEntry

	// FailAppends makes AppendMessage fail, for exercising the fatal
	// persistence path.
	FailAppends bool
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		sessions:  make(map[string]session.Session),
		messages:  make(map[string][]session.Message),
		decisions: make(map[string][]session.DecisionRecord),
		boards:    make(map[string]board.Snapshot),
		budgets:   make(map[string][]session.BudgetEntry),
	}
}

func (ms *MemStore) Create(s *session.Session) error {
	return ms.Save(s)
}

func (ms *MemStore) Save(s *session.Session) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.sessions[s.ID] = *s
	return nil
}

func (ms *MemStore) Get(id string) (*session.Session, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	s, ok := ms.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%q: %w", id, session.ErrNotFound)
	}
	cp := s
	return &cp, nil
}

func (ms *MemStore) List() ([]*session.Session, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	out := make([]*session.Session, 0, len(ms.sessions))
	for _, s := range ms.sessions {
		cp := s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (ms *MemStore) AppendMessage(id string, m session.Message) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.FailAppends {
		return fmt.Errorf("append refused")
	}
	ms.messages[id] = append(ms.messages[id], m)
	return nil
}

func (ms *MemStore) Transcript(id string) ([]session.Message, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return append([]session.Message(nil), ms.messages[id]...), nil
}

func (ms *MemStore) AppendDecision(id string, d session.DecisionRecord) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.decisions[id] = append(ms.decisions[id], d)
	return nil
}

func (ms *MemStore) Decisions(id string) ([]session.DecisionRecord, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return append([]session.DecisionRecord(nil), ms.decisions[id]...), nil
}

func (ms *MemStore) SaveBoard(id string, snap board.Snapshot) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.boards[id] = snap
	return nil
}

func (ms *MemStore) Board(id string) (board.Snapshot, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.boards[id], nil
}

func (ms *MemStore) SaveBudget(id string, entries []session.BudgetEntry) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.budgets[id] = append([]session.BudgetEntry(nil), entries...)
	return nil
}

func (ms *MemStore) Budget(id string) ([]session.BudgetEntry, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return append([]session.BudgetEntry(nil), ms.budgets[id]...), nil
}
