package session

import (
	"errors"

	"arena/internal/board"
)

// ErrNotFound is returned by stores when a session id is unknown.
var ErrNotFound = errors.New("session not found")

// Store is the repository boundary for mission persistence. One directory
// (or bucket) per session id; messages and decisions are append-only, the
// session record, board snapshot and budget report are rewritten in place.
// Implementations live in internal/store; tests substitute the in-memory
// one.
type Store interface {
	// Create persists a brand-new session record.
	Create(s *Session) error
	// Save rewrites the session record.
	Save(s *Session) error
	// Get loads a session record, or ErrNotFound.
	Get(id string) (*Session, error)
	// List returns all session records, oldest first.
	List() ([]*Session, error)

	// AppendMessage appends one transcript entry. A failure here is fatal
	// to the caller's current step: losing transcript entries breaks the
	// append-only invariant.
	AppendMessage(id string, m Message) error
	// Transcript returns all messages in write order.
	Transcript(id string) ([]Message, error)

	// AppendDecision appends one decision-log entry.
	AppendDecision(id string, d DecisionRecord) error
	// Decisions returns all decision-log entries in write order.
	Decisions(id string) ([]DecisionRecord, error)

	// SaveBoard rewrites the full task-board snapshot.
	SaveBoard(id string, snap board.Snapshot) error
	// Board loads the latest task-board snapshot; an empty snapshot when
	// none has been written yet.
	Board(id string) (board.Snapshot, error)

	// SaveBudget rewrites the budget report.
	SaveBudget(id string, entries []BudgetEntry) error
	// Budget loads the latest budget report; empty when none exists.
	Budget(id string) ([]BudgetEntry, error)
}
