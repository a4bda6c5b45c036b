package board

import (
	"time"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Task is one unit of work tracked by the board. Tasks are independent of
// transcript messages and decisions; they change state only through the
// board's mutation operations.
type Task struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Assignee      string    `json:"assignee,omitempty"`
	Status        Status    `json:"status"`
	Priority      int       `json:"priority"`
	ParentID      string    `json:"parent_id,omitempty"`
	ChildIDs      []string  `json:"child_ids,omitempty"`
	BlockedBy     string    `json:"blocked_by,omitempty"`
	BlockedReason string    `json:"blocked_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Transition is an immutable record of one successful status change.
type Transition struct {
	TaskID    string    `json:"task_id"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	Actor     string    `json:"actor"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"ts"`
}

// Stats is an aggregate view over the board.
type Stats struct {
	Total     int            `json:"total"`
	ByStatus  map[Status]int `json:"by_status"`
	Completed int            `json:"completed"`
	Open      int            `json:"open"`
}

// Snapshot is the full serializable state of a board, written to
// task-board.json. Tasks are ordered parents-before-children.
type Snapshot struct {
	Tasks       []*Task      `json:"tasks"`
	Transitions []Transition `json:"transitions"`
}

func cloneTask(t *Task) *Task {
	if t == nil {
		return nil
	}
	cp := *t
	if t.ChildIDs != nil {
		cp.ChildIDs = append([]string(nil), t.ChildIDs...)
	}
	return &cp
}
