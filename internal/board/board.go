package board

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gammazero/toposort"
)

// ErrNotFound is returned when an operation references an unknown task id.
var ErrNotFound = errors.New("task not found")

// ErrInvalidTransition is returned when the current status does not allow
// the requested transition. The task is left unchanged.
var ErrInvalidTransition = errors.New("invalid task transition")

// Board tracks the task lifecycle for one mission. It is mutated only from
// the router's control goroutine, so it carries no locking; queries are
// pure reads over the in-memory task map.
type Board struct {
	tasks       map[string]*Task
	order       []string
	transitions []Transition
	seq         int
}

// New creates an empty board.
func New() *Board {
	return &Board{tasks: make(map[string]*Task)}
}

// FromSnapshot rebuilds a board from a persisted snapshot.
func FromSnapshot(snap Snapshot) *Board {
	b := New()
	for _, t := range snap.Tasks {
		cp := cloneTask(t)
		b.tasks[cp.ID] = cp
		b.order = append(b.order, cp.ID)
		b.seq++
	}
	b.transitions = append(b.transitions, snap.Transitions...)
	return b
}

// Create adds a new pending task. If parentID is non-empty it must name an
// existing task, which records the new task as a child.
func (b *Board) Create(title, description string, priority int, parentID, actor string) (*Task, error) {
	var parent *Task
	if parentID != "" {
		var ok bool
		parent, ok = b.tasks[parentID]
		if !ok {
			return nil, fmt.Errorf("parent %q: %w", parentID, ErrNotFound)
		}
	}

	b.seq++
	now := time.Now().UTC()
	t := &Task{
		ID:        fmt.Sprintf("task-%03d", b.seq),
		Title:     title,
		Description: description,
		Status:    StatusPending,
		Priority:  priority,
		ParentID:  parentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	b.tasks[t.ID] = t
	b.order = append(b.order, t.ID)
	if parent != nil {
		parent.ChildIDs = append(parent.ChildIDs, t.ID)
	}
	b.record(t.ID, "", StatusPending, actor, "created")
	return cloneTask(t), nil
}

// Assign moves a pending task to assigned and sets the assignee.
func (b *Board) Assign(id, assignee, actor string) (*Task, error) {
	return b.transition(id, actor, "", []Status{StatusPending}, StatusAssigned, func(t *Task) {
		t.Assignee = assignee
	})
}

// Start moves an assigned task to in_progress.
func (b *Board) Start(id, actor string) (*Task, error) {
	return b.transition(id, actor, "", []Status{StatusAssigned}, StatusInProgress, nil)
}

// Block moves an assigned or in_progress task to blocked, recording what it
// is blocked on and why.
func (b *Board) Block(id, blockedBy, reason, actor string) (*Task, error) {
	return b.transition(id, actor, reason, []Status{StatusAssigned, StatusInProgress}, StatusBlocked, func(t *Task) {
		t.BlockedBy = blockedBy
		t.BlockedReason = reason
	})
}

// Unblock returns a blocked task to assigned when it has an assignee, or to
// pending when it does not. The blocking reference is cleared either way.
func (b *Board) Unblock(id, actor string) (*Task, error) {
	t, ok := b.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%q: %w", id, ErrNotFound)
	}
	if t.Status != StatusBlocked {
		return nil, fmt.Errorf("unblock from %s: %w", t.Status, ErrInvalidTransition)
	}
	to := StatusPending
	if t.Assignee != "" {
		to = StatusAssigned
	}
	from := t.Status
	t.Status = to
	t.BlockedBy = ""
	t.BlockedReason = ""
	t.UpdatedAt = time.Now().UTC()
	b.record(id, from, to, actor, "")
	return cloneTask(t), nil
}

// Complete moves an in_progress task to completed.
func (b *Board) Complete(id, actor string) (*Task, error) {
	return b.transition(id, actor, "", []Status{StatusInProgress}, StatusCompleted, nil)
}

// Cancel moves any non-terminal task to cancelled.
func (b *Board) Cancel(id, reason, actor string) (*Task, error) {
	t, ok := b.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%q: %w", id, ErrNotFound)
	}
	if t.Status.Terminal() {
		return nil, fmt.Errorf("cancel from %s: %w", t.Status, ErrInvalidTransition)
	}
	from := t.Status
	t.Status = StatusCancelled
	t.BlockedBy = ""
	t.BlockedReason = ""
	t.UpdatedAt = time.Now().UTC()
	b.record(id, from, StatusCancelled, actor, reason)
	return cloneTask(t), nil
}

// Get returns a copy of the task, if it exists.
func (b *Board) Get(id string) (*Task, bool) {
	t, ok := b.tasks[id]
	if !ok {
		return nil, false
	}
	return cloneTask(t), true
}

// TasksByStatus returns copies of all tasks in the given status, in
// creation order.
func (b *Board) TasksByStatus(s Status) []*Task {
	var out []*Task
	for _, id := range b.order {
		if t := b.tasks[id]; t.Status == s {
			out = append(out, cloneTask(t))
		}
	}
	return out
}

// TasksByAssignee returns copies of all tasks assigned to the given
// participant, in creation order.
func (b *Board) TasksByAssignee(assignee string) []*Task {
	var out []*Task
	for _, id := range b.order {
		if t := b.tasks[id]; t.Assignee == assignee {
			out = append(out, cloneTask(t))
		}
	}
	return out
}

// Stats aggregates task counts by status.
func (b *Board) Stats() Stats {
	st := Stats{Total: len(b.tasks), ByStatus: make(map[Status]int)}
	for _, t := range b.tasks {
		st.ByStatus[t.Status]++
		if t.Status == StatusCompleted {
			st.Completed++
		} else if !t.Status.Terminal() {
			st.Open++
		}
	}
	return st
}

// Transitions returns the append-only transition log.
func (b *Board) Transitions() []Transition {
	return append([]Transition(nil), b.transitions...)
}

// Snapshot serializes the whole board. Tasks are ordered parents before
// children so that consumers can rebuild the tree in one pass.
func (b *Board) Snapshot() Snapshot {
	snap := Snapshot{Transitions: b.Transitions()}
	for _, id := range b.OrderedIDs() {
		snap.Tasks = append(snap.Tasks, cloneTask(b.tasks[id]))
	}
	return snap
}

// OrderedIDs returns task ids topologically sorted along parent/child
// edges, falling back to creation order if the sort fails.
func (b *Board) OrderedIDs() []string {
	var edges []toposort.Edge
	for _, id := range b.order {
		t := b.tasks[id]
		if t.ParentID == "" {
			edges = append(edges, toposort.Edge{nil, id})
		} else {
			edges = append(edges, toposort.Edge{t.ParentID, id})
		}
	}
	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return append([]string(nil), b.order...)
	}
	ids := make([]string, 0, len(b.order))
	for _, v := range sorted {
		if v != nil {
			ids = append(ids, v.(string))
		}
	}
	if len(ids) != len(b.order) {
		return append([]string(nil), b.order...)
	}
	// Toposort is not stable between siblings; settle ties by task id so
	// snapshots are deterministic.
	sort.SliceStable(ids, func(i, j int) bool {
		a, c := b.tasks[ids[i]], b.tasks[ids[j]]
		if a.ParentID == c.ParentID {
			return a.ID < c.ID
		}
		return false
	})
	return ids
}

func (b *Board) transition(id, actor, reason string, from []Status, to Status, apply func(*Task)) (*Task, error) {
	t, ok := b.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%q: %w", id, ErrNotFound)
	}
	allowed := false
	for _, s := range from {
		if t.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%s from %s: %w", to, t.Status, ErrInvalidTransition)
	}
	prev := t.Status
	if apply != nil {
		apply(t)
	}
	t.Status = to
	t.UpdatedAt = time.Now().UTC()
	b.record(id, prev, to, actor, reason)
	return cloneTask(t), nil
}

func (b *Board) record(id string, from, to Status, actor, reason string) {
	b.transitions = append(b.transitions, Transition{
		TaskID:    id,
		From:      from,
		To:        to,
		Actor:     actor,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	})
}
