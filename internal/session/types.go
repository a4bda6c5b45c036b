package session

import (
	"time"
)

// Status is the lifecycle status of a mission session.
type Status string

const (
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether a session in this status can never run again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// RoleKind distinguishes the coordinating agent from worker agents.
type RoleKind string

const (
	RoleDirector RoleKind = "director"
	RoleDoer     RoleKind = "doer"
)

// AgentStatus is the run-time status of a single participant.
type AgentStatus string

const (
	AgentIdle    AgentStatus = "idle"
	AgentWaiting AgentStatus = "waiting"
	AgentActive  AgentStatus = "active"
	AgentBlocked AgentStatus = "blocked"
)

// DirectorID is the fixed participant id of the coordinating agent.
// Doer participant ids are their role labels.
const DirectorID = "director"

// Session is the durable record of one mission run.
type Session struct {
	ID        string    `json:"id"`
	Mission   string    `json:"mission"`
	DoerRoles []string  `json:"doer_roles"`
	Budget    int       `json:"budget"`
	TurnsUsed int       `json:"turns_used"`
	Status    Status    `json:"status"`
	Phase     string    `json:"phase,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AgentState is the in-memory run-time state of one participant.
// It is owned exclusively by the Manager for the lifetime of one mission
// and rebuilt (with a fresh conversation handle) on resume.
type AgentState struct {
	ID             string      `json:"id"`
	Kind           RoleKind    `json:"kind"`
	Role           string      `json:"role,omitempty"`
	Status         AgentStatus `json:"status"`
	Handle         string      `json:"handle"`
	TurnsUsed      int         `json:"turns_used"`
	TurnsAllocated int         `json:"turns_allocated"`
	CurrentTaskID  string      `json:"current_task_id,omitempty"`
}

// MessageType classifies transcript messages.
type MessageType string

const (
	MessageTask          MessageType = "task"
	MessageResponse      MessageType = "response"
	MessageQuestion      MessageType = "question"
	MessageDecision      MessageType = "decision"
	MessageCollaboration MessageType = "collaboration"
)

// Message is one immutable transcript entry. Messages are append-only and
// never mutated once recorded; write order equals causal order.
type Message struct {
	Timestamp time.Time   `json:"ts"`
	From      string      `json:"from"`
	To        string      `json:"to"`
	Type      MessageType `json:"type"`
	Content   string      `json:"content"`
}

// DecisionKind classifies a control signal parsed from a director reply.
type DecisionKind string

const (
	DecisionTaskAssignment     DecisionKind = "task-assignment"
	DecisionClarification      DecisionKind = "clarification"
	DecisionConflictResolution DecisionKind = "conflict-resolution"
	DecisionPhaseTransition    DecisionKind = "phase-transition"
	DecisionCompletion         DecisionKind = "completion"
)

// Decision is an ephemeral control artifact extracted from a director reply.
// A Target may be empty when the parser could not resolve a doer; the router
// treats that as a no-op continuation.
type Decision struct {
	Kind        DecisionKind `json:"kind"`
	Target      string       `json:"target,omitempty"`
	Instruction string       `json:"instruction,omitempty"`
	Reasoning   string       `json:"reasoning,omitempty"`
}

// DecisionRecord is the audit form of a Decision written to the decision log.
type DecisionRecord struct {
	Timestamp time.Time    `json:"ts"`
	Kind      DecisionKind `json:"kind"`
	Target    string       `json:"target,omitempty"`
	Issue     string       `json:"issue,omitempty"`
	Ruling    string       `json:"ruling,omitempty"`
	Context   string       `json:"context,omitempty"`
}

// BudgetEntry is a per-agent turns snapshot, recomputed whenever the
// mission completes or pauses.
type BudgetEntry struct {
	AgentID        string `json:"agent_id"`
	Role           string `json:"role,omitempty"`
	TurnsUsed      int    `json:"turns_used"`
	TurnsAllocated int    `json:"turns_allocated"`
}
