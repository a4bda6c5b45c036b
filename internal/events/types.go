package events

import (
	"arena/internal/session"
)

// Event is the base interface for everything published on the stream.
type Event interface {
	EventType() string
	Session() string
}

// Topic constants.
const (
	TopicMessage  = "message"
	TopicAgent    = "agent"
	TopicDecision = "decision"
	TopicRun      = "run"
)

// Event type constants.
const (
	EventTypeMessage     = "message.posted"
	EventTypeAgentStatus = "agent.status"
	EventTypeDecision    = "decision.parsed"
	EventTypeCompleted   = "run.completed"
	EventTypeError       = "run.error"
)

// MessageEvent is published for every transcript message as it is
// persisted.
type MessageEvent struct {
	SessionID string
	Message   session.Message
}

func (e MessageEvent) EventType() string { return EventTypeMessage }
func (e MessageEvent) Session() string   { return e.SessionID }

// AgentStatusEvent is published whenever a participant's run-time status
// changes.
type AgentStatusEvent struct {
	SessionID string
	AgentID   string
	Status    session.AgentStatus
}

func (e AgentStatusEvent) EventType() string { return EventTypeAgentStatus }
func (e AgentStatusEvent) Session() string   { return e.SessionID }

// DecisionEvent is published when a director reply yields a parsed
// decision.
type DecisionEvent struct {
	SessionID string
	Decision  session.Decision
}

func (e DecisionEvent) EventType() string { return EventTypeDecision }
func (e DecisionEvent) Session() string   { return e.SessionID }

// CompletedEvent is published once when a run reaches a terminal or paused
// state, with the reason.
type CompletedEvent struct {
	SessionID string
	Status    session.Status
	Reason    string
}

func (e CompletedEvent) EventType() string { return EventTypeCompleted }
func (e CompletedEvent) Session() string   { return e.SessionID }

// ErrorEvent is published for non-fatal step failures. It carries enough
// context to diagnose the step without replaying the transcript.
type ErrorEvent struct {
	SessionID string
	AgentID   string
	Step      string
	Err       error
}

func (e ErrorEvent) EventType() string { return EventTypeError }
func (e ErrorEvent) Session() string   { return e.SessionID }
