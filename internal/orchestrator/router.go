// Package orchestrator runs the mission control loop: a single-goroutine
// router that relays every message between the director and the doers,
// applies parsed decisions to the task board, and enforces the shared turn
// budget. Agents never talk to each other directly.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"arena/internal/board"
	"arena/internal/events"
	"arena/internal/roles"
	"arena/internal/session"
)

// stepKind identifies one unit of work on the router's queue.
type stepKind int

const (
	stepKickoff stepKind = iota
	stepResume
	stepDirector
	stepDoer
)

// step is one queued unit of work. The router is an explicit work queue
// rather than mutually recursive handlers, so stack depth stays constant
// no matter how long the mission runs.
type step struct {
	kind     stepKind
	prompt   string           // director steps
	decision session.Decision // doer steps
	taskID   string           // doer steps, empty for clarifications
}

// Router drives one mission to a terminal or paused state. All mutation of
// the session, the board and the agents happens on the goroutine running
// Run; Stop is the only concurrent entry point.
type Router struct {
	mgr      *session.Manager
	store    session.Store
	board    *board.Board
	director *roles.Director
	doers    map[string]*roles.Doer
	bus      *events.Bus
	log      *slog.Logger

	recent    []session.Message
	firstTurn bool
	stopped   atomic.Bool
}

// newRouter wires a router; the Service is the only constructor caller.
func newRouter(mgr *session.Manager, st session.Store, brd *board.Board,
	director *roles.Director, doers map[string]*roles.Doer,
	bus *events.Bus, log *slog.Logger) *Router {
	return &Router{
		mgr:       mgr,
		store:     st,
		board:     brd,
		director:  director,
		doers:     doers,
		bus:       bus,
		log:       log,
		firstTurn: true,
	}
}

// SessionID returns the id of the mission this router drives.
func (r *Router) SessionID() string { return r.mgr.Session().ID }

// Stop requests a cooperative stop. The router finishes the step in flight,
// pauses the session, and Run returns.
func (r *Router) Stop() { r.stopped.Store(true) }

// Run executes the mission until it completes, pauses, fails, or the
// context is cancelled. A nil return means the session reached a persisted
// terminal or paused state; a non-nil return means persistence itself
// failed and the session was marked failed on a best-effort basis.
func (r *Router) Run(ctx context.Context) error {
	first := step{kind: stepKickoff}
	if r.mgr.Session().TurnsUsed > 0 {
		first = step{kind: stepResume}
	}
	queue := []step{first}

	for len(queue) > 0 {
		if r.stopped.Load() || ctx.Err() != nil {
			return r.pause("stopped by operator")
		}
		next := queue[0]
		queue = queue[1:]

		more, err := r.execute(ctx, next)
		if err != nil {
			return err
		}
		queue = append(queue, more...)
	}
	return nil
}

func (r *Router) execute(ctx context.Context, st step) ([]step, error) {
	switch st.kind {
	case stepKickoff:
		return r.directorTurn(ctx, r.director.KickoffPrompt(r.mgr.Session()))
	case stepResume:
		return r.directorTurn(ctx, r.director.ResumePrompt(r.mgr.Session()))
	case stepDirector:
		return r.directorTurn(ctx, st.prompt)
	case stepDoer:
		return r.doerTurn(ctx, st.decision, st.taskID)
	default:
		return nil, fmt.Errorf("unknown step kind %d", st.kind)
	}
}

// directorTurn prompts the director, persists the reply, records any parsed
// decision, checks the budget, then maps the decision to follow-up steps.
func (r *Router) directorTurn(ctx context.Context, prompt string) ([]step, error) {
	r.setAgentStatus(session.DirectorID, session.AgentActive)

	reply, dec, err := r.director.Send(ctx, prompt, r.firstTurn)
	if err != nil {
		return nil, r.stepFailure(session.DirectorID, "director turn", err)
	}
	r.firstTurn = false

	msg := r.addressReply(reply, dec)
	if err := r.recordTurn(msg); err != nil {
		return nil, err
	}
	if dec != nil {
		if err := r.recordDecision(*dec, reply); err != nil {
			return nil, err
		}
	}
	r.setAgentStatus(session.DirectorID, session.AgentWaiting)

	if r.mgr.Exhausted() {
		return nil, r.complete("budget exhausted")
	}
	return r.applyDecision(ctx, dec)
}

// addressReply turns a director reply plus its parsed decision into a
// transcript message. Unroutable replies go to the whole team as
// collaboration so the transcript stays complete.
func (r *Router) addressReply(reply string, dec *session.Decision) session.Message {
	msg := session.Message{
		Timestamp: time.Now().UTC(),
		From:      session.DirectorID,
		To:        "all",
		Type:      session.MessageCollaboration,
		Content:   reply,
	}
	if dec == nil {
		return msg
	}
	switch dec.Kind {
	case session.DecisionTaskAssignment:
		msg.Type = session.MessageTask
		if dec.Target != "" {
			msg.To = dec.Target
		}
	case session.DecisionClarification:
		msg.Type = session.MessageQuestion
		if dec.Target != "" {
			msg.To = dec.Target
		}
	case session.DecisionConflictResolution:
		msg.Type = session.MessageDecision
		if dec.Target != "" {
			msg.To = dec.Target
		}
	case session.DecisionPhaseTransition, session.DecisionCompletion:
		msg.Type = session.MessageDecision
	}
	return msg
}

// applyDecision maps a decision to the next queued steps. No decision, or a
// decision whose target could not be resolved, re-prompts the director; the
// mission never errors out on unparseable coordination text.
func (r *Router) applyDecision(ctx context.Context, dec *session.Decision) ([]step, error) {
	if dec == nil {
		return []step{{kind: stepDirector, prompt: r.director.NudgePrompt()}}, nil
	}

	switch dec.Kind {
	case session.DecisionCompletion:
		return nil, r.complete(completionReason(dec.Reasoning))

	case session.DecisionPhaseTransition:
		if err := r.mgr.SetPhase(dec.Instruction); err != nil {
			return nil, r.fatal(fmt.Errorf("recording phase: %w", err))
		}
		prompt := fmt.Sprintf("Phase %q is now active. What is the first step of this phase? ", dec.Instruction)
		return []step{{kind: stepDirector, prompt: prompt + r.director.NudgePrompt()}}, nil

	case session.DecisionTaskAssignment:
		if dec.Target == "" {
			return []step{{kind: stepDirector, prompt: r.director.NudgePrompt()}}, nil
		}
		task, err := r.board.Create(firstLine(dec.Instruction), dec.Instruction, 0, "", session.DirectorID)
		if err != nil {
			return nil, r.fatal(fmt.Errorf("creating task: %w", err))
		}
		if _, err := r.board.Assign(task.ID, dec.Target, session.DirectorID); err != nil {
			return nil, r.fatal(fmt.Errorf("assigning task: %w", err))
		}
		if err := r.saveBoard(); err != nil {
			return nil, err
		}
		if a := r.mgr.Agent(dec.Target); a != nil {
			a.CurrentTaskID = task.ID
		}
		return []step{{kind: stepDoer, decision: *dec, taskID: task.ID}}, nil

	case session.DecisionClarification, session.DecisionConflictResolution:
		if dec.Target == "" {
			return []step{{kind: stepDirector, prompt: r.director.NudgePrompt()}}, nil
		}
		return []step{{kind: stepDoer, decision: *dec}}, nil
	}

	return []step{{kind: stepDirector, prompt: r.director.NudgePrompt()}}, nil
}

// doerTurn dispatches one instruction to a doer, persists its report, and
// routes the report back to the director.
func (r *Router) doerTurn(ctx context.Context, dec session.Decision, taskID string) ([]step, error) {
	doer, ok := r.doers[dec.Target]
	if !ok {
		// Roster and classifier are built from the same list; reaching this
		// means a programming error, not bad agent output.
		return nil, r.fatal(fmt.Errorf("no doer registered for %q", dec.Target))
	}

	// A clarification or ruling aimed at a doer with a blocked task lifts
	// the block before the doer runs again.
	if taskID == "" {
		if a := r.mgr.Agent(dec.Target); a != nil && a.CurrentTaskID != "" {
			if t, found := r.board.Get(a.CurrentTaskID); found && t.Status == board.StatusBlocked {
				if _, err := r.board.Unblock(t.ID, session.DirectorID); err != nil {
					return nil, r.fatal(fmt.Errorf("unblocking task: %w", err))
				}
				taskID = t.ID
			}
		}
	}
	if taskID != "" {
		if _, err := r.board.Start(taskID, dec.Target); err != nil {
			return nil, r.fatal(fmt.Errorf("starting task: %w", err))
		}
		if err := r.saveBoard(); err != nil {
			return nil, err
		}
	}

	r.setAgentStatus(dec.Target, session.AgentActive)
	report, err := doer.Execute(ctx, roles.Context{
		Mission:      r.mgr.Session().Mission,
		Phase:        r.mgr.Session().Phase,
		Instruction:  dec.Instruction,
		PeerPreviews: r.peerPreviews(dec.Target),
	})
	if err != nil {
		return nil, r.stepFailure(dec.Target, "doer turn", err)
	}

	msgType := roles.ClassifyReport(report)
	msg := session.Message{
		Timestamp: time.Now().UTC(),
		From:      dec.Target,
		To:        session.DirectorID,
		Type:      msgType,
		Content:   report,
	}
	if err := r.recordTurn(msg); err != nil {
		return nil, err
	}

	if taskID != "" {
		switch msgType {
		case session.MessageQuestion:
			if _, err := r.board.Block(taskID, session.DirectorID, "awaiting clarification", dec.Target); err != nil {
				return nil, r.fatal(fmt.Errorf("blocking task: %w", err))
			}
		case session.MessageResponse:
			if _, err := r.board.Complete(taskID, dec.Target); err != nil {
				return nil, r.fatal(fmt.Errorf("completing task: %w", err))
			}
			if a := r.mgr.Agent(dec.Target); a != nil {
				a.CurrentTaskID = ""
			}
		}
		if err := r.saveBoard(); err != nil {
			return nil, err
		}
	}
	status := session.AgentWaiting
	if msgType == session.MessageQuestion {
		status = session.AgentBlocked
	}
	r.setAgentStatus(dec.Target, status)

	if r.mgr.Exhausted() {
		return nil, r.complete("budget exhausted")
	}
	return []step{{kind: stepDirector, prompt: r.director.NextPrompt(msg, r.mgr.Session().Phase)}}, nil
}

// recordTurn persists one message and publishes it. Persistence failure is
// fatal to the mission.
func (r *Router) recordTurn(msg session.Message) error {
	if err := r.mgr.RecordTurn(msg); err != nil {
		return r.fatal(err)
	}
	r.recent = append(r.recent, msg)
	r.bus.Publish(events.TopicMessage, events.MessageEvent{
		SessionID: r.SessionID(),
		Message:   msg,
	})
	return nil
}

func (r *Router) recordDecision(dec session.Decision, reply string) error {
	rec := session.DecisionRecord{
		Timestamp: time.Now().UTC(),
		Kind:      dec.Kind,
		Target:    dec.Target,
		Issue:     dec.Instruction,
		Ruling:    dec.Reasoning,
		Context:   firstLine(reply),
	}
	if err := r.store.AppendDecision(r.SessionID(), rec); err != nil {
		return r.fatal(fmt.Errorf("appending decision: %w", err))
	}
	r.bus.Publish(events.TopicDecision, events.DecisionEvent{
		SessionID: r.SessionID(),
		Decision:  dec,
	})
	return nil
}

func (r *Router) saveBoard() error {
	if err := r.store.SaveBoard(r.SessionID(), r.board.Snapshot()); err != nil {
		return r.fatal(fmt.Errorf("saving board: %w", err))
	}
	return nil
}

// peerPreviews collects short redacted previews of the most recent output
// from other doers. The director relays substance; previews only give a
// doer awareness that teammates are active.
func (r *Router) peerPreviews(exclude string) []string {
	const maxPreviews = 3
	const maxLen = 160

	var out []string
	for i := len(r.recent) - 1; i >= 0 && len(out) < maxPreviews; i-- {
		m := r.recent[i]
		if m.From == exclude || m.From == session.DirectorID {
			continue
		}
		out = append(out, fmt.Sprintf("%s: %s", m.From, clip(firstLine(m.Content), maxLen)))
	}
	// Oldest first reads more naturally in a prompt.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// stepFailure handles an agent adapter failure: one error event, pause the
// session, and stop the loop. The board is left exactly as it was before
// the failed step so a resume picks up cleanly.
func (r *Router) stepFailure(agentID, stepName string, cause error) error {
	r.log.Error("step failed", "session", r.SessionID(), "agent", agentID, "step", stepName, "error", cause)
	r.bus.Publish(events.TopicRun, events.ErrorEvent{
		SessionID: r.SessionID(),
		AgentID:   agentID,
		Step:      stepName,
		Err:       cause,
	})
	return r.pause(fmt.Sprintf("%s failed: %v", stepName, cause))
}

func (r *Router) complete(reason string) error {
	if err := r.mgr.Complete(reason); err != nil {
		return r.fatal(err)
	}
	r.log.Info("mission completed", "session", r.SessionID(), "reason", reason, "turns", r.mgr.Session().TurnsUsed)
	r.publishDone()
	return nil
}

func (r *Router) pause(reason string) error {
	if err := r.mgr.Pause(reason); err != nil {
		return r.fatal(err)
	}
	r.log.Info("mission paused", "session", r.SessionID(), "reason", reason)
	r.publishDone()
	return nil
}

// fatal marks the session failed on a best-effort basis and returns the
// original error. Persistence being down is the one condition the mission
// cannot survive.
func (r *Router) fatal(cause error) error {
	r.log.Error("fatal persistence error", "session", r.SessionID(), "error", cause)
	if err := r.mgr.Fail(cause.Error()); err != nil {
		r.log.Error("marking session failed", "session", r.SessionID(), "error", err)
		return errors.Join(cause, err)
	}
	r.publishDone()
	return cause
}

func (r *Router) publishDone() {
	s := r.mgr.Session()
	r.bus.Publish(events.TopicRun, events.CompletedEvent{
		SessionID: s.ID,
		Status:    s.Status,
		Reason:    s.Reason,
	})
}

func (r *Router) setAgentStatus(id string, status session.AgentStatus) {
	r.mgr.SetAgentStatus(id, status)
	r.bus.Publish(events.TopicAgent, events.AgentStatusEvent{
		SessionID: r.SessionID(),
		AgentID:   id,
		Status:    status,
	})
}

func completionReason(reasoning string) string {
	if reasoning == "" {
		return "mission complete"
	}
	return reasoning
}

// clip shortens s to at most max bytes without splitting a rune.
func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + "..."
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
