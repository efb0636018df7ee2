// Package dispatch implements the Execution Dispatcher (spec §4.5,
// §4.8, component C9): sanitize → rate-limit → resolve → authorize →
// execute → audit, with a defined error terminal for every failure
// mode and exactly one audit entry per terminal outcome.
package dispatch

import (
	"github.com/agentor/agentor/pkg/audit"
	"github.com/agentor/agentor/pkg/capability"
	"github.com/agentor/agentor/pkg/ratelimit"
	"github.com/agentor/agentor/pkg/sanitize"
	"github.com/agentor/agentor/pkg/skill"
)

// State is one point in the dispatcher's state machine (spec §4.8):
// Idle → Sanitizing → Admitting → Resolving → Authorizing → Executing
// → Auditing → Idle, with Refused/Denied/Failed terminals that still
// pass through Auditing before returning to Idle.
type State string

const (
	StateIdle        State = "idle"
	StateSanitizing  State = "sanitizing"
	StateAdmitting   State = "admitting"
	StateResolving   State = "resolving"
	StateAuthorizing State = "authorizing"
	StateExecuting   State = "executing"
	StateAuditing    State = "auditing"
	StateRefused     State = "refused"
	StateDenied      State = "denied"
	StateFailed      State = "failed"
)

// Dispatcher ties together C2 (sanitizer), C3 (rate limiter), C7
// (registry), and C4 (audit log) behind the dispatch(session_id,
// raw_content, call_builder) wrapper from spec §4.5.
type Dispatcher struct {
	Limiter          *ratelimit.Limiter
	Registry         *skill.Registry
	Audit            *audit.Log
	MaxMessageLength int
}

// CallBuilder turns sanitized raw content into a skill.Call. The
// dispatcher does not interpret tool-call semantics itself (spec §1);
// callers (the conversation loop) supply this.
type CallBuilder func(sanitized string) (skill.Call, error)

// Outcome is the terminal result of one dispatch, carrying enough
// detail for the caller to build a response or error frame.
type Outcome struct {
	State  State
	Result skill.Result
	Reason string
}

// Dispatch runs the full pipeline for one inbound turn. Every terminal
// outcome — success, denied, error — produces exactly one audit entry
// before Dispatch returns (spec §4.5, invariant 1).
func (d *Dispatcher) Dispatch(sessionID, rawContent string, permissions *capability.Set, build CallBuilder) Outcome {
	sanitized := sanitize.Sanitize(rawContent, d.MaxMessageLength)
	if sanitized.Outcome == sanitize.OutcomeRejected {
		d.auditTerminal(sessionID, "", audit.OutcomeError, "sanitizer rejected: "+sanitized.Reason)
		return Outcome{State: StateRefused, Reason: sanitized.Reason}
	}

	if !d.Limiter.Check(sessionID) {
		d.auditTerminal(sessionID, "", audit.OutcomeDenied, "rate limit exceeded")
		return Outcome{State: StateDenied, Reason: "rate limit exceeded"}
	}

	call, err := build(sanitized.Value)
	if err != nil {
		d.auditTerminal(sessionID, "", audit.OutcomeError, "call_builder failed: "+err.Error())
		return Outcome{State: StateFailed, Reason: err.Error()}
	}

	// Registry.Execute performs resolve, authorize, execute, and its
	// own audit entry (spec §4.5 execute(call, permissions)); the
	// wrapper above covers the sanitize/admit stages that precede it.
	result := d.Registry.Execute(call, permissions, sessionID, d.Audit)

	state := StateAuditing
	if result.IsError {
		state = StateFailed
	}
	return Outcome{State: state, Result: result}
}

func (d *Dispatcher) auditTerminal(sessionID, skillName string, outcome audit.Outcome, detail string) {
	if d.Audit == nil {
		return
	}
	d.Audit.Log(audit.Entry{
		SessionID: sessionID,
		Action:    "dispatch",
		SkillName: skillName,
		Outcome:   outcome,
		Detail:    detail,
	})
}
