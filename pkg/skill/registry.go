package skill

import (
	"sync"

	"github.com/agentor/agentor/pkg/audit"
	"github.com/agentor/agentor/pkg/capability"
)

// Registry is a name-indexed, read-mostly map of immutable skill
// handles. Hot reload swaps the entire table atomically under the
// write lock (spec §5: "writers take exclusive access and swap the
// entire table atomically").
type Registry struct {
	mu     sync.RWMutex
	skills map[string]Skill
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{skills: make(map[string]Skill)}
}

// Register inserts or replaces a skill by its descriptor name.
func (r *Registry) Register(s Skill) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skills[s.Descriptor().Name] = s
}

// Replace atomically swaps the entire table, used by config hot reload.
func (r *Registry) Replace(skills map[string]Skill) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skills = skills
}

// Lookup returns the skill registered under name, if any.
func (r *Registry) Lookup(name string) (Skill, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.skills[name]
	return s, ok
}

// Names returns the registered skill names, for diagnostics and tests.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.skills))
	for n := range r.skills {
		names = append(names, n)
	}
	return names
}

// Execute implements spec §4.5's execute(call, permissions): resolve
// by name, authorize every required capability via the semantic
// predicates, invoke, and record exactly one audit entry describing
// the terminal outcome.
func (r *Registry) Execute(call Call, permissions *capability.Set, sessionID string, auditLog *audit.Log) Result {
	s, ok := r.Lookup(call.Name)
	if !ok {
		if auditLog != nil {
			auditLog.Log(audit.Entry{
				SessionID: sessionID,
				Action:    "execute",
				SkillName: call.Name,
				Outcome:   audit.OutcomeError,
				Detail:    "unknown skill",
			})
		}
		return ErrorResult(call.ID, "unknown skill: "+call.Name)
	}

	desc := s.Descriptor()
	for _, required := range desc.RequiredCapabilities {
		if permissions == nil || !permissions.Satisfies(required) {
			if auditLog != nil {
				auditLog.Log(audit.Entry{
					SessionID: sessionID,
					Action:    "execute",
					SkillName: call.Name,
					Outcome:   audit.OutcomeDenied,
					Detail:    "permission denied",
				})
			}
			return ErrorResult(call.ID, "Permission denied: missing required capability")
		}
	}

	result := s.Execute(call)

	// A skill's own IsDenied signal means the failure was a runtime-
	// resolved authorization check (path/host/command against the
	// skill's Permissions), not a generic execution error — record it
	// as "denied" so invariant 2 / scenario S1 hold even though the
	// registry-level check above only ever sees tag-only placeholder
	// capabilities.
	outcome := audit.OutcomeSuccess
	switch {
	case result.IsDenied:
		outcome = audit.OutcomeDenied
	case result.IsError:
		outcome = audit.OutcomeError
	}
	if auditLog != nil {
		auditLog.Log(audit.Entry{
			SessionID: sessionID,
			Action:    "execute",
			SkillName: call.Name,
			Outcome:   outcome,
		})
	}
	return result
}
