// Package skill defines the polymorphic contract every tool satisfies
// (spec §3, §4.5, component C5) and the name-indexed registry that
// dispatches calls against it (component C7).
//
// Grounded on the teacher's pkg/tools/definition.go (Definition/
// ToolCall/ToolResult shape) for the call/result contract, and
// pkg/skill/registry.go's RWMutex-protected map for the registry's
// concurrency style.
package skill

import (
	"encoding/json"

	"github.com/agentor/agentor/pkg/capability"
)

// Descriptor is the static metadata a skill advertises to the
// assistant and to the registry (spec §3).
type Descriptor struct {
	Name                 string                  `json:"name"`
	Description          string                  `json:"description"`
	ParametersSchema     json.RawMessage         `json:"parameters_schema"`
	RequiredCapabilities []capability.Capability `json:"required_capabilities"`
}

// Call is an inbound tool invocation. ID round-trips unchanged into
// the matching Result.
type Call struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Result is a skill's response to a Call.
type Result struct {
	CallID   string `json:"call_id"`
	Content  string `json:"content"`
	IsError  bool   `json:"is_error"`
	IsDenied bool   `json:"is_denied,omitempty"`
}

// ErrorResult builds a Result with IsError set, round-tripping callID.
func ErrorResult(callID, content string) Result {
	return Result{CallID: callID, Content: content, IsError: true}
}

// DeniedResult builds a Result for a capability check that failed
// against the skill's own runtime-resolved path/host/command (spec
// §4.5 step 2). Built-ins declare placeholder capabilities the
// registry can only authorize by tag, so the skill is where the real,
// argument-specific authorization decision is made; the registry maps
// IsDenied to the audit outcome "denied" rather than "error"
// (invariant 2, scenario S1).
func DeniedResult(callID, content string) Result {
	return Result{CallID: callID, Content: content, IsError: true, IsDenied: true}
}

// OKResult builds a successful Result, round-tripping callID.
func OKResult(callID, content string) Result {
	return Result{CallID: callID, Content: content, IsError: false}
}

// Skill is the uniform dispatch entry across native and WASM
// implementations (spec §9 "trait-object polymorphism over skills" —
// resolved here as a Go interface rather than a tagged variant, since
// both variants share identical call semantics from the registry's
// point of view).
type Skill interface {
	Descriptor() Descriptor
	Execute(call Call) Result
}
