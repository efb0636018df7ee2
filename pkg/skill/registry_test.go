package skill

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/agentor/agentor/pkg/audit"
	"github.com/agentor/agentor/pkg/capability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoSkill struct {
	required []capability.Capability
}

func (e *echoSkill) Descriptor() Descriptor {
	return Descriptor{Name: "echo", Description: "echoes input", RequiredCapabilities: e.required}
}

func (e *echoSkill) Execute(call Call) Result {
	return OKResult(call.ID, "Echo: "+string(call.Arguments))
}

// denyingSkill always refuses its own runtime-resolved authorization
// check, the way a built-in does when it rejects a blocked path/host/
// command (spec §4.7), independent of whatever the registry's coarse,
// tag-only check already allowed.
type denyingSkill struct{}

func (d *denyingSkill) Descriptor() Descriptor {
	return Descriptor{Name: "denier", RequiredCapabilities: []capability.Capability{capability.FileRead()}}
}

func (d *denyingSkill) Execute(call Call) Result {
	return DeniedResult(call.ID, "blocked pattern")
}

func newTestAudit(t *testing.T) *audit.Log {
	t.Helper()
	log, err := audit.New(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })
	return log
}

func TestRegistryLookupAndExecute(t *testing.T) {
	r := NewRegistry()
	r.Register(&echoSkill{})

	log := newTestAudit(t)
	result := r.Execute(Call{ID: "1", Name: "echo", Arguments: []byte(`"hi"`)}, capability.NewSet(), "s1", log)
	assert.False(t, result.IsError)
	assert.Equal(t, "1", result.CallID)
}

func TestRegistryExecuteUnknownSkill(t *testing.T) {
	r := NewRegistry()
	log := newTestAudit(t)
	result := r.Execute(Call{ID: "1", Name: "missing"}, capability.NewSet(), "s1", log)
	assert.True(t, result.IsError)
}

func TestRegistryExecuteDeniesMissingCapability(t *testing.T) {
	r := NewRegistry()
	r.Register(&echoSkill{required: []capability.Capability{capability.FileRead("/data")}})

	log := newTestAudit(t)
	result := r.Execute(Call{ID: "1", Name: "echo"}, capability.NewSet(), "s1", log)
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content, "Permission denied")
}

func TestRegistryExecuteAuthorizesWithSatisfyingCapability(t *testing.T) {
	r := NewRegistry()
	r.Register(&echoSkill{required: []capability.Capability{capability.FileRead("/data")}})

	perms := capability.NewSet(capability.FileRead("/data"))
	log := newTestAudit(t)
	result := r.Execute(Call{ID: "1", Name: "echo"}, perms, "s1", log)
	assert.False(t, result.IsError)
}

// TestRegistryExecuteAuditsSkillLevelDenialAsDenied covers scenario S1
// and invariant 2 end-to-end: a skill that grants broad, tag-only
// registry-level authorization but refuses the actual call (the shape
// every built-in takes against a blocked path/host/command) must
// still land in the audit log as outcome "denied", not "error".
func TestRegistryExecuteAuditsSkillLevelDenialAsDenied(t *testing.T) {
	r := NewRegistry()
	r.Register(&denyingSkill{})

	dir := t.TempDir()
	log, err := audit.New(dir, nil)
	require.NoError(t, err)

	// The permission set satisfies the registry-level, tag-only
	// placeholder requirement, so authorization above the skill
	// succeeds; only the skill's own check fails.
	perms := capability.NewSet(capability.FileRead())
	result := r.Execute(Call{ID: "1", Name: "denier"}, perms, "s1", log)
	require.NoError(t, log.Close())

	assert.True(t, result.IsError)

	lines := readAuditLines(t, filepath.Join(dir, "audit.jsonl"))
	require.Len(t, lines, 1)
	var entry audit.Entry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, audit.OutcomeDenied, entry.Outcome)
}

func readAuditLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	return lines
}

func TestRegistryReplaceSwapsAtomically(t *testing.T) {
	r := NewRegistry()
	r.Register(&echoSkill{})
	_, ok := r.Lookup("echo")
	require.True(t, ok)

	r.Replace(map[string]Skill{})
	_, ok = r.Lookup("echo")
	require.False(t, ok)
}
