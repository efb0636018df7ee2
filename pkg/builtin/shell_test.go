package builtin

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/agentor/agentor/pkg/capability"
	"github.com/agentor/agentor/pkg/skill"
	"github.com/stretchr/testify/assert"
)

func TestShellRequiresCapabilityPrefix(t *testing.T) {
	s := &ShellSkill{Permissions: capability.NewSet(capability.ShellExec("echo "))}
	args, _ := json.Marshal(map[string]any{"command": "rm -rf /"})
	result := s.Execute(skill.Call{ID: "1", Arguments: args})
	assert.True(t, result.IsError)
	assert.True(t, result.IsDenied)
}

func TestShellRunsArgvVector(t *testing.T) {
	s := &ShellSkill{Permissions: capability.NewSet(capability.ShellExec("echo "))}
	args, _ := json.Marshal(map[string]any{"command": "echo hello"})
	result := s.Execute(skill.Call{ID: "1", Arguments: args})
	assert.False(t, result.IsError)
	assert.Contains(t, result.Content, "hello")
}

func TestShellTimesOut(t *testing.T) {
	s := &ShellSkill{
		Permissions: capability.NewSet(capability.ShellExec("sleep")),
		Timeout:     50 * time.Millisecond,
	}
	args, _ := json.Marshal(map[string]any{"command": "sleep 5"})
	result := s.Execute(skill.Call{ID: "1", Arguments: args})
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content, "timed out")
}
