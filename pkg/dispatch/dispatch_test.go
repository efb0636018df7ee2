package dispatch

import (
	"errors"
	"testing"

	"github.com/agentor/agentor/pkg/audit"
	"github.com/agentor/agentor/pkg/capability"
	"github.com/agentor/agentor/pkg/ratelimit"
	"github.com/agentor/agentor/pkg/skill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSkill struct {
	name string
}

func (s *stubSkill) Descriptor() skill.Descriptor {
	return skill.Descriptor{Name: s.name}
}

func (s *stubSkill) Execute(call skill.Call) skill.Result {
	return skill.OKResult(call.ID, "handled: "+string(call.Arguments))
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *skill.Registry) {
	t.Helper()
	reg := skill.NewRegistry()
	reg.Register(&stubSkill{name: "echo"})

	auditLog, err := audit.New(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { auditLog.Close() })

	return &Dispatcher{
		Limiter:          ratelimit.New(10, 10),
		Registry:         reg,
		Audit:            auditLog,
		MaxMessageLength: 1000,
	}, reg
}

func echoBuilder(sanitized string) (skill.Call, error) {
	return skill.Call{ID: "1", Name: "echo", Arguments: []byte(sanitized)}, nil
}

func TestDispatchHappyPath(t *testing.T) {
	d, _ := newTestDispatcher(t)
	outcome := d.Dispatch("s1", "hello", capability.NewSet(), echoBuilder)
	assert.Equal(t, StateAuditing, outcome.State)
	assert.False(t, outcome.Result.IsError)
	assert.Contains(t, outcome.Result.Content, "hello")
}

func TestDispatchRefusesOverlongInput(t *testing.T) {
	d, _ := newTestDispatcher(t)
	d.MaxMessageLength = 3
	outcome := d.Dispatch("s1", "this is too long", capability.NewSet(), echoBuilder)
	assert.Equal(t, StateRefused, outcome.State)
}

func TestDispatchDeniesOnRateLimit(t *testing.T) {
	d, _ := newTestDispatcher(t)
	d.Limiter = ratelimit.New(1, 0)

	first := d.Dispatch("s1", "hello", capability.NewSet(), echoBuilder)
	assert.Equal(t, StateAuditing, first.State)

	second := d.Dispatch("s1", "hello", capability.NewSet(), echoBuilder)
	assert.Equal(t, StateDenied, second.State)
}

func TestDispatchFailsOnCallBuilderError(t *testing.T) {
	d, _ := newTestDispatcher(t)
	outcome := d.Dispatch("s1", "hello", capability.NewSet(), func(string) (skill.Call, error) {
		return skill.Call{}, errors.New("boom")
	})
	assert.Equal(t, StateFailed, outcome.State)
}

func TestDispatchUnknownSkillIsFailed(t *testing.T) {
	d, _ := newTestDispatcher(t)
	outcome := d.Dispatch("s1", "hello", capability.NewSet(), func(sanitized string) (skill.Call, error) {
		return skill.Call{ID: "1", Name: "missing"}, nil
	})
	assert.Equal(t, StateFailed, outcome.State)
	assert.True(t, outcome.Result.IsError)
}
