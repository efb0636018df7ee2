package wasmhost

import (
	"context"

	"github.com/agentor/agentor/pkg/skill"
)

// WasmSkill adapts a compiled guest module to the skill.Skill
// interface (spec §3 "Skill ... Variants: NativeSkill, WasmSkill").
type WasmSkill struct {
	host       *Host
	guestName  string
	descriptor skill.Descriptor
}

// NewWasmSkill builds a WasmSkill bound to a guest already Load-ed
// into host under guestName.
func NewWasmSkill(host *Host, guestName string, descriptor skill.Descriptor) *WasmSkill {
	descriptor.Name = guestName
	return &WasmSkill{host: host, guestName: guestName, descriptor: descriptor}
}

func (w *WasmSkill) Descriptor() skill.Descriptor {
	return w.descriptor
}

func (w *WasmSkill) Execute(call skill.Call) skill.Result {
	result := w.host.Execute(context.Background(), w.guestName, string(call.Arguments))
	if result.IsError {
		detail := result.Stderr
		if detail == "" {
			detail = string(result.State)
		}
		return skill.ErrorResult(call.ID, detail)
	}
	return skill.OKResult(call.ID, result.Stdout)
}
