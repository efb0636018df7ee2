// Package wasmhost implements the WASM sandbox host described in
// spec §4.6 (component C6): compile-once/instantiate-per-call guest
// execution behind a deny-by-default host interface.
//
// Grounded on the teacher's pkg/sandbox/sandbox.go for the overall
// "deny by default, explicit capability to expand" shape of a
// sandboxed execution boundary; the actual guest runtime is new to
// this module (the teacher has no WASM dependency at all) and is
// built on github.com/tetratelabs/wazero, the WASM runtime present in
// the retrieval pack's agent-runtime manifests (mateoblack-sentinel,
// steveyegge-vc).
package wasmhost

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// DefaultFuelBudget is the default instruction-count budget per call
// (spec §4.6).
const DefaultFuelBudget uint64 = 1_000_000

// nsPerFuelUnit converts a fuel budget into a wall-clock ceiling.
// wazero, unlike wasmtime, does not expose native per-instruction fuel
// metering; this host approximates the spec's fuel contract with a
// deadline derived from the budget, so a guest that would have
// exhausted wasmtime-style fuel instead exhausts its wall-clock
// allowance. See DESIGN.md for the tradeoff.
const nsPerFuelUnit = 200 * time.Nanosecond

// State is one point in the per-call state machine (spec §4.6:
// "Loaded → Instantiating → Running → (Finished | Trapped |
// FuelExhausted)").
type State string

const (
	StateLoaded        State = "loaded"
	StateInstantiating State = "instantiating"
	StateRunning       State = "running"
	StateFinished      State = "finished"
	StateTrapped       State = "trapped"
	StateFuelExhausted State = "fuel_exhausted"
)

// CompiledGuest is a module parsed and validated once at
// skill-registration time; the compiled artifact is cached and shared
// across calls (spec §4.6 "Loading").
type CompiledGuest struct {
	name     string
	compiled wazero.CompiledModule
}

// Host owns the shared wazero runtime. Per-call Store values are
// created fresh by InstantiateModule and are never shared across
// calls (spec §5: "per-call Store values are thread-local to the
// worker").
type Host struct {
	runtime    wazero.Runtime
	fuelBudget uint64
	mu         sync.Mutex
	guests     map[string]*CompiledGuest
}

// New creates a Host with the shared wazero runtime and WASI preview-1
// imports instantiated once.
func New(ctx context.Context, fuelBudget uint64) (*Host, error) {
	if fuelBudget == 0 {
		fuelBudget = DefaultFuelBudget
	}
	// CloseOnContextDone makes a running guest stop when the per-call
	// deadline in Execute expires; without it the deadline is ignored.
	runtime := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		runtime.Close(ctx)
		return nil, fmt.Errorf("wasmhost: instantiate wasi: %w", err)
	}
	return &Host{
		runtime:    runtime,
		fuelBudget: fuelBudget,
		guests:     make(map[string]*CompiledGuest),
	}, nil
}

// Load compiles a guest module's bytes once and caches the artifact
// under name for later Execute calls.
func (h *Host) Load(ctx context.Context, name string, wasmBytes []byte) error {
	compiled, err := h.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return fmt.Errorf("wasmhost: compile %s: %w", name, err)
	}
	h.mu.Lock()
	h.guests[name] = &CompiledGuest{name: name, compiled: compiled}
	h.mu.Unlock()
	return nil
}

// Result is the outcome of one guest execution.
type Result struct {
	State   State
	Stdout  string
	Stderr  string
	IsError bool
}

// Execute instantiates a fresh instance of the named guest, passes
// argumentsJSON as the sole argv entry after the program name, runs
// _start, and tears the instance down (spec §4.6 "Per-call
// instantiation").
func (h *Host) Execute(ctx context.Context, name string, argumentsJSON string) Result {
	h.mu.Lock()
	guest, ok := h.guests[name]
	h.mu.Unlock()
	if !ok {
		return Result{State: StateTrapped, IsError: true, Stderr: "wasmhost: unknown guest " + name}
	}

	budgetCtx, cancel := context.WithTimeout(ctx, fuelDuration(h.fuelBudget))
	defer cancel()

	var stdout, stderr bytes.Buffer
	config := wazero.NewModuleConfig().
		WithStdout(&stdout).
		WithStderr(&stderr).
		WithArgs(name, argumentsJSON).
		WithName(fmt.Sprintf("%s-%d", name, time.Now().UnixNano()))

	mod, err := h.runtime.InstantiateModule(budgetCtx, guest.compiled, config)
	if mod != nil {
		defer mod.Close(context.Background())
	}
	if err != nil {
		if budgetCtx.Err() == context.DeadlineExceeded {
			return Result{State: StateFuelExhausted, IsError: true, Stderr: "fuel budget exhausted"}
		}
		return Result{State: StateTrapped, IsError: true, Stdout: stdout.String(), Stderr: errString(err)}
	}

	return Result{State: StateFinished, IsError: false, Stdout: stdout.String(), Stderr: stderr.String()}
}

// Close releases the shared runtime and every cached compiled module.
func (h *Host) Close(ctx context.Context) error {
	return h.runtime.Close(ctx)
}

func fuelDuration(budget uint64) time.Duration {
	return time.Duration(budget) * nsPerFuelUnit
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
