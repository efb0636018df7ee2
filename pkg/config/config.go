// Package config loads and hot-reloads the TOML configuration
// described in spec §6: security, skills, tool_groups, and webhooks
// sections, watched by fsnotify with a debounced reload that leaves
// the prior snapshot in effect on parse failure.
//
// Grounded on the teacher's large pkg/config/config.go for the overall
// "one struct, loaded once, swapped atomically on reload" shape; the
// teacher parses YAML, this implementation parses TOML per spec §6,
// using github.com/BurntSushi/toml (the TOML parser present across the
// retrieval pack's agent-runtime manifests).
package config

import (
	"sync/atomic"
	"time"

	"github.com/BurntSushi/toml"
)

// CapabilityConfig mirrors one declared capability entry under a
// skill's capabilities subsection.
type CapabilityConfig struct {
	Tag     string   `toml:"tag"`
	Entries []string `toml:"entries"`
}

// SkillConfig describes one entry in the skills section.
type SkillConfig struct {
	Name             string             `toml:"name"`
	Type             string             `toml:"type"` // "wasm" or "native"
	Path             string             `toml:"path"`
	Description      string             `toml:"description"`
	ParametersSchema string             `toml:"parameters_schema"`
	Capabilities     []CapabilityConfig `toml:"capabilities"`
}

// ToolGroup names a set of skill names enabled together.
type ToolGroup struct {
	Name   string   `toml:"name"`
	Skills []string `toml:"skills"`
}

// WebhookConfig describes one `/webhook/{name}` endpoint.
type WebhookConfig struct {
	Name              string `toml:"name"`
	Secret            string `toml:"secret"`
	PromptTemplate    string `toml:"prompt_template"`
	SessionPerRequest bool   `toml:"session_per_request"`
	SessionHeader     string `toml:"session_header"`
}

// SecurityConfig holds the process-wide rate-limit and sanitizer knobs.
type SecurityConfig struct {
	MaxTokens           float64 `toml:"max_tokens"`
	RefillRate          float64 `toml:"refill_rate"`
	MaxIdleSeconds      int     `toml:"max_idle_seconds"`
	MaxMessageLength    int     `toml:"max_message_length"`
	FuelBudget          uint64  `toml:"fuel_budget"`
	HTTPTimeoutSeconds  int     `toml:"http_timeout_seconds"`
	ShellTimeoutSeconds int     `toml:"shell_timeout_seconds"`
}

// Config is the full parsed configuration document.
type Config struct {
	Security   SecurityConfig  `toml:"security"`
	Skills     []SkillConfig   `toml:"skills"`
	ToolGroups []ToolGroup     `toml:"tool_groups"`
	Webhooks   []WebhookConfig `toml:"webhooks"`
}

// defaults matches the spec's default constants (§5: HTTP fetch 30s,
// shell 60s; §4.6: fuel budget 1,000,000).
func defaults() Config {
	return Config{
		Security: SecurityConfig{
			MaxTokens:           10,
			RefillRate:          1,
			MaxIdleSeconds:      300,
			MaxMessageLength:    100_000,
			FuelBudget:          1_000_000,
			HTTPTimeoutSeconds:  30,
			ShellTimeoutSeconds: 60,
		},
	}
}

// Load parses path into a Config seeded with defaults for unset fields.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Snapshot is an atomically-swappable pointer to the currently active
// Config, replaced wholesale on reload. Values a caller copied out of
// Get earlier are not updated by a reload.
type Snapshot struct {
	value atomic.Pointer[Config]
}

// NewSnapshot wraps an initial Config.
func NewSnapshot(cfg *Config) *Snapshot {
	s := &Snapshot{}
	s.value.Store(cfg)
	return s
}

// Get returns the currently active Config.
func (s *Snapshot) Get() *Config {
	return s.value.Load()
}

// Replace atomically swaps in a new Config.
func (s *Snapshot) Replace(cfg *Config) {
	s.value.Store(cfg)
}

// ReloadResult reports the outcome of one watcher-triggered reload
// attempt, for logging by the caller.
type ReloadResult struct {
	Applied bool
	Err     error
	At      time.Time
}
