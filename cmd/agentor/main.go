// Command agentor runs the skill execution substrate: it loads
// configuration, builds the capability-checked skill registry, and
// serves the duplex WebSocket transport, webhook endpoints, and health
// check described in spec §6.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agentor/agentor/pkg/audit"
	"github.com/agentor/agentor/pkg/builtin"
	"github.com/agentor/agentor/pkg/capability"
	"github.com/agentor/agentor/pkg/config"
	"github.com/agentor/agentor/pkg/dispatch"
	"github.com/agentor/agentor/pkg/logging"
	"github.com/agentor/agentor/pkg/ratelimit"
	"github.com/agentor/agentor/pkg/session"
	"github.com/agentor/agentor/pkg/skill"
	"github.com/agentor/agentor/pkg/tracing"
	"github.com/agentor/agentor/pkg/transport"
	"github.com/agentor/agentor/pkg/wasmhost"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func main() {
	configPath := flag.String("config", "agentor.toml", "path to the TOML configuration file")
	dataDir := flag.String("data-dir", "./data", "directory for audit logs, operational logs, and sessions")
	addr := flag.String("addr", ":8080", "HTTP listen address")
	flag.Parse()

	if err := run(*configPath, *dataDir, *addr); err != nil {
		slog.Error("agentor exited with error", "error", err)
		os.Exit(1)
	}
}

func run(configPath, dataDir, addr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logging.New(dataDir)
	if err != nil {
		return err
	}
	defer logger.Close()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	snapshot := config.NewSnapshot(cfg)

	watcher, err := config.NewWatcher(configPath, snapshot, 500*time.Millisecond, func(r config.ReloadResult) {
		if r.Err != nil {
			logger.Warn(logging.CategoryConfig, "reload_failed", "keeping previous config", map[string]any{"error": r.Err.Error()})
			return
		}
		logger.Info(logging.CategoryConfig, "reload_applied", "config reloaded", nil)
	})
	if err != nil {
		return err
	}
	defer watcher.Close()

	auditLog, err := audit.New(dataDir, func(msg string, warnErr error) {
		logger.Error(logging.CategoryDispatch, "audit_warning", msg, map[string]any{"error": warnErr.Error()})
	})
	if err != nil {
		return err
	}
	defer auditLog.Close()

	store, err := session.NewFileStore(dataDir)
	if err != nil {
		return err
	}

	tp, err := tracing.NewStdoutProvider(ctx, "agentor")
	if err != nil {
		return err
	}
	defer tp.Shutdown(ctx)

	wasmHost, err := wasmhost.New(ctx, snapshot.Get().Security.FuelBudget)
	if err != nil {
		return err
	}
	defer wasmHost.Close(context.Background())

	registry := buildRegistry(snapshot.Get(), wasmHost)

	// sessionPerms is the dispatcher-level permission set Registry.Execute
	// authorizes against. Every built-in declares a tag-only placeholder
	// requirement (see pkg/builtin), satisfied as soon as sessionPerms
	// carries any capability of that tag, however narrow — the skill
	// itself re-checks the actual resolved path/host/command against its
	// own config-derived Permissions before touching anything (defense
	// in depth, spec §4.5 step 2). WASM skills have no such self-check
	// (the guest has no host resources to re-validate against), so for
	// them sessionPerms carrying the real configured entries *is* the
	// authorization; unioning every skill's declared capabilities here
	// satisfies both cases without inventing a separate per-user
	// identity layer the spec doesn't define.
	sessionPerms := sessionPermissions(snapshot.Get())

	sec := snapshot.Get().Security
	d := &dispatch.Dispatcher{
		Limiter:          ratelimit.New(sec.MaxTokens, sec.RefillRate),
		Registry:         registry,
		Audit:            auditLog,
		MaxMessageLength: sec.MaxMessageLength,
	}

	handler := func(sessionID uuid.UUID, content string) (string, error) {
		sess, loadErr := store.Load(sessionID)
		if loadErr != nil {
			sess = session.New()
			sess.ID = sessionID
		}
		sess.AppendMessage(session.Message{Role: "user", Content: content})

		// The conversation/agent loop that decides which skill a turn
		// invokes is explicitly out of scope (spec §1); this wrapper
		// expects the transport content to already be a serialized
		// ToolCall, matching the dispatcher's documented call_builder seam.
		outcome := d.Dispatch(sessionID.String(), content, sessionPerms, func(sanitized string) (skill.Call, error) {
			var call skill.Call
			if err := json.Unmarshal([]byte(sanitized), &call); err != nil {
				return skill.Call{}, err
			}
			if call.ID == "" {
				call.ID = uuid.NewString()
			}
			return call, nil
		})

		sess.AppendMessage(session.Message{Role: "assistant", Content: outcome.Result.Content})
		_ = store.Save(sess)

		return outcome.Result.Content, nil
	}

	router := chi.NewRouter()
	router.Get("/health", transport.Health)
	router.Handle("/ws", transport.NewServer(handler, slog.Default()))

	webhooks := make([]transport.WebhookConfig, 0, len(snapshot.Get().Webhooks))
	for _, wh := range snapshot.Get().Webhooks {
		webhooks = append(webhooks, transport.WebhookConfig{
			Name:              wh.Name,
			Secret:            wh.Secret,
			PromptTemplate:    wh.PromptTemplate,
			SessionPerRequest: wh.SessionPerRequest,
			SessionHeader:     wh.SessionHeader,
		})
	}
	// Rendering the prompt is as far as the webhook surface goes (spec
	// §6 scenario S4 only requires the rendered prompt be logged); the
	// conversation/agent loop that would turn a free-text prompt into a
	// skill.Call is explicitly out of scope (spec §1).
	transport.RegisterWebhooks(router, webhooks, func(sessionID uuid.UUID, name, prompt string) error {
		logger.Info(logging.CategoryTransport, "webhook_received", prompt, map[string]any{
			"webhook":    name,
			"session_id": sessionID.String(),
		})
		return nil
	})

	httpServer := &http.Server{Addr: addr, Handler: router}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info(logging.CategoryTransport, "listening", "agentor listening", map[string]any{"addr": addr})
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// buildRegistry wires the built-in skills (C8), deriving each one's
// permission set from the capabilities declared under its name in the
// skills section of the config (spec §6), and loads every configured
// WASM skill (C6) into the shared sandbox host. A built-in with no
// matching config entry gets an empty set and will deny every call; a
// WASM skill whose module fails to read or compile is logged and
// skipped rather than aborting startup.
func buildRegistry(cfg *config.Config, wasmHost *wasmhost.Host) *skill.Registry {
	registry := skill.NewRegistry()

	permsFor := func(name string) *capability.Set {
		for _, sc := range cfg.Skills {
			if sc.Name != name {
				continue
			}
			set := capability.NewSet()
			for _, c := range sc.Capabilities {
				if parsed, ok := toCapability(c); ok {
					set.Grant(parsed)
				}
			}
			return set
		}
		return capability.NewSet()
	}

	registry.Register(&builtin.FileReadSkill{Permissions: permsFor("file_read")})
	registry.Register(&builtin.FileWriteSkill{Permissions: permsFor("file_write")})
	registry.Register(&builtin.HTTPFetchSkill{
		Permissions: permsFor("http_fetch"),
		Timeout:     time.Duration(cfg.Security.HTTPTimeoutSeconds) * time.Second,
	})
	registry.Register(&builtin.ShellSkill{
		Permissions: permsFor("shell"),
		Timeout:     time.Duration(cfg.Security.ShellTimeoutSeconds) * time.Second,
	})

	for _, sc := range cfg.Skills {
		if sc.Type != "wasm" {
			continue
		}
		wasmBytes, err := os.ReadFile(sc.Path)
		if err != nil {
			slog.Error("skip wasm skill: read module failed", "skill", sc.Name, "path", sc.Path, "error", err)
			continue
		}
		if err := wasmHost.Load(context.Background(), sc.Name, wasmBytes); err != nil {
			slog.Error("skip wasm skill: compile failed", "skill", sc.Name, "error", err)
			continue
		}

		required := make([]capability.Capability, 0, len(sc.Capabilities))
		for _, c := range sc.Capabilities {
			if parsed, ok := toCapability(c); ok {
				required = append(required, parsed)
			}
		}
		var paramsSchema json.RawMessage
		if sc.ParametersSchema != "" {
			paramsSchema = json.RawMessage(sc.ParametersSchema)
		}

		registry.Register(wasmhost.NewWasmSkill(wasmHost, sc.Name, skill.Descriptor{
			Description:          sc.Description,
			ParametersSchema:     paramsSchema,
			RequiredCapabilities: required,
		}))
	}

	return registry
}

// sessionPermissions unions every capability declared across the
// skills section of cfg into one set, suitable as the dispatcher-level
// permission argument to Dispatch (see the comment at its call site in
// run for why a union is the right grain here).
func sessionPermissions(cfg *config.Config) *capability.Set {
	set := capability.NewSet()
	for _, sc := range cfg.Skills {
		for _, c := range sc.Capabilities {
			if parsed, ok := toCapability(c); ok {
				set.Grant(parsed)
			}
		}
	}
	return set
}

func toCapability(c config.CapabilityConfig) (capability.Capability, bool) {
	switch c.Tag {
	case "file_read":
		return capability.FileRead(c.Entries...), true
	case "file_write":
		return capability.FileWrite(c.Entries...), true
	case "network_access":
		return capability.NetworkAccess(c.Entries...), true
	case "shell_exec":
		return capability.ShellExec(c.Entries...), true
	case "env_read":
		return capability.EnvRead(c.Entries...), true
	case "browser_access":
		return capability.BrowserAccess(c.Entries...), true
	case "database_query":
		return capability.DatabaseQuery(), true
	default:
		return capability.Capability{}, false
	}
}
