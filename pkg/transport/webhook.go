package transport

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// WebhookConfig is the minimal per-webhook configuration the transport
// layer needs; pkg/config owns the TOML representation this is built
// from. Session selection (spec §6) is either a fresh session per
// request (SessionPerRequest) or a session reused across requests that
// carry the same SessionHeader value.
type WebhookConfig struct {
	Name              string
	Secret            string
	PromptTemplate    string
	SessionPerRequest bool
	SessionHeader     string
}

// WebhookHandler receives the session the rendered prompt (PromptTemplate
// with "{{payload}}" replaced by the literal request body) should be
// attached to, for the named webhook.
type WebhookHandler func(sessionID uuid.UUID, webhookName, renderedPrompt string) error

// RegisterWebhooks mounts POST /webhook/{name} for each configured
// webhook onto r.
func RegisterWebhooks(r chi.Router, webhooks []WebhookConfig, onReceive WebhookHandler) {
	byName := make(map[string]WebhookConfig, len(webhooks))
	for _, wh := range webhooks {
		byName[wh.Name] = wh
	}

	r.Post("/webhook/{name}", func(w http.ResponseWriter, req *http.Request) {
		name := chi.URLParam(req, "name")
		wh, ok := byName[name]
		if !ok {
			http.NotFound(w, req)
			return
		}

		if wh.Secret != "" && !secretMatches(wh.Secret, req.Header.Get("X-Webhook-Secret")) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		body, err := io.ReadAll(req.Body)
		if err != nil {
			http.Error(w, "read body failed", http.StatusBadRequest)
			return
		}

		prompt := strings.Replace(wh.PromptTemplate, "{{payload}}", string(body), 1)
		if onReceive != nil {
			sessionID := webhookSessionID(wh, req)
			if err := onReceive(sessionID, name, prompt); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "accepted", "webhook": name})
	})
}

// webhookSessionID implements spec §6's webhook session selection: a
// fresh session per request, or a session reused across requests that
// carry the same SessionHeader value (deterministically derived so
// reuse doesn't require any server-side lookup table). A webhook with
// neither knob set reuses one fixed session keyed on its own name.
func webhookSessionID(wh WebhookConfig, req *http.Request) uuid.UUID {
	if wh.SessionPerRequest {
		return uuid.New()
	}
	key := wh.Name
	if wh.SessionHeader != "" {
		if v := req.Header.Get(wh.SessionHeader); v != "" {
			key = wh.Name + ":" + v
		}
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key))
}

// secretMatches compares got against want in constant time relative to
// the matching prefix length: unequal lengths fail immediately (spec
// §6), and a byte-for-byte mismatch in equal-length secrets is
// detected without leaking timing information via subtle.ConstantTimeCompare.
func secretMatches(want, got string) bool {
	if len(want) != len(got) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}
