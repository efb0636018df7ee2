package builtin

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/agentor/agentor/pkg/capability"
	"github.com/agentor/agentor/pkg/skill"
)

const maxHTTPResponseBytes = 5 * 1024 * 1024

// deniedRequestHeaders are stripped from the inbound JSON regardless of
// what the caller asked for (spec §4.7).
var deniedRequestHeaders = map[string]struct{}{
	"authorization": {},
	"cookie":        {},
	"x-api-key":     {},
}

// HTTPFetchSkill implements the http_fetch contract.
type HTTPFetchSkill struct {
	Permissions *capability.Set
	Timeout     time.Duration
	Client      *http.Client
}

type httpFetchArgs struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body"`
}

func (h *HTTPFetchSkill) Descriptor() skill.Descriptor {
	return skill.Descriptor{
		Name:        "http_fetch",
		Description: "Fetch a URL over HTTP(S).",
		RequiredCapabilities: []capability.Capability{
			capability.NetworkAccess(),
		},
	}
}

func (h *HTTPFetchSkill) Execute(call skill.Call) skill.Result {
	var args httpFetchArgs
	if err := json.Unmarshal(call.Arguments, &args); err != nil {
		return skill.ErrorResult(call.ID, "invalid arguments: "+err.Error())
	}

	parsed, err := url.Parse(args.URL)
	if err != nil || parsed.Host == "" {
		return skill.ErrorResult(call.ID, "invalid url")
	}
	if !h.Permissions.CheckNetwork(parsed.Hostname()) {
		return skill.DeniedResult(call.ID, "missing NetworkAccess capability for "+parsed.Hostname())
	}

	method := args.Method
	if method == "" {
		method = http.MethodGet
	}

	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := h.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	req, err := http.NewRequest(method, args.URL, strings.NewReader(args.Body))
	if err != nil {
		return skill.ErrorResult(call.ID, "build request failed: "+err.Error())
	}
	for k, v := range args.Headers {
		if _, denied := deniedRequestHeaders[strings.ToLower(k)]; denied {
			continue
		}
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return skill.ErrorResult(call.ID, "request failed: "+err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxHTTPResponseBytes))
	if err != nil {
		return skill.ErrorResult(call.ID, "read response failed: "+err.Error())
	}

	payload, _ := json.Marshal(map[string]any{
		"status": resp.StatusCode,
		"body":   string(body),
	})
	return skill.OKResult(call.ID, string(payload))
}
