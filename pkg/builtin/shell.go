package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"time"

	"github.com/agentor/agentor/pkg/capability"
	"github.com/agentor/agentor/pkg/skill"
)

const maxShellOutputBytes = 1 * 1024 * 1024

// ShellSkill implements the shell contract: argv-vector execution,
// never through a shell interpreter (spec §4.7: "not /bin/sh -c").
type ShellSkill struct {
	Permissions *capability.Set
	Timeout     time.Duration
}

type shellArgs struct {
	Command string `json:"command"`
}

func (s *ShellSkill) Descriptor() skill.Descriptor {
	return skill.Descriptor{
		Name:        "shell",
		Description: "Run a command as an argv vector, no shell interpreter.",
		RequiredCapabilities: []capability.Capability{
			capability.ShellExec(),
		},
	}
}

func (s *ShellSkill) Execute(call skill.Call) skill.Result {
	var args shellArgs
	if err := json.Unmarshal(call.Arguments, &args); err != nil {
		return skill.ErrorResult(call.ID, "invalid arguments: "+err.Error())
	}

	if !s.Permissions.CheckShell(args.Command) {
		return skill.DeniedResult(call.ID, "missing ShellExec capability for command")
	}

	argv := strings.Fields(args.Command)
	if len(argv) == 0 {
		return skill.ErrorResult(call.ID, "empty command")
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitedWriter{buf: &stdout, max: maxShellOutputBytes}
	cmd.Stderr = &limitedWriter{buf: &stderr, max: maxShellOutputBytes}

	runErr := cmd.Run()

	payload, _ := json.Marshal(map[string]any{
		"stdout": stdout.String(),
		"stderr": stderr.String(),
	})

	if ctx.Err() == context.DeadlineExceeded {
		return skill.ErrorResult(call.ID, "command timed out after "+timeout.String())
	}
	if runErr != nil {
		return skill.ErrorResult(call.ID, string(payload)+": "+runErr.Error())
	}
	return skill.OKResult(call.ID, string(payload))
}

// limitedWriter caps how much of a command's output is retained,
// silently discarding the rest once the cap is reached.
type limitedWriter struct {
	buf *bytes.Buffer
	max int
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	remaining := w.max - w.buf.Len()
	if remaining <= 0 {
		return len(p), nil
	}
	if len(p) > remaining {
		w.buf.Write(p[:remaining])
	} else {
		w.buf.Write(p)
	}
	return len(p), nil
}
