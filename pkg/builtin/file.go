// Package builtin implements the four built-in skills specified in
// spec §4.7: file_read, file_write, http_fetch, shell. Each checks the
// capability set itself before touching the underlying resource, on
// top of whatever the registry already authorized at dispatch time —
// defense in depth against a skill registered with an overly broad
// declared capability.
//
// Grounded on the teacher's pkg/tool/builtin/file.go (ReadFileTool /
// WriteFileTool, path resolution, size capping) and
// pkg/tool/builtin/shell.go (argv-vector execution, timeout handling).
package builtin

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/agentor/agentor/pkg/capability"
	"github.com/agentor/agentor/pkg/skill"
)

const maxFileReadBytes = 10 * 1024 * 1024 // 10 MiB (spec §4.7)

// FileReadSkill implements the file_read contract.
type FileReadSkill struct {
	Permissions *capability.Set
}

type fileReadArgs struct {
	Path   string `json:"path"`
	Offset int    `json:"offset"`
	Limit  int    `json:"limit"`
}

func (f *FileReadSkill) Descriptor() skill.Descriptor {
	return skill.Descriptor{
		Name:        "file_read",
		Description: "Read a slice of a UTF-8 text file.",
		RequiredCapabilities: []capability.Capability{
			capability.FileRead(),
		},
	}
}

func (f *FileReadSkill) Execute(call skill.Call) skill.Result {
	var args fileReadArgs
	if err := json.Unmarshal(call.Arguments, &args); err != nil {
		return skill.ErrorResult(call.ID, "invalid arguments: "+err.Error())
	}

	path, err := canonicalize(args.Path)
	if err != nil {
		return skill.ErrorResult(call.ID, err.Error())
	}
	if !f.Permissions.CheckFileRead(path) {
		return skill.DeniedResult(call.ID, "blocked pattern or missing FileRead capability for "+path)
	}

	info, err := os.Lstat(path)
	if err != nil {
		return skill.ErrorResult(call.ID, "cannot stat path: "+err.Error())
	}
	if !info.Mode().IsRegular() {
		return skill.ErrorResult(call.ID, "not a regular file")
	}
	if info.Size() > maxFileReadBytes {
		return skill.ErrorResult(call.ID, "file exceeds 10 MiB limit")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return skill.ErrorResult(call.ID, "read failed: "+err.Error())
	}

	if !utf8.Valid(data) {
		payload, _ := json.Marshal(map[string]any{
			"path":     path,
			"size":     len(data),
			"encoding": "binary",
			"content":  fmt.Sprintf("<%d bytes, not valid UTF-8>", len(data)),
		})
		return skill.OKResult(call.ID, string(payload))
	}

	content := string(data)
	if args.Offset < 0 || args.Offset > len(content) {
		return skill.ErrorResult(call.ID, "offset out of range")
	}
	limit := args.Limit
	if limit <= 0 || args.Offset+limit > len(content) {
		limit = len(content) - args.Offset
	}
	slice := content[args.Offset : args.Offset+limit]

	payload, _ := json.Marshal(map[string]any{
		"path":    path,
		"size":    len(data),
		"content": slice,
	})
	return skill.OKResult(call.ID, string(payload))
}

// FileWriteSkill implements the file_write contract.
type FileWriteSkill struct {
	Permissions *capability.Set
}

type fileWriteArgs struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (f *FileWriteSkill) Descriptor() skill.Descriptor {
	return skill.Descriptor{
		Name:        "file_write",
		Description: "Write content to a file.",
		RequiredCapabilities: []capability.Capability{
			capability.FileWrite(),
		},
	}
}

func (f *FileWriteSkill) Execute(call skill.Call) skill.Result {
	var args fileWriteArgs
	if err := json.Unmarshal(call.Arguments, &args); err != nil {
		return skill.ErrorResult(call.ID, "invalid arguments: "+err.Error())
	}

	path, err := canonicalize(args.Path)
	if err != nil {
		return skill.ErrorResult(call.ID, err.Error())
	}
	// Check the full resolved target, not just its parent directory:
	// blocked substrings like ".env" or "credentials" live in the
	// basename, and a parent-only check would let a write through to
	// e.g. /allowed/.env as long as /allowed itself isn't denied.
	if !f.Permissions.CheckFileWrite(path) {
		return skill.DeniedResult(call.ID, "blocked pattern or missing FileWrite capability for "+path)
	}

	if err := os.WriteFile(path, []byte(args.Content), 0o644); err != nil {
		return skill.ErrorResult(call.ID, "write failed: "+err.Error())
	}
	return skill.OKResult(call.ID, fmt.Sprintf("wrote %d bytes to %s", len(args.Content), path))
}

// canonicalize resolves path to an absolute, symlink-free form. It
// does not itself apply the blocked-substring deny list — that is the
// capability package's job (spec §4.1) — but callers must canonicalize
// before calling the Check* predicates.
func canonicalize(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			// file_write may target a path that does not exist yet;
			// resolve as far as the nearest existing ancestor.
			return resolveNearestExisting(abs)
		}
		return "", fmt.Errorf("resolve symlinks: %w", err)
	}
	return resolved, nil
}

func resolveNearestExisting(path string) (string, error) {
	dir, base := filepath.Split(path)
	dir = strings.TrimSuffix(dir, string(filepath.Separator))
	if dir == "" {
		return filepath.Join(dir, base), nil
	}
	resolvedDir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		if os.IsNotExist(err) {
			resolvedDir, err = resolveNearestExisting(dir)
			if err != nil {
				return "", err
			}
			return filepath.Join(resolvedDir, base), nil
		}
		return "", err
	}
	return filepath.Join(resolvedDir, base), nil
}
