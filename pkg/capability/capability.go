// Package capability implements the authorization model of the skill
// execution substrate: a closed set of typed permissions with
// path/host/command prefix matching (spec §3, §4.1).
//
// Grounded on the shape of the teacher's pkg/policy/types.go (a closed
// set of tool categories plus rule-based evaluation), generalized here
// into the spec's Capability tagged-variant model.
package capability

import "strings"

// Tag identifies the kind of privileged operation a Capability grants.
type Tag string

const (
	TagFileRead      Tag = "file_read"
	TagFileWrite     Tag = "file_write"
	TagNetworkAccess Tag = "network_access"
	TagShellExec     Tag = "shell_exec"
	TagEnvRead       Tag = "env_read"
	TagDatabaseQuery Tag = "database_query"
	TagBrowserAccess Tag = "browser_access"
)

// blockedPathSubstrings are denied regardless of allow-list membership
// (spec §4.1: "deny overrides allow").
var blockedPathSubstrings = []string{
	"/etc/shadow",
	"/etc/passwd",
	".ssh/",
	".env",
	"credentials",
	"secret",
	".aws/",
}

// Capability is a tagged variant naming an authorized operation plus
// the prefix/suffix entries it applies to. Two capabilities are equal
// iff Tag and Entries are structurally equal (spec §3).
type Capability struct {
	Tag     Tag
	Entries []string
}

// FileRead builds a FileRead capability over the given path prefixes.
func FileRead(paths ...string) Capability { return Capability{Tag: TagFileRead, Entries: paths} }

// FileWrite builds a FileWrite capability over the given path prefixes.
func FileWrite(paths ...string) Capability { return Capability{Tag: TagFileWrite, Entries: paths} }

// NetworkAccess builds a NetworkAccess capability over the given host suffixes ("*" matches all).
func NetworkAccess(hosts ...string) Capability {
	return Capability{Tag: TagNetworkAccess, Entries: hosts}
}

// ShellExec builds a ShellExec capability over the given command prefixes.
func ShellExec(commands ...string) Capability { return Capability{Tag: TagShellExec, Entries: commands} }

// EnvRead builds an EnvRead capability over the given variable names.
func EnvRead(vars ...string) Capability { return Capability{Tag: TagEnvRead, Entries: vars} }

// DatabaseQuery builds a DatabaseQuery capability (no entries: all-or-nothing).
func DatabaseQuery() Capability { return Capability{Tag: TagDatabaseQuery} }

// BrowserAccess builds a BrowserAccess capability over the given domains.
func BrowserAccess(domains ...string) Capability {
	return Capability{Tag: TagBrowserAccess, Entries: domains}
}

// Equal reports structural equality of tag and entries, order-sensitive
// per spec's "structurally equal" wording (callers construct entries
// deterministically from config, so order is stable in practice).
func (c Capability) Equal(other Capability) bool {
	if c.Tag != other.Tag || len(c.Entries) != len(other.Entries) {
		return false
	}
	for i := range c.Entries {
		if c.Entries[i] != other.Entries[i] {
			return false
		}
	}
	return true
}

// Set is an unordered collection of Capabilities (spec §3 "Permission Set").
type Set struct {
	items []Capability
}

// NewSet builds a Set from the given capabilities.
func NewSet(caps ...Capability) *Set {
	s := &Set{}
	for _, c := range caps {
		s.Grant(c)
	}
	return s
}

// Grant adds a capability to the set (idempotent under Equal).
func (s *Set) Grant(c Capability) {
	for _, existing := range s.items {
		if existing.Equal(c) {
			return
		}
	}
	s.items = append(s.items, c)
}

// Revoke removes a capability equal to c, if present.
func (s *Set) Revoke(c Capability) {
	for i, existing := range s.items {
		if existing.Equal(c) {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

// Has reports whether the set contains a capability structurally equal to c.
func (s *Set) Has(c Capability) bool {
	for _, existing := range s.items {
		if existing.Equal(c) {
			return true
		}
	}
	return false
}

// Items returns a copy of the capabilities in the set.
func (s *Set) Items() []Capability {
	out := make([]Capability, len(s.items))
	copy(out, s.items)
	return out
}

// isBlockedPath reports whether path contains any denied substring.
// Deny always overrides allow (spec §4.1).
func isBlockedPath(path string) bool {
	for _, blocked := range blockedPathSubstrings {
		if strings.Contains(path, blocked) {
			return true
		}
	}
	return false
}

// CheckFileRead reports whether the set authorizes reading path. The
// caller must have already canonicalized path (symlinks resolved,
// relative segments collapsed); this function only applies the deny
// list and prefix matching.
func (s *Set) CheckFileRead(path string) bool {
	if isBlockedPath(path) {
		return false
	}
	return s.matchPrefix(TagFileRead, path)
}

// CheckFileWrite reports whether the set authorizes writing path.
func (s *Set) CheckFileWrite(path string) bool {
	if isBlockedPath(path) {
		return false
	}
	return s.matchPrefix(TagFileWrite, path)
}

// CheckNetwork reports whether the set authorizes contacting host.
// A host entry of "*" matches any host; otherwise host must end with
// the entry (suffix match, so granting ".example.com" covers all
// subdomains).
func (s *Set) CheckNetwork(host string) bool {
	for _, c := range s.items {
		if c.Tag != TagNetworkAccess {
			continue
		}
		for _, entry := range c.Entries {
			if entry == "*" || strings.HasSuffix(host, entry) {
				return true
			}
		}
	}
	return false
}

// CheckShell reports whether the set authorizes running command.
func (s *Set) CheckShell(command string) bool {
	return s.matchPrefix(TagShellExec, command)
}

// CheckEnvRead reports whether the set authorizes reading env var name.
func (s *Set) CheckEnvRead(name string) bool {
	for _, c := range s.items {
		if c.Tag != TagEnvRead {
			continue
		}
		for _, entry := range c.Entries {
			if entry == name {
				return true
			}
		}
	}
	return false
}

// CheckBrowserAccess reports whether the set authorizes browsing domain.
func (s *Set) CheckBrowserAccess(domain string) bool {
	for _, c := range s.items {
		if c.Tag != TagBrowserAccess {
			continue
		}
		for _, entry := range c.Entries {
			if entry == "*" || strings.HasSuffix(domain, entry) {
				return true
			}
		}
	}
	return false
}

// CheckDatabaseQuery reports whether the set grants database access at all.
func (s *Set) CheckDatabaseQuery() bool {
	for _, c := range s.items {
		if c.Tag == TagDatabaseQuery {
			return true
		}
	}
	return false
}

func (s *Set) matchPrefix(tag Tag, value string) bool {
	for _, c := range s.items {
		if c.Tag != tag {
			continue
		}
		for _, entry := range c.Entries {
			if strings.HasPrefix(value, entry) {
				return true
			}
		}
	}
	return false
}

// Satisfies reports whether this set authorizes the capability a skill
// declares as required. Path/host/command entries in `required` name
// what the skill may request at runtime; the configured set must grant
// the same tag with a semantic match for every declared entry (spec
// §4.5 step 2: "the implementation SHOULD use the semantic predicates
// rather than exact equality when the skill advertises runtime-resolved
// arguments" — see DESIGN.md for why this implementation always takes
// that branch).
func (s *Set) Satisfies(required Capability) bool {
	if len(required.Entries) == 0 {
		return s.hasTag(required.Tag)
	}
	for _, entry := range required.Entries {
		if !s.semanticMatch(required.Tag, entry) {
			return false
		}
	}
	return true
}

func (s *Set) hasTag(tag Tag) bool {
	for _, c := range s.items {
		if c.Tag == tag {
			return true
		}
	}
	return false
}

func (s *Set) semanticMatch(tag Tag, entry string) bool {
	switch tag {
	case TagFileRead:
		return s.CheckFileRead(entry)
	case TagFileWrite:
		return s.CheckFileWrite(entry)
	case TagNetworkAccess:
		return s.CheckNetwork(entry)
	case TagShellExec:
		return s.CheckShell(entry)
	case TagEnvRead:
		return s.CheckEnvRead(entry)
	case TagBrowserAccess:
		return s.CheckBrowserAccess(entry)
	case TagDatabaseQuery:
		return s.CheckDatabaseQuery()
	default:
		return false
	}
}
