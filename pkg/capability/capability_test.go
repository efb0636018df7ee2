package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGrantRevokeHas(t *testing.T) {
	s := NewSet()
	c := FileRead("/data")
	assert.False(t, s.Has(c))

	s.Grant(c)
	assert.True(t, s.Has(c))

	s.Revoke(c)
	assert.False(t, s.Has(c))
}

func TestCheckFileReadPrefixMatch(t *testing.T) {
	s := NewSet(FileRead("/data/public"))
	assert.True(t, s.CheckFileRead("/data/public/report.csv"))
	assert.False(t, s.CheckFileRead("/data/private/report.csv"))
}

func TestBlockedPathOverridesAllow(t *testing.T) {
	s := NewSet(FileRead("/"))
	assert.False(t, s.CheckFileRead("/etc/shadow"))
	assert.False(t, s.CheckFileRead("/home/user/.ssh/id_rsa"))
	assert.False(t, s.CheckFileRead("/home/user/.env"))
	assert.False(t, s.CheckFileRead("/home/user/credentials.json"))
	assert.True(t, s.CheckFileRead("/home/user/notes.txt"))
}

func TestCheckNetworkSuffixMatch(t *testing.T) {
	s := NewSet(NetworkAccess(".example.com"))
	assert.True(t, s.CheckNetwork("api.example.com"))
	assert.False(t, s.CheckNetwork("example.com.evil.net"))
}

func TestCheckNetworkWildcard(t *testing.T) {
	s := NewSet(NetworkAccess("*"))
	assert.True(t, s.CheckNetwork("anything.test"))
}

func TestCheckShellPrefixMatch(t *testing.T) {
	s := NewSet(ShellExec("git "))
	assert.True(t, s.CheckShell("git status"))
	assert.False(t, s.CheckShell("rm -rf /"))
}

func TestSatisfiesSemanticPredicates(t *testing.T) {
	s := NewSet(FileRead("/data"), NetworkAccess(".example.com"))
	assert.True(t, s.Satisfies(FileRead("/data/sub/file.txt")))
	assert.False(t, s.Satisfies(FileRead("/etc/passwd")))
	assert.True(t, s.Satisfies(NetworkAccess("api.example.com")))
	assert.False(t, s.Satisfies(NetworkAccess("other.test")))
}

func TestSatisfiesDatabaseQueryAllOrNothing(t *testing.T) {
	s := NewSet()
	assert.False(t, s.Satisfies(DatabaseQuery()))
	s.Grant(DatabaseQuery())
	assert.True(t, s.Satisfies(DatabaseQuery()))
}

func TestCapabilityEqual(t *testing.T) {
	a := FileRead("/data", "/tmp")
	b := FileRead("/data", "/tmp")
	c := FileRead("/tmp", "/data")
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestItemsReturnsCopy(t *testing.T) {
	s := NewSet(FileRead("/data"))
	items := s.Items()
	items[0] = FileWrite("/other")
	assert.True(t, s.Has(FileRead("/data")))
}
