package gitinfo

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reqtrace/reqtrace/requirement"
)

// gitDir initializes a throwaway repository, skipping when git is missing.
func gitDir(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	run(t, dir, "init", "-q")
	run(t, dir, "config", "user.email", "test@example.com")
	run(t, dir, "config", "user.name", "test")
	return dir
}

func run(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}

func TestCollect_OutsideGitRepo(t *testing.T) {
	dir := t.TempDir()

	facts, err := NewCollector(dir, nil).Collect(context.Background(), []string{"reqs/a.md"})
	require.NoError(t, err)

	// No history means no facts, not an error.
	assert.Equal(t, requirement.ChangeInfo{}, facts["reqs/a.md"])
}

func TestCollect_UncommittedNewFile(t *testing.T) {
	dir := gitDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("x\n"), 0644))

	facts, err := NewCollector(dir, nil).Collect(context.Background(), []string{"a.md"})
	require.NoError(t, err)

	info := facts["a.md"]
	assert.True(t, info.IsUncommitted)
	assert.True(t, info.IsNew)
}

func TestCollect_ModifiedCommittedFile(t *testing.T) {
	dir := gitDir(t)
	path := filepath.Join(dir, "a.md")
	require.NoError(t, os.WriteFile(path, []byte("v1\n"), 0644))
	run(t, dir, "add", "a.md")
	run(t, dir, "commit", "-q", "-m", "add a.md")
	require.NoError(t, os.WriteFile(path, []byte("v2\n"), 0644))

	facts, err := NewCollector(dir, nil).Collect(context.Background(), []string{"a.md"})
	require.NoError(t, err)

	info := facts["a.md"]
	assert.True(t, info.IsUncommitted)
	assert.True(t, info.IsModified)
	assert.False(t, info.IsNew)
	assert.NotEmpty(t, info.LastCommit)
	assert.False(t, info.LastChangedAt.IsZero())
}

func TestApply(t *testing.T) {
	reqs := []*requirement.Requirement{
		{ID: "REQ-001", SourcePath: "reqs/a.md"},
		{ID: "REQ-002", SourcePath: "reqs/b.md"},
	}
	facts := map[string]requirement.ChangeInfo{
		"reqs/a.md": {IsModified: true},
	}

	Apply(reqs, facts)

	assert.True(t, reqs[0].Change.IsModified)
	assert.False(t, reqs[1].Change.IsModified)
}
