package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// run executes a fresh root command against projectDir, passed explicitly
// via --dir rather than the package-level flagDir var: cobra resets bound
// flag vars to their default on every newRootCommand() call, so the flag
// must travel with the args, not be poked in ahead of time.
func run(t *testing.T, projectDir string, args ...string) error {
	t.Helper()
	root := newRootCommand()
	root.SetArgs(append([]string{"--dir", projectDir}, args...))
	return root.Execute()
}

func newIsolatedProject(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	return t.TempDir()
}

func TestInitCreatesProjectLayout(t *testing.T) {
	dir := newIsolatedProject(t)
	require.NoError(t, run(t, dir, "init"))

	require.DirExists(t, filepath.Join(dir, ".cortex"))
	require.FileExists(t, filepath.Join(dir, ".cortex", "config.toml"))
}

func TestSaveRecallStatsRoundTrip(t *testing.T) {
	dir := newIsolatedProject(t)
	require.NoError(t, run(t, dir, "init"))
	require.NoError(t, run(t, dir, "save", "--type", "pattern", "prefers small diffs"))
	require.NoError(t, run(t, dir, "stats"))
	require.NoError(t, run(t, dir, "recall", "diffs"))
}

func TestSaveRejectsInvalidKind(t *testing.T) {
	dir := newIsolatedProject(t)
	require.NoError(t, run(t, dir, "init"))
	require.Error(t, run(t, dir, "save", "--type", "nonsense", "whatever"))
}

func TestDeleteRejectsMalformedID(t *testing.T) {
	dir := newIsolatedProject(t)
	require.NoError(t, run(t, dir, "init"))
	require.Error(t, run(t, dir, "delete", "not-a-number"))
}
