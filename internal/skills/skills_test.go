package skills

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSlugSanitizesName(t *testing.T) {
	require.Equal(t, "retry-http-calls", Slug("Retry HTTP Calls!"))
	require.Equal(t, "foo-bar", Slug("  foo___bar  "))
}

func TestWriteProducesFrontMatterAndIsAtomic(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Write(dir, "Retry Transient Errors", "# Retry Transient Errors\n\nBack off exponentially on 5xx."))

	data, err := os.ReadFile(filepath.Join(dir, "retry-transient-errors.md"))
	require.NoError(t, err)
	require.Contains(t, string(data), "name: Retry Transient Errors")
	require.Contains(t, string(data), "description: Retry Transient Errors")
	require.Contains(t, string(data), "Back off exponentially on 5xx.")

	_, err = os.Stat(filepath.Join(dir, "retry-transient-errors.md.tmp"))
	require.True(t, os.IsNotExist(err), "temp file must not survive a successful write")
}

func TestPruneKeepsCurrentAndRecentFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Write(dir, "kept", "kept body"))
	require.NoError(t, Write(dir, "stale", "stale body"))

	stalePath := filepath.Join(dir, "stale.md")
	old := time.Now().Add(-60 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(stalePath, old, old))

	removed, err := Prune(dir, map[string]bool{"kept": true}, 30*24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, err = os.Stat(filepath.Join(dir, "kept.md"))
	require.NoError(t, err)
	_, err = os.Stat(stalePath)
	require.True(t, os.IsNotExist(err))
}

func TestPruneSparesUnreferencedButRecentFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Write(dir, "fresh", "fresh body"))

	removed, err := Prune(dir, map[string]bool{}, 30*24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, 0, removed, "a file not yet aged out must survive even if unreferenced")
}
