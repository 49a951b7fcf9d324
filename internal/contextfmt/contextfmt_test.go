package contextfmt

import (
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/thrashr888/cortex/internal/skills"
	"github.com/thrashr888/cortex/internal/store"
)

func newTestStore(t *testing.T) (*store.Store, string, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(filepath.Join(dir, "project"), filepath.Join(dir, "global", "consolidated.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	projectSkills := filepath.Join(dir, "project", "skills")
	globalSkills := filepath.Join(dir, "global", "skills")
	return s, projectSkills, globalSkills
}

func TestContextIncludesAllSectionsByDefault(t *testing.T) {
	s, projectSkills, globalSkills := newTestStore(t)

	_, err := s.Raw.InsertRaw("fixed a flaky test in the retry loop", string(store.KindBugfix), "sess-1")
	require.NoError(t, err)
	_, err = s.Consolidated.InsertConsolidated("retry loop now sleeps with jitter", string(store.KindPattern), 0.8, nil)
	require.NoError(t, err)
	require.NoError(t, skills.Write(projectSkills, "retry-loop", "Back off with jitter on transient failures."))

	doc, err := Context(s, Options{Limit: 10, ProjectSkillDir: projectSkills, GlobalSkillDir: globalSkills})
	require.NoError(t, err)

	require.Contains(t, doc, "## Project Memory Context")
	require.Contains(t, doc, "### Recent Activity")
	require.Contains(t, doc, "### Learned Patterns")
	require.Contains(t, doc, "### Global Knowledge")
	require.Contains(t, doc, "### Global Skills")
	require.Contains(t, doc, "### Project Skills")
	require.Contains(t, doc, "retry loop now sleeps with jitter")
	require.Contains(t, doc, "retry-loop")
}

func TestContextCompactCollapsesSectionsAndCapsLength(t *testing.T) {
	s, projectSkills, globalSkills := newTestStore(t)

	longContent := strings.Repeat("a very long learned pattern that should be truncated ", 5)
	_, err := s.Consolidated.InsertConsolidated(longContent, string(store.KindPattern), 0.8, nil)
	require.NoError(t, err)

	doc, err := Context(s, Options{Limit: 10, Compact: true, ProjectSkillDir: projectSkills, GlobalSkillDir: globalSkills})
	require.NoError(t, err)

	require.NotContains(t, doc, "### Recent Activity")
	require.NotContains(t, doc, "### Global Skills")
	require.NotContains(t, doc, "### Project Skills")
	require.Contains(t, doc, "### Learned Patterns")

	for _, line := range strings.Split(doc, "\n") {
		if strings.HasPrefix(line, "- **[pattern]**") {
			require.LessOrEqual(t, utf8.RuneCountInString(line), compactCharLimit+len("- **[pattern]** ")+1)
		}
	}
}

func TestContextUsesQueryDrivenRelevanceWhenGiven(t *testing.T) {
	s, projectSkills, globalSkills := newTestStore(t)

	_, err := s.Consolidated.InsertConsolidated("uses sqlite with WAL mode", string(store.KindPattern), 0.8, nil)
	require.NoError(t, err)
	_, err = s.Consolidated.InsertConsolidated("prefers tabs over spaces", string(store.KindPreference), 0.8, nil)
	require.NoError(t, err)

	doc, err := Context(s, Options{Query: "sqlite", Limit: 10, ProjectSkillDir: projectSkills, GlobalSkillDir: globalSkills})
	require.NoError(t, err)
	require.Contains(t, doc, "sqlite")
}
