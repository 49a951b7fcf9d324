package browse

import (
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/thrashr888/cortex/internal/retrieval"
	"github.com/thrashr888/cortex/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(filepath.Join(dir, "project"), filepath.Join(dir, "global", "consolidated.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSlashKeyEntersSearchScreen(t *testing.T) {
	m := New(newTestStore(t), "test")
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	next := updated.(Model)
	require.Equal(t, ScreenSearch, next.Screen)
}

func TestSearchResultsMsgTransitionsToResultsScreen(t *testing.T) {
	m := New(newTestStore(t), "test")
	updated, _ := m.Update(searchResultsMsg{
		env:   retrieval.Envelope{Results: []retrieval.Result{{ID: 1, Content: "a pattern", Kind: "pattern"}}},
		query: "pattern",
	})
	next := updated.(Model)
	require.Equal(t, ScreenResults, next.Screen)
	require.Len(t, next.Results, 1)
}

func TestResultsNavigationMovesCursor(t *testing.T) {
	m := New(newTestStore(t), "test")
	m.Screen = ScreenResults
	m.Results = []retrieval.Result{{ID: 1}, {ID: 2}, {ID: 3}}

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	next := updated.(Model)
	require.Equal(t, 1, next.Cursor)

	updated, _ = next.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("k")})
	next = updated.(Model)
	require.Equal(t, 0, next.Cursor)
}

func TestEnterOnResultOpensDetail(t *testing.T) {
	m := New(newTestStore(t), "test")
	m.Screen = ScreenResults
	m.Results = []retrieval.Result{{ID: 42, Content: "a decision", Kind: "decision"}}

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	next := updated.(Model)
	require.Equal(t, ScreenDetail, next.Screen)
	require.Equal(t, int64(42), next.Selected.ID)
}
