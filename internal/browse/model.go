// Package browse implements the Bubbletea terminal UI for Cortex: a
// dashboard of memory statistics, an interactive search over consolidated
// and raw memory, and a detail view for the selected hit. Structurally
// carried from the Engram TUI (screen-enum Model, Update type switch,
// per-screen key handlers), adapted onto Cortex's consolidated/raw/skill
// domain.
package browse

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/thrashr888/cortex/internal/retrieval"
	"github.com/thrashr888/cortex/internal/store"
)

type Screen int

const (
	ScreenDashboard Screen = iota
	ScreenSearch
	ScreenResults
	ScreenDetail
)

type statsLoadedMsg struct {
	stats store.Stats
	err   error
}

type searchResultsMsg struct {
	env   retrieval.Envelope
	query string
	err   error
}

// Model holds all browse UI state across every screen.
type Model struct {
	s       *store.Store
	Version string

	Screen     Screen
	PrevScreen Screen
	Width      int
	Height     int
	Cursor     int

	ErrorMsg string

	Stats store.Stats

	SearchInput textinput.Model
	Query       string
	Results     []retrieval.Result
	Degraded    bool
	Warning     string

	Selected retrieval.Result
}

// New creates a browse Model connected to s.
func New(s *store.Store, version string) Model {
	ti := textinput.New()
	ti.Placeholder = "Search memories..."
	ti.CharLimit = 256
	ti.Width = 60

	return Model{
		s:           s,
		Version:     version,
		Screen:      ScreenDashboard,
		SearchInput: ti,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(loadStats(m.s), tea.EnterAltScreen)
}

func loadStats(s *store.Store) tea.Cmd {
	return func() tea.Msg {
		st, err := s.Stats(true)
		return statsLoadedMsg{stats: st, err: err}
	}
}

func runSearch(s *store.Store, query string) tea.Cmd {
	return func() tea.Msg {
		env, err := retrieval.Recall(s, query, 30)
		return searchResultsMsg{env: env, query: query, err: err}
	}
}
