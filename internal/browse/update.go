package browse

import (
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		return m, nil

	case statsLoadedMsg:
		if msg.err != nil {
			m.ErrorMsg = msg.err.Error()
			return m, nil
		}
		m.Stats = msg.stats
		return m, nil

	case searchResultsMsg:
		if msg.err != nil {
			m.ErrorMsg = msg.err.Error()
			return m, nil
		}
		m.Results = msg.env.Results
		m.Degraded = msg.env.Degraded
		m.Warning = msg.env.Warning
		m.Query = msg.query
		m.Cursor = 0
		m.Screen = ScreenResults
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	switch m.Screen {
	case ScreenDashboard:
		return m.handleDashboardKey(msg)
	case ScreenSearch:
		return m.handleSearchKey(msg)
	case ScreenResults:
		return m.handleResultsKey(msg)
	case ScreenDetail:
		return m.handleDetailKey(msg)
	}
	return m, nil
}

func (m Model) handleDashboardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "/":
		m.PrevScreen = m.Screen
		m.Screen = ScreenSearch
		m.SearchInput.Focus()
		return m, nil
	case "r":
		return m, loadStats(m.s)
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.Screen = m.PrevScreen
		m.SearchInput.Blur()
		return m, nil
	case tea.KeyEnter:
		query := m.SearchInput.Value()
		m.SearchInput.Blur()
		return m, runSearch(m.s, query)
	}
	var cmd tea.Cmd
	m.SearchInput, cmd = m.SearchInput.Update(msg)
	return m, cmd
}

func (m Model) handleResultsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		m.Screen = ScreenDashboard
		return m, nil
	case "/":
		m.PrevScreen = m.Screen
		m.Screen = ScreenSearch
		m.SearchInput.Focus()
		return m, nil
	case "j", "down":
		if m.Cursor < len(m.Results)-1 {
			m.Cursor++
		}
		return m, nil
	case "k", "up":
		if m.Cursor > 0 {
			m.Cursor--
		}
		return m, nil
	case "enter":
		if m.Cursor < len(m.Results) {
			m.Selected = m.Results[m.Cursor]
			m.PrevScreen = m.Screen
			m.Screen = ScreenDetail
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		m.Screen = m.PrevScreen
		return m, nil
	}
	return m, nil
}
