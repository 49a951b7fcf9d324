package browse

import (
	"fmt"
	"strings"
)

func (m Model) View() string {
	var body string
	switch m.Screen {
	case ScreenDashboard:
		body = m.viewDashboard()
	case ScreenSearch:
		body = m.viewSearch()
	case ScreenResults:
		body = m.viewResults()
	case ScreenDetail:
		body = m.viewDetail()
	}

	if m.ErrorMsg != "" {
		body += "\n" + errorStyle.Render("error: "+m.ErrorMsg)
	}

	return appStyle.Render(body)
}

func (m Model) viewDashboard() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("cortex %s — memory dashboard", m.Version)))
	b.WriteString("\n")

	b.WriteString(statCardStyle.Render(strings.Join([]string{
		statNumberStyle.Render(fmt.Sprintf("%d", m.Stats.RawCount)) + statLabelStyle.Render("raw memories"),
		statNumberStyle.Render(fmt.Sprintf("%d", m.Stats.UnconsolidatedCount)) + statLabelStyle.Render("unconsolidated"),
		statNumberStyle.Render(fmt.Sprintf("%d", m.Stats.ConsolidatedCount)) + statLabelStyle.Render("consolidated"),
		statNumberStyle.Render(fmt.Sprintf("%d", m.Stats.SkillCount)) + statLabelStyle.Render("skills"),
	}, "\n")))

	b.WriteString(helpStyle.Render("/ search   r refresh   q quit"))
	return b.String()
}

func (m Model) viewSearch() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("search memory"))
	b.WriteString("\n")
	b.WriteString(m.SearchInput.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("enter to search   esc to cancel"))
	return b.String()
}

func (m Model) viewResults() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("results for %q", m.Query)))
	b.WriteString("\n")

	if m.Degraded {
		b.WriteString(errorStyle.Render(m.Warning))
		b.WriteString("\n")
	}

	if len(m.Results) == 0 {
		b.WriteString(resultItemStyle.Render("no results"))
	}
	for i, r := range m.Results {
		line := fmt.Sprintf("%s  %s", kindTagStyle.Render("["+r.Kind+"/"+string(r.Source)+"]"), truncateLine(r.Content, 80))
		if i == m.Cursor {
			b.WriteString(resultSelectedStyle.Render(line))
		} else {
			b.WriteString(resultItemStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("j/k move   enter open   / search   q back"))
	return b.String()
}

func (m Model) viewDetail() string {
	var b strings.Builder
	r := m.Selected
	b.WriteString(headerStyle.Render(fmt.Sprintf("[%s] from %s", r.Kind, r.Source)))
	b.WriteString("\n")
	b.WriteString(resultItemStyle.Render(r.Content))
	b.WriteString("\n\n")
	b.WriteString(resultItemStyle.Render(fmt.Sprintf("id: %d   score: %.4f", r.ID, r.Score)))
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("esc back"))
	return b.String()
}

func truncateLine(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
