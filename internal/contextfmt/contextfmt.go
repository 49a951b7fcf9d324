// Package contextfmt assembles the markdown context document a coding agent
// reads at session start: recent activity, ranked long-term knowledge, and
// the current skill set.
package contextfmt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/thrashr888/cortex/internal/retrieval"
	"github.com/thrashr888/cortex/internal/store"
)

// Options controls Context's output.
type Options struct {
	Query   string
	Limit   int
	Compact bool

	ProjectSkillDir string
	GlobalSkillDir  string
}

// Context renders the full markdown document for s given opts.
func Context(s *store.Store, opts Options) (string, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 15
	}

	var b strings.Builder
	b.WriteString("## Project Memory Context\n\n")

	if !opts.Compact {
		if err := writeRecentActivity(&b, s, limit, opts.Compact); err != nil {
			return "", err
		}
	}

	if err := writePatternsAndDecisions(&b, s, opts.Query, limit, opts.Compact); err != nil {
		return "", err
	}

	if err := writeGlobalKnowledge(&b, s, opts.Query, limit, opts.Compact); err != nil {
		return "", err
	}

	if !opts.Compact {
		writeSkillSection(&b, "### Global Skills\n\n", opts.GlobalSkillDir)
		writeSkillSection(&b, "### Project Skills\n\n", opts.ProjectSkillDir)
	}

	return b.String(), nil
}

func writeRecentActivity(b *strings.Builder, s *store.Store, limit int, compact bool) error {
	n := limit
	if n > 5 {
		n = 5
	}
	recent, err := s.Raw.Recent(n)
	if err != nil {
		return fmt.Errorf("cortex: context recent activity: %w", err)
	}

	b.WriteString("### Recent Activity\n\n")
	if len(recent) == 0 {
		b.WriteString("_No recent activity._\n\n")
		return nil
	}
	for _, m := range recent {
		fmt.Fprintf(b, "- **[%s]** %s _(%s)_\n", m.Kind, truncate(m.Content, compact), m.CreatedAt.Format("2006-01-02 15:04"))
	}
	b.WriteString("\n")
	return nil
}

func writePatternsAndDecisions(b *strings.Builder, s *store.Store, query string, limit int, compact bool) error {
	b.WriteString("### Learned Patterns\n\n")

	var rows []retrieval.Result
	if query != "" {
		env, err := retrieval.Recall(s, query, limit)
		if err != nil {
			return fmt.Errorf("cortex: context patterns: %w", err)
		}
		for _, r := range env.Results {
			if r.Source == retrieval.SourceProject {
				rows = append(rows, r)
			}
		}
	} else {
		recent, err := s.Consolidated.Recency(limit)
		if err != nil {
			return fmt.Errorf("cortex: context patterns: %w", err)
		}
		for _, m := range recent {
			rows = append(rows, retrieval.Result{ID: m.ID, Content: m.Content, Kind: m.Kind, Source: retrieval.SourceProject})
		}
	}

	writeResultRows(b, rows, compact)
	return nil
}

func writeGlobalKnowledge(b *strings.Builder, s *store.Store, query string, limit int, compact bool) error {
	b.WriteString("### Global Knowledge\n\n")

	halfLimit := limit / 2
	if halfLimit < 1 {
		halfLimit = 1
	}

	g, err := s.Global()
	if err != nil {
		b.WriteString("_Global store unavailable._\n\n")
		return nil
	}

	var rows []retrieval.Result
	if query != "" {
		env, rerr := retrieval.Recall(s, query, limit)
		if rerr != nil {
			return fmt.Errorf("cortex: context global knowledge: %w", rerr)
		}
		count := 0
		for _, r := range env.Results {
			if r.Source == retrieval.SourceGlobal && count < halfLimit {
				rows = append(rows, r)
				count++
			}
		}
	} else {
		recent, rerr := g.Recency(halfLimit)
		if rerr != nil {
			return fmt.Errorf("cortex: context global knowledge: %w", rerr)
		}
		for _, m := range recent {
			rows = append(rows, retrieval.Result{ID: m.ID, Content: m.Content, Kind: m.Kind, Source: retrieval.SourceGlobal})
		}
	}

	writeResultRows(b, rows, compact)
	return nil
}

func writeResultRows(b *strings.Builder, rows []retrieval.Result, compact bool) {
	if len(rows) == 0 {
		b.WriteString("_Nothing recorded yet._\n\n")
		return
	}
	for _, r := range rows {
		fmt.Fprintf(b, "- **[%s]** %s\n", r.Kind, truncate(r.Content, compact))
	}
	b.WriteString("\n")
}

func writeSkillSection(b *strings.Builder, header, dir string) {
	b.WriteString(header)
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) == 0 {
		b.WriteString("_No skills recorded yet._\n\n")
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		name, description := readSkillFrontMatter(filepath.Join(dir, entry.Name()))
		if name == "" {
			name = strings.TrimSuffix(entry.Name(), ".md")
		}
		if description != "" {
			fmt.Fprintf(b, "- **%s** — %s\n", name, description)
		} else {
			fmt.Fprintf(b, "- **%s**\n", name)
		}
	}
	b.WriteString("\n")
}

func readSkillFrontMatter(path string) (name, description string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", ""
	}
	lines := strings.Split(string(data), "\n")
	inFrontMatter := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "---" {
			if inFrontMatter {
				break
			}
			inFrontMatter = true
			continue
		}
		if !inFrontMatter {
			continue
		}
		if v, ok := strings.CutPrefix(trimmed, "name:"); ok {
			name = strings.TrimSpace(v)
		}
		if v, ok := strings.CutPrefix(trimmed, "description:"); ok {
			description = strings.TrimSpace(v)
		}
	}
	return name, description
}

const compactCharLimit = 120

func truncate(s string, compact bool) string {
	s = strings.TrimSpace(s)
	if !compact || len(s) <= compactCharLimit {
		return s
	}
	return s[:compactCharLimit-1] + "…"
}
