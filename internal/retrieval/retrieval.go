// Package retrieval implements query parsing, ranking, and merged search
// across the project raw, project consolidated, and global consolidated
// stores.
package retrieval

import (
	"sort"
	"strings"
	"time"

	"github.com/thrashr888/cortex/internal/cortexerr"
	"github.com/thrashr888/cortex/internal/store"
)

// Source identifies which store a Result came from.
type Source string

const (
	SourceProject Source = "project"
	SourceGlobal  Source = "global"
	SourceRaw     Source = "raw"
)

// Result is one unified search hit, merged across stores.
type Result struct {
	ID      int64
	Content string
	Kind    string
	Score   float64
	Source  Source
}

// Envelope wraps search results with non-fatal warnings, matching the
// spec's "DegradedQuery is a warning, not an error" contract.
type Envelope struct {
	Results  []Result
	Degraded bool
	Warning  string
}

const recentRawWindow = 7 * 24 * time.Hour

// BuildFTSQuery tokenizes a raw query into an FTS5 MATCH expression: each
// word is lowercased and suffixed with '*' for a prefix match, quoted
// phrases are preserved verbatim, and tokens are implicitly ANDed by
// FTS5's default space-separated syntax.
func BuildFTSQuery(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	var terms []string
	for len(raw) > 0 {
		raw = strings.TrimLeft(raw, " \t")
		if raw == "" {
			break
		}
		if raw[0] == '"' {
			end := strings.IndexByte(raw[1:], '"')
			if end == -1 {
				phrase := strings.ToLower(strings.TrimSpace(raw[1:]))
				if phrase != "" {
					terms = append(terms, `"`+phrase+`"`)
				}
				break
			}
			phrase := raw[1 : end+1]
			terms = append(terms, `"`+strings.ToLower(phrase)+`"`)
			raw = raw[end+2:]
			continue
		}
		sp := strings.IndexByte(raw, ' ')
		var word string
		if sp == -1 {
			word = raw
			raw = ""
		} else {
			word = raw[:sp]
			raw = raw[sp:]
		}
		word = strings.ToLower(sanitizeFTSWord(word))
		if word != "" {
			terms = append(terms, word+"*")
		}
	}
	return strings.Join(terms, " ")
}

// sanitizeFTSWord strips characters that would otherwise break FTS5's
// query-expression grammar.
func sanitizeFTSWord(w string) string {
	var b strings.Builder
	for _, r := range w {
		switch r {
		case '"', '*', '(', ')', ':', '^':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Recall runs a unified search against project consolidated, global
// consolidated, and recent (last 7 days) raw rows, merges by descending
// score (project preferred on ties), and tags global rows with negated
// ids at emission per the spec's boundary convention.
func Recall(s *store.Store, query string, limit int) (Envelope, error) {
	if limit <= 0 {
		limit = 15
	}

	var env Envelope
	var merged []Result

	projectResults, degraded, err := searchConsolidated(s.Consolidated, query, limit, SourceProject, false)
	if err != nil {
		return env, cortexerr.ErrStoreUnavailable
	}
	if degraded {
		env.Degraded = true
		env.Warning = "malformed query expression, fell back to recency ranking"
	}
	merged = append(merged, projectResults...)

	if g, err := s.Global(); err == nil {
		globalResults, gDegraded, gErr := searchConsolidated(g, query, limit, SourceGlobal, true)
		if gErr == nil {
			if gDegraded && !env.Degraded {
				env.Degraded = true
				env.Warning = "malformed query expression, fell back to recency ranking"
			}
			merged = append(merged, globalResults...)
		}
	}

	cutoff := time.Now().Add(-recentRawWindow).UTC().Format("2006-01-02T15:04:05.000Z")
	if raw, err := s.Raw.RecentSince(cutoff, limit); err == nil {
		for _, m := range raw {
			merged = append(merged, Result{
				ID:      m.ID,
				Content: m.Content,
				Kind:    m.Kind,
				Score:   rawRecencyScore(m.CreatedAt),
				Source:  SourceRaw,
			})
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		iProject := merged[i].Source != SourceGlobal
		jProject := merged[j].Source != SourceGlobal
		return iProject && !jProject
	})

	if len(merged) > limit {
		merged = merged[:limit]
	}
	env.Results = merged
	return env, nil
}

func searchConsolidated(cs *store.ConsolidatedStore, query string, limit int, source Source, negateIDs bool) ([]Result, bool, error) {
	var scored []store.ScoredMemory
	var degraded bool

	ftsQuery := BuildFTSQuery(query)
	if ftsQuery == "" {
		recent, err := cs.Recency(limit)
		if err != nil {
			return nil, false, err
		}
		out := make([]Result, 0, len(recent))
		for i, m := range recent {
			out = append(out, Result{
				ID:      emitID(m.ID, negateIDs),
				Content: m.Content,
				Kind:    m.Kind,
				Score:   float64(len(recent)-i) / float64(len(recent)+1),
				Source:  source,
			})
		}
		return out, false, nil
	}

	results, ok, err := cs.RelevanceSearch(ftsQuery, limit)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		degraded = true
		recent, rerr := cs.Recency(limit)
		if rerr != nil {
			return nil, false, rerr
		}
		out := make([]Result, 0, len(recent))
		for i, m := range recent {
			out = append(out, Result{
				ID:      emitID(m.ID, negateIDs),
				Content: m.Content,
				Kind:    m.Kind,
				Score:   float64(len(recent)-i) / float64(len(recent)+1),
				Source:  source,
			})
		}
		return out, degraded, nil
	}
	scored = results

	out := make([]Result, 0, len(scored))
	for _, sm := range scored {
		out = append(out, Result{
			ID:      emitID(sm.Memory.ID, negateIDs),
			Content: sm.Memory.Content,
			Kind:    sm.Memory.Kind,
			Score:   sm.Score,
			Source:  source,
		})
	}
	return out, degraded, nil
}

func emitID(id int64, negate bool) int64 {
	if negate {
		return -id
	}
	return id
}

// rawRecencyScore gives raw (unconsolidated) hits a modest, age-decaying
// score so they surface in merged results without outranking confident
// consolidated matches.
func rawRecencyScore(createdAt time.Time) float64 {
	ageDays := time.Since(createdAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return 0.2 * decay(ageDays)
}

func decay(ageDays float64) float64 {
	if ageDays > 30 {
		return 0.05
	}
	return 1 - (ageDays / 30 * 0.8)
}
