// Package store owns the three SQLite databases that back Cortex: the
// per-project raw episodic store, the per-project consolidated long-term
// store, and the user-global consolidated store (same schema as the
// project one). It is the only package that issues SQL.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/thrashr888/cortex/internal/cortexerr"
)

// Store is the top-level handle an engine holds: the project's raw and
// consolidated databases, plus a lazily-opened handle onto the user-global
// consolidated database shared across every project on the machine.
//
// The global store is opened on first use rather than at Open time because
// most commands never touch it, and opening a SQLite file unconditionally
// on every invocation would mean an extra disk round trip paid by callers
// who never need it.
type Store struct {
	Raw          *RawStore
	Consolidated *ConsolidatedStore

	globalPath   string
	globalOnce   sync.Once
	globalErr    error
	globalHandle *ConsolidatedStore
}

// Open opens the per-project raw.db and consolidated.db under cortexDir
// (typically <project>/.cortex), and records globalPath for lazy opening of
// the user-global consolidated store (typically ~/.cortex/consolidated.db).
func Open(cortexDir, globalPath string) (*Store, error) {
	raw, err := OpenRaw(filepath.Join(cortexDir, "raw.db"))
	if err != nil {
		return nil, err
	}
	cons, err := OpenConsolidated(filepath.Join(cortexDir, "consolidated.db"))
	if err != nil {
		raw.Close()
		return nil, err
	}
	return &Store{Raw: raw, Consolidated: cons, globalPath: globalPath}, nil
}

// Close releases both project databases and the global one, if it was ever
// opened.
func (s *Store) Close() error {
	var firstErr error
	if err := s.Raw.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.Consolidated.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if s.globalHandle != nil {
		if err := s.globalHandle.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Global returns the user-global consolidated store, opening it (and its
// parent directory) on first call. Every subsequent call reuses the same
// handle and the same error: a transient open failure is sticky for the
// lifetime of this Store.
func (s *Store) Global() (*ConsolidatedStore, error) {
	s.globalOnce.Do(func() {
		if dir := filepath.Dir(s.globalPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				s.globalErr = fmt.Errorf("%w: create global store dir: %v", cortexerr.ErrStoreUnavailable, err)
				return
			}
		}
		s.globalHandle, s.globalErr = OpenConsolidated(s.globalPath)
	})
	return s.globalHandle, s.globalErr
}

// LazyInitGlobal forces the global store open, creating ~/.cortex/ and its
// database if this is the first global write of the process. Exposed
// separately from Global so callers that only need the side effect (not
// the handle) can name their intent.
func (s *Store) LazyInitGlobal() error {
	_, err := s.Global()
	return err
}

// PromoteGlobal copies consolidated row id from the project store into the
// global store, unless a row with identical case-insensitive content
// already exists there, in which case it touches that row's updated_at and
// access_count instead. Returns the global store's id for the row.
func (s *Store) PromoteGlobal(id int64) (int64, error) {
	g, err := s.Global()
	if err != nil {
		return 0, err
	}

	rows, err := s.Consolidated.query(
		`SELECT id, content, kind, confidence, created_at, updated_at, source_ids, access_count
		 FROM consolidated_memories WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("%w: consolidated id %d not found", cortexerr.ErrValidation, id)
	}
	m := rows[0]

	exists, err := g.ContentExists(m.Content)
	if err != nil {
		return 0, err
	}
	if exists {
		if err := g.TouchByContent(m.Content); err != nil {
			return 0, err
		}
		var gid int64
		if err := g.db.QueryRow(
			`SELECT id FROM consolidated_memories WHERE lower(content) = lower(?)`, m.Content,
		).Scan(&gid); err != nil {
			return 0, fmt.Errorf("cortex: promote global lookup: %w", err)
		}
		return gid, nil
	}

	return g.InsertConsolidated(m.Content, m.Kind, m.Confidence, m.SourceIDs)
}

// Decay applies confidence decay to the project consolidated store,
// deleting rows below threshold. ConsolidatedStore.DecayBelow does the same
// for any consolidated store; no caller applies it to the global store.
func (s *Store) Decay(threshold float64) (int64, error) {
	return s.Consolidated.DecayBelow(threshold)
}

// Stats aggregates counts across the project's raw and consolidated
// databases. includeGlobal additionally opens (if needed) and folds in the
// global store's consolidated and skill counts.
func (s *Store) Stats(includeGlobal bool) (Stats, error) {
	var st Stats

	rawCount, err := s.Raw.RawCount()
	if err != nil {
		return st, err
	}
	st.RawCount = rawCount

	unconsolidated, err := s.Raw.UnconsolidatedCount()
	if err != nil {
		return st, err
	}
	st.UnconsolidatedCount = unconsolidated

	consCount, err := s.Consolidated.Count()
	if err != nil {
		return st, err
	}
	st.ConsolidatedCount = consCount

	skillCount, err := s.Consolidated.SkillCount()
	if err != nil {
		return st, err
	}
	st.SkillCount = skillCount

	if v, ok, err := s.Consolidated.GetMeta("last_sleep_at"); err != nil {
		return st, err
	} else if ok {
		t := parseTime(v)
		st.LastSleepAt = &t
	}
	if v, ok, err := s.Consolidated.GetMeta("last_dream_at"); err != nil {
		return st, err
	} else if ok {
		t := parseTime(v)
		st.LastDreamAt = &t
	}

	if includeGlobal {
		g, err := s.Global()
		if err != nil {
			return st, err
		}
		gCons, err := g.Count()
		if err != nil {
			return st, err
		}
		gSkills, err := g.SkillCount()
		if err != nil {
			return st, err
		}
		st.ConsolidatedCount += gCons
		st.SkillCount += gSkills
	}

	return st, nil
}
