package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thrashr888/cortex/internal/cortexerr"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "project"), filepath.Join(dir, "global", "consolidated.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInsertRawValidatesContentAndKind(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Raw.InsertRaw("", "bugfix", "sess-1")
	require.ErrorIs(t, err, cortexerr.ErrValidation)

	_, err = s.Raw.InsertRaw("fixed the race", "not-a-kind", "sess-1")
	require.ErrorIs(t, err, cortexerr.ErrValidation)

	id, err := s.Raw.InsertRaw("  fixed the race  ", "bugfix", "sess-1")
	require.NoError(t, err)
	require.Positive(t, id)

	recent, err := s.Raw.Recent(10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, "fixed the race", recent[0].Content)
	require.False(t, recent[0].Consolidated)
}

func TestMarkConsolidatedIsIdempotent(t *testing.T) {
	s := newTestStore(t)

	id, err := s.Raw.InsertRaw("prefers tabs over spaces", "preference", "sess-1")
	require.NoError(t, err)

	require.NoError(t, s.Raw.MarkConsolidated([]int64{id, 99999}))
	require.NoError(t, s.Raw.MarkConsolidated([]int64{id}))

	count, err := s.Raw.UnconsolidatedCount()
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestExactDuplicateGroupsCollapseOldestSurvives(t *testing.T) {
	s := newTestStore(t)

	first, err := s.Raw.InsertRaw("always run gofmt before commit", "pattern", "sess-1")
	require.NoError(t, err)
	_, err = s.Raw.InsertRaw("always run gofmt before commit", "pattern", "sess-2")
	require.NoError(t, err)

	groups, err := s.Raw.ExactDuplicateGroups()
	require.NoError(t, err)

	key := "pattern" + "\x00" + "always run gofmt before commit"
	require.Contains(t, groups, key)
	require.Len(t, groups[key], 2)
	require.Equal(t, first, groups[key][0].ID)
}

func TestInsertConsolidatedDedupesWithinKind(t *testing.T) {
	s := newTestStore(t)

	id1, err := s.Consolidated.InsertConsolidated("uses cobra for CLI commands", "pattern", 0.6, []int64{1})
	require.NoError(t, err)

	id2, err := s.Consolidated.InsertConsolidated("uses cobra for CLI commands", "pattern", 0.8, []int64{2})
	require.NoError(t, err)
	require.Equal(t, id1, id2, "exact content match within the same kind should merge, not duplicate")

	all, err := s.Consolidated.All()
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.ElementsMatch(t, []int64{1, 2}, all[0].SourceIDs)
}

func TestInsertConsolidatedRejectsUnknownKind(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Consolidated.InsertConsolidated("some content", "not-a-kind", 0.5, nil)
	require.ErrorIs(t, err, cortexerr.ErrValidation)
}

func TestDecayBelowRemovesLowConfidenceRows(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Consolidated.InsertConsolidated("weak signal", "observation", 0.05, nil)
	require.NoError(t, err)
	_, err = s.Consolidated.InsertConsolidated("strong signal", "decision", 0.9, nil)
	require.NoError(t, err)

	n, err := s.Consolidated.DecayBelow(0.1)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	all, err := s.Consolidated.All()
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "strong signal", all[0].Content)
}

func TestRelevanceSearchRanksByBlendedScore(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Consolidated.InsertConsolidated("prefers tabs for indentation in go files", "preference", 0.9, nil)
	require.NoError(t, err)
	_, err = s.Consolidated.InsertConsolidated("prefers dark mode editor themes", "preference", 0.3, nil)
	require.NoError(t, err)

	results, ok, err := s.Consolidated.RelevanceSearch(`"tabs"*`, 10)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, results)
	require.Contains(t, results[0].Memory.Content, "tabs")
}

func TestRelevanceSearchDegradesOnMalformedExpression(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.Consolidated.RelevanceSearch(`AND OR (((`, 10)
	require.NoError(t, err)
	require.False(t, ok, "malformed FTS expression should report ok=false, not an error")
}

func TestPromoteGlobalDedupesByContent(t *testing.T) {
	s := newTestStore(t)

	id, err := s.Consolidated.InsertConsolidated("always uses pnpm over npm", "preference", 0.7, nil)
	require.NoError(t, err)

	gid1, err := s.PromoteGlobal(id)
	require.NoError(t, err)
	require.Positive(t, gid1)

	id2, err := s.Consolidated.InsertConsolidated("always uses pnpm over npm in a different project", "preference", 0.7, nil)
	require.NoError(t, err)
	_ = id2

	gid2, err := s.PromoteGlobal(id)
	require.NoError(t, err)
	require.Equal(t, gid1, gid2)

	global, err := s.Global()
	require.NoError(t, err)
	all, err := global.All()
	require.NoError(t, err)
	require.Len(t, all, 1, "promoting the same content twice must not duplicate the global row")
}

func TestStatsAggregatesAcrossDatabases(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Raw.InsertRaw("observed a panic in the tokenizer", "bugfix", "sess-1")
	require.NoError(t, err)
	_, err = s.Consolidated.InsertConsolidated("tokenizer panics on empty input", "bugfix", 0.8, []int64{1})
	require.NoError(t, err)
	require.NoError(t, s.Consolidated.UpsertSkillMeta("tokenizer-safety", []int64{1}))

	stats, err := s.Stats(false)
	require.NoError(t, err)
	require.EqualValues(t, 1, stats.RawCount)
	require.EqualValues(t, 1, stats.UnconsolidatedCount)
	require.EqualValues(t, 1, stats.ConsolidatedCount)
	require.EqualValues(t, 1, stats.SkillCount)
}

func TestGlobalStoreIsLazilyOpened(t *testing.T) {
	s := newTestStore(t)

	require.Nil(t, s.globalHandle)
	require.NoError(t, s.LazyInitGlobal())
	require.NotNil(t, s.globalHandle)
}

func TestOpenRejectsFutureSchemaVersion(t *testing.T) {
	dir := t.TempDir()
	consPath := filepath.Join(dir, "consolidated.db")

	cons, err := OpenConsolidated(consPath)
	require.NoError(t, err)
	require.NoError(t, cons.SetMeta("schema_version", "999"))
	require.NoError(t, cons.Close())

	_, err = OpenConsolidated(consPath)
	require.Error(t, err)
	require.True(t, errors.Is(err, cortexerr.ErrIncompatibleSchema) || errors.Is(err, cortexerr.ErrStoreUnavailable))
}
