package dreamer

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thrashr888/cortex/internal/llm"
	"github.com/thrashr888/cortex/internal/store"
)

func newTestConsolidated(t *testing.T) *store.ConsolidatedStore {
	t.Helper()
	dir := t.TempDir()
	cs, err := store.OpenConsolidated(filepath.Join(dir, "consolidated.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func TestSurveyGroupsByKindAndCounts(t *testing.T) {
	memories := []store.ConsolidatedMemory{
		{ID: 1, Kind: "pattern", Content: "a"},
		{ID: 2, Kind: "pattern", Content: "b"},
		{ID: 3, Kind: "decision", Content: "c"},
	}
	surveyed := survey(memories)
	require.Len(t, surveyed, 2)
	require.Equal(t, "decision", surveyed[0].Kind)
	require.Equal(t, 1, surveyed[0].Count)
	require.Equal(t, "pattern", surveyed[1].Kind)
	require.Equal(t, 2, surveyed[1].Count)
}

func TestRunAppliesClampedConfidenceAdjustmentAndWritesSkills(t *testing.T) {
	cs := newTestConsolidated(t)
	id, err := cs.InsertConsolidated("ship small PRs", string(store.KindPreference), 0.5, nil)
	require.NoError(t, err)

	mineResp := `{"observations":["tends to prefer small, reviewable diffs"],"confidence_adjustments":[{"id":` +
		strconv.FormatInt(id, 10) + `,"delta":0.9}]}`
	rewriteResp := `{"skills":[{"name":"small-prs","body":"Prefer small, reviewable pull requests.","source_memory_ids":[` + strconv.FormatInt(id, 10) + `]}]}`

	fake := &llm.FakeClient{Responses: []string{mineResp, rewriteResp}}
	skillDir := t.TempDir()

	res, err := Run(context.Background(), cs, Config{Model: "claude-haiku-4-5"}, fake, skillDir, nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.ConfidenceAdjusted)
	require.Equal(t, 1, res.SkillsWritten)
	require.Len(t, res.Observations, 1)
	require.Equal(t, 2, fake.Calls())

	all, err := cs.All()
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.InDelta(t, 0.7, all[0].Confidence, 0.001, "a +0.9 delta must clamp to +0.2")

	lastDream, ok, err := cs.GetMeta("last_dream_at")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, lastDream)
}

func TestRunRejectsMalformedMineResponse(t *testing.T) {
	cs := newTestConsolidated(t)
	_, err := cs.InsertConsolidated("some pattern", string(store.KindPattern), 0.6, nil)
	require.NoError(t, err)

	fake := &llm.FakeClient{Responses: []string{"not json"}}
	_, err = Run(context.Background(), cs, Config{Model: "claude-haiku-4-5"}, fake, t.TempDir(), nil)
	require.Error(t, err)
}

func TestRunNeverDeletesConsolidatedRows(t *testing.T) {
	cs := newTestConsolidated(t)
	id, err := cs.InsertConsolidated("a durable decision", string(store.KindDecision), 0.6, nil)
	require.NoError(t, err)

	mineResp := `{"observations":[],"confidence_adjustments":[{"id":` + strconv.FormatInt(id, 10) + `,"delta":-0.1}]}`
	rewriteResp := `{"skills":[]}`
	fake := &llm.FakeClient{Responses: []string{mineResp, rewriteResp}}

	_, err = Run(context.Background(), cs, Config{Model: "claude-haiku-4-5"}, fake, t.TempDir(), nil)
	require.NoError(t, err)

	count, err := cs.Count()
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}
