package wake

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thrashr888/cortex/internal/cortexcfg"
	"github.com/thrashr888/cortex/internal/llm"
	"github.com/thrashr888/cortex/internal/store"
)

func newTestStore(t *testing.T) (*store.Store, string, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(filepath.Join(dir, "project"), filepath.Join(dir, "global", "consolidated.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, filepath.Join(dir, "project", "skills"), filepath.Join(dir, "global", "skills")
}

func TestWakeWithNoCredentialFallsBackToMicroAndEmitsContext(t *testing.T) {
	s, projectSkills, globalSkills := newTestStore(t)
	cfg := cortexcfg.Default()

	_, err := s.Raw.InsertRaw("duplicate note", string(store.KindObservation), "sess-1")
	require.NoError(t, err)
	_, err = s.Raw.InsertRaw("duplicate note", string(store.KindObservation), "sess-1")
	require.NoError(t, err)

	res, err := Wake(context.Background(), s, cfg, nil, nil, Options{ProjectSkillDir: projectSkills, GlobalSkillDir: globalSkills})
	require.NoError(t, err)
	require.False(t, res.RanQuickSleep)
	require.Contains(t, res.Context, "## Project Memory Context")

	count, err := s.Raw.RawCount()
	require.NoError(t, err)
	require.Equal(t, int64(1), count, "the micro pass must have collapsed the duplicate")
}

func TestWakeWithCredentialRunsQuickSleepWhenBacklogExists(t *testing.T) {
	s, projectSkills, globalSkills := newTestStore(t)
	cfg := cortexcfg.Default()

	_, err := s.Raw.InsertRaw("an observation to consolidate", string(store.KindObservation), "sess-1")
	require.NoError(t, err)

	plan := `{"consolidations":[{"content":"a consolidated pattern","kind":"pattern","confidence":0.6,"source_ids":[]}],"contradictions":[],"promotions":[],"decays":[],"skills":[]}`
	fake := &llm.FakeClient{Responses: []string{plan}}

	res, err := Wake(context.Background(), s, cfg, fake, nil, Options{ProjectSkillDir: projectSkills, GlobalSkillDir: globalSkills})
	require.NoError(t, err)
	require.True(t, res.RanQuickSleep)
	require.Equal(t, 1, fake.Calls())
}

func TestWakeIsIdempotentWhenBacklogEmpty(t *testing.T) {
	s, projectSkills, globalSkills := newTestStore(t)
	cfg := cortexcfg.Default()
	fake := &llm.FakeClient{Responses: []string{"irrelevant"}}

	res, err := Wake(context.Background(), s, cfg, fake, nil, Options{ProjectSkillDir: projectSkills, GlobalSkillDir: globalSkills})
	require.NoError(t, err)
	require.False(t, res.RanQuickSleep)
	require.Equal(t, 0, fake.Calls())
	require.Contains(t, res.Context, "## Project Memory Context")
}
