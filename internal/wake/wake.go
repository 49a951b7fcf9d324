// Package wake implements the session-start routine: consolidate whatever
// backlog exists using the best available pass, then emit the context
// document an agent reads to resume work.
package wake

import (
	"context"

	"go.uber.org/zap"

	"github.com/thrashr888/cortex/internal/consolidator"
	"github.com/thrashr888/cortex/internal/contextfmt"
	"github.com/thrashr888/cortex/internal/cortexcfg"
	"github.com/thrashr888/cortex/internal/llm"
	"github.com/thrashr888/cortex/internal/store"
)

// Result reports what Wake did before rendering context.
type Result struct {
	RanQuickSleep bool
	Sleep         consolidator.QuickSleepResult
	Context       string
}

// Options configures a Wake run.
type Options struct {
	ProjectSkillDir string
	GlobalSkillDir  string
	ContextQuery    string
	ContextLimit    int
	Compact         bool
}

// Wake runs a consolidation pass sized to what's available — quick-sleep if
// an LLM credential is configured and there's backlog, otherwise micro —
// then renders the context document. Safe to call every session start;
// idempotent when the unconsolidated backlog is empty.
func Wake(ctx context.Context, s *store.Store, cfg cortexcfg.Config, client llm.Client, logger *zap.Logger, opts Options) (Result, error) {
	var res Result

	backlog, err := s.Raw.UnconsolidatedCount()
	if err != nil {
		return res, err
	}

	if backlog > 0 && client != nil {
		sleepRes, err := consolidator.QuickSleep(ctx, s, cfg, client, opts.ProjectSkillDir, logger)
		if err != nil {
			return res, err
		}
		res.RanQuickSleep = !sleepRes.FellBackToMicro
		res.Sleep = sleepRes
	} else {
		if _, err := consolidator.Micro(s, cfg); err != nil {
			return res, err
		}
	}

	doc, err := contextfmt.Context(s, contextfmt.Options{
		Query:           opts.ContextQuery,
		Limit:           opts.ContextLimit,
		Compact:         opts.Compact,
		ProjectSkillDir: opts.ProjectSkillDir,
		GlobalSkillDir:  opts.GlobalSkillDir,
	})
	if err != nil {
		return res, err
	}
	res.Context = doc
	return res, nil
}
