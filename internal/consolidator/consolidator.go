// Package consolidator implements the three cost-tiered cleanup passes
// that move knowledge from raw episodic rows into long-term consolidated
// entries: the no-LLM micro pass, the single-call quick-sleep pass, and the
// global-promotion subpass.
package consolidator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/thrashr888/cortex/internal/cortexcfg"
	"github.com/thrashr888/cortex/internal/cortexerr"
	"github.com/thrashr888/cortex/internal/llm"
	"github.com/thrashr888/cortex/internal/skills"
	"github.com/thrashr888/cortex/internal/store"
)

// MicroResult reports what the micro pass changed.
type MicroResult struct {
	DuplicatesCollapsed int
	ConsolidatedDecayed int
	StaleRawDeleted     int
	ExactMatched        int
}

// Micro runs the no-LLM SQL-only cleanup pass: exact-duplicate collapse
// within the unconsolidated set, confidence decay on consolidated rows,
// stale-unconsolidated-row decay, and exact-match-to-consolidated marking.
// Idempotent; safe to re-run.
func Micro(s *store.Store, cfg cortexcfg.Config) (MicroResult, error) {
	var res MicroResult

	groups, err := s.Raw.ExactDuplicateGroups()
	if err != nil {
		return res, fmt.Errorf("cortex: micro pass duplicate scan: %w", err)
	}
	var toDelete []int64
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		// group is ordered oldest-first by ExactDuplicateGroups; the first
		// (lowest id) survives.
		for _, dup := range group[1:] {
			toDelete = append(toDelete, dup.ID)
			res.DuplicatesCollapsed++
		}
	}
	if len(toDelete) > 0 {
		if err := s.Raw.DeleteMany(toDelete); err != nil {
			return res, fmt.Errorf("cortex: micro pass collapse: %w", err)
		}
	}

	decayed, err := s.Consolidated.DecayBelow(cfg.Consolidation.DecayThreshold)
	if err != nil {
		return res, fmt.Errorf("cortex: micro pass decay: %w", err)
	}
	res.ConsolidatedDecayed = int(decayed)

	cutoff := time.Now().Add(-cfg.Consolidation.StaleHorizonDuration()).UTC().Format("2006-01-02T15:04:05.000Z")
	staleDeleted, err := s.Raw.DecayStale(cutoff)
	if err != nil {
		return res, fmt.Errorf("cortex: micro pass stale decay: %w", err)
	}
	res.StaleRawDeleted = int(staleDeleted)

	consolidated, err := s.Consolidated.All()
	if err != nil {
		return res, fmt.Errorf("cortex: micro pass exact-match scan: %w", err)
	}
	lowerContents := make(map[string]bool, len(consolidated))
	for _, c := range consolidated {
		lowerContents[strings.ToLower(c.Content)] = true
	}
	matchIDs, err := s.Raw.ExactMatchIDs(lowerContents)
	if err != nil {
		return res, fmt.Errorf("cortex: micro pass exact-match scan: %w", err)
	}
	if len(matchIDs) > 0 {
		if err := s.Raw.MarkConsolidated(matchIDs); err != nil {
			return res, fmt.Errorf("cortex: micro pass exact-match mark: %w", err)
		}
		res.ExactMatched = len(matchIDs)
	}

	return res, nil
}

// Plan is the strict JSON document a quick-sleep LLM call must return.
type Plan struct {
	Consolidations []PlanConsolidation `json:"consolidations"`
	Contradictions []PlanContradiction `json:"contradictions"`
	Promotions     []int64             `json:"promotions"`
	Decays         []int64             `json:"decays"`
	Skills         []PlanSkill         `json:"skills"`
}

type PlanConsolidation struct {
	Content    string  `json:"content"`
	Kind       string  `json:"kind"`
	Confidence float64 `json:"confidence"`
	SourceIDs  []int64 `json:"source_ids"`
	ReplacesID *int64  `json:"replaces_id,omitempty"`
}

type PlanContradiction struct {
	SupersededID int64 `json:"superseded_id"`
	SupersedesID int64 `json:"supersedes_id"`
}

type PlanSkill struct {
	Name            string  `json:"name"`
	Body            string  `json:"body"`
	SourceMemoryIDs []int64 `json:"source_memory_ids"`
}

// QuickSleepResult reports what a quick-sleep pass changed.
type QuickSleepResult struct {
	Consolidated    int
	Promoted        int
	Deleted         int
	SkillsWritten   int
	FellBackToMicro bool
}

// QuickSleep collects the unconsolidated backlog, asks client for a
// structured plan, and applies it. The plan is applied as separate store
// writes, not inside one transaction: an error part-way through leaves the
// writes made before it in place. If client is nil or the LLM call fails,
// it falls back to Micro so state still improves — the only point of
// suspension in the whole pass is the LLM call itself. A response that does
// not parse as a plan returns ErrLlmProtocol without running Micro and
// without mutating state.
func QuickSleep(ctx context.Context, s *store.Store, cfg cortexcfg.Config, client llm.Client, skillDir string, logger *zap.Logger) (QuickSleepResult, error) {
	var res QuickSleepResult

	if client == nil {
		micro, err := Micro(s, cfg)
		if err != nil {
			return res, err
		}
		res.FellBackToMicro = true
		res.Consolidated = micro.ExactMatched
		res.Deleted = micro.ConsolidatedDecayed + micro.StaleRawDeleted
		if logger != nil {
			logger.Info("quick-sleep fell back to micro pass: no LLM client configured")
		}
		return res, nil
	}

	backlog, err := s.Raw.Unconsolidated(cfg.Consolidation.BatchMax)
	if err != nil {
		return res, fmt.Errorf("cortex: quick-sleep backlog: %w", err)
	}
	if len(backlog) == 0 {
		return res, nil
	}

	existing, err := s.Consolidated.All()
	if err != nil {
		return res, fmt.Errorf("cortex: quick-sleep snapshot: %w", err)
	}

	prompt := buildQuickSleepPrompt(backlog, existing)
	raw, err := client.Complete(ctx, quickSleepSystemPrompt, prompt, cfg.Consolidation.Model, 4096)
	if err != nil {
		if logger != nil {
			logger.Warn("quick-sleep LLM call failed, falling back to micro pass", zap.Error(err))
		}
		micro, merr := Micro(s, cfg)
		if merr != nil {
			return res, merr
		}
		res.FellBackToMicro = true
		res.Deleted = micro.ConsolidatedDecayed + micro.StaleRawDeleted
		return res, nil
	}

	plan, err := parsePlan(raw)
	if err != nil {
		if logger != nil {
			logger.Warn("quick-sleep plan failed to parse, no mutation applied", zap.Error(err))
		}
		return res, fmt.Errorf("%w: %v", cortexerr.ErrLlmProtocol, err)
	}

	return applyPlan(s, cfg, plan, skillDir, logger)
}

const quickSleepSystemPrompt = `You are the consolidation engine for a coding agent's long-term memory store. Given a batch of raw episodic observations and a snapshot of existing consolidated knowledge, return a single JSON object describing how to fold the batch into long-term memory. Respond with JSON only, matching this shape exactly: {"consolidations":[{"content":"","kind":"bugfix|decision|pattern|preference|observation","confidence":0.0,"source_ids":[],"replaces_id":null}],"contradictions":[{"superseded_id":0,"supersedes_id":0}],"promotions":[0],"decays":[0],"skills":[{"name":"","body":"","source_memory_ids":[]}]}`

func buildQuickSleepPrompt(backlog []store.RawMemory, existing []store.ConsolidatedMemory) string {
	var b strings.Builder
	b.WriteString("Unconsolidated observations:\n")
	for _, m := range backlog {
		fmt.Fprintf(&b, "- [%d][%s] %s\n", m.ID, m.Kind, m.Content)
	}
	b.WriteString("\nExisting consolidated entries:\n")
	for _, c := range existing {
		fmt.Fprintf(&b, "- [%d][%s][confidence=%.2f] %s\n", c.ID, c.Kind, c.Confidence, c.Content)
	}
	return b.String()
}

func parsePlan(raw string) (Plan, error) {
	var plan Plan
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if trimmed == "" {
		return plan, fmt.Errorf("empty plan")
	}
	if err := json.Unmarshal([]byte(trimmed), &plan); err != nil {
		return plan, fmt.Errorf("malformed plan JSON: %w", err)
	}
	for _, c := range plan.Consolidations {
		if !store.ValidKind(c.Kind) {
			return plan, fmt.Errorf("consolidation references unknown kind %q", c.Kind)
		}
	}
	return plan, nil
}

func applyPlan(s *store.Store, cfg cortexcfg.Config, plan Plan, skillDir string, logger *zap.Logger) (QuickSleepResult, error) {
	var res QuickSleepResult

	for _, c := range plan.Consolidations {
		id, err := s.Consolidated.InsertConsolidated(c.Content, c.Kind, c.Confidence, c.SourceIDs)
		if err != nil {
			return res, fmt.Errorf("cortex: apply plan consolidation: %w", err)
		}
		if c.ReplacesID != nil {
			_ = s.Consolidated.DeleteConsolidated(*c.ReplacesID)
		}
		if err := s.Raw.MarkConsolidated(c.SourceIDs); err != nil {
			return res, fmt.Errorf("cortex: apply plan mark consolidated: %w", err)
		}
		res.Consolidated++
		_ = id
	}

	for _, contradiction := range plan.Contradictions {
		if err := s.Consolidated.DeleteConsolidated(contradiction.SupersededID); err != nil {
			return res, fmt.Errorf("cortex: apply plan contradiction: %w", err)
		}
		res.Deleted++
	}

	for _, id := range plan.Decays {
		if err := s.Consolidated.DeleteConsolidated(id); err != nil {
			return res, fmt.Errorf("cortex: apply plan decay: %w", err)
		}
		res.Deleted++
	}

	for _, id := range plan.Promotions {
		if _, err := s.PromoteGlobal(id); err != nil {
			if logger != nil {
				logger.Warn("promotion failed, continuing", zap.Int64("id", id), zap.Error(err))
			}
			continue
		}
		res.Promoted++
	}

	for _, sk := range plan.Skills {
		if err := skills.Write(skillDir, sk.Name, sk.Body); err != nil {
			return res, fmt.Errorf("cortex: apply plan skill write: %w", err)
		}
		if err := s.Consolidated.UpsertSkillMeta(sk.Name, sk.SourceMemoryIDs); err != nil {
			return res, fmt.Errorf("cortex: apply plan skill meta: %w", err)
		}
		res.SkillsWritten++
	}

	if err := s.Consolidated.SetMeta("last_sleep_at", time.Now().UTC().Format("2006-01-02T15:04:05.000Z")); err != nil {
		return res, fmt.Errorf("cortex: record last_sleep_at: %w", err)
	}

	if shouldScheduleGlobalDream(s) && logger != nil {
		logger.Info("global store eligible for a dream pass")
	}

	return res, nil
}

// shouldScheduleGlobalDream reports whether the global store has at least
// 5 entries and its last dream is more than 24 hours old (or has never
// run), per the spec's auto-dream trigger.
func shouldScheduleGlobalDream(s *store.Store) bool {
	g, err := s.Global()
	if err != nil {
		return false
	}
	count, err := g.Count()
	if err != nil || count < 5 {
		return false
	}
	v, ok, err := g.GetMeta("last_dream_at")
	if err != nil {
		return false
	}
	if !ok {
		return true
	}
	t, perr := time.Parse("2006-01-02T15:04:05.000Z", v)
	if perr != nil {
		return true
	}
	return time.Since(t) > 24*time.Hour
}
