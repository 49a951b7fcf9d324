// Package dreamer implements the deep-reflection pass: a survey of the
// consolidated store, an LLM-driven mining call for cross-cluster patterns,
// and a rewrite call that refreshes the skill-file set.
package dreamer

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/thrashr888/cortex/internal/cortexerr"
	"github.com/thrashr888/cortex/internal/llm"
	"github.com/thrashr888/cortex/internal/skills"
	"github.com/thrashr888/cortex/internal/store"
)

const maxConfidenceAdjustmentPerRun = 0.2

// Survey summarizes one kind's cluster: count and age distribution, used as
// the first, no-LLM phase of a dream pass.
type Survey struct {
	Kind        string
	Count       int
	OldestDays  float64
	NewestDays  float64
	AverageDays float64
}

// survey groups consolidated memories by kind and computes age statistics.
func survey(memories []store.ConsolidatedMemory) []Survey {
	byKind := make(map[string][]store.ConsolidatedMemory)
	for _, m := range memories {
		byKind[m.Kind] = append(byKind[m.Kind], m)
	}

	var out []Survey
	now := time.Now()
	for kind, rows := range byKind {
		s := Survey{Kind: kind, Count: len(rows)}
		var total float64
		for i, m := range rows {
			age := now.Sub(m.CreatedAt).Hours() / 24
			if i == 0 || age < s.NewestDays {
				s.NewestDays = age
			}
			if i == 0 || age > s.OldestDays {
				s.OldestDays = age
			}
			total += age
		}
		if len(rows) > 0 {
			s.AverageDays = total / float64(len(rows))
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// MinePlan is the strict JSON document the mining call must return.
type MinePlan struct {
	Observations          []string                   `json:"observations"`
	ConfidenceAdjustments []MineConfidenceAdjustment `json:"confidence_adjustments"`
}

type MineConfidenceAdjustment struct {
	ID    int64   `json:"id"`
	Delta float64 `json:"delta"`
}

// RewritePlan is the strict JSON document the rewrite call must return.
type RewritePlan struct {
	Skills []RewriteSkill `json:"skills"`
}

type RewriteSkill struct {
	Name            string  `json:"name"`
	Body            string  `json:"body"`
	SourceMemoryIDs []int64 `json:"source_memory_ids"`
}

// Result reports what a dream pass changed.
type Result struct {
	Surveyed           []Survey
	Observations       []string
	ConfidenceAdjusted int
	SkillsWritten      int
	SkillsPruned       int
}

// Run executes the three dream phases against cs, writing skill files to
// skillDir. It never deletes raw memories and clamps each row's confidence
// adjustment to maxConfidenceAdjustmentPerRun.
func Run(ctx context.Context, cs *store.ConsolidatedStore, cfg Config, client llm.Client, skillDir string, logger *zap.Logger) (Result, error) {
	var res Result

	memories, err := cs.All()
	if err != nil {
		return res, fmt.Errorf("cortex: dream survey: %w", err)
	}
	res.Surveyed = survey(memories)

	minePrompt := buildMinePrompt(res.Surveyed, memories)
	mineRaw, err := client.Complete(ctx, mineSystemPrompt, minePrompt, cfg.Model, 4096)
	if err != nil {
		return res, fmt.Errorf("cortex: dream mine call: %w", err)
	}
	minePlan, err := parseMinePlan(mineRaw)
	if err != nil {
		return res, fmt.Errorf("%w: dream mine response: %v", cortexerr.ErrLlmProtocol, err)
	}
	res.Observations = minePlan.Observations

	for _, adj := range minePlan.ConfidenceAdjustments {
		delta := adj.Delta
		if delta > maxConfidenceAdjustmentPerRun {
			delta = maxConfidenceAdjustmentPerRun
		}
		if delta < -maxConfidenceAdjustmentPerRun {
			delta = -maxConfidenceAdjustmentPerRun
		}
		current, ok := findByID(memories, adj.ID)
		if !ok {
			continue
		}
		newConfidence := current.Confidence + delta
		if err := cs.UpdateConsolidated(adj.ID, store.ConsolidatedUpdate{Confidence: &newConfidence}); err != nil {
			if logger != nil {
				logger.Warn("dream confidence adjustment failed, continuing", zap.Int64("id", adj.ID), zap.Error(err))
			}
			continue
		}
		res.ConfidenceAdjusted++
	}

	rewritePrompt := buildRewritePrompt(minePlan, memories)
	rewriteRaw, err := client.Complete(ctx, rewriteSystemPrompt, rewritePrompt, cfg.Model, 4096)
	if err != nil {
		return res, fmt.Errorf("cortex: dream rewrite call: %w", err)
	}
	rewritePlan, err := parseRewritePlan(rewriteRaw)
	if err != nil {
		return res, fmt.Errorf("%w: dream rewrite response: %v", cortexerr.ErrLlmProtocol, err)
	}

	currentSlugs := make(map[string]bool, len(rewritePlan.Skills))
	for _, sk := range rewritePlan.Skills {
		if err := skills.Write(skillDir, sk.Name, sk.Body); err != nil {
			return res, fmt.Errorf("cortex: dream skill write: %w", err)
		}
		if err := cs.UpsertSkillMeta(sk.Name, sk.SourceMemoryIDs); err != nil {
			return res, fmt.Errorf("cortex: dream skill meta: %w", err)
		}
		currentSlugs[skills.Slug(sk.Name)] = true
		res.SkillsWritten++
	}

	pruned, err := skills.Prune(skillDir, currentSlugs, 30*24*time.Hour)
	if err != nil {
		return res, fmt.Errorf("cortex: dream skill prune: %w", err)
	}
	res.SkillsPruned = pruned

	if err := cs.SetMeta("last_dream_at", time.Now().UTC().Format("2006-01-02T15:04:05.000Z")); err != nil {
		return res, fmt.Errorf("cortex: record last_dream_at: %w", err)
	}

	return res, nil
}

// Config carries the subset of cortexcfg.Consolidation the dreamer needs;
// kept separate from cortexcfg.Config so this package doesn't need to
// import the whole configuration surface for one field.
type Config struct {
	Model string
}

const mineSystemPrompt = `You are the deep-reflection engine for a coding agent's long-term memory store. Given a survey of consolidated knowledge clusters and their full contents, identify cross-cluster patterns, unresolved contradictions, and meta-observations about the agent's habits. Respond with JSON only: {"observations":[""],"confidence_adjustments":[{"id":0,"delta":0.0}]}`

const rewriteSystemPrompt = `You are producing a refreshed skill-file set for a coding agent's memory store, given prior mining observations and the full consolidated knowledge base. Respond with JSON only: {"skills":[{"name":"","body":"","source_memory_ids":[]}]}`

func buildMinePrompt(surveyed []Survey, memories []store.ConsolidatedMemory) string {
	var b strings.Builder
	b.WriteString("Cluster survey:\n")
	for _, s := range surveyed {
		fmt.Fprintf(&b, "- %s: %d entries, age %.1f-%.1f days (avg %.1f)\n", s.Kind, s.Count, s.NewestDays, s.OldestDays, s.AverageDays)
	}
	b.WriteString("\nFull consolidated contents:\n")
	for _, m := range memories {
		fmt.Fprintf(&b, "- [%d][%s][confidence=%.2f] %s\n", m.ID, m.Kind, m.Confidence, m.Content)
	}
	return b.String()
}

func buildRewritePrompt(mined MinePlan, memories []store.ConsolidatedMemory) string {
	var b strings.Builder
	b.WriteString("Mining observations:\n")
	for _, o := range mined.Observations {
		fmt.Fprintf(&b, "- %s\n", o)
	}
	b.WriteString("\nConsolidated contents:\n")
	for _, m := range memories {
		fmt.Fprintf(&b, "- [%d][%s] %s\n", m.ID, m.Kind, m.Content)
	}
	return b.String()
}

func parseMinePlan(raw string) (MinePlan, error) {
	var plan MinePlan
	trimmed := stripCodeFence(raw)
	if trimmed == "" {
		return plan, fmt.Errorf("empty mine response")
	}
	if err := json.Unmarshal([]byte(trimmed), &plan); err != nil {
		return plan, fmt.Errorf("malformed mine JSON: %w", err)
	}
	return plan, nil
}

func parseRewritePlan(raw string) (RewritePlan, error) {
	var plan RewritePlan
	trimmed := stripCodeFence(raw)
	if trimmed == "" {
		return plan, fmt.Errorf("empty rewrite response")
	}
	if err := json.Unmarshal([]byte(trimmed), &plan); err != nil {
		return plan, fmt.Errorf("malformed rewrite JSON: %w", err)
	}
	for _, sk := range plan.Skills {
		if strings.TrimSpace(sk.Name) == "" {
			return plan, fmt.Errorf("rewrite plan contains an unnamed skill")
		}
	}
	return plan, nil
}

func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}

func findByID(memories []store.ConsolidatedMemory, id int64) (store.ConsolidatedMemory, bool) {
	for _, m := range memories {
		if m.ID == id {
			return m, true
		}
	}
	return store.ConsolidatedMemory{}, false
}
