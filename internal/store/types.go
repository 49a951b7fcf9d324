// Package store owns the three SQLite databases that back Cortex: the
// per-project raw episodic store, the per-project consolidated long-term
// store, and the user-global consolidated store (same schema as the
// project one). It is the only package that issues SQL.
package store

import "time"

// Kind enumerates the recognized memory kinds. Validation rejects anything
// outside this set.
type Kind string

const (
	KindBugfix      Kind = "bugfix"
	KindDecision    Kind = "decision"
	KindPattern     Kind = "pattern"
	KindPreference  Kind = "preference"
	KindObservation Kind = "observation"
)

// ValidKind reports whether k is one of the recognized kinds.
func ValidKind(k string) bool {
	switch Kind(k) {
	case KindBugfix, KindDecision, KindPattern, KindPreference, KindObservation:
		return true
	default:
		return false
	}
}

// RawMemory is one episodic observation in raw.db.
type RawMemory struct {
	ID           int64
	Content      string
	Kind         string
	CreatedAt    time.Time
	Consolidated bool
	SessionID    string
	AccessCount  int64
}

// ConsolidatedMemory is one long-term entry in consolidated.db (project or
// global — both share this shape).
type ConsolidatedMemory struct {
	ID          int64
	Content     string
	Kind        string
	Confidence  float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	SourceIDs   []int64
	AccessCount int64
}

// SkillMeta is the database-tracked half of a skill file: the markdown body
// itself lives on disk, written by internal/skills, but Cortex keeps a
// row per skill so Stats and Dreamer can enumerate clusters without
// re-reading the filesystem.
type SkillMeta struct {
	ID        int64
	Name      string
	SourceIDs []int64
	UpdatedAt time.Time
}

// Stats is a read-only projection over both databases. Never persisted.
type Stats struct {
	RawCount            int64
	UnconsolidatedCount int64
	ConsolidatedCount   int64
	SkillCount          int64
	LastSleepAt         *time.Time
	LastDreamAt         *time.Time
}

const sqliteTimeLayout = "2006-01-02T15:04:05.000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		sqliteTimeLayout,
		time.RFC3339,
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
