// Package skills renders consolidated skill clusters to markdown files under
// .cortex/skills/, atomically, and prunes files that have fallen out of the
// current skill set.
package skills

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var nameSanitizer = regexp.MustCompile(`[^a-z0-9-]+`)

// Slug lowercases name, replaces runs of non [a-z0-9-] characters with a
// single hyphen, and trims leading/trailing hyphens — used as the skill's
// filename stem.
func Slug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = nameSanitizer.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Write renders a skill file with a YAML front-matter header (name,
// description) followed by body, and writes it atomically: a temp file in
// the same directory followed by os.Rename, so a reader never observes a
// partially written skill.
func Write(dir, name, body string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("cortex: create skills dir: %w", err)
	}

	slug := Slug(name)
	if slug == "" {
		return fmt.Errorf("cortex: skill name %q sanitizes to empty slug", name)
	}

	description := firstLine(body)
	doc := fmt.Sprintf("---\nname: %s\ndescription: %s\n---\n\n%s\n",
		name, description, strings.TrimSpace(body))

	target := filepath.Join(dir, slug+".md")
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, []byte(doc), 0644); err != nil {
		return fmt.Errorf("cortex: write skill temp file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("cortex: rename skill file: %w", err)
	}
	return nil
}

func firstLine(body string) string {
	trimmed := strings.TrimSpace(body)
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	trimmed = strings.TrimPrefix(trimmed, "#")
	return strings.TrimSpace(trimmed)
}

// Prune removes markdown files in dir that are not named in currentSlugs and
// are older than the given age, per the stale-skill cleanup rule: a skill
// file only disappears once it is both unreferenced and aged out, so a
// temporarily empty plan can't wipe the skill directory.
func Prune(dir string, currentSlugs map[string]bool, olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("cortex: read skills dir: %w", err)
	}

	var removed int
	cutoff := time.Now().Add(-olderThan)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		slug := strings.TrimSuffix(entry.Name(), ".md")
		if currentSlugs[slug] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return removed, fmt.Errorf("cortex: prune skill %q: %w", entry.Name(), err)
		}
		removed++
	}
	return removed, nil
}
