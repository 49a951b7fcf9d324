// Package bootstrap idempotently initializes the .cortex/ directory layout
// a project needs: config.toml with documented defaults, and the skills/
// subdirectory skill files are written into.
package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/thrashr888/cortex/internal/cortexcfg"
)

// Result reports which pieces Init created versus found already present.
type Result struct {
	CreatedDir    bool
	CreatedConfig bool
	CreatedSkills bool
}

// Init creates cortexDir (typically <project>/.cortex) if absent, writes a
// default config.toml if one doesn't already exist, and creates the
// skills/ subdirectory. Re-running Init on an already-initialized project
// is a no-op beyond the Result it reports.
func Init(cortexDir string) (Result, error) {
	var res Result

	if _, err := os.Stat(cortexDir); os.IsNotExist(err) {
		if err := os.MkdirAll(cortexDir, 0755); err != nil {
			return res, fmt.Errorf("cortex: create %s: %w", cortexDir, err)
		}
		res.CreatedDir = true
	} else if err != nil {
		return res, fmt.Errorf("cortex: stat %s: %w", cortexDir, err)
	}

	configPath := filepath.Join(cortexDir, "config.toml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := cortexcfg.Write(cortexDir, cortexcfg.Default()); err != nil {
			return res, err
		}
		res.CreatedConfig = true
	} else if err != nil {
		return res, fmt.Errorf("cortex: stat %s: %w", configPath, err)
	}

	skillsDir := filepath.Join(cortexDir, "skills")
	if _, err := os.Stat(skillsDir); os.IsNotExist(err) {
		if err := os.MkdirAll(skillsDir, 0755); err != nil {
			return res, fmt.Errorf("cortex: create %s: %w", skillsDir, err)
		}
		res.CreatedSkills = true
	} else if err != nil {
		return res, fmt.Errorf("cortex: stat %s: %w", skillsDir, err)
	}

	gitignorePath := filepath.Join(cortexDir, ".gitignore")
	if _, err := os.Stat(gitignorePath); os.IsNotExist(err) {
		if err := os.WriteFile(gitignorePath, []byte("raw.db\nraw.db-wal\nraw.db-shm\n"), 0644); err != nil {
			return res, fmt.Errorf("cortex: write %s: %w", gitignorePath, err)
		}
	}

	return res, nil
}
