// Package cortexcfg loads .cortex/config.toml into a typed settings record,
// falling back to documented defaults when the file is absent.
package cortexcfg

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Consolidation holds the [consolidation] table of config.toml.
type Consolidation struct {
	AutoMicroThreshold int     `toml:"auto_micro_threshold"`
	DecayThreshold     float64 `toml:"decay_threshold"`
	Model              string  `toml:"model"`
	StaleHorizon       string  `toml:"stale_horizon"`
	BatchMax           int     `toml:"batch_max"`
}

// Config is the root of config.toml.
type Config struct {
	Consolidation Consolidation `toml:"consolidation"`
}

// StaleHorizonDuration parses StaleHorizon, defaulting to 30 days on a
// malformed or empty value.
func (c Consolidation) StaleHorizonDuration() time.Duration {
	if c.StaleHorizon == "" {
		return 30 * 24 * time.Hour
	}
	d, err := parseDayDuration(c.StaleHorizon)
	if err != nil {
		return 30 * 24 * time.Hour
	}
	return d
}

// parseDayDuration accepts Go duration strings plus a trailing "d" suffix
// for whole days (e.g. "30d"), since config.toml expresses stale_horizon in
// days by convention.
func parseDayDuration(s string) (time.Duration, error) {
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err != nil {
			return 0, err
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

// Default returns the documented defaults.
func Default() Config {
	return Config{
		Consolidation: Consolidation{
			AutoMicroThreshold: 10,
			DecayThreshold:     0.1,
			Model:              "claude-haiku-4-5",
			StaleHorizon:       "30d",
			BatchMax:           100,
		},
	}
}

// Load reads cortexDir/config.toml, merging recognized fields over the
// defaults. A missing file is not an error: it yields Default().
func Load(cortexDir string) (Config, error) {
	cfg := Default()

	path := filepath.Join(cortexDir, "config.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("cortex: read config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("cortex: parse config.toml: %w", err)
	}
	if cfg.Consolidation.Model == "" {
		cfg.Consolidation.Model = "claude-haiku-4-5"
	}
	if cfg.Consolidation.StaleHorizon == "" {
		cfg.Consolidation.StaleHorizon = "30d"
	}
	if cfg.Consolidation.BatchMax == 0 {
		cfg.Consolidation.BatchMax = 100
	}
	if cfg.Consolidation.AutoMicroThreshold == 0 {
		cfg.Consolidation.AutoMicroThreshold = 10
	}
	return cfg, nil
}

// Write renders cfg as pretty TOML to cortexDir/config.toml. Used by the
// bootstrap initializer.
func Write(cortexDir string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cortex: marshal config: %w", err)
	}
	path := filepath.Join(cortexDir, "config.toml")
	return os.WriteFile(path, data, 0644)
}
