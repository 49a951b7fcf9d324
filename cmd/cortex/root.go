package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/thrashr888/cortex/internal/cortexcfg"
	"github.com/thrashr888/cortex/internal/cortexlog"
	"github.com/thrashr888/cortex/internal/llm"
	"github.com/thrashr888/cortex/internal/store"
)

var flagDir string
var flagJSON bool
var flagDebug bool

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:     "cortex",
		Short:   "Repo-local cognitive memory for AI coding agents",
		Version: version,
	}

	root.PersistentFlags().StringVar(&flagDir, "dir", "", "project directory (defaults to the current directory)")
	root.PersistentFlags().BoolVar(&flagJSON, "json", false, "emit machine-readable JSON output")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug-level structured logging")

	root.AddCommand(
		newInitCommand(),
		newSaveCommand(),
		newRecallCommand(),
		newContextCommand(),
		newSleepCommand(),
		newDreamCommand(),
		newWakeCommand(),
		newStatsCommand(),
		newEditCommand(),
		newDeleteCommand(),
		newMCPCommand(),
		newBrowseCommand(),
	)
	return root
}

// engine bundles the wiring every subcommand needs: the open store, loaded
// config, optional LLM client, skill directories, and logger.
type engine struct {
	store           *store.Store
	cfg             cortexcfg.Config
	llm             llm.Client
	projectSkillDir string
	globalSkillDir  string
	logger          *zap.Logger
}

func openEngine() (*engine, error) {
	projectDir := flagDir
	if projectDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("cortex: determine working directory: %w", err)
		}
		projectDir = wd
	}
	cortexDir := filepath.Join(projectDir, ".cortex")

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("cortex: determine home directory: %w", err)
	}
	globalDir := filepath.Join(home, ".cortex")

	cfg, err := cortexcfg.Load(cortexDir)
	if err != nil {
		return nil, err
	}

	s, err := store.Open(cortexDir, filepath.Join(globalDir, "consolidated.db"))
	if err != nil {
		return nil, err
	}

	client, _ := llm.FromEnvironment() // client is nil when no credentials are configured

	return &engine{
		store:           s,
		cfg:             cfg,
		llm:             client,
		projectSkillDir: filepath.Join(cortexDir, "skills"),
		globalSkillDir:  filepath.Join(globalDir, "skills"),
		logger:          cortexlog.New(flagDebug),
	}, nil
}

func (e *engine) Close() {
	_ = e.store.Close()
	_ = e.logger.Sync()
}
