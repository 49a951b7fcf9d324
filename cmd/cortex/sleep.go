package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thrashr888/cortex/internal/consolidator"
)

func newSleepCommand() *cobra.Command {
	var micro bool

	cmd := &cobra.Command{
		Use:   "sleep",
		Short: "Run a consolidation pass",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			if micro || e.llm == nil {
				res, err := consolidator.Micro(e.store, e.cfg)
				if err != nil {
					return err
				}
				fmt.Printf("micro: collapsed %d duplicates, decayed %d consolidated, deleted %d stale raw, matched %d exact\n",
					res.DuplicatesCollapsed, res.ConsolidatedDecayed, res.StaleRawDeleted, res.ExactMatched)
				return nil
			}

			res, err := consolidator.QuickSleep(context.Background(), e.store, e.cfg, e.llm, e.projectSkillDir, e.logger)
			if err != nil {
				return err
			}
			if res.FellBackToMicro {
				fmt.Println("quick-sleep fell back to micro consolidation")
				return nil
			}
			fmt.Printf("quick-sleep: consolidated %d, promoted %d, deleted %d, wrote %d skills\n",
				res.Consolidated, res.Promoted, res.Deleted, res.SkillsWritten)
			return nil
		},
	}

	cmd.Flags().BoolVar(&micro, "micro", false, "force the pure-SQL micro pass instead of an LLM-backed quick-sleep")
	return cmd
}
