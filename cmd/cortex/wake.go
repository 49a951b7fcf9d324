package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thrashr888/cortex/internal/wake"
)

func newWakeCommand() *cobra.Command {
	var query string
	var limit int
	var compact bool

	cmd := &cobra.Command{
		Use:   "wake",
		Short: "Consolidate the backlog and emit the session-start context document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			res, err := wake.Wake(context.Background(), e.store, e.cfg, e.llm, e.logger, wake.Options{
				ProjectSkillDir: e.projectSkillDir,
				GlobalSkillDir:  e.globalSkillDir,
				ContextQuery:    query,
				ContextLimit:    limit,
				Compact:         compact,
			})
			if err != nil {
				return err
			}

			if res.RanQuickSleep {
				fmt.Printf("consolidated %d, promoted %d, wrote %d skills\n",
					res.Sleep.Consolidated, res.Sleep.Promoted, res.Sleep.SkillsWritten)
			}
			fmt.Print(res.Context)
			return nil
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "focus the emitted context document on a specific query")
	cmd.Flags().IntVar(&limit, "limit", 15, "maximum entries per context section")
	cmd.Flags().BoolVar(&compact, "compact", false, "emit a condensed context document")
	return cmd
}
