package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thrashr888/cortex/internal/dreamer"
)

func newDreamCommand() *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:   "dream",
		Short: "Run a deep-reflection pass over consolidated memory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			if e.llm == nil {
				return fmt.Errorf("dream requires an LLM client; set ANTHROPIC_API_KEY or AWS credentials")
			}

			cs := e.store.Consolidated
			skillDir := e.projectSkillDir
			if global {
				g, err := e.store.Global()
				if err != nil {
					return err
				}
				cs = g
				skillDir = e.globalSkillDir
			}

			res, err := dreamer.Run(context.Background(), cs, dreamer.Config{Model: e.cfg.Consolidation.Model}, e.llm, skillDir, e.logger)
			if err != nil {
				return err
			}

			fmt.Printf("surveyed %d kinds, adjusted confidence on %d memories, wrote %d skills, pruned %d\n",
				len(res.Surveyed), res.ConfidenceAdjusted, res.SkillsWritten, res.SkillsPruned)
			for _, o := range res.Observations {
				fmt.Println("-", o)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&global, "global", "g", false, "dream over the user-global store instead of the project store")
	return cmd
}
