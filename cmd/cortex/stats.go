package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCommand() *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show memory store statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			stats, err := e.store.Stats(global)
			if err != nil {
				return err
			}

			if flagJSON {
				enc, err := json.Marshal(stats)
				if err != nil {
					return err
				}
				fmt.Println(string(enc))
				return nil
			}

			fmt.Printf("raw:            %d\n", stats.RawCount)
			fmt.Printf("unconsolidated: %d\n", stats.UnconsolidatedCount)
			fmt.Printf("consolidated:   %d\n", stats.ConsolidatedCount)
			fmt.Printf("skills:         %d\n", stats.SkillCount)
			if stats.LastSleepAt != nil {
				fmt.Printf("last sleep:     %s\n", stats.LastSleepAt.Format("2006-01-02 15:04:05"))
			}
			if stats.LastDreamAt != nil {
				fmt.Printf("last dream:     %s\n", stats.LastDreamAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&global, "global", "g", false, "include the user-global consolidated store")
	return cmd
}
