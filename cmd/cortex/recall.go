package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thrashr888/cortex/internal/retrieval"
)

func newRecallCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "recall <query>",
		Short: "Search project and global memory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			query := strings.Join(args, " ")
			env, err := retrieval.Recall(e.store, query, limit)
			if err != nil {
				return err
			}

			if flagJSON {
				enc, err := json.Marshal(env)
				if err != nil {
					return err
				}
				fmt.Println(string(enc))
				return nil
			}

			if env.Degraded {
				fmt.Println("warning:", env.Warning)
			}
			if len(env.Results) == 0 {
				fmt.Println("no results")
				return nil
			}
			for _, r := range env.Results {
				fmt.Printf("#%d [%s/%s] (%.3f) %s\n", r.ID, r.Kind, r.Source, r.Score, r.Content)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "maximum results to return")
	return cmd
}
