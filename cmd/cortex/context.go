package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thrashr888/cortex/internal/contextfmt"
)

func newContextCommand() *cobra.Command {
	var query string
	var limit int
	var compact bool

	cmd := &cobra.Command{
		Use:   "context",
		Short: "Render the session-start context document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			doc, err := contextfmt.Context(e.store, contextfmt.Options{
				Query:           query,
				Limit:           limit,
				Compact:         compact,
				ProjectSkillDir: e.projectSkillDir,
				GlobalSkillDir:  e.globalSkillDir,
			})
			if err != nil {
				return err
			}
			fmt.Print(doc)
			return nil
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "focus the context document on a specific query instead of recency")
	cmd.Flags().IntVar(&limit, "limit", 15, "maximum entries per section")
	cmd.Flags().BoolVar(&compact, "compact", false, "emit a condensed context document")
	return cmd
}
