package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/thrashr888/cortex/internal/rpcserver"
)

func newMCPCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start the line-delimited JSON-RPC stdio server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			srv := &rpcserver.Server{
				Store:           e.store,
				Config:          e.cfg,
				LLM:             e.llm,
				ProjectSkillDir: e.projectSkillDir,
				GlobalSkillDir:  e.globalSkillDir,
				Logger:          e.logger,
			}
			return srv.Serve(cmd.Context(), os.Stdin, os.Stdout)
		},
	}
}
