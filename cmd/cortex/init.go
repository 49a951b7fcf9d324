package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/thrashr888/cortex/internal/bootstrap"
)

func newInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize .cortex/ in the current project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projectDir := flagDir
			if projectDir == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				projectDir = wd
			}
			res, err := bootstrap.Init(filepath.Join(projectDir, ".cortex"))
			if err != nil {
				return err
			}
			if res.CreatedDir {
				fmt.Println("created .cortex/")
			}
			if res.CreatedConfig {
				fmt.Println("created .cortex/config.toml")
			}
			if res.CreatedSkills {
				fmt.Println("created .cortex/skills/")
			}
			if !res.CreatedDir && !res.CreatedConfig && !res.CreatedSkills {
				fmt.Println(".cortex/ already initialized")
			}
			return nil
		},
	}
}
