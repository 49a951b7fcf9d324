// Cortex — repo-local cognitive memory for AI coding agents.
//
// Usage:
//
//	cortex init              Initialize .cortex/ in the current project
//	cortex save <content>    Save a raw observation
//	cortex recall <query>    Search project and global memory
//	cortex context           Render the session-start context document
//	cortex sleep             Run a consolidation pass
//	cortex dream             Run a deep-reflection pass
//	cortex wake              Consolidate backlog and emit context
//	cortex stats             Show memory store statistics
//	cortex edit <id>         Edit a consolidated memory
//	cortex delete <id>       Delete a memory
//	cortex mcp               Start the JSON-RPC stdio server
//	cortex browse            Start the terminal UI
package main

import (
	"fmt"
	"os"

	"github.com/thrashr888/cortex/internal/cortexerr"
)

const version = "0.1.0"

func main() {
	root := newRootCommand()
	root.SilenceErrors = true
	root.SilenceUsage = true
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "cortex:", err)
		os.Exit(cortexerr.ExitCode(err))
	}
}
