package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/thrashr888/cortex/internal/cortexerr"
	"github.com/thrashr888/cortex/internal/store"
)

func newSaveCommand() *cobra.Command {
	var kind string
	var sessionID string

	cmd := &cobra.Command{
		Use:   "save <content>",
		Short: "Save a raw observation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !store.ValidKind(kind) {
				return fmt.Errorf("%w: save: invalid --type %q", cortexerr.ErrValidation, kind)
			}
			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			if sessionID == "" {
				sessionID = uuid.NewString()
			}

			content := strings.Join(args, " ")
			id, err := e.store.Raw.InsertRaw(content, kind, sessionID)
			if err != nil {
				return err
			}

			if flagJSON {
				fmt.Printf("{\"id\":%d,\"kind\":%q,\"session_id\":%q}\n", id, kind, sessionID)
				return nil
			}
			fmt.Printf("saved raw memory #%d (%s)\n", id, kind)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "type", string(store.KindObservation), "memory kind (bugfix, decision, pattern, preference, observation)")
	cmd.Flags().StringVar(&sessionID, "session", "", "session id to tag this memory with (defaults to a generated uuid)")
	return cmd
}
