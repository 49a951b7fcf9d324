package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thrashr888/cortex/internal/cortexerr"
	"github.com/thrashr888/cortex/internal/store"
)

// resolveConsolidated maps a CLI-facing id to the store that owns it and the
// row's real (positive) id. Negative ids address the user-global store; the
// RPC and CLI surfaces share this convention so a single flat id space can
// name rows in either store.
func resolveConsolidated(e *engine, id int64) (*store.ConsolidatedStore, int64, error) {
	if id < 0 {
		g, err := e.store.Global()
		if err != nil {
			return nil, 0, err
		}
		return g, -id, nil
	}
	return e.store.Consolidated, id, nil
}

func newEditCommand() *cobra.Command {
	var content string
	var kind string
	var confidence float64
	var hasConfidence bool

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a consolidated memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("%w: edit: invalid id %q", cortexerr.ErrValidation, args[0])
			}
			if kind != "" && !store.ValidKind(kind) {
				return fmt.Errorf("%w: edit: invalid --type %q", cortexerr.ErrValidation, kind)
			}

			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			cs, realID, err := resolveConsolidated(e, id)
			if err != nil {
				return err
			}

			u := store.ConsolidatedUpdate{}
			if content != "" {
				u.Content = &content
			}
			if kind != "" {
				u.Kind = &kind
			}
			if hasConfidence {
				u.Confidence = &confidence
			}

			if err := cs.UpdateConsolidated(realID, u); err != nil {
				return err
			}
			fmt.Printf("updated memory #%d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&content, "content", "", "new content")
	cmd.Flags().StringVar(&kind, "type", "", "new kind")
	cmd.Flags().Func("confidence", "new confidence (0.0-1.0)", func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		confidence = f
		hasConfidence = true
		return nil
	})
	return cmd
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete a consolidated memory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			var deleted []string
			for _, a := range args {
				id, err := strconv.ParseInt(a, 10, 64)
				if err != nil {
					return fmt.Errorf("%w: delete: invalid id %q", cortexerr.ErrValidation, a)
				}
				cs, realID, err := resolveConsolidated(e, id)
				if err != nil {
					return err
				}
				if err := cs.DeleteConsolidated(realID); err != nil {
					return err
				}
				deleted = append(deleted, a)
			}
			fmt.Printf("deleted %s\n", strings.Join(deleted, ", "))
			return nil
		},
	}
}
