package main

import (
	"errors"
	"fmt"

	"sortashort_server/logging"

	"github.com/spf13/cobra"
)

var errResetNotConfirmed = errors.New("refusing to wipe the table without --yes")

func newDBCommand(ctx *commandContext) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Table maintenance",
	}
	dbCmd.AddCommand(newDBResetCommand(ctx))
	return dbCmd
}

func newDBResetCommand(ctx *commandContext) *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every row in the table",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return errResetNotConfirmed
			}
			s, err := ctx.store(cmd.Context())
			if err != nil {
				return err
			}
			deleted, err := s.DeleteAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to reset table: %w", err)
			}
			logging.Info().Int("deleted", deleted).Msg("table reset")
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d items\n", deleted)
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirmed, "yes", false, "Confirm the wipe")
	return cmd
}
