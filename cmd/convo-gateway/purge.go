// ABOUTME: purge command that deletes a conversation directly in the database
// ABOUTME: Messages are removed with it through the foreign key cascade

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/2389/convo-gateway/internal/store"
)

func newPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge <conversation-id>",
		Short: "Delete a conversation and its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}

			s, err := store.OpenSQLite(cfg.Database.Driver, cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer s.Close()

			id := args[0]
			err = s.DeleteConversation(cmd.Context(), id)
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("conversation %s not found", id)
			}
			if err != nil {
				return fmt.Errorf("deleting conversation: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "purged conversation %s\n", id)
			return nil
		},
	}
}
