package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired thank-you navigation states",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.Purge(cmd.Context())
		if err != nil {
			return fmt.Errorf("purging navigation states: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "purged %d navigation states\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(purgeCmd)
}
