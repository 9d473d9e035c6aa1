package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eppla/storefront/internal/types"
)

// clearCmd represents the clear command
var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the locally saved catalog",
	Long: `Delete the locally saved catalog. The remote copy is not touched, so the next
start hydrates from the remote store if one is configured.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := services.Catalog.Clear(context.Background()); err != nil {
			return fmt.Errorf("clear failed: %w", err)
		}
		logger.Info().Msg("Local catalog cleared")
		return nil
	},
}

// remoteCheckCmd represents the remote-check command
var remoteCheckCmd = &cobra.Command{
	Use:   "remote-check",
	Short: "Write and read back the remote health-check document",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := services.Catalog.CheckRemote(context.Background())
		if err != nil {
			if hint := types.RemoteHint(err); hint != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Hint: %s\n", hint)
			}
			return fmt.Errorf("remote check failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Remote %s is %s (checked %s by %s)\n",
			services.Remote.Name(), report.Status, report.LastCheck.Format("2006-01-02 15:04:05"), report.Client)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(remoteCheckCmd)
}
