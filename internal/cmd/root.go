// Package cmd implements the bizdir CLI.
package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	current *app
)

var rootCmd = &cobra.Command{
	Use:   "bizdir",
	Short: "Client for the bizdir business directory",
	Long: `bizdir is a command-line client for the business directory platform.
It manages your session, browses and edits companies, users, and contact
inquiries, and keeps its local caches coherent with your sign-in state.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		current, err = newApp(cmd.Context(), cfgFile)
		return err
	},
}

// ExecuteContext runs the root command
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is built-in defaults)")
}
