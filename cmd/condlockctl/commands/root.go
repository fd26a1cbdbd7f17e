// Package commands implements the CLI commands for the condlockctl client.
package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/condlock/condlock/cmd/condlockctl/cmdutil"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "condlockctl",
	Short: "condlockctl - operator client for condlockd",
	Long: `condlockctl is the command-line client for a running condlockd instance.

Use it to acquire, inspect, and release distributed locks, and to release
every lock a condlockd instance currently holds ahead of a planned
shutdown.

Use "condlockctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cmdutil.Flags.ServerURL, _ = cmd.Flags().GetString("server")
		cmdutil.Flags.Token, _ = cmd.Flags().GetString("token")
		cmdutil.Flags.Output, _ = cmd.Flags().GetString("output")
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command, for testing.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	defaultServer := os.Getenv("CONDLOCKCTL_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:8686"
	}

	rootCmd.PersistentFlags().String("server", defaultServer, "condlockd server URL")
	rootCmd.PersistentFlags().String("token", os.Getenv("CONDLOCKCTL_TOKEN"), "Bearer token")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "Output format (table|json|yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(acquireCmd)
	rootCmd.AddCommand(releaseCmd)
	rootCmd.AddCommand(peekCmd)
	rootCmd.AddCommand(releaseAllCmd)
}

// PrintErr prints an error message to stderr.
func PrintErr(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
}

// Exit prints an error and exits with code 1.
func Exit(format string, args ...any) {
	PrintErr(format, args...)
	os.Exit(1)
}
