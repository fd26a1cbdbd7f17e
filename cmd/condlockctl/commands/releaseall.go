package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/condlock/condlock/cmd/condlockctl/cmdutil"
	"github.com/condlock/condlock/internal/cliutil"
)

var releaseAllYes bool

var releaseAllCmd = &cobra.Command{
	Use:   "release-all",
	Short: "Release every lock a condlockd instance currently holds",
	Long: `Release-all is a blunt instrument: it drops every lock the target
condlockd instance holds in one call, typically ahead of a planned
shutdown or failover. Prompts for confirmation unless --yes is given.

Examples:
  condlockctl release-all
  condlockctl release-all --yes`,
	Args: cobra.NoArgs,
	RunE: runReleaseAll,
}

func init() {
	releaseAllCmd.Flags().BoolVarP(&releaseAllYes, "yes", "y", false, "Skip the confirmation prompt")
}

func runReleaseAll(cmd *cobra.Command, args []string) error {
	confirmed, err := cliutil.ConfirmWithForce(
		fmt.Sprintf("Release every lock held by %s?", cmdutil.Flags.ServerURL), releaseAllYes)
	if err != nil {
		if cliutil.IsAborted(err) {
			fmt.Println("\nAborted.")
			return nil
		}
		return err
	}
	if !confirmed {
		fmt.Println("Aborted.")
		return nil
	}

	c, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	if err := c.ReleaseAll(cmd.Context()); err != nil {
		return fmt.Errorf("release-all: %w", err)
	}

	fmt.Println("Released all locks.")
	return nil
}
