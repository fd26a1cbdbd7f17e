package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/condlock/condlock/cmd/condlockctl/cmdutil"
)

var releaseCmd = &cobra.Command{
	Use:   "release <group> <id>",
	Short: "Release a lock this condlockd instance holds",
	Long: `Release only succeeds for a (group, id) the target condlockd instance
itself acquired. A group/id it never locked, or already released, reports
as "not found" rather than as a silent no-op, so a double-release is
distinguishable from a real one.

Examples:
  condlockctl release orders 42`,
	Args: cobra.ExactArgs(2),
	RunE: runRelease,
}

func runRelease(cmd *cobra.Command, args []string) error {
	group, id := args[0], args[1]

	c, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	if err := c.Release(cmd.Context(), group, id); err != nil {
		return fmt.Errorf("release %s/%s: %w", group, id, err)
	}

	fmt.Printf("Released %s/%s\n", group, id)
	return nil
}
