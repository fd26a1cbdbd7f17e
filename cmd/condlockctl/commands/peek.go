package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/condlock/condlock/cmd/condlockctl/cmdutil"
	"github.com/condlock/condlock/internal/cliutil"
)

var peekCmd = &cobra.Command{
	Use:   "peek <group> <id>",
	Short: "Show the persisted lock record, without acquiring it",
	Long: `Peek performs a read-only lookup of (group, id) against condlockd's
backend. It reports whatever is currently persisted, independent of which
coordinator instance (if any) holds the lock.

Examples:
  condlockctl peek orders 42
  condlockctl peek orders 42 -o json`,
	Args: cobra.ExactArgs(2),
	RunE: runPeek,
}

func runPeek(cmd *cobra.Command, args []string) error {
	group, id := args[0], args[1]

	c, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	lock, err := c.Peek(cmd.Context(), group, id)
	if err != nil {
		return fmt.Errorf("peek %s/%s: %w", group, id, err)
	}

	format, err := cmdutil.GetOutputFormat()
	if err != nil {
		return err
	}

	switch format {
	case cliutil.FormatJSON:
		return cliutil.PrintJSON(os.Stdout, lock)
	case cliutil.FormatYAML:
		return cliutil.PrintYAML(os.Stdout, lock)
	default:
		return cliutil.SimpleTable(os.Stdout, [][2]string{
			{"GROUP", lock.Group},
			{"ID", lock.ID},
			{"OWNER", lock.OwnerName},
			{"VERSION", lock.RecordVersionNumber},
			{"LEASE", time.Duration(lock.LeaseDurationInMs * int64(time.Millisecond)).String()},
			{"LAST UPDATED", humanize.Time(time.UnixMilli(lock.LastUpdatedTimeInMs))},
		})
	}
}
