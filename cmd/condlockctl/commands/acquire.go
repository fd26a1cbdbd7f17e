package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/condlock/condlock/cmd/condlockctl/client"
	"github.com/condlock/condlock/cmd/condlockctl/cmdutil"
	"github.com/condlock/condlock/internal/cliutil"
)

var (
	acquireLeaseMs     int64
	acquireProlong     bool
	acquireProlongMs   int64
	acquireWaitMs      int64
	acquireMaxRetries  int
	acquireTrustLocal  bool
	acquireAttrStrings []string
)

var acquireCmd = &cobra.Command{
	Use:   "acquire <group> <id>",
	Short: "Acquire a lock, blocking until it is granted or exhausted",
	Long: `Acquire runs condlockd's acquisition state machine for (group, id) and
blocks until the lock is granted, the wait window elapses, or the retry
budget is exhausted.

Examples:
  # Acquire with server defaults
  condlockctl acquire orders 42

  # Acquire with a 30s lease, giving up client-side after 15s (10s plus 5s)
  condlockctl acquire orders 42 --lease-ms 30000 --wait-ms 10000

  # Fail immediately rather than retrying a held lock
  condlockctl acquire orders 42 --max-retries 0 --trust-local-time`,
	Args: cobra.ExactArgs(2),
	RunE: runAcquire,
}

func init() {
	acquireCmd.Flags().Int64Var(&acquireLeaseMs, "lease-ms", 0, "Lease duration in milliseconds (0 uses the server default)")
	acquireCmd.Flags().BoolVar(&acquireProlong, "prolong", true, "Automatically prolong the lease while held")
	acquireCmd.Flags().Int64Var(&acquireProlongMs, "prolong-every-ms", 0, "Prolongation interval in milliseconds (0 uses the server default)")
	acquireCmd.Flags().Int64Var(&acquireWaitMs, "wait-ms", 0, "Wait between re-reads of a held lock under --trust-local-time; when set, the client also gives up after this plus 5s")
	acquireCmd.Flags().IntVar(&acquireMaxRetries, "max-retries", -1, "Maximum retry attempts (-1 uses the server default)")
	acquireCmd.Flags().BoolVar(&acquireTrustLocal, "trust-local-time", false, "Trust local wall-clock time for lease-expiry decisions")
	acquireCmd.Flags().StringArrayVar(&acquireAttrStrings, "attr", nil, "Additional attribute as key=value (repeatable)")
}

func parseAttrs(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	attrs := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --attr %q: expected key=value", pair)
		}
		attrs[key] = value
	}
	return attrs, nil
}

func runAcquire(cmd *cobra.Command, args []string) error {
	group, id := args[0], args[1]

	attrs, err := parseAttrs(acquireAttrStrings)
	if err != nil {
		return err
	}

	req := client.AcquireRequest{
		TrustLocalTime:       acquireTrustLocal,
		AdditionalAttributes: attrs,
	}
	if acquireLeaseMs > 0 {
		req.LeaseDurationInMs = &acquireLeaseMs
	}
	if cmd.Flags().Changed("prolong") {
		req.ProlongLeaseEnabled = &acquireProlong
	}
	if acquireProlongMs > 0 {
		req.ProlongEveryMs = &acquireProlongMs
	}
	if acquireWaitMs > 0 {
		req.WaitDurationInMs = &acquireWaitMs
	}
	if acquireMaxRetries >= 0 {
		req.MaxRetryCount = &acquireMaxRetries
	}

	c, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	ctx := context.Background()
	if acquireWaitMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(acquireWaitMs)*time.Millisecond+5*time.Second)
		defer cancel()
	}

	lock, err := c.Acquire(ctx, group, id, req)
	if err != nil {
		return fmt.Errorf("acquire %s/%s: %w", group, id, err)
	}

	return printLock(lock, fmt.Sprintf("Acquired %s/%s", group, id))
}

func printLock(lock *client.Lock, successMsg string) error {
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
		if successMsg != "" {
			fmt.Println(successMsg)
		}
		return cliutil.SimpleTable(os.Stdout, [][2]string{
			{"GROUP", lock.Group},
			{"ID", lock.ID},
			{"OWNER", lock.OwnerName},
			{"VERSION", lock.RecordVersionNumber},
			{"LEASE", time.Duration(lock.LeaseDurationInMs * int64(time.Millisecond)).String()},
			{"LAST UPDATED", time.UnixMilli(lock.LastUpdatedTimeInMs).Local().Format(time.RFC3339)},
		})
	}
}
