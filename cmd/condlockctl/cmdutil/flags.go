// Package cmdutil provides shared utilities for condlockctl commands:
// a global flag set and the client/output-format helpers built from it.
// There is no login/context/credential-store machinery here — every
// invocation carries its own --server/--token.
package cmdutil

import (
	"fmt"

	"github.com/condlock/condlock/cmd/condlockctl/client"
	"github.com/condlock/condlock/internal/cliutil"
)

// Flags stores global flag values accessible to every subcommand.
var Flags = &GlobalFlags{}

// GlobalFlags holds the persistent flag values set on the root command.
type GlobalFlags struct {
	ServerURL string
	Token     string
	Output    string
}

// GetClient builds a client.Client from the current flag values.
func GetClient() (*client.Client, error) {
	if Flags.ServerURL == "" {
		return nil, fmt.Errorf("no server URL configured; pass --server or set CONDLOCKCTL_SERVER")
	}
	return client.New(Flags.ServerURL).WithToken(Flags.Token), nil
}

// GetOutputFormat returns the parsed output format from --output.
func GetOutputFormat() (cliutil.Format, error) {
	return cliutil.ParseFormat(Flags.Output)
}
