package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/solarisips/pkgclient/pkg/resolve"
)

// newSyncCmd wires §4.1's sync operation: re-resolve every installed
// package against the linked image's parent without naming any stem of
// its own, so every depend type=parent constraint is evaluated against
// the parent's current installed state.
func newSyncCmd(log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Re-resolve installed packages against the parent image",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(loadConfig(), log)
			if err != nil {
				return err
			}
			return runOperation(a, resolve.Request{Kind: resolve.OpSync})
		},
	}
}
