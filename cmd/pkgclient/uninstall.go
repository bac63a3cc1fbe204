package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/solarisips/pkgclient/pkg/resolve"
)

func newUninstallCmd(log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall <pkg>...",
		Short: "Uninstall one or more packages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(loadConfig(), log)
			if err != nil {
				return err
			}
			return runOperation(a, resolve.Request{Kind: resolve.OpUninstall, Stems: args})
		},
	}
}
