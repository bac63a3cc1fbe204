package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/solarisips/pkgclient/pkg/resolve"
)

func newUpdateCmd(log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "update [pkg]...",
		Short: "Update packages, or every installed package when none are named",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(loadConfig(), log)
			if err != nil {
				return err
			}
			req := resolve.Request{Kind: resolve.OpUpdateAll}
			if len(args) > 0 {
				req = resolve.Request{Kind: resolve.OpUpdate, Stems: args}
			}
			return runOperation(a, req)
		},
	}
}
