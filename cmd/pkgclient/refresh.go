package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRefreshCmd(log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the on-disk catalog for every configured publisher",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(loadConfig(), log)
			if err != nil {
				return err
			}

			ctx := context.Background()
			for _, pub := range a.publishers.Publishers {
				if !pub.Enabled {
					continue
				}
				client, err := a.catalogClient(pub)
				if err != nil {
					return err
				}
				res, err := client.Refresh(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("%-20s %s\n", pub.Prefix, res.Outcome)
			}
			return nil
		},
	}
}
