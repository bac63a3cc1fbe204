package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/solarisips/pkgclient/pkg/resolve"
	"github.com/solarisips/pkgclient/pkg/search"
)

func newSearchCmd(log *logrus.Logger) *cobra.Command {
	var rebuild bool
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the installed-package index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(loadConfig(), log)
			if err != nil {
				return err
			}

			view, _, err := a.allPublishersView()
			if err != nil {
				return err
			}
			entries := installedEntries(a, view)
			idx := a.searchIndex()

			if rebuild {
				out, err := idx.Build(entries, a.state)
				if err != nil {
					return err
				}
				fmt.Printf("rebuilt index: %d packages\n", out.Value.Packages)
			}

			q, err := search.ParseQuery(args[0])
			if err != nil {
				return err
			}
			out, err := idx.Search(q, entries, a.state, a.cfg.FastIndexThreshold)
			if err != nil {
				return err
			}
			for _, d := range out.Diagnostics {
				fmt.Printf("# %s: %s\n", d.Code, d.Message)
			}
			for _, hit := range out.Value {
				if hit.Action == "" {
					fmt.Println(hit.FMRI.String())
					continue
				}
				fmt.Printf("%s %s %s=%s\n", hit.FMRI.String(), hit.Action, hit.Key, hit.Value)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "force a full index rebuild before searching")
	return cmd
}

// installedEntries turns the image's installed catalog into search.Entry
// values, pulling each package's manifest from view the same way
// currentPackages does for planexec.
func installedEntries(a *app, view resolve.CatalogView) []search.Entry {
	entries := make([]search.Entry, 0, len(a.state.Installed))
	for _, pkg := range currentPackages(a.state, view) {
		entries = append(entries, search.Entry{FMRI: pkg.FMRI, Manifest: pkg.Manifest})
	}
	return entries
}
