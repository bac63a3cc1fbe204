// Command pkgclient is the CLI entrypoint tying the package-image
// primitives together: catalog refresh, dependency resolution, plan
// execution, and the search index, against one image rooted at
// PKG_IMAGE (or -R).
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/solarisips/pkgclient/pkg/config"
	"github.com/solarisips/pkgclient/pkg/pkgerrors"
)

var imageRoot string
var debug bool

func main() {
	log := logrus.New()

	root := &cobra.Command{
		Use:   "pkgclient",
		Short: "pkgclient",
		Long:  "A client for installing, updating, and inspecting packages in an image.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				log.SetLevel(logrus.DebugLevel)
			}
		},
	}
	root.PersistentFlags().StringVarP(&imageRoot, "image", "R", "", "image root (default: PKG_IMAGE or /)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(newRefreshCmd(log))
	root.AddCommand(newSearchCmd(log))
	root.AddCommand(newInstallCmd(log))
	root.AddCommand(newUpdateCmd(log))
	root.AddCommand(newUninstallCmd(log))
	root.AddCommand(newChangeVarcetsCmd(log))
	root.AddCommand(newSyncCmd(log))

	if err := root.Execute(); err != nil {
		os.Exit(int(exitCodeForErr(err)))
	}
}

func loadConfig() config.Config {
	cfg := config.FromEnv()
	if imageRoot != "" {
		cfg.ImageRoot = imageRoot
	}
	return cfg
}

// exitCodeForErr maps a returned error to spec.md §6's exit codes via
// pkgerrors.ExitCodeFor, defaulting to GenericFailure for an error that
// never passed through pkgerrors.Wrap/New.
func exitCodeForErr(err error) pkgerrors.ExitCode {
	if err == nil {
		return pkgerrors.OK
	}
	var pe *pkgerrors.Error
	for e := err; e != nil; {
		if p, ok := e.(*pkgerrors.Error); ok {
			pe = p
			break
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	if pe == nil {
		fmt.Fprintln(os.Stderr, "pkgclient:", err)
		return pkgerrors.GenericFailure
	}
	fmt.Fprintln(os.Stderr, "pkgclient:", pe)
	return pkgerrors.ExitCodeFor(pe.Kind, false, false)
}
