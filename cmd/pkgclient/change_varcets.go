package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/solarisips/pkgclient/pkg/resolve"
)

// newChangeVarcetsCmd wires §4.1's change_varcets(vars, facets) operation:
// the image's installed packages don't change, but which of their
// delivered actions apply does, so resolve.Request carries the new
// variant/facet settings straight through to BuildVariables and the plan
// diff instead of a stem list.
func newChangeVarcetsCmd(log *logrus.Logger) *cobra.Command {
	var variants map[string]string
	var facets map[string]string

	cmd := &cobra.Command{
		Use:   "change-varcets",
		Short: "Change image variant and facet settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(loadConfig(), log)
			if err != nil {
				return err
			}

			newVariants := make(map[string]string, len(a.state.Variants)+len(variants))
			for k, v := range a.state.Variants {
				newVariants[k] = v
			}
			for k, v := range variants {
				newVariants[k] = v
			}

			newFacets := make(map[string]bool, len(a.state.Facets)+len(facets))
			for k, v := range a.state.Facets {
				newFacets[k] = v
			}
			for k, v := range facets {
				newFacets[k] = v == "true"
			}

			req := resolve.Request{Kind: resolve.OpChangeVarcets, Variants: newVariants, Facets: newFacets}
			return runOperation(a, req)
		},
	}
	cmd.Flags().StringToStringVarP(&variants, "variant", "v", nil, "variant.name=value, repeatable")
	cmd.Flags().StringToStringVarP(&facets, "facet", "f", nil, "facet.name=true|false, repeatable")
	return cmd
}
