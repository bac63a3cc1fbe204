package main

import (
	"context"
	"fmt"

	"github.com/solarisips/pkgclient/pkg/imagestate"
	"github.com/solarisips/pkgclient/pkg/planexec"
	"github.com/solarisips/pkgclient/pkg/resolve"
)

// runOperation resolves req, builds a plan from the result, and executes
// it, then persists the image's new installed-catalog state. Shared by
// install/update/uninstall/change-varcets/sync - the only difference
// between them is how req is constructed.
func runOperation(a *app, req resolve.Request) error {
	ctx := context.Background()

	// Every operation, not only change-varcets, resolves against the
	// image's effective variants/facets: req.Variants/Facets left unset
	// just means "use what's already in effect." change-varcets is the
	// only caller that supplies a different map here.
	if req.Variants == nil {
		req.Variants = a.state.Variants
	}
	if req.Facets == nil {
		req.Facets = a.state.Facets
	}

	view, viewStems, err := a.allPublishersView()
	if err != nil {
		return err
	}

	parent, err := a.loadParentState()
	if err != nil {
		return err
	}

	vars, err := a.resolver.Resolve(ctx, a.state, parent, req, view)
	if err != nil {
		return err
	}

	allStems := append(requestStems(req, a.state), viewStems...)
	current := currentPackages(a.state, view)
	target := targetPackages(vars, view, allStems)

	plan := planexec.BuildPlan(current, target, req.Variants, req.Facets)
	if plan.Empty() {
		fmt.Println("No changes.")
		return nil
	}

	executor := planexec.NewExecutor(a.cfg.ImageRoot, nil, payloadSource{client: a.transport, origins: a.allOrigins()},
		planexec.NewJournal(a.cfg.ImageRoot), cliProgress{}, a.log)
	if err := executor.Execute(ctx, plan); err != nil {
		return err
	}

	applyStateChanges(a.state, current, target)
	if req.Kind == resolve.OpChangeVarcets {
		a.state.Variants = req.Variants
		a.state.Facets = req.Facets
	}
	return a.saveState()
}

// requestStems is every stem BuildVariables could possibly have touched:
// req's own targets/rejects plus everything already installed, since an
// update-all or a dependency pull can resolve stems the request never
// names directly.
func requestStems(req resolve.Request, state *imagestate.State) []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(s string) {
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, s := range req.Stems {
		add(s)
	}
	for _, s := range req.Reject {
		add(s)
	}
	for s := range state.Installed {
		add(s)
	}
	return out
}

// applyStateChanges updates state.Installed to match target: anything in
// current but not target is removed, anything in target is (re)recorded
// as installed.
func applyStateChanges(state *imagestate.State, current, target map[string]planexec.Package) {
	for stem := range current {
		if _, ok := target[stem]; !ok {
			state.Remove(stem)
		}
	}
	for stem, pkg := range target {
		state.Put(stem, pkg.FMRI, imagestate.StateInstalled)
	}
}

type cliProgress struct{}

func (cliProgress) PhaseStarted(phase planexec.Phase, total int) {
	if total == 0 {
		return
	}
	fmt.Printf("-- %s (%d) --\n", phase, total)
}

func (cliProgress) StepApplied(phase planexec.Phase, step planexec.Step) {
	fmt.Printf("  %-8s %s\n", step.Action.Kind, step.Action.KeyValue())
}

func (cliProgress) PhaseFinished(phase planexec.Phase) {}
