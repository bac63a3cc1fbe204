package planexec

import (
	"github.com/solarisips/pkgclient/pkg/action"
	"github.com/solarisips/pkgclient/pkg/fmri"
	"github.com/solarisips/pkgclient/pkg/manifest"
)

// Package pairs an FMRI with the manifest it delivers - the unit BuildPlan
// diffs current against target on.
type Package struct {
	FMRI     fmri.FMRI
	Manifest manifest.Manifest
}

// Phase names one of the six execution phases spec.md §2 lists, in the
// order they run. Install phases complete in full before any removal
// phase begins (§2: "...postinstall, preremove, remove, postremove" -
// see DESIGN.md for why this literal ordering is followed over the more
// common remove-then-install convention).
type Phase string

const (
	PhasePreInstall  Phase = "preinstall"
	PhaseInstall     Phase = "install"
	PhasePostInstall Phase = "postinstall"
	PhasePreRemove   Phase = "preremove"
	PhaseRemove      Phase = "remove"
	PhasePostRemove  Phase = "postremove"
)

// Phases lists every phase in execution order.
var Phases = []Phase{PhasePreInstall, PhaseInstall, PhasePostInstall, PhasePreRemove, PhaseRemove, PhasePostRemove}

// Step is one action application within a phase, attributed to the
// package FMRI that delivers (or delivered) it.
type Step struct {
	Phase  Phase
	FMRI   fmri.FMRI
	Action action.Action
}

// Plan is a frozen, ordered sequence of Steps produced by BuildPlan. Once
// built it does not change shape as execution proceeds; Executor tracks
// progress against it via a separate journal.
type Plan struct {
	Steps []Step
}

// Empty reports whether the plan has no steps - the §7 "nothing to do"
// case (NothingToDo exit code).
func (p *Plan) Empty() bool {
	return len(p.Steps) == 0
}
