// Package depend interprets `depend` actions: the ten dependency types
// named in spec.md §3, their required attributes, and the `self` FMRI
// placeholder.
package depend

import (
	"fmt"

	"github.com/solarisips/pkgclient/pkg/action"
	"github.com/solarisips/pkgclient/pkg/fmri"
)

// Type is one of the closed set of depend-action types.
type Type string

const (
	Require     Type = "require"
	Optional    Type = "optional"
	Incorporate Type = "incorporate"
	RequireAny  Type = "require-any"
	Conditional Type = "conditional"
	Origin      Type = "origin"
	Parent      Type = "parent"
	Exclude     Type = "exclude"
	Group       Type = "group"
	GroupAny    Type = "group-any"
)

var validTypes = map[Type]struct{}{
	Require: {}, Optional: {}, Incorporate: {}, RequireAny: {},
	Conditional: {}, Origin: {}, Parent: {}, Exclude: {}, Group: {}, GroupAny: {},
}

// Valid reports whether t is one of the ten recognized types.
func Valid(t Type) bool {
	_, ok := validTypes[t]
	return ok
}

// SelfFMRI is the literal string that, as a depend's `fmri=` value, means
// "the containing package's own FMRI".
const SelfFMRI = "feature/package/dependency/self"

// Depend is a parsed `depend` action: its type, the one-or-more target
// FMRIs it names, and type-specific modifiers.
type Depend struct {
	Type      Type
	Targets   []fmri.FMRI // resolved fmri= entries, in listed order (preference order for require-any/group-any)
	Predicate fmri.FMRI   // conditional only
	RootImage bool        // origin only: evaluate against "/" rather than the target image
}

// Parse validates and interprets a depend action per the type table in
// spec.md §3, resolving any `feature/package/dependency/self` target
// against containingPkg.
func Parse(a action.Action, containingPkg fmri.FMRI) (Depend, error) {
	if a.Kind != action.Depend {
		return Depend{}, fmt.Errorf("depend: not a depend action: %s", a.Kind)
	}
	t := Type(a.Attrs.Get("type"))
	if !Valid(t) {
		return Depend{}, fmt.Errorf("depend: unknown type %q", t)
	}

	rawTargets := a.Attrs.All("fmri")
	if len(rawTargets) == 0 {
		return Depend{}, fmt.Errorf("depend: type=%s requires at least one fmri= attribute", t)
	}
	if len(rawTargets) > 1 && t != RequireAny && t != GroupAny {
		return Depend{}, fmt.Errorf("depend: multiple fmri= entries only allowed for require-any and group-any, got type=%s", t)
	}

	d := Depend{Type: t}
	for _, raw := range rawTargets {
		target, err := resolveTarget(raw, containingPkg)
		if err != nil {
			return Depend{}, err
		}
		d.Targets = append(d.Targets, target)
	}

	if t == Conditional {
		predRaw := a.Attrs.Get("predicate")
		if predRaw == "" {
			return Depend{}, fmt.Errorf("depend: type=conditional requires predicate=")
		}
		pred, err := resolveTarget(predRaw, containingPkg)
		if err != nil {
			return Depend{}, err
		}
		d.Predicate = pred
	} else if a.Attrs.Get("predicate") != "" {
		return Depend{}, fmt.Errorf("depend: predicate= only valid for type=conditional")
	}

	if a.Attrs.Get("root-image") == "true" {
		if t != Origin {
			return Depend{}, fmt.Errorf("depend: root-image=true only valid for type=origin")
		}
		d.RootImage = true
	}

	return d, nil
}

func resolveTarget(raw string, containingPkg fmri.FMRI) (fmri.FMRI, error) {
	if raw == SelfFMRI {
		return containingPkg, nil
	}
	return fmri.Parse(raw)
}

// TargetsSelf reports whether the depend's (sole) target is the
// containing package itself, rather than a different stem. Used by
// pkg/resolve to preserve the documented parent-depend asymmetry: see
// DESIGN.md "parent depend asymmetry" - this is intentionally NOT
// simplified into a single uniform rule, per spec.md §9 Open Questions.
func (d Depend) TargetsSelf(containingPkg fmri.FMRI) bool {
	return len(d.Targets) == 1 && d.Targets[0].Stem == containingPkg.Stem
}
