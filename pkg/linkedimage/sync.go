package linkedimage

import (
	"fmt"

	"github.com/solarisips/pkgclient/pkg/action"
	"github.com/solarisips/pkgclient/pkg/depend"
	"github.com/solarisips/pkgclient/pkg/fmri"
	"github.com/solarisips/pkgclient/pkg/imagestate"
	"github.com/solarisips/pkgclient/pkg/manifest"
)

// ManifestProvider resolves the manifest an installed FMRI was
// installed from, so parent-sync can inspect its depend type=parent
// actions. A real caller backs this with its catalog/installed-manifest
// cache; tests can supply a plain map.
type ManifestProvider interface {
	ManifestFor(f fmri.FMRI) (manifest.Manifest, error)
}

// SyncStatus is the coarse parent-sync state §4.3 names.
type SyncStatus string

const (
	StatusInSync   SyncStatus = "synced"
	StatusDiverged SyncStatus = "diverged"
	StatusNoParent SyncStatus = "no-parent"
)

// Divergence names one child package whose depend type=parent isn't
// satisfied by the parent's installed set.
type Divergence struct {
	Stem      string
	Want      fmri.FMRI
	ParentHas fmri.FMRI // zero value if the parent doesn't have the stem at all
	Missing   bool
}

func (d Divergence) String() string {
	if d.Missing {
		return fmt.Sprintf("%s: parent is missing %s", d.Stem, d.Want)
	}
	return fmt.Sprintf("%s: parent has %s, child needs a successor of %s", d.Stem, d.ParentHas, d.Want)
}

// Divergences walks every installed package in child that carries a
// depend type=parent action and reports the ones the parent's
// installed set doesn't satisfy, per §4.3's parent-sync invariant:
// strict equality when the depend targets the containing package
// itself, successor-under-CONSTRAINT_NONE otherwise (the same
// asymmetry pkg/resolve's Parent case applies during solving).
func Divergences(child, parent *imagestate.State, manifests ManifestProvider) ([]Divergence, error) {
	var out []Divergence
	for _, f := range child.InstalledFMRIs() {
		m, err := manifests.ManifestFor(f)
		if err != nil {
			return nil, fmt.Errorf("linkedimage: manifest for %s: %w", f, err)
		}
		for _, a := range m.Actions {
			if a.Kind != action.Depend {
				continue
			}
			d, err := depend.Parse(a, f)
			if err != nil {
				return nil, fmt.Errorf("linkedimage: %s: %w", f, err)
			}
			if d.Type != depend.Parent {
				continue
			}
			target := d.Targets[0]
			parentHas, ok := parent.Lookup(target.Stem)
			if !ok {
				out = append(out, Divergence{Stem: f.Stem, Want: target, Missing: true})
				continue
			}
			strictEqual := d.TargetsSelf(f)
			satisfied := strictEqual && parentHas.Version.Equal(target.Version) ||
				!strictEqual && parentHas.Satisfies(target, fmri.ConstraintNone)
			if !satisfied {
				out = append(out, Divergence{Stem: f.Stem, Want: target, ParentHas: parentHas})
			}
		}
	}
	return out, nil
}

// Status classifies a divergence set.
func Status(parent *imagestate.State, divergences []Divergence) SyncStatus {
	if parent == nil {
		return StatusNoParent
	}
	if len(divergences) == 0 {
		return StatusInSync
	}
	return StatusDiverged
}

// Improves reports whether moving from "before" to "after" leaves
// parent-sync unchanged or better: every divergence present after the
// proposed operation must already have been present before it, against
// the exact same wanted version - a stem already diverged at one
// version doesn't grandfather in drifting to a different, still-wrong
// version. A child operation introducing a divergence that didn't
// exist before is rejected per §4.3 ("operations that would increase
// out-of-syncness are rejected").
func Improves(before, after []Divergence) bool {
	beforeSet := make(map[string]struct{}, len(before))
	for _, d := range before {
		beforeSet[divergenceKey(d)] = struct{}{}
	}
	for _, d := range after {
		if _, ok := beforeSet[divergenceKey(d)]; !ok {
			return false
		}
	}
	return true
}

func divergenceKey(d Divergence) string {
	return d.Stem + "@" + d.Want.Version.String()
}
