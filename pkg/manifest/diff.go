package manifest

import "github.com/solarisips/pkgclient/pkg/action"

// Changed pairs an old and new action sharing a Key but differing in
// content (attrs, hash, or payload hash).
type Changed struct {
	Old, New action.Action
}

// Diff is the result of comparing two manifests: actions present only in
// the new one, present only in the old one, and present in both under the
// same Key but differing in content.
type Diff struct {
	Added   []action.Action
	Removed []action.Action
	Changed []Changed
}

// Diff computes (added, changed, removed) action triples keyed by
// (name, key-attr-value), per spec.md §2's manifest component.
func (m Manifest) Diff(newer Manifest) Diff {
	oldByKey := make(map[Key]action.Action, len(m.Actions))
	for _, a := range m.Actions {
		oldByKey[keyOf(a)] = a
	}

	var d Diff
	seen := make(map[Key]struct{}, len(newer.Actions))
	for _, a := range newer.Actions {
		k := keyOf(a)
		seen[k] = struct{}{}
		old, ok := oldByKey[k]
		if !ok {
			d.Added = append(d.Added, a)
			continue
		}
		if !old.Equal(a) {
			d.Changed = append(d.Changed, Changed{Old: old, New: a})
		}
	}
	for _, a := range m.Actions {
		if _, ok := seen[keyOf(a)]; !ok {
			d.Removed = append(d.Removed, a)
		}
	}
	return d
}

// Empty reports whether the diff carries no changes - used to verify the
// idempotence invariant in spec.md §8 ("applying the same plan twice is a
// no-op on the second pass").
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}
