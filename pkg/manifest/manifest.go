// Package manifest models an ordered sequence of actions delivered by one
// package version, with variant/facet filtering and structural diffing
// against another manifest.
package manifest

import (
	"sort"
	"strings"

	"github.com/solarisips/pkgclient/pkg/action"
)

// Manifest is an ordered action sequence. Order is insertion order, not
// install order - use action.Action.Less to sort for execution.
type Manifest struct {
	Actions []action.Action
}

// New wraps a slice of actions as a Manifest.
func New(actions []action.Action) Manifest {
	return Manifest{Actions: actions}
}

// Parse splits raw manifest-file bytes into lines and parses each one via
// action.Parse, skipping blank lines the way catalog.ParsePart does for
// catalog part files.
func Parse(raw []byte) (Manifest, error) {
	var actions []action.Action
	for _, line := range strings.Split(string(raw), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		a, err := action.Parse(line)
		if err != nil {
			return Manifest{}, err
		}
		actions = append(actions, a)
	}
	return New(actions), nil
}

// Key identifies an action within a manifest per the §3 uniqueness
// invariant's first two components: (name, key-attr-value). Variant and
// facet tuples further distinguish otherwise-identical keys, captured in
// VariantFacetKey below.
type Key struct {
	Kind     action.Kind
	KeyValue string
}

func keyOf(a action.Action) Key {
	return Key{Kind: a.Kind, KeyValue: a.KeyValue()}
}

// VariantFacetKey extends Key with the action's variant and facet tuples,
// the full uniqueness key from spec.md §3: "(name, key_attr_value,
// variant-tuple, facet-tuple) is unique".
type VariantFacetKey struct {
	Key
	Variants string
	Facets   string
}

func fullKeyOf(a action.Action) VariantFacetKey {
	variants := a.Variants()
	facets := a.Facets()
	return VariantFacetKey{
		Key:      keyOf(a),
		Variants: joinSorted(variants),
		Facets:   joinSorted(facets),
	}
}

func joinSorted(ss []string) string {
	cp := append([]string(nil), ss...)
	sort.Strings(cp)
	out := ""
	for i, s := range cp {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out
}

// CheckUnique validates the §3 uniqueness invariant, returning the first
// duplicate VariantFacetKey found, if any.
func (m Manifest) CheckUnique() (VariantFacetKey, bool) {
	seen := make(map[VariantFacetKey]struct{}, len(m.Actions))
	for _, a := range m.Actions {
		k := fullKeyOf(a)
		if _, ok := seen[k]; ok {
			return k, true
		}
		seen[k] = struct{}{}
	}
	return VariantFacetKey{}, false
}

// SelectVariants returns a Manifest containing only actions whose
// `variant.*` attributes are either absent or match the given image
// variant settings (unselected variants are elided from the image, per
// the GLOSSARY).
func (m Manifest) SelectVariants(variants map[string]string) Manifest {
	out := make([]action.Action, 0, len(m.Actions))
	for _, a := range m.Actions {
		if variantMatches(a, variants) {
			out = append(out, a)
		}
	}
	return Manifest{Actions: out}
}

func variantMatches(a action.Action, variants map[string]string) bool {
	for key, values := range a.Attrs {
		const prefix = "variant."
		if len(key) <= len(prefix) || key[:len(prefix)] != prefix {
			continue
		}
		have, ok := variants[key]
		if !ok {
			// Image has no opinion on this variant: the action's
			// value set is not restricted by it.
			continue
		}
		if !containsString(values, have) {
			return false
		}
	}
	return true
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// FacetEnabled reports whether a's `facet.*` attributes are satisfied by
// the image's facet settings. Unlike variants, facet-disabled actions are
// NOT elided from the manifest returned to the solver (spec.md §4.1:
// "facet-disabled candidates remain but their actions are elided by the
// planner") - callers in pkg/planexec use this to decide delivery.
func (Manifest) FacetEnabled(act action.Action, facets map[string]bool) bool {
	for key, values := range act.Attrs {
		const prefix = "facet."
		if len(key) <= len(prefix) || key[:len(prefix)] != prefix {
			continue
		}
		want, ok := facets[key]
		if !ok {
			continue
		}
		have := len(values) > 0 && values[0] == "true"
		if have != want {
			return false
		}
	}
	return true
}

// Sorted returns a copy of the manifest's actions in install order
// (ordinality, then key attribute value).
func (m Manifest) Sorted() []action.Action {
	out := append([]action.Action(nil), m.Actions...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Less(out[j])
	})
	return out
}
