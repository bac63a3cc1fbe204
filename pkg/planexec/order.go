package planexec

import "github.com/solarisips/pkgclient/pkg/action"

// removeOrdinality fixes remove ordering per spec.md §5: "removes ordered
// as hardlink -> file -> link -> dir -> user/group". This is not a
// mechanical reversal of action.Ordinality (hardlinks must go before the
// files they reference, but links stay after files rather than before
// them) - it is a distinct, explicitly-named sequence. Kinds §5 doesn't
// name (depend, set, driver, license, legacy, signature) are placed after
// the named ones, in the reverse of their install ordinality, since
// nothing in spec.md or original_source specifies their remove order and
// reverse-of-install is the least surprising default for actions that
// carry no filesystem state of their own.
var removeOrdinality = map[action.Kind]int{
	action.Hardlink: 0,
	action.File:     10,
	action.Link:     20,
	action.Dir:      30,
	action.User:     40,
	action.Group:    40,

	action.Signature: 50,
	action.Legacy:    60,
	action.License:   70,
	action.Driver:    80,
	action.Depend:    90,
	action.Set:       100,
}

func removeRank(kind action.Kind) int {
	if v, ok := removeOrdinality[kind]; ok {
		return v
	}
	return len(removeOrdinality) * 10
}

// lessForPhase orders two actions within a single phase: install phases
// use action.Action.Less (ordinality, then key-attr, per §5 "within a
// phase, actions are applied in ordinality then key-attr order"); remove
// phases use removeRank with the same key-attr tiebreak.
func lessForPhase(phase Phase, a, b action.Action) bool {
	if phase == PhasePreRemove || phase == PhaseRemove || phase == PhasePostRemove {
		ra, rb := removeRank(a.Kind), removeRank(b.Kind)
		if ra != rb {
			return ra < rb
		}
		return a.KeyValue() < b.KeyValue()
	}
	return a.Less(b)
}
