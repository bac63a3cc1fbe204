package linkedimage

import (
	"fmt"

	"github.com/solarisips/pkgclient/pkg/config"
	"github.com/solarisips/pkgclient/pkg/imagestate"
)

// PublisherViolation names one sticky publisher the child configures
// differently from its parent.
type PublisherViolation struct {
	Prefix string
	Reason string
}

// CheckPublisherSync evaluates §4.3's publisher-sync invariant: every
// sticky parent publisher must either be absent from the child or
// configured with the identical, identically-ordered origin set.
// Non-sticky parent publishers impose no constraint, and child-only
// publishers are always allowed regardless of stickiness.
func CheckPublisherSync(parent, child *imagestate.State) []PublisherViolation {
	var violations []PublisherViolation
	for _, p := range parent.Publishers {
		if !p.Sticky {
			continue
		}
		cp, ok := child.PublisherByPrefix(p.Prefix)
		if !ok {
			continue // absent from child: allowed
		}
		if !sameOrigins(p.Origins, cp.Origins) {
			violations = append(violations, PublisherViolation{
				Prefix: p.Prefix,
				Reason: "sticky publisher origins differ from parent",
			})
		}
	}
	return violations
}

func sameOrigins(a, b []config.Origin) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].URL != b[i].URL {
			return false
		}
	}
	return true
}

// errIfPublisherDiverged turns a non-empty violation set into a
// linked_pub_error, aborting the caller's operation before any mutation.
func errIfPublisherDiverged(name string, violations []PublisherViolation) error {
	if len(violations) == 0 {
		return nil
	}
	return newError(CodePubError, name, fmt.Errorf("%d sticky publisher(s) diverge from parent", len(violations)))
}
