package solver

import (
	"fmt"
	"strings"

	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
)

// conditionalDependency encodes "if subject and predicate both hold,
// then at least one of ids must hold" - the two-antecedent
// generalization of Dependency, needed for conditional depend actions
// whose constraint only engages when a second, independently-chosen
// Variable is also part of the solution.
type conditionalDependency struct {
	predicate Identifier
	ids       []Identifier
}

func (c conditionalDependency) String(subject Identifier) string {
	if len(c.ids) == 0 {
		return fmt.Sprintf("%s has a conditional dependency on %s without any candidates to satisfy it", subject, c.predicate)
	}
	s := make([]string, len(c.ids))
	for i, each := range c.ids {
		s[i] = string(each)
	}
	return fmt.Sprintf("%s requires, when %s holds, at least one of %s", subject, c.predicate, strings.Join(s, ", "))
}

func (c conditionalDependency) apply(circuit *logic.C, lm *litMapping, subject Identifier) z.Lit {
	m := circuit.Or(lm.LitOf(subject).Not(), lm.LitOf(c.predicate).Not())
	for _, id := range c.ids {
		m = circuit.Or(m, lm.LitOf(id))
	}
	return m
}

func (c conditionalDependency) order() []Identifier {
	return c.ids
}

func (c conditionalDependency) anchor() bool {
	return false
}

// ConditionalDependency returns a Constraint that only engages when both
// the constrained Variable and predicate are part of the solution: in
// that case at least one of ids must also hold. Identifiers earlier in
// ids are preferred over later ones, matching Dependency's convention.
func ConditionalDependency(predicate Identifier, ids ...Identifier) Constraint {
	return conditionalDependency{predicate: predicate, ids: ids}
}
