package solver

import (
	"fmt"
	"strings"

	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
)

// Constraint narrows the circumstances under which its Variable may be
// part of a solution. pkg/resolve builds these from manifest depend
// actions, installed-state bookkeeping, and operation requests
// (install/uninstall/update/...); the solver itself never interprets
// what a Constraint means, only how it folds into the SAT formula.
type Constraint interface {
	String(subject Identifier) string
	apply(c *logic.C, lm *litMapping, subject Identifier) z.Lit
	order() []Identifier
	anchor() bool
}

// absentConstraint stands in for ConstraintOf's failure case: a no-op
// that contributes nothing to the formula and never claims to anchor.
type absentConstraint struct{}

var _ Constraint = absentConstraint{}

func (absentConstraint) String(subject Identifier) string {
	return ""
}

func (absentConstraint) apply(c *logic.C, lm *litMapping, subject Identifier) z.Lit {
	return z.LitNull
}

func (absentConstraint) order() []Identifier {
	return nil
}

func (absentConstraint) anchor() bool {
	return false
}

// AppliedConstraint pairs a Constraint with the Variable it was built
// for - the unit NotSatisfiable and SearchPosition.Conflicts() report
// back to the caller, since a bare Constraint on its own doesn't say
// which candidate it's blocking.
type AppliedConstraint struct {
	Variable   Variable
	Constraint Constraint
}

func (a AppliedConstraint) String() string {
	return a.Constraint.String(a.Variable.Identifier())
}

// mandatory forces its Variable true: the solver must pick this
// candidate no matter what else it excludes.
type mandatory struct{}

func (mandatory) String(subject Identifier) string {
	return fmt.Sprintf("%s is mandatory", subject)
}

func (mandatory) apply(_ *logic.C, lm *litMapping, subject Identifier) z.Lit {
	return lm.LitOf(subject)
}

func (mandatory) order() []Identifier {
	return nil
}

// anchor reports true: a mandatory Variable is exactly what search's
// anchor-first assumption order exists to drive toward quickly.
func (mandatory) anchor() bool {
	return true
}

// Mandatory builds a Constraint requiring its Variable in every solution -
// used for an operation's own proposed targets, which must end up
// installed or the whole resolve fails.
func Mandatory() Constraint {
	return mandatory{}
}

// prohibited forces its Variable false: no solution may choose this
// candidate at all.
type prohibited struct{}

func (prohibited) String(subject Identifier) string {
	return fmt.Sprintf("%s is prohibited", subject)
}

func (prohibited) apply(c *logic.C, lm *litMapping, subject Identifier) z.Lit {
	return lm.LitOf(subject).Not()
}

func (prohibited) order() []Identifier {
	return nil
}

func (prohibited) anchor() bool {
	return false
}

// Prohibited builds a Constraint excluding its Variable from every
// solution - the uniform way pkg/resolve rules out a candidate whose
// version, parent-sync state, or incorporation has already failed,
// without needing a different code path per rejection reason.
func Prohibited() Constraint {
	return prohibited{}
}

// dependency requires at least one Identifier in the list whenever its
// Variable holds. The list order is the caller's preference order: the
// solver tries earlier candidates before later ones when deciding which
// dependency target to pull in.
type dependency []Identifier

func (constraint dependency) String(subject Identifier) string {
	if len(constraint) == 0 {
		return fmt.Sprintf("%s has a dependency without any candidates to satisfy it", subject)
	}
	targets := make([]string, len(constraint))
	for i, id := range constraint {
		targets[i] = string(id)
	}
	return fmt.Sprintf("%s requires at least one of %s", subject, strings.Join(targets, ", "))
}

func (constraint dependency) apply(c *logic.C, lm *litMapping, subject Identifier) z.Lit {
	clause := lm.LitOf(subject).Not()
	for _, id := range constraint {
		clause = c.Or(clause, lm.LitOf(id))
	}
	return clause
}

func (constraint dependency) order() []Identifier {
	return constraint
}

func (constraint dependency) anchor() bool {
	return false
}

// Dependency builds a Constraint under which a solution containing the
// constrained Variable must also contain at least one of ids. Earlier
// ids are preferred over later ones - pkg/resolve relies on this to bias
// the solver toward newer candidate versions by listing them first.
func Dependency(ids ...Identifier) Constraint {
	return dependency(ids)
}

// conflict forbids its Variable and the named Identifier from both
// appearing in the same solution.
type conflict Identifier

func (constraint conflict) String(subject Identifier) string {
	return fmt.Sprintf("%s conflicts with %s", subject, Identifier(constraint))
}

func (constraint conflict) apply(c *logic.C, lm *litMapping, subject Identifier) z.Lit {
	return c.Or(lm.LitOf(subject).Not(), lm.LitOf(Identifier(constraint)).Not())
}

func (constraint conflict) order() []Identifier {
	return nil
}

func (constraint conflict) anchor() bool {
	return false
}

// Conflict builds a Constraint permitting the constrained Variable, the
// one named by id, or neither - never both together.
func Conflict(id Identifier) Constraint {
	return conflict(id)
}

// atMostN forbids more than n of ids from appearing together in a
// solution, independent of whatever Variable it's attached to - the
// mechanism pkg/resolve uses to enforce "at most one version of a given
// stem installed at once."
type atMostN struct {
	ids []Identifier
	n   int
}

func (constraint atMostN) String(subject Identifier) string {
	ids := make([]string, len(constraint.ids))
	for i, id := range constraint.ids {
		ids[i] = string(id)
	}
	return fmt.Sprintf("%s permits at most %d of %s", subject, constraint.n, strings.Join(ids, ", "))
}

func (constraint atMostN) apply(c *logic.C, lm *litMapping, subject Identifier) z.Lit {
	lits := make([]z.Lit, len(constraint.ids))
	for i, id := range constraint.ids {
		lits[i] = lm.LitOf(id)
	}
	return c.CardSort(lits).Leq(constraint.n)
}

func (constraint atMostN) order() []Identifier {
	return nil
}

func (constraint atMostN) anchor() bool {
	return false
}

// AtMost builds a Constraint rejecting any solution where more than n of
// ids appear together.
func AtMost(n int, ids ...Identifier) Constraint {
	return atMostN{ids: ids, n: n}
}
