package solver

import (
	"fmt"
	"strings"

	"github.com/go-air/gini/inter"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
)

// DuplicateIdentifier reports two Variables sharing the same Identifier
// in the input to New - a bug in the caller assembling candidates, since
// CandidateID is meant to be unique per (stem, version, publisher).
type DuplicateIdentifier Identifier

func (e DuplicateIdentifier) Error() string {
	return fmt.Sprintf("duplicate identifier %q in input", Identifier(e))
}

// internalErrors aggregates every bookkeeping failure litMapping notices
// while translating between Variables/Constraints and gini's z.Lit
// space - referencing an Identifier never passed to New, for instance.
// Any non-empty value here means the solver or a Constraint
// implementation has a bug, not that the package's input was
// unsatisfiable.
type internalErrors []error

func (internalErrors) Error() string {
	return "internal solver failure"
}

// litMapping is the translation layer between this package's public
// vocabulary (Variable, Constraint, Identifier) and the z.Lit-indexed
// circuit gini actually solves.
type litMapping struct {
	inorder     []Variable
	variables   map[z.Lit]Variable
	lits        map[Identifier]z.Lit
	constraints map[z.Lit]AppliedConstraint
	circuit     *logic.C
	errs        internalErrors
}

// newLitMapping assigns one fresh z.Lit per Variable in variables, then
// compiles every Variable's Constraints into the circuit, recording each
// one under the literal its apply() returned so ConstraintOf/Conflicts
// can later recover which AppliedConstraint a given SAT literal came
// from.
func newLitMapping(variables []Variable) (*litMapping, error) {
	lm := litMapping{
		inorder:     variables,
		variables:   make(map[z.Lit]Variable, len(variables)),
		lits:        make(map[Identifier]z.Lit, len(variables)),
		constraints: make(map[z.Lit]AppliedConstraint),
		circuit:     logic.NewCCap(len(variables)),
	}

	for _, v := range variables {
		lit := lm.circuit.Lit()
		if _, taken := lm.lits[v.Identifier()]; taken {
			return nil, DuplicateIdentifier(v.Identifier())
		}
		lm.lits[v.Identifier()] = lit
		lm.variables[lit] = v
	}

	for _, v := range variables {
		for _, constraint := range v.Constraints() {
			lit := constraint.apply(lm.circuit, &lm, v.Identifier())
			if lit == z.LitNull {
				// Nothing to encode - the Constraint has no
				// representation in the SAT formula (see
				// absentConstraint).
				continue
			}
			lm.constraints[lit] = AppliedConstraint{Variable: v, Constraint: constraint}
		}
	}

	return &lm, nil
}

// LitOf returns the literal standing for id, recording an internal error
// (surfaced via Error) if id was never part of this litMapping's input.
func (lm *litMapping) LitOf(id Identifier) z.Lit {
	if lit, ok := lm.lits[id]; ok {
		return lit
	}
	lm.errs = append(lm.errs, fmt.Errorf("variable %q referenced but not provided", id))
	return z.LitNull
}

// VariableOf recovers the Variable a given literal was allocated for, or
// absentVariable{} if lit is unrecognized.
func (lm *litMapping) VariableOf(lit z.Lit) Variable {
	if v, ok := lm.variables[lit]; ok {
		return v
	}
	lm.errs = append(lm.errs, fmt.Errorf("no variable corresponding to %s", lit))
	return absentVariable{}
}

// ConstraintOf recovers the AppliedConstraint compiled to lit, or
// absentConstraint{} paired with absentVariable{} if none exists.
func (lm *litMapping) ConstraintOf(lit z.Lit) AppliedConstraint {
	if a, ok := lm.constraints[lit]; ok {
		return a
	}
	lm.errs = append(lm.errs, fmt.Errorf("no constraint corresponding to %s", lit))
	return AppliedConstraint{Variable: absentVariable{}, Constraint: absentConstraint{}}
}

// Error collapses every bookkeeping failure recorded so far into one
// error, or nil if there were none.
func (lm *litMapping) Error() error {
	if len(lm.errs) == 0 {
		return nil
	}
	msgs := make([]string, len(lm.errs))
	for i, err := range lm.errs {
		msgs[i] = err.Error()
	}
	return fmt.Errorf("%d errors encountered: %s", len(msgs), strings.Join(msgs, ", "))
}

// AddConstraints hands the compiled circuit to g as CNF clauses.
func (lm *litMapping) AddConstraints(g inter.S) {
	lm.circuit.ToCnf(g)
}

// AssumeConstraints assumes every compiled Constraint's literal, so a
// failed Test/Solve's Why() set can name which constraints conflicted.
func (lm *litMapping) AssumeConstraints(s inter.S) {
	for lit := range lm.constraints {
		s.Assume(lit)
	}
}

// CardinalityConstrainer builds (and teaches g the CNF for) a sorting
// network over ms, letting Solve ask for "at most w of these extras" at
// increasing w until it finds the smallest satisfiable deviation from
// the anchored assignment.
func (lm *litMapping) CardinalityConstrainer(g inter.Adder, ms []z.Lit) *logic.CardSort {
	before := lm.circuit.Len()
	cs := lm.circuit.CardSort(ms)
	marks := make([]int8, before, lm.circuit.Len())
	for i := range marks {
		marks[i] = 1
	}
	for w := 0; w <= cs.N(); w++ {
		marks, _ = lm.circuit.CnfSince(g, marks, cs.Leq(w))
	}
	return cs
}

// AnchorIdentifiers lists, in input order, every Variable carrying at
// least one anchoring Constraint (currently only Mandatory) - Solve
// assumes these first so the search commits to required candidates
// before exploring optional ones.
func (lm *litMapping) AnchorIdentifiers() []Identifier {
	var ids []Identifier
	for _, v := range lm.inorder {
		for _, constraint := range v.Constraints() {
			if constraint.anchor() {
				ids = append(ids, v.Identifier())
				break
			}
		}
	}
	return ids
}

// Variables returns every input Variable whose literal g has assigned
// true, in input order.
func (lm *litMapping) Variables(g inter.S) []Variable {
	var chosen []Variable
	for _, v := range lm.inorder {
		if g.Value(lm.LitOf(v.Identifier())) {
			chosen = append(chosen, v)
		}
	}
	return chosen
}

// Lits returns every input Variable's literal, in input order, reusing
// dst's backing array when it's large enough.
func (lm *litMapping) Lits(dst []z.Lit) []z.Lit {
	if cap(dst) < len(lm.inorder) {
		dst = make([]z.Lit, 0, len(lm.inorder))
	}
	dst = dst[:0]
	for _, v := range lm.inorder {
		dst = append(dst, lm.LitOf(v.Identifier()))
	}
	return dst
}

// Conflicts translates g's Why() set - the assumptions implicated in the
// last unsatisfiable Test/Solve - back into the AppliedConstraints that
// produced them.
func (lm *litMapping) Conflicts(g inter.Assumable) []AppliedConstraint {
	why := g.Why(nil)
	out := make([]AppliedConstraint, 0, len(why))
	for _, lit := range why {
		if a, ok := lm.constraints[lit]; ok {
			out = append(out, a)
		}
	}
	return out
}
