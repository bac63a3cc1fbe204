package solver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-air/gini"
	"github.com/go-air/gini/inter"
	"github.com/go-air/gini/z"
)

// Incomplete is returned when the provided Context is cancelled or times
// out before a solution (or proof of unsatisfiability) could be found.
var Incomplete = errors.New("cancelled before a solution could be found")

// NotSatisfiable is an error composed of the applied constraints the SAT
// solver's final conflict implicates; together they make a solution
// impossible. The set is not reduced further to a minimal subset.
type NotSatisfiable []AppliedConstraint

func (e NotSatisfiable) Error() string {
	const msg = "constraints not satisfiable"
	if len(e) == 0 {
		return msg
	}
	s := make([]string, len(e))
	for i, a := range e {
		s[i] = a.String()
	}
	return fmt.Sprintf("%s: %s", msg, strings.Join(s, ", "))
}

const (
	satisfiable   = 1
	unsatisfiable = -1
	unknown       = 0
)

// Solver takes a set of Variables, each carrying its own Constraints, and
// finds an assignment that satisfies every Constraint while preferring
// Variables and dependency targets that appear earlier in the input -
// callers encode preference order (publisher rank, latest-version-first,
// and so on) by the order in which Variables and Dependency() targets are
// given.
type Solver interface {
	Solve(context.Context) ([]Variable, error)
}

type solver struct {
	g      *gini.Gini
	litMap *litMapping
	tracer Tracer
}

// Option configures a Solver constructed by New.
type Option func(*options) error

type options struct {
	variables []Variable
	tracer    Tracer
}

// WithInput supplies the complete set of Variables for a single Solve
// call. Must be provided exactly once.
func WithInput(variables []Variable) Option {
	return func(o *options) error {
		o.variables = variables
		return nil
	}
}

// WithTracer installs a Tracer that observes the search as it proceeds.
// Useful for diagnostics; has no effect on the result.
func WithTracer(t Tracer) Option {
	return func(o *options) error {
		o.tracer = t
		return nil
	}
}

// New constructs a Solver over the Variables and options given.
func New(opts ...Option) (Solver, error) {
	var o options
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}
	lm, err := newLitMapping(o.variables)
	if err != nil {
		return nil, err
	}
	tracer := o.tracer
	if tracer == nil {
		tracer = DefaultTracer{}
	}
	return &solver{
		g:      gini.New(),
		litMap: lm,
		tracer: tracer,
	}, nil
}

// Solve returns the subset of input Variables that were selected, or a
// NotSatisfiable error naming the conflicting AppliedConstraints if no
// assignment exists. It prefers, among satisfying assignments, the one
// that selects the fewest non-anchored Variables - the minimal-change
// objective layered on top of the boolean satisfiability problem.
func (s *solver) Solve(ctx context.Context) (result []Variable, err error) {
	defer func() {
		if derr := s.litMap.Error(); derr != nil {
			result = nil
			err = derr
		}
	}()

	s.litMap.AddConstraints(s.g)

	sr := searcher{
		s:      s.g,
		lits:   s.litMap,
		tracer: s.tracer,
	}

	anchorIDs := s.litMap.AnchorIdentifiers()
	anchors := make([]z.Lit, 0, len(anchorIDs))
	assumed := make(map[z.Lit]struct{}, len(anchorIDs))
	for _, id := range anchorIDs {
		m := s.litMap.LitOf(id)
		anchors = append(anchors, m)
		assumed[m] = struct{}{}
	}

	s.g.Assume(anchors...)
	s.litMap.AssumeConstraints(s.g)

	outcome, _ := s.g.Test(nil)
	if outcome != satisfiable && outcome != unsatisfiable {
		outcome, _ = sr.search(ctx, anchors)
	}

	select {
	case <-ctx.Done():
		return nil, Incomplete
	default:
	}

	switch outcome {
	case satisfiable:
		all := s.litMap.Lits(nil)
		var extras, excluded []z.Lit
		for _, m := range all {
			if _, ok := assumed[m]; ok {
				continue
			}
			if !s.g.Value(m) {
				excluded = append(excluded, m.Not())
				continue
			}
			extras = append(extras, m)
		}
		s.g.Untest()

		cs := s.litMap.CardinalityConstrainer(s.g, extras)
		s.g.Assume(anchors...)
		s.g.Assume(excluded...)
		s.litMap.AssumeConstraints(s.g)
		s.g.Test(nil)

		for w := 0; w <= cs.N(); w++ {
			s.g.Assume(cs.Leq(w))
			if s.g.Solve() == satisfiable {
				return s.litMap.Variables(s.g), nil
			}
		}
		return nil, fmt.Errorf("internal error: lost satisfiability while optimizing")
	case unsatisfiable:
		return nil, NotSatisfiable(s.litMap.Conflicts(s.g))
	default:
		return nil, Incomplete
	}
}

var _ inter.S = (*gini.Gini)(nil)
