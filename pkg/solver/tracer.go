package solver

import (
	"fmt"
	"io"
)

// SearchPosition snapshots the search at the moment a Tracer is invoked:
// every Variable currently assumed, and every constraint conflicting
// with that assumption set.
type SearchPosition interface {
	Variables() []Variable
	Conflicts() []AppliedConstraint
}

// Tracer observes the search as it backtracks, purely for diagnostics -
// it cannot influence the outcome.
type Tracer interface {
	Trace(p SearchPosition)
}

// DefaultTracer discards every SearchPosition it's given; New installs
// this when WithTracer isn't used.
type DefaultTracer struct{}

func (DefaultTracer) Trace(_ SearchPosition) {}

// LoggingTracer writes a human-readable rendering of each backtrack to
// Writer - the currently assumed Variables followed by the constraints
// that conflicted, useful for working out why a particular resolve
// request turned out unsatisfiable.
type LoggingTracer struct {
	Writer io.Writer
}

func (t LoggingTracer) Trace(p SearchPosition) {
	fmt.Fprintln(t.Writer, "---")
	fmt.Fprintln(t.Writer, "Assumptions:")
	for _, v := range p.Variables() {
		fmt.Fprintf(t.Writer, "- %s\n", v.Identifier())
	}
	fmt.Fprintln(t.Writer, "Conflicts:")
	for _, c := range p.Conflicts() {
		fmt.Fprintf(t.Writer, "- %s\n", c)
	}
}
