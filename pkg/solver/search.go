package solver

import (
	"context"

	"github.com/go-air/gini/inter"
	"github.com/go-air/gini/z"
)

// choice is an unresolved decision point: one of candidates must become
// true (or the position is already satisfied by an earlier assumption).
type choice struct {
	prev, next *choice
	index      int
	candidates []z.Lit
}

// guess is a choice that has been committed to the assumption stack.
type guess struct {
	m          z.Lit
	index      int
	children   int
	candidates []z.Lit
}

// searcher walks the Variable graph in input order (so that earlier
// Variables - read: more preferred candidates - are assumed first),
// backtracking on conflict. It never explores the full candidate space
// at once; it defers to the underlying incremental SAT solver's Test/Untest
// for each tentative assumption.
type searcher struct {
	s                      inter.S
	lits                   *litMapping
	assumptions            map[z.Lit]struct{}
	guesses                []guess
	headChoice, tailChoice *choice
	tracer                 Tracer
	result                 int
	buffer                 []z.Lit
}

func (h *searcher) pushChoiceFront(c choice) {
	cp := &c
	if h.headChoice == nil {
		h.headChoice = cp
		h.tailChoice = cp
		return
	}
	h.headChoice.prev = cp
	cp.next = h.headChoice
	h.headChoice = cp
}

func (h *searcher) popChoiceFront() choice {
	c := h.headChoice
	if c.next != nil {
		c.next.prev = nil
	} else {
		h.tailChoice = nil
	}
	h.headChoice = c.next
	return *c
}

func (h *searcher) pushChoiceBack(c choice) {
	cp := &c
	if h.tailChoice == nil {
		h.headChoice = cp
		h.tailChoice = cp
		return
	}
	h.tailChoice.next = cp
	cp.prev = h.tailChoice
	h.tailChoice = cp
}

func (h *searcher) popChoiceBack() choice {
	c := h.tailChoice
	if c.prev != nil {
		c.prev.next = nil
	} else {
		h.headChoice = nil
	}
	h.tailChoice = c.prev
	return *c
}

func (h *searcher) pushGuess() {
	c := h.popChoiceFront()
	g := guess{
		m:          z.LitNull,
		index:      c.index,
		candidates: c.candidates,
	}
	if g.index < len(g.candidates) {
		g.m = g.candidates[g.index]
	}

	for _, m := range g.candidates {
		if _, ok := h.assumptions[m]; ok {
			g.m = z.LitNull
			break
		}
	}

	h.guesses = append(h.guesses, g)
	if g.m == z.LitNull {
		return
	}

	variable := h.lits.VariableOf(g.m)
	for _, constraint := range variable.Constraints() {
		var ms []z.Lit
		for _, dependency := range constraint.order() {
			ms = append(ms, h.lits.LitOf(dependency))
		}
		if len(ms) > 0 {
			h.guesses[len(h.guesses)-1].children++
			h.pushChoiceBack(choice{candidates: ms})
		}
	}

	if h.assumptions == nil {
		h.assumptions = make(map[z.Lit]struct{})
	}
	h.assumptions[g.m] = struct{}{}
	h.s.Assume(g.m)
	h.result, h.buffer = h.s.Test(h.buffer)
}

func (h *searcher) popGuess() {
	g := h.guesses[len(h.guesses)-1]
	h.guesses = h.guesses[:len(h.guesses)-1]
	if g.m != z.LitNull {
		delete(h.assumptions, g.m)
		h.result = h.s.Untest()
	}
	for g.children > 0 {
		g.children--
		h.popChoiceBack()
	}
	c := choice{
		index:      g.index,
		candidates: g.candidates,
	}
	if g.m != z.LitNull {
		c.index++
	}
	h.pushChoiceFront(c)
}

// Variables implements SearchPosition.
func (h *searcher) Variables() []Variable {
	result := make([]Variable, 0, len(h.guesses))
	for _, g := range h.guesses {
		if g.m != z.LitNull {
			result = append(result, h.lits.VariableOf(g.candidates[g.index]))
		}
	}
	return result
}

// Conflicts implements SearchPosition.
func (h *searcher) Conflicts() []AppliedConstraint {
	return h.lits.Conflicts(h.s)
}

func (h *searcher) litsAssumed() []z.Lit {
	result := make([]z.Lit, 0, len(h.guesses))
	for _, g := range h.guesses {
		if g.m != z.LitNull {
			result = append(result, g.m)
		}
	}
	return result
}

// search walks every provided anchor literal, assuming one candidate at a
// time in order and backtracking on conflict, until a satisfying set of
// assumptions is found or every combination is exhausted. It returns the
// outcome and the literals assumed along the accepted path.
func (h *searcher) search(ctx context.Context, anchors []z.Lit) (int, []z.Lit) {
	for _, m := range anchors {
		h.pushChoiceBack(choice{candidates: []z.Lit{m}})
	}

	for {
		select {
		case <-ctx.Done():
			h.result = unknown
			for len(h.guesses) > 0 {
				h.popGuess()
			}
			return unknown, nil
		default:
		}

		if h.headChoice == nil && h.result == unknown {
			h.result = h.s.Solve()
		}

		if h.result == unsatisfiable {
			h.tracer.Trace(h)
			if len(h.guesses) == 0 {
				break
			}
			h.popGuess()
			continue
		}

		if h.headChoice == nil {
			break
		}

		h.pushGuess()
	}

	lits := h.litsAssumed()
	result := h.result

	for len(h.guesses) > 0 {
		h.popGuess()
	}

	return result, lits
}
