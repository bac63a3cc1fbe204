package resolve

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/solarisips/pkgclient/pkg/imagestate"
	"github.com/solarisips/pkgclient/pkg/solver"
)

// Resolver is the long-lived handle a client holds across repeated
// image-modifying operations: it ties BuildVariables and pkg/solver
// together behind one call and carries the structured logger every
// long-lived type in this module takes, mirroring the teacher's
// NewDefaultSatResolver(rcp, log)/SatResolver.log pattern.
type Resolver struct {
	log logrus.FieldLogger
}

// NewResolver constructs a Resolver. log may be nil (defaults to the
// standard logrus logger).
func NewResolver(log logrus.FieldLogger) *Resolver {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Resolver{log: log}
}

// Resolve encodes req against catalog and state into solver variables,
// runs the solver, and turns an unsatisfiable result into a BlameError.
// On success it returns the solver Variables selected: one candidate
// Variable per resolved stem, plus the stem anchor Variables.
func (r *Resolver) Resolve(ctx context.Context, state, parent *imagestate.State, req Request, catalog CatalogView) ([]solver.Variable, error) {
	entry := r.log.WithField("operation", req.Kind)

	vars, err := BuildVariables(state, parent, req, catalog)
	if err != nil {
		entry.WithError(err).Warn("resolve: failed to build solver input")
		return nil, err
	}

	s, err := solver.New(solver.WithInput(vars))
	if err != nil {
		entry.WithError(err).Error("resolve: failed to construct solver")
		return nil, err
	}

	result, err := s.Solve(ctx)
	if err != nil {
		if ns, ok := err.(solver.NotSatisfiable); ok {
			blame := FromNotSatisfiable(ns)
			entry.WithError(blame).Info("resolve: unsatisfiable")
			return nil, blame
		}
		entry.WithError(err).Error("resolve: solve failed")
		return nil, err
	}

	entry.WithField("chosen", len(result)).Info("resolve: solved")
	return result, nil
}
