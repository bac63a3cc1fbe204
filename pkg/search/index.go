package search

import (
	"github.com/sirupsen/logrus"

	"github.com/solarisips/pkgclient/pkg/imagestate"
	"github.com/solarisips/pkgclient/pkg/metrics"
	"github.com/solarisips/pkgclient/pkg/pkgerrors"
)

// Index is the long-lived handle callers hold for one image's search
// index: the on-disk Store plus the structured logger every long-lived
// type in this module carries (§2 AMBIENT STACK).
type Index struct {
	store *Store
	log   logrus.FieldLogger
}

// NewIndex wraps store for use as a long-lived handle. A nil log defaults
// to the standard logrus logger.
func NewIndex(store *Store, log logrus.FieldLogger) *Index {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Index{store: store, log: log}
}

// Build performs a full rebuild and records the installed-state
// fingerprint (imagestate.Fingerprint) alongside the index, giving
// Search a second staleness signal beyond full_fmri_list.hash - useful
// when the FMRI list happens to match but per-package state (versions,
// facets) has moved.
func (idx *Index) Build(entries []Entry, state *imagestate.State) (pkgerrors.Outcome[BuildStats], error) {
	out, err := idx.store.Build(entries)
	if err != nil {
		idx.log.WithError(err).Error("search: full rebuild failed")
		return out, err
	}
	if fp, ferr := imagestate.Fingerprint(state); ferr == nil {
		_ = idx.store.writeFingerprint(fp)
	}
	metrics.EmitSearchRebuild()
	idx.log.WithField("packages", out.Value.Packages).Info("search: full rebuild complete")
	return out, nil
}

// Search resolves q, logging and emitting pkgclient_search_degraded_total
// whenever it falls back to degraded mode, and additionally treating a
// mismatched imagestate.Fingerprint as a staleness signal (folded into
// the same IncorrectIndexFileHash diagnostic §4.4 names, since both mean
// "the index doesn't match what's actually installed"). Before resolving
// q, it checks ShouldRebuild against the pending fast-add count and, if
// the threshold has been crossed, performs a full Build first - §4.4's
// "Threshold" rule exists so a query is never left to scan fast-add
// manifests directly forever; the next Search after the threshold trips
// is what actually folds them into main_dict.
func (idx *Index) Search(q *Query, entries []Entry, state *imagestate.State, maxFastIndexed int) (pkgerrors.Outcome[[]Hit], error) {
	if added, perr := idx.store.PendingFastAdds(); perr == nil && ShouldRebuild(len(added), maxFastIndexed, false) {
		if _, berr := idx.Build(entries, state); berr != nil {
			idx.log.WithError(berr).Warn("search: automatic rebuild on threshold crossing failed, falling back to degraded search")
		}
	}

	out, err := Search(idx.store, q, entries, maxFastIndexed)
	if err != nil {
		return out, err
	}
	if state != nil {
		if stale, ferr := idx.store.fingerprintStale(state); ferr == nil && stale {
			out = out.WithDiagnostic(DiagIncorrectIndexFileHash, "installed-state fingerprint no longer matches the index")
		}
	}
	for _, d := range out.Diagnostics {
		metrics.EmitSearchDegraded(d.Code)
		idx.log.WithField("diagnostic", d.Code).Warn("search: " + d.Message)
	}
	return out, nil
}

// AddFast/RemoveFast delegate to the Store, logging the incremental op.
func (idx *Index) AddFast(f Entry) error {
	idx.log.WithField("fmri", f.FMRI.String()).Debug("search: fast add")
	return idx.store.AddFast(f.FMRI)
}

func (idx *Index) RemoveFast(f Entry) error {
	idx.log.WithField("fmri", f.FMRI.String()).Debug("search: fast remove")
	return idx.store.RemoveFast(f.FMRI)
}
