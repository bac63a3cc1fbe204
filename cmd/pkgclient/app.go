package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/solarisips/pkgclient/pkg/catalog"
	"github.com/solarisips/pkgclient/pkg/config"
	"github.com/solarisips/pkgclient/pkg/fmri"
	"github.com/solarisips/pkgclient/pkg/imagestate"
	"github.com/solarisips/pkgclient/pkg/linkedimage"
	"github.com/solarisips/pkgclient/pkg/resolve"
	"github.com/solarisips/pkgclient/pkg/search"
	"github.com/solarisips/pkgclient/pkg/transport"
)

// app bundles the long-lived, per-invocation handles every subcommand
// needs: the image's persistent state, the configured publishers, and
// the transport/catalog/resolve/search/linked-image collaborators, all
// sharing one logger the way SPEC_FULL.md's ambient-stack section
// requires of every long-lived type.
type app struct {
	cfg        config.Config
	log        logrus.FieldLogger
	state      *imagestate.State
	publishers config.PublisherList
	transport  *transport.Client
	resolver   *resolve.Resolver
	controller *linkedimage.Controller
}

func newApp(cfg config.Config, log logrus.FieldLogger) (*app, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	metaDir := filepath.Join(cfg.ImageRoot, "var", "pkg")
	state, err := imagestate.Load(cfg.ImageRoot, metaDir)
	if err != nil {
		return nil, err
	}

	pubPath := filepath.Join(metaDir, "publishers.yaml")
	var pubs config.PublisherList
	if _, statErr := os.Stat(pubPath); statErr == nil {
		pubs, err = config.LoadPublishers(pubPath)
		if err != nil {
			return nil, err
		}
	}

	return &app{
		cfg:        cfg,
		log:        log,
		state:      state,
		publishers: pubs,
		transport:  transport.New(cfg, log),
		resolver:   resolve.NewResolver(log),
		controller: linkedimage.NewController(cfg.ImageRoot, state, logEntry(log)),
	}, nil
}

func logEntry(log logrus.FieldLogger) *logrus.Entry {
	switch l := log.(type) {
	case *logrus.Entry:
		return l
	case *logrus.Logger:
		return logrus.NewEntry(l)
	default:
		return logrus.NewEntry(logrus.StandardLogger())
	}
}

func (a *app) saveState() error {
	return imagestate.Save(a.state, filepath.Join(a.cfg.ImageRoot, "var", "pkg"))
}

// loadParentState returns the linked parent image's state if a.state is
// attached as a child, or nil if it has no parent - the state resolve
// evaluates every depend type=parent action against.
func (a *app) loadParentState() (*imagestate.State, error) {
	if a.state.Parent == nil {
		return nil, nil
	}
	return imagestate.Load(a.state.Parent.Path, filepath.Join(a.state.Parent.Path, "var", "pkg"))
}

func toTransportOrigins(origins []config.Origin) []transport.Origin {
	out := make([]transport.Origin, 0, len(origins))
	for _, o := range origins {
		if o.Disabled {
			continue
		}
		out = append(out, transport.Origin{URL: o.URL, Proxy: o.Proxy, SSLCert: o.SSLCert, SSLKey: o.SSLKey})
	}
	return out
}

// catalogClient builds the per-publisher catalog.Client, rooted at
// <imageRoot>/var/pkg/cache/<publisher>/catalog per pkg/catalog's own
// documented layout.
func (a *app) catalogClient(pub config.Publisher) (*catalog.Client, error) {
	dir := filepath.Join(a.cfg.ImageRoot, "var", "pkg", "cache", pub.Prefix, "catalog")
	store, err := catalog.NewStore(dir)
	if err != nil {
		return nil, err
	}
	origins := toTransportOrigins(pub.Origins)
	return catalog.NewClient(pub.Prefix, store, a.transport, origins, a.log), nil
}

// manifestFetcher adapts transport.Client (bound to one publisher's
// origins) to catalog.ManifestFetcher.
type manifestFetcher struct {
	client  *transport.Client
	origins []transport.Origin
}

func (f manifestFetcher) FetchManifest(ctx context.Context, fm fmri.FMRI) ([]byte, error) {
	res, err := f.client.FetchManifest(ctx, f.origins, fm.String())
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}

// payloadSource adapts transport.Client to planexec.PayloadSource for
// one publisher's origins.
type payloadSource struct {
	client  *transport.Client
	origins []transport.Origin
}

func (p payloadSource) Payload(ctx context.Context, hash string) ([]byte, error) {
	res, err := p.client.FetchFile(ctx, p.origins, hash)
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}

// candidateView builds the resolve.CatalogView for one publisher's
// catalog store, wired to fetch manifests lazily over transport.
func (a *app) candidateView(pub config.Publisher, store *catalog.Store) (*catalog.CandidateView, error) {
	origins := toTransportOrigins(pub.Origins)
	return catalog.BuildCandidateView(store, manifestFetcher{client: a.transport, origins: origins})
}

// rankedView stamps PublisherRank onto one publisher's candidates so a
// multiView merge preserves "publisher rank ascending, then version
// descending" (resolve.CatalogView's documented ordering contract).
type rankedView struct {
	view *catalog.CandidateView
	rank int
}

func (r rankedView) CandidatesForStem(stem string) []resolve.Candidate {
	cands := r.view.CandidatesForStem(stem)
	out := make([]resolve.Candidate, len(cands))
	for i, c := range cands {
		c.PublisherRank = r.rank
		out[i] = c
	}
	return out
}

// multiView concatenates per-publisher views in rank order.
type multiView []resolve.CatalogView

func (m multiView) CandidatesForStem(stem string) []resolve.Candidate {
	var out []resolve.Candidate
	for _, v := range m {
		out = append(out, v.CandidatesForStem(stem)...)
	}
	return out
}

// allPublishersView builds the merged resolve.CatalogView across every
// enabled, configured publisher, in ranked order, plus every stem any of
// them knows about (so callers can resolve a solver result back to an
// FMRI even for a dependency-pulled-in stem the original request never
// named).
func (a *app) allPublishersView() (resolve.CatalogView, []string, error) {
	var views multiView
	seen := map[string]struct{}{}
	var stems []string
	for _, pub := range a.publishers.Publishers {
		if !pub.Enabled {
			continue
		}
		dir := filepath.Join(a.cfg.ImageRoot, "var", "pkg", "cache", pub.Prefix, "catalog")
		store, err := catalog.NewStore(dir)
		if err != nil {
			return nil, nil, err
		}
		view, err := a.candidateView(pub, store)
		if err != nil {
			return nil, nil, err
		}
		views = append(views, rankedView{view: view, rank: pub.Rank})
		for _, stem := range view.Stems() {
			if _, ok := seen[stem]; !ok {
				seen[stem] = struct{}{}
				stems = append(stems, stem)
			}
		}
	}
	return views, stems, nil
}

// allOrigins merges every enabled publisher's origins, for payload
// fetches that aren't scoped to a single publisher.
func (a *app) allOrigins() []transport.Origin {
	var out []transport.Origin
	for _, pub := range a.publishers.Publishers {
		if !pub.Enabled {
			continue
		}
		out = append(out, toTransportOrigins(pub.Origins)...)
	}
	return out
}

// searchIndex returns the image-wide search.Index, rooted at
// <imageRoot>/var/pkg/index.
func (a *app) searchIndex() *search.Index {
	dir := filepath.Join(a.cfg.ImageRoot, "var", "pkg", "index")
	return search.NewIndex(search.NewStore(dir), a.log)
}
