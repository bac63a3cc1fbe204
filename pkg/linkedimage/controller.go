// Package linkedimage maintains the parent/child graph of linked
// images described in spec.md §4.3: attach/detach metadata, the
// parent-sync and publisher-sync invariants, and recursive per-child
// planning with aggregated bundle errors.
package linkedimage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/solarisips/pkgclient/pkg/imagestate"
)

const metadataDir = "var/pkg"

// stateDir is the per-image metadata directory imagestate.Load/Save
// read and write, relative to an image's root path.
func stateDir(imageRoot string) string {
	return filepath.Join(imageRoot, metadataDir)
}

// AttachOptions are the modifiers §4.3 names for attach_child/attach_parent.
type AttachOptions struct {
	MDOnly          bool
	RefreshCatalogs bool
	RejectList      []string
}

// Controller manages one image's linked-image graph: the children it
// has attached, and (if it is itself a child) its parent link. It owns
// reading and writing that image's persisted state; callers never poke
// imagestate.State.Children/Parent directly.
type Controller struct {
	path  string
	state *imagestate.State
	log   *logrus.Entry
}

// NewController wraps an already-loaded image state for linked-image
// operations. path is the image's own root, used to resolve relative
// child paths and to detect attach cycles.
func NewController(path string, state *imagestate.State, log *logrus.Entry) *Controller {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Controller{path: path, state: state, log: log}
}

// Save persists the controller's own image state.
func (c *Controller) Save() error {
	return imagestate.Save(c.state, stateDir(c.path))
}

// AttachChild installs lin's metadata in c's state and reciprocal
// parent metadata in the child at path, refusing if the name is
// malformed, the child is unreachable (per its kind adapter), or
// attaching would introduce a cycle.
func (c *Controller) AttachChild(ctx context.Context, lin imagestate.LinkedImageName, path string, opts AttachOptions) error {
	adapter, err := AdapterFor(lin.Kind)
	if err != nil {
		return err
	}
	if err := adapter.Verify(ctx, path); err != nil {
		return err
	}

	cycle, err := introducesCycle(c.path, path)
	if err != nil {
		return newError(CodeCmdFailed, lin.String(), err)
	}
	if cycle {
		return newError(CodeMalformed, lin.String(), fmt.Errorf("attaching %s at %s would introduce a cycle", lin, path))
	}

	childState, err := imagestate.Load(path, stateDir(path))
	if err != nil {
		return newError(CodeCmdFailed, lin.String(), err)
	}

	if !opts.MDOnly {
		if violations := CheckPublisherSync(c.state, childState); len(violations) > 0 {
			return errIfPublisherDiverged(lin.String(), violations)
		}
	}

	c.state.Children[lin.String()] = imagestate.ChildLink{
		Name:            lin,
		Path:            path,
		MDOnly:          opts.MDOnly,
		RefreshCatalogs: opts.RefreshCatalogs,
		RejectList:      opts.RejectList,
	}
	childState.Parent = &imagestate.ParentLink{Path: c.path}

	if err := imagestate.Save(childState, stateDir(path)); err != nil {
		return newError(CodeCmdFailed, lin.String(), err)
	}
	c.log.WithField("linked-image", lin.String()).Info("attached child")
	return nil
}

// AttachParent is the symmetric operation from the child's side: it
// records path as c's parent and registers c as a child of the image
// at path, under lin.
func (c *Controller) AttachParent(ctx context.Context, lin imagestate.LinkedImageName, path string, opts AttachOptions) error {
	adapter, err := AdapterFor(lin.Kind)
	if err != nil {
		return err
	}
	if err := adapter.Verify(ctx, c.path); err != nil {
		return err
	}

	parentState, err := imagestate.Load(path, stateDir(path))
	if err != nil {
		return newError(CodeCmdFailed, lin.String(), err)
	}

	if !opts.MDOnly {
		if violations := CheckPublisherSync(parentState, c.state); len(violations) > 0 {
			return errIfPublisherDiverged(lin.String(), violations)
		}
	}

	parentState.Children[lin.String()] = imagestate.ChildLink{
		Name:            lin,
		Path:            c.path,
		MDOnly:          opts.MDOnly,
		RefreshCatalogs: opts.RefreshCatalogs,
		RejectList:      opts.RejectList,
	}
	c.state.Parent = &imagestate.ParentLink{Path: path}

	if err := imagestate.Save(parentState, stateDir(path)); err != nil {
		return newError(CodeCmdFailed, lin.String(), err)
	}
	c.log.WithField("linked-image", lin.String()).Info("attached parent")
	return nil
}

// Detach removes lin's metadata without touching any installed
// content in either image, per §4.3 ("does not un-sync content").
func (c *Controller) Detach(lin imagestate.LinkedImageName) error {
	link, ok := c.state.Children[lin.String()]
	if ok {
		delete(c.state.Children, lin.String())
		if childState, err := imagestate.Load(link.Path, stateDir(link.Path)); err == nil {
			childState.Parent = nil
			_ = imagestate.Save(childState, stateDir(link.Path))
		}
		return nil
	}
	if c.state.Parent != nil {
		if parentState, err := imagestate.Load(c.state.Parent.Path, stateDir(c.state.Parent.Path)); err == nil {
			delete(parentState.Children, lin.String())
			_ = imagestate.Save(parentState, stateDir(c.state.Parent.Path))
		}
		c.state.Parent = nil
		return nil
	}
	return newError(CodeMalformed, lin.String(), fmt.Errorf("no such linked image"))
}

// SyncResult is one child's sync outcome from Sync or Audit.
type SyncResult struct {
	Name        imagestate.LinkedImageName
	Status      SyncStatus
	Divergences []Divergence
}

// Audit reports, without mutating anything, the parent-sync status of
// every name in names (or every attached child if names is empty).
func (c *Controller) Audit(names []imagestate.LinkedImageName, manifests ManifestProvider) ([]SyncResult, error) {
	return c.evaluate(names, manifests)
}

// Sync recomputes parent-sync for the listed children. It has the same
// observable effect as Audit - neither mutates installed content - but
// is the operation name §4.3 gives the "recompute and report" action
// when invoked directly rather than as a side-effect of install/update.
func (c *Controller) Sync(names []imagestate.LinkedImageName, manifests ManifestProvider) ([]SyncResult, error) {
	return c.evaluate(names, manifests)
}

func (c *Controller) evaluate(names []imagestate.LinkedImageName, manifests ManifestProvider) ([]SyncResult, error) {
	targets := names
	if len(targets) == 0 {
		for _, link := range c.state.Children {
			targets = append(targets, link.Name)
		}
	}

	var results []SyncResult
	for _, name := range targets {
		link, ok := c.state.Children[name.String()]
		if !ok {
			return nil, newError(CodeMalformed, name.String(), fmt.Errorf("no such linked image"))
		}
		childState, err := imagestate.Load(link.Path, stateDir(link.Path))
		if err != nil {
			return nil, newError(CodeCmdFailed, name.String(), err)
		}
		divergences, err := Divergences(childState, c.state, manifests)
		if err != nil {
			return nil, err
		}
		results = append(results, SyncResult{
			Name:        name,
			Status:      Status(c.state, divergences),
			Divergences: divergences,
		})
	}
	return results, nil
}

// ChildOperation is the work PlanChildren runs against each attached
// child's loaded state, isolated from its siblings.
type ChildOperation func(ctx context.Context, name imagestate.LinkedImageName, childState *imagestate.State) error

// PlanChildren runs op against every attached child concurrently (the
// in-process replacement for the source's per-child process spawn -
// see DESIGN.md), bounded the same way pkg/transport bounds concurrent
// fetches. Per-child failures are collected rather than aborting
// siblings still in flight, then returned together as a single
// lix_bundle error via Bundle.
func (c *Controller) PlanChildren(ctx context.Context, maxConcurrent int, op ChildOperation) error {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	g, ctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, maxConcurrent)
	errs := make([]error, len(c.state.Children))

	idx := 0
	for name, link := range c.state.Children {
		i, name, link := idx, name, link
		idx++
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			childState, err := imagestate.Load(link.Path, stateDir(link.Path))
			if err != nil {
				errs[i] = newError(CodeCmdFailed, name, err)
				return nil
			}
			if err := op(ctx, link.Name, childState); err != nil {
				errs[i] = err
			}
			return nil
		})
	}
	_ = g.Wait()
	return Bundle(errs)
}

// introducesCycle reports whether attaching childPath under parentPath
// would create a cycle: true if childPath's own (transitive) child set
// already contains parentPath, or if childPath equals parentPath.
func introducesCycle(parentPath, childPath string) (bool, error) {
	if filepath.Clean(parentPath) == filepath.Clean(childPath) {
		return true, nil
	}
	visited := map[string]bool{filepath.Clean(childPath): true}
	queue := []string{childPath}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		state, err := imagestate.Load(cur, stateDir(cur))
		if err != nil {
			return false, err
		}
		for _, link := range state.Children {
			clean := filepath.Clean(link.Path)
			if clean == filepath.Clean(parentPath) {
				return true, nil
			}
			if !visited[clean] {
				visited[clean] = true
				queue = append(queue, link.Path)
			}
		}
	}
	return false, nil
}
