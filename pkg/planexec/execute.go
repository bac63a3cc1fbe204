package planexec

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/solarisips/pkgclient/pkg/action"
	"github.com/solarisips/pkgclient/pkg/pkgerrors"
)

// ProgressSink lets a caller observe phase transitions and per-step
// progress without Executor depending on any concrete UI - the spec's
// progress trackers are explicitly out of scope (see SPEC_FULL.md), but a
// minimal observation seam still belongs here. There is no default
// implementation; callers that don't care pass nil.
type ProgressSink interface {
	PhaseStarted(phase Phase, total int)
	StepApplied(phase Phase, step Step)
	PhaseFinished(phase Phase)
}

// Executor applies a frozen Plan to one image's filesystem, phase by
// phase, salvaging user-modified content it would otherwise clobber and
// recording a rollback journal so an aborted run can be resumed.
type Executor struct {
	ImageRoot string
	FS        FS
	Payloads  PayloadSource
	Progress  ProgressSink
	Journal   *Journal
	log       logrus.FieldLogger
}

// NewExecutor constructs an Executor. fsys may be nil (defaults to
// OSFS()); log may be nil (defaults to the standard logrus logger).
func NewExecutor(imageRoot string, fsys FS, payloads PayloadSource, journal *Journal, progress ProgressSink, log logrus.FieldLogger) *Executor {
	if fsys == nil {
		fsys = OSFS()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Executor{ImageRoot: imageRoot, FS: fsys, Payloads: payloads, Progress: progress, Journal: journal, log: log}
}

// Execute applies plan's steps in order, starting from whatever step
// index the Journal records as already-applied (zero for a fresh plan),
// per §5's "can be aborted between actions, leaving a rollback journal
// that the next invocation uses to finish or reverse." Every step commits
// its journal progress before the next one starts, so a crash mid-phase
// loses at most the in-flight action.
func (e *Executor) Execute(ctx context.Context, plan *Plan) error {
	start := 0
	if e.Journal != nil {
		state, err := e.Journal.Load()
		if err != nil {
			return errors.Wrap(err, "planexec: load journal")
		}
		start = state.NextStep
	}

	var curPhase Phase
	for i := start; i < len(plan.Steps); i++ {
		step := plan.Steps[i]
		if step.Phase != curPhase {
			if curPhase != "" && e.Progress != nil {
				e.Progress.PhaseFinished(curPhase)
			}
			curPhase = step.Phase
			if e.Progress != nil {
				e.Progress.PhaseStarted(curPhase, countPhase(plan.Steps, curPhase))
			}
		}

		select {
		case <-ctx.Done():
			return pkgerrors.Wrap(pkgerrors.KindExecution, ctx.Err(), "planexec: cancelled")
		default:
		}

		if err := e.applyStep(ctx, step, i); err != nil {
			return pkgerrors.Wrap(pkgerrors.KindExecution, err, fmt.Sprintf("planexec: apply step %d (%s %s)", i, step.Action.Kind, step.Action.KeyValue()))
		}

		if e.Progress != nil {
			e.Progress.StepApplied(step.Phase, step)
		}
		if e.Journal != nil {
			if err := e.Journal.Save(JournalState{NextStep: i + 1}); err != nil {
				return errors.Wrap(err, "planexec: save journal")
			}
		}
	}
	if curPhase != "" && e.Progress != nil {
		e.Progress.PhaseFinished(curPhase)
	}
	if e.Journal != nil {
		if err := e.Journal.Clear(); err != nil {
			return errors.Wrap(err, "planexec: clear journal")
		}
	}
	return nil
}

func countPhase(steps []Step, phase Phase) int {
	n := 0
	for _, s := range steps {
		if s.Phase == phase {
			n++
		}
	}
	return n
}

func (e *Executor) applyStep(ctx context.Context, step Step, seq int) error {
	removing := step.Phase == PhasePreRemove || step.Phase == PhaseRemove || step.Phase == PhasePostRemove
	a := step.Action
	path := a.Attrs.Get("path")

	switch a.Kind {
	case action.Dir:
		if removing {
			return e.removeDir(path, seq)
		}
		return e.FS.MkdirAll(joinImage(e.ImageRoot, path), 0o755)

	case action.File, action.License:
		if removing {
			return e.removeFile(a, path, seq)
		}
		return e.installFile(ctx, a, path, seq)

	case action.Link:
		if removing {
			return removeIfExists(e.FS, joinImage(e.ImageRoot, path))
		}
		target := a.Attrs.Get("target")
		_ = removeIfExists(e.FS, joinImage(e.ImageRoot, path))
		return e.FS.Symlink(target, joinImage(e.ImageRoot, path))

	case action.Hardlink:
		if removing {
			return removeIfExists(e.FS, joinImage(e.ImageRoot, path))
		}
		target := a.Attrs.Get("target")
		_ = removeIfExists(e.FS, joinImage(e.ImageRoot, path))
		return e.FS.Link(joinImage(e.ImageRoot, target), joinImage(e.ImageRoot, path))

	default:
		// user, group, driver, legacy, signature, depend, set: no direct
		// filesystem mutation. Host user/group/driver provisioning and
		// legacy-package registration need privileged, platform-specific
		// integration this client doesn't own; they are tracked (and
		// observable via ProgressSink) but not applied here.
		e.log.WithFields(logrus.Fields{"kind": a.Kind, "key": a.KeyValue()}).Debug("planexec: metadata-only action, no filesystem mutation")
		return nil
	}
}

func (e *Executor) removeDir(path string, seq int) error {
	full := joinImage(e.ImageRoot, path)
	err := e.FS.Remove(full)
	if err == nil || os.IsNotExist(err) {
		return nil
	}
	// Non-empty (user-added files inside it): salvage rather than fail
	// the whole operation.
	return salvage(e.FS, e.ImageRoot, path, seq)
}

func (e *Executor) removeFile(a action.Action, path string, seq int) error {
	full := joinImage(e.ImageRoot, path)
	if contentModified(e.FS, e.ImageRoot, path, primaryHash(a), sha256Hex) {
		return salvage(e.FS, e.ImageRoot, path, seq)
	}
	return removeIfExists(e.FS, full)
}

func (e *Executor) installFile(ctx context.Context, a action.Action, path string, seq int) error {
	if contentModified(e.FS, e.ImageRoot, path, primaryHash(a), sha256Hex) {
		if err := salvage(e.FS, e.ImageRoot, path, seq); err != nil {
			return err
		}
	}

	var data []byte
	if e.Payloads != nil {
		hash := primaryHash(a)
		if hash == "" {
			hash = a.Hash
		}
		if hash != "" {
			fetched, err := e.Payloads.Payload(ctx, hash)
			if err != nil {
				return fmt.Errorf("planexec: fetch payload for %s: %w", path, err)
			}
			data = fetched
		}
	}

	full := joinImage(e.ImageRoot, path)
	if err := e.FS.MkdirAll(parentDir(full), 0o755); err != nil {
		return err
	}
	return e.FS.WriteFile(full, data, filePerm(a))
}

func primaryHash(a action.Action) string {
	if h, ok := a.PayloadHash["sha256"]; ok {
		return h
	}
	for _, h := range a.PayloadHash {
		return h
	}
	return a.Hash
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func removeIfExists(fsys FS, path string) error {
	if err := fsys.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func filePerm(a action.Action) os.FileMode {
	if mode := a.Attrs.Get("mode"); mode != "" {
		if v, err := parseOctal(mode); err == nil {
			return os.FileMode(v)
		}
	}
	return 0o644
}

func parseOctal(s string) (uint32, error) {
	var v uint32
	_, err := fmt.Sscanf(s, "%o", &v)
	return v, err
}

func parentDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
