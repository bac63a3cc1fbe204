package linkedimage

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/solarisips/pkgclient/pkg/imagestate"
)

// KindAdapter abstracts the one place system and zone linked images
// differ: how the controller confirms a child path is a live, reachable
// image of that kind before trusting metadata discovered there. The
// system kind is a plain filesystem check; the zone kind crosses a
// process boundary into zoneadm/zonename, matching the design note that
// recursive planning keeps a process boundary for zones rather than
// spawning a whole second pkgclient.
type KindAdapter interface {
	Verify(ctx context.Context, path string) error
}

// AdapterFor resolves the adapter for a linked-image kind, or
// lin_malformed if kind isn't one of the two known values.
func AdapterFor(kind imagestate.LinkedImageKind) (KindAdapter, error) {
	switch kind {
	case imagestate.KindSystem:
		return systemAdapter{}, nil
	case imagestate.KindZone:
		return zoneAdapter{zonenameBin: "zonename", zoneadmBin: "zoneadm"}, nil
	default:
		return nil, newError(CodeMalformed, string(kind), fmt.Errorf("unknown linked-image kind"))
	}
}

// systemAdapter handles the "system" kind: an ordinary nested image
// reachable entirely in-process, so verification is just a directory
// check - no external tool exists to ask.
type systemAdapter struct{}

func (systemAdapter) Verify(_ context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return newError(CodeCmdFailed, path, err)
	}
	if !info.IsDir() {
		return newError(CodeCmdFailed, path, fmt.Errorf("%s is not a directory", path))
	}
	return nil
}

// zoneAdapter handles the "zone" kind, which requires asking the
// running system whether a zone actually exists at path. Verify runs
// zoneadm from the global zone's view; zonenameBin is recorded but not
// invoked. A missing zoneadm, a failure to run it, or a non-zero exit is
// always cmd_failed, never silently treated as "no zone".
type zoneAdapter struct {
	zonenameBin string
	zoneadmBin  string
}

func (z zoneAdapter) Verify(ctx context.Context, path string) error {
	if _, err := exec.LookPath(z.zoneadmBin); err != nil {
		return newError(CodeCmdFailed, path, fmt.Errorf("%s not found: %w", z.zoneadmBin, err))
	}
	cmd := exec.CommandContext(ctx, z.zoneadmBin, "-z", path, "list", "-p")
	if out, err := cmd.CombinedOutput(); err != nil {
		return newError(CodeCmdFailed, path, fmt.Errorf("%s list: %w: %s", z.zoneadmBin, err, out))
	}
	return nil
}
