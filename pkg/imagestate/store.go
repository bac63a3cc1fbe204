package imagestate

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/mitchellh/hashstructure"
	"github.com/pkg/errors"

	"github.com/solarisips/pkgclient/pkg/config"
)

// stateFile is the on-disk file name under <imageRoot>/var/pkg/.
const stateFile = "state.json"

// wireState is the JSON-serializable projection of State.
type wireState struct {
	ImageRoot  string
	Installed  map[string]InstalledEntry
	Publishers []config.Publisher
	Properties map[string]string
	AvoidList  map[string]struct{}
	Variants   map[string]string
	Facets     map[string]bool
	Children   map[string]ChildLink
	Parent     *ParentLink
}

// Load reads the persisted state from <dir>/state.json. A missing file
// yields a fresh empty State rooted at dir's image root, matching a
// freshly-created image with no prior operations.
func Load(imageRoot, dir string) (*State, error) {
	data, err := os.ReadFile(filepath.Join(dir, stateFile))
	if os.IsNotExist(err) {
		return New(imageRoot), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "imagestate: read state file")
	}
	var w wireState
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, errors.Wrap(err, "imagestate: parse state file")
	}
	s := New(imageRoot)
	s.Installed = w.Installed
	s.Publishers = w.Publishers
	s.Properties = w.Properties
	s.AvoidList = w.AvoidList
	s.Variants = w.Variants
	s.Facets = w.Facets
	s.Children = w.Children
	s.Parent = w.Parent
	return s, nil
}

// Save writes State to <dir>/state.json atomically (write to a sibling
// temp file, then rename), the same discipline pkg/catalog uses for
// catalog.attrs - readers must never observe a half-written image
// state.
func Save(s *State, dir string) error {
	w := wireState{
		ImageRoot:  s.ImageRoot,
		Installed:  s.Installed,
		Publishers: s.Publishers,
		Properties: s.Properties,
		AvoidList:  s.AvoidList,
		Variants:   s.Variants,
		Facets:     s.Facets,
		Children:   s.Children,
		Parent:     s.Parent,
	}
	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return errors.Wrap(err, "imagestate: marshal state")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "imagestate: create state dir")
	}
	tmp, err := os.CreateTemp(dir, "."+stateFile+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "imagestate: create temp state file")
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrap(err, "imagestate: write temp state file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "imagestate: close temp state file")
	}
	if err := os.Rename(tmpPath, filepath.Join(dir, stateFile)); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "imagestate: rename temp state file into place")
	}
	return nil
}

// Fingerprint computes a stable hash of the installed catalog, used by
// pkg/search to decide whether its index has gone stale relative to the
// image (the counterpart of §4.4's `full_fmri_list.hash`, but over the
// whole installed-state shape rather than just the FMRI list).
func Fingerprint(s *State) (uint64, error) {
	h, err := hashstructure.Hash(s.Installed, nil)
	if err != nil {
		return 0, errors.Wrap(err, "imagestate: compute fingerprint")
	}
	return h, nil
}
