package search

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/solarisips/pkgclient/pkg/fmri"
)

func sortFMRIs(fs []fmri.FMRI) {
	sort.Slice(fs, func(i, j int) bool { return fs[i].String() < fs[j].String() })
}

// fmriListHash is the canonical SHA §4.4 names for full_fmri_list.hash:
// sha256 over the newline-joined sorted FMRI strings. The spec leaves the
// algorithm unspecified; sha256 is what action.Action.Digest uses
// elsewhere in this module, so it's used here too - see DESIGN.md.
func fmriListHash(fs []fmri.FMRI) string {
	sum := sha256.Sum256([]byte(strings.Join(fmriStrings(fs), "\n")))
	return hex.EncodeToString(sum[:])
}

func fmriStrings(fs []fmri.FMRI) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.String()
	}
	return out
}
