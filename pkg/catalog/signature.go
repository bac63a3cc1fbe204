package catalog

import (
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strings"
)

// Part is the in-memory form of one catalog part file: an ordered set of
// action/FMRI lines as they appear on disk.
type Part struct {
	Name  string
	Lines []string
}

// Signature computes sha1(concat(sorted(lines))) per spec.md §4.2's
// invariant: "After a successful refresh, sha1(concat(sorted(part
// lines))) equals parts[part].signature-sha1." Sorting makes the
// signature independent of the order entries were appended in.
func (p Part) Signature() string {
	sorted := append([]string(nil), p.Lines...)
	sort.Strings(sorted)
	h := sha1.New()
	h.Write([]byte(strings.Join(sorted, "")))
	return hex.EncodeToString(h.Sum(nil))
}

// ParsePart splits raw part-file bytes into lines, dropping blank lines
// so signature computation isn't sensitive to trailing newlines.
func ParsePart(name string, raw []byte) Part {
	var lines []string
	for _, line := range strings.Split(string(raw), "\n") {
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return Part{Name: name, Lines: lines}
}

// Render serializes a Part back to its on-disk form, one line per entry
// in the Part's current (insertion) order.
func (p Part) Render() []byte {
	return []byte(strings.Join(p.Lines, "\n") + "\n")
}
