// Package catalog implements the versioned, incrementally-updatable
// package catalog of spec.md §4.2: catalog.attrs plus base/dependency/
// summary parts and update logs, with a refresh protocol that performs a
// low-cost incremental sync when possible and forces a full refresh on
// detected rollback or part/attribute mismatch.
package catalog

import (
	"encoding/json"
	"time"
)

const (
	BasePart       = "catalog.base.C"
	DependencyPart = "catalog.dependency.C"
	SummaryPart    = "catalog.summary.C"
	AttrsFile      = "catalog.attrs"
)

// PartMeta records one part or update log's signature and modification
// time, as carried in catalog.attrs.
type PartMeta struct {
	SignatureSHA1 string    `json:"signature-sha1"`
	LastModified  time.Time `json:"last-modified"`
}

// Attrs is catalog.attrs: the authoritative header of a publisher's
// catalog. Every field is REQUIRED per spec.md §4.2.
type Attrs struct {
	Version      int                 `json:"version"`
	Created      time.Time           `json:"created"`
	LastModified time.Time           `json:"last-modified"`
	PackageCount int                 `json:"package-count"`
	Parts        map[string]PartMeta `json:"parts"`
	// Updates is an ordered, append-only list of update log names;
	// spec.md §3 requires the listed order be preserved, so it is kept
	// as a slice alongside the filename->meta map for O(1) lookup.
	UpdateOrder []string            `json:"updates-order"`
	Updates     map[string]PartMeta `json:"updates"`
}

// MarshalAttrs renders Attrs as the catalog.attrs JSON document.
func MarshalAttrs(a Attrs) ([]byte, error) {
	return json.MarshalIndent(a, "", "  ")
}

// UnmarshalAttrs parses a catalog.attrs JSON document.
func UnmarshalAttrs(data []byte) (Attrs, error) {
	var a Attrs
	if err := json.Unmarshal(data, &a); err != nil {
		return Attrs{}, err
	}
	return a, nil
}

// Empty reports whether a is the zero-value attrs used to represent "no
// catalog at all locally" (§4.2 step 3).
func (a Attrs) Empty() bool {
	return a.Version == 0 && a.LastModified.IsZero() && len(a.Parts) == 0
}
