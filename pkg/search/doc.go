// Package search implements the on-disk inverted index over installed
// package manifests described in spec.md §4.4: a full rebuild path, the
// fast-add/fast-remove incremental logs, boolean/field query parsing,
// and the degraded-mode fallback that scans manifests directly when the
// index can't be trusted.
package search
