// Package planexec implements the plan executor spec.md §2 names: diffing
// the manifests of a solver's target FMRI set against what's currently
// installed, ordering the resulting action changes into
// preinstall/install/postinstall/preremove/remove/postremove phases, and
// applying them to the filesystem - salvaging user-modified content rather
// than clobbering it.
package planexec
