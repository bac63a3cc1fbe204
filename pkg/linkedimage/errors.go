package linkedimage

import (
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

// Code is the closed set of linked-image failure kinds §4.3 names.
type Code string

const (
	// CodeMalformed marks an unparseable "{kind}:{name}" linked-image name.
	CodeMalformed Code = "lin_malformed"
	// CodeCmdFailed marks a kind adapter's external discovery command
	// (zoneadm/zonename for the zone kind) failing or being unreachable.
	CodeCmdFailed Code = "cmd_failed"
	// CodePubError marks a mid-operation publisher-sync inconsistency;
	// the whole operation aborts before any mutation reaches disk.
	CodePubError Code = "linked_pub_error"
	// CodeBundle marks an aggregate of per-child errors from recursive
	// planning.
	CodeBundle Code = "lix_bundle"
)

// Error is the typed error every linked-image operation returns on
// failure, carrying the closed failure code alongside the cause.
type Error struct {
	Code Code
	Name string // linked-image name or path the error concerns, if any
	Err  error
}

func (e *Error) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("linkedimage: %s: %s: %v", e.Code, e.Name, e.Err)
	}
	return fmt.Sprintf("linkedimage: %s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code Code, name string, err error) *Error {
	return &Error{Code: code, Name: name, Err: err}
}

// Bundle aggregates per-child errors from recursive planning into a
// single lix_bundle error, following the teacher's use of
// utilerrors.NewAggregate for partial-success reporting. Returns nil if
// errs is empty (after filtering nils).
func Bundle(errs []error) error {
	agg := utilerrors.NewAggregate(errs)
	if agg == nil {
		return nil
	}
	return newError(CodeBundle, "", agg)
}
