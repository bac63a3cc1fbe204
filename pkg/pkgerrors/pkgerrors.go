// Package pkgerrors implements the surface error taxonomy of spec.md §7
// and the exit-code mapping of §6, generalizing the source's
// exception-as-control-flow idiom (SlowSearchUsed,
// WrapSuccessfulIndexingException) into result types carrying a warning
// side-channel, per the Design Notes' prescribed re-architecture.
package pkgerrors

import "fmt"

// ExitCode enumerates the exact exit codes spec.md §6 requires.
type ExitCode int

const (
	OK                ExitCode = 0
	GenericFailure     ExitCode = 1
	UsageError         ExitCode = 2
	PartialSuccess     ExitCode = 3
	NothingToDo        ExitCode = 4
	CurrentlyLocked    ExitCode = 5
	ActuatorFailure    ExitCode = 6
	OperationDiverged  ExitCode = 7
)

// Kind names one of the surface error kinds spec.md §7 enumerates. Each
// subsystem reports its own Kind; ExitCodeFor maps it to the exact exit
// code the outer driver must return.
type Kind string

const (
	KindInput         Kind = "InputError"
	KindTransport     Kind = "TransportError"
	KindCatalog       Kind = "CatalogError"
	KindSolver        Kind = "SolverError"
	KindLinkedImage   Kind = "LinkedImageError"
	KindIndex         Kind = "IndexError"
	KindExecution     Kind = "ExecutionError"
	KindPartialFailure Kind = "PartialFailure"
)

// Error wraps an underlying cause with the surface Kind that determines
// exit-code mapping and retry policy.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an Error of the given Kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an Error of the given Kind wrapping cause.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// ExitCodeFor maps a surface Kind (or nil, for success) to the exit code
// spec.md §6 requires. succeededSome/failedSome let callers express the
// §7 "partial success preserved through layers" rule for TransportError:
// some publishers succeeded and some failed -> PartialSuccess (3), all
// failed -> GenericFailure (1).
func ExitCodeFor(kind Kind, succeededSome, failedSome bool) ExitCode {
	switch kind {
	case "":
		return OK
	case KindTransport, KindPartialFailure:
		if succeededSome && failedSome {
			return PartialSuccess
		}
		return GenericFailure
	case KindInput:
		return UsageError
	case KindCatalog, KindSolver, KindExecution:
		return GenericFailure
	case KindLinkedImage:
		return ActuatorFailure
	case KindIndex:
		return GenericFailure
	default:
		return GenericFailure
	}
}

// Diagnostic is a non-fatal warning accompanying an otherwise-successful
// Outcome - the generalized form of SlowSearchUsed /
// WrapSuccessfulIndexingException (Design Notes: "result types with
// warning side-channels").
type Diagnostic struct {
	Code    string
	Message string
}

// Outcome wraps a successful result value together with any non-fatal
// Diagnostics accumulated while producing it.
type Outcome[T any] struct {
	Value       T
	Diagnostics []Diagnostic
}

// WithDiagnostic appends a Diagnostic and returns the receiver for
// chaining.
func (o Outcome[T]) WithDiagnostic(code, message string) Outcome[T] {
	o.Diagnostics = append(o.Diagnostics, Diagnostic{Code: code, Message: message})
	return o
}
