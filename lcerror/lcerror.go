// Package lcerror defines the error taxonomy shared by the abi, config
// and ruleset packages. Each error carries a stable Kind so a caller
// (or a future FFI shim) can classify a failure without parsing its
// message, the way original_source's per-stage error enums
// (ParseJsonError, ConfigError, BuildRulesetError, ...) let the Rust
// implementation distinguish failure classes by variant.
package lcerror

import "fmt"

// Kind is the stable discriminant of an Error. Values are grouped by
// which pipeline stage produced them: decoding the document (Syntax),
// shape-checking it (Schema), resolving an access-right keyword
// (Vocabulary), merging multiple documents (Composition), or driving
// the kernel (Kernel). IO covers failures reading a config file or
// directory from disk, before any parsing happens.
type Kind int

const (
	IO Kind = iota
	Syntax
	Schema
	Vocabulary
	Composition
	Kernel
)

func (k Kind) String() string {
	switch k {
	case IO:
		return "io"
	case Syntax:
		return "syntax"
	case Schema:
		return "schema"
	case Vocabulary:
		return "vocabulary"
	case Composition:
		return "composition"
	case Kernel:
		return "kernel"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by every package in this
// module. Path identifies the document or rule the error belongs to
// (a file path, a directory entry, or an internal path like
// "pathBeneath[2]") when known; it may be empty.
type Error struct {
	Kind Kind
	Path string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %s: %v", e.Kind, e.Path, e.Msg, e.Err)
		}
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Path, e.Msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with no wrapped cause.
func New(kind Kind, path, msg string) *Error {
	return &Error{Kind: kind, Path: path, Msg: msg}
}

// Wrap builds an Error around an existing error, preserving it for
// errors.Is/errors.As.
func Wrap(kind Kind, path, msg string, err error) *Error {
	return &Error{Kind: kind, Path: path, Msg: msg, Err: err}
}
