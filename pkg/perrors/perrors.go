// Package perrors defines the error kinds of spec.md §7: Validation,
// Protocol, Transient, Invariant, and Transport. Room Controller and Hand
// Engine code returns these so every error carries a Kind and a Code. The
// transport layer does not branch on Kind: cmd/pokerd puts the error's text
// in the originating connection's Reply.
package perrors

import "fmt"

// Kind classifies an error for propagation purposes (spec.md §7).
type Kind string

const (
	Validation Kind = "validation"
	Protocol   Kind = "protocol"
	Transient  Kind = "transient"
	Invariant  Kind = "invariant"
	Transport  Kind = "transport"
)

// Error wraps an underlying cause with a Kind and a stable machine-readable
// Code. Clients see it as the Reply's error string, "kind: code: cause".
type Error struct {
	Kind Kind
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Code)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, code string, err error) *Error {
	return &Error{Kind: kind, Code: code, Err: err}
}

func Validationf(code, format string, a ...any) *Error {
	return New(Validation, code, fmt.Errorf(format, a...))
}

func Protocolf(code, format string, a ...any) *Error {
	return New(Protocol, code, fmt.Errorf(format, a...))
}

func Transientf(code, format string, a ...any) *Error {
	return New(Transient, code, fmt.Errorf(format, a...))
}

func Invariantf(code, format string, a ...any) *Error {
	return New(Invariant, code, fmt.Errorf(format, a...))
}
