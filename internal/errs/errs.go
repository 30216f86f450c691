package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can pick a remediation without
// inspecting messages.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindMissingConfiguration
	KindInvalidPrompt
	KindTransport
	KindContentRejected
	KindEmptyResult
	KindFileWrite
)

var kindNames = map[Kind]string{
	KindUnknown:              "unknown",
	KindMissingConfiguration: "missing configuration",
	KindInvalidPrompt:        "invalid prompt",
	KindTransport:            "transport",
	KindContentRejected:      "content rejected",
	KindEmptyResult:          "empty result",
	KindFileWrite:            "file write",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ExitCode is the process status reported for a failure of this kind.
func (k Kind) ExitCode() int {
	if k == KindUnknown || k > KindFileWrite {
		return 1
	}
	return int(k) + 1
}

// Error is the single error type returned across package boundaries.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

var (
	ErrMissingConfiguration = &Error{Kind: KindMissingConfiguration}
	ErrInvalidPrompt        = &Error{Kind: KindInvalidPrompt}
	ErrTransport            = &Error{Kind: KindTransport}
	ErrContentRejected      = &Error{Kind: KindContentRejected}
	ErrEmptyResult          = &Error{Kind: KindEmptyResult}
	ErrFileWrite            = &Error{Kind: KindFileWrite}
)

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Msg == "" && e.Err == nil:
		return e.Kind.String()
	case e.Err == nil:
		return e.Msg
	case e.Msg == "":
		return e.Err.Error()
	default:
		return e.Msg + ": " + e.Err.Error()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports a match against a bare sentinel of the same kind, so
// errors.Is(err, ErrTransport) holds for any transport failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Msg != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
