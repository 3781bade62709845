// Package vmerrors centralizes the error kinds the interpreter raises, so
// callers can distinguish a malformed class file from a failed class lookup
// from a genuine JVM runtime error using errors.Is/errors.As rather than
// string matching.
package vmerrors

import "fmt"

// ParseErr is returned when a .class file (or an entry within an archive)
// fails to decode.
var ParseErr = &kindError{kind: "parse"}

// IoErr is returned when reading a class from a directory or archive source
// fails at the filesystem/archive layer.
var IoErr = &kindError{kind: "io"}

// LinkageErr is returned when class loading succeeds but resolution fails:
// an unresolvable superclass, an unimplemented abstract method, a missing
// field or method reference.
var LinkageErr = &kindError{kind: "linkage"}

// RuntimeErr marks a host-side runtime failure that no Java handler can
// catch (stack overflow, an unknown opcode, a missing method). An uncaught
// Java exception, such as ArithmeticException from division by zero, is
// returned as the vm package's *JavaException instead.
var RuntimeErr = &kindError{kind: "runtime"}

// kindError is a sentinel comparable with errors.Is that also carries
// wrapped context when returned from New.
type kindError struct {
	kind string
	msg  string
	err  error
}

func (e *kindError) Error() string {
	if e.msg == "" {
		return e.kind + " error"
	}
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

func (e *kindError) Unwrap() error { return e.err }

// Is makes every *kindError with the same kind compare equal under
// errors.Is, regardless of message/wrapped error, so callers can do
// errors.Is(err, vmerrors.ParseErr).
func (e *kindError) Is(target error) bool {
	other, ok := target.(*kindError)
	if !ok {
		return false
	}
	return other.kind == e.kind
}

func newKind(kind string, format string, args ...any) *kindError {
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func wrapKind(kind string, err error, format string, args ...any) *kindError {
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...), err: err}
}

// NewParseError builds a parse error with a formatted message.
func NewParseError(format string, args ...any) error { return newKind("parse", format, args...) }

// WrapParseError wraps an underlying error as a parse error.
func WrapParseError(err error, format string, args ...any) error {
	return wrapKind("parse", err, format, args...)
}

// NewIoError builds an I/O error with a formatted message.
func NewIoError(format string, args ...any) error { return newKind("io", format, args...) }

// WrapIoError wraps an underlying error as an I/O error.
func WrapIoError(err error, format string, args ...any) error {
	return wrapKind("io", err, format, args...)
}

// NewLinkageError builds a linkage error with a formatted message.
func NewLinkageError(format string, args ...any) error { return newKind("linkage", format, args...) }

// WrapLinkageError wraps an underlying error as a linkage error.
func WrapLinkageError(err error, format string, args ...any) error {
	return wrapKind("linkage", err, format, args...)
}

// NewRuntimeError builds a runtime error with a formatted message.
func NewRuntimeError(format string, args ...any) error { return newKind("runtime", format, args...) }

// WrapRuntimeError wraps an underlying error as a runtime error.
func WrapRuntimeError(err error, format string, args ...any) error {
	return wrapKind("runtime", err, format, args...)
}
