package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Error is a failure signalled by an engine operation.
//
// Configuration errors are Fatal: the engine cannot be used until Init is
// called again with a usable Config. All other codes are recoverable and
// leave the engine state as documented on the operation that returned
// them.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Fatal marks configuration errors.
	Fatal bool

	// Field is the field address involved, for path errors.
	Field string

	// Invalid lists the invalid field addresses, for validation failures.
	Invalid []string
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// CodeMissingCollection indicates Init was called without a collection.
	CodeMissingCollection ErrorCode = "CONFIG_MISSING_COLLECTION"

	// CodeMissingSchema indicates neither Config nor the collection
	// provides a schema.
	CodeMissingSchema ErrorCode = "CONFIG_MISSING_SCHEMA"

	// CodeUninitialized indicates an operation that needs a data context
	// ran before Init (or after Reset).
	CodeUninitialized ErrorCode = "UNINITIALIZED"

	// CodeNotCreated indicates Save or Remove on a context without an id.
	CodeNotCreated ErrorCode = "NOT_CREATED"

	// CodeAlreadyCreated indicates Create on a context that already has an id.
	CodeAlreadyCreated ErrorCode = "ALREADY_CREATED"

	// CodeValidationFailed indicates Create or Save refused an invalid document.
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// CodeContainerMissing indicates an indexed write into a field that
	// does not hold an array of objects.
	CodeContainerMissing ErrorCode = "CONTAINER_MISSING"

	// CodeIndexOutOfRange indicates an indexed write past the end of the
	// container.
	CodeIndexOutOfRange ErrorCode = "INDEX_OUT_OF_RANGE"

	// CodeNotFound indicates Init was given an id the collection does not hold.
	CodeNotFound ErrorCode = "NOT_FOUND"
)

// ErrStopped is reported by operations queued after the persistence
// worker stopped.
var ErrStopped = errors.New("engine stopped")

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case len(e.Invalid) > 0:
		return fmt.Sprintf("%s: %s (invalid=%s)", e.Code, e.Message, strings.Join(e.Invalid, ","))
	case e.Field != "":
		return fmt.Sprintf("%s: %s (field=%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func hasCode(err error, codes ...ErrorCode) bool {
	var ee *Error
	if !errors.As(err, &ee) {
		return false
	}
	for _, c := range codes {
		if ee.Code == c {
			return true
		}
	}
	return false
}

// IsFatal returns true if err is a fatal configuration error.
// Uses errors.As to handle wrapped errors.
func IsFatal(err error) bool {
	var ee *Error
	return errors.As(err, &ee) && ee.Fatal
}

// IsConfigError returns true for missing collection or schema errors.
func IsConfigError(err error) bool {
	return hasCode(err, CodeMissingCollection, CodeMissingSchema)
}

// IsValidationError returns true if Create or Save refused an invalid document.
func IsValidationError(err error) bool {
	return hasCode(err, CodeValidationFailed)
}

// IsNotCreated returns true if the operation needed a persisted id.
func IsNotCreated(err error) bool {
	return hasCode(err, CodeNotCreated)
}

// IsAlreadyCreated returns true if Create ran on a persisted document.
func IsAlreadyCreated(err error) bool {
	return hasCode(err, CodeAlreadyCreated)
}

// IsPathError returns true for indexed writes whose target does not exist.
func IsPathError(err error) bool {
	return hasCode(err, CodeContainerMissing, CodeIndexOutOfRange)
}

// IsNotFound returns true if Init could not load the requested id.
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsUninitialized returns true if the engine had no data context.
func IsUninitialized(err error) bool {
	return hasCode(err, CodeUninitialized)
}

func newConfigError(code ErrorCode, msg string) *Error {
	return &Error{Code: code, Message: msg, Fatal: true}
}

func newValidationError(invalid []string) *Error {
	return &Error{
		Code:    CodeValidationFailed,
		Message: "document is invalid",
		Invalid: invalid,
	}
}

func errUninitialized() *Error {
	return &Error{Code: CodeUninitialized, Message: "no data context, call Init first"}
}

func errNotCreated() *Error {
	return &Error{Code: CodeNotCreated, Message: "document has not been created yet"}
}

func errAlreadyCreated(id string) *Error {
	return &Error{Code: CodeAlreadyCreated, Message: fmt.Sprintf("document %s already exists, use Save", id)}
}
