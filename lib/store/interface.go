package store

import (
	"fmt"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// ICounterStore hosts the Hi-Lo counter documents of a single database.
// All methods return a *Error on failure.
type ICounterStore interface {
	// NextRange grants the next range for a collection tag and advances the counter.
	// If args.LastToken is set and no longer matches the document, a RetCConflict
	// error carrying the current document is returned and nothing is written.
	NextRange(args NextRangeArgs) (result RangeResult, err error)
	// ReturnRange gives back the unused tail of the most recent range.
	// The counter is only lowered if nobody advanced it since; applied reports whether it was.
	ReturnRange(args ReturnRangeArgs) (applied bool, err error)
	// GetDocument returns a counter document by its full ID (e.g. Raven/Hilo/users).
	GetDocument(id string) (doc Document, loaded bool, err error)
	// PutDocument overwrites the Max of a counter document (external writer).
	// A non-empty args.ExpectedToken makes the write conditional.
	PutDocument(args PutArgs) (doc Document, err error)
	// Close releases all resources held by the store.
	Close() error
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.

	// Current is the document as seen by the store when Code is RetCConflict.
	Current *Document
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("CounterStoreError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// NewConflictError creates a RetCConflict error for the given document.
func NewConflictError(current Document) *Error {
	return &Error{
		Code:    RetCConflict,
		Msg:     fmt.Sprintf("token mismatch for %s (current max %d)", current.ID, current.Max),
		Current: &current,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess          RetCode = iota // 0: Command executed successfully.
	RetCInternalError                   // 1: Command failed due to an internal error.
	RetCInvalidOperation                // 2: Invalid operation (bad arguments).
	RetCConflict                        // 3: Concurrency token did not match.
	RetCNotFound                        // 4: Document does not exist.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCInvalidOperation:
		return "InvalidOperation"
	case RetCConflict:
		return "Conflict"
	case RetCNotFound:
		return "NotFound"
	default:
		return "Unknown"
	}
}

// HasCode reports whether err is a *Error with the given code.
func HasCode(err error, code RetCode) bool {
	e, ok := err.(*Error)
	return ok && e.Code == code
}
