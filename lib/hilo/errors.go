package hilo

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for invalid configuration or call arguments.
	ErrInvalidArgument = errors.New("hilo: invalid argument")
	// ErrConflict matches every *ConflictError.
	ErrConflict = errors.New("hilo: concurrency conflict")
	// ErrInvalidRange is returned when the server grants a range that could collide with issued IDs.
	ErrInvalidRange = errors.New("hilo: invalid range")
	// ErrTooManyConflicts is returned when a fetch keeps losing the token race. The next call retries.
	ErrTooManyConflicts = errors.New("hilo: too many concurrency conflicts")
)

// ConflictError reports that the counter document changed since the last grant.
// It carries the state the server observed.
type ConflictError struct {
	Max   int64
	Token string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("hilo: concurrency conflict (server max %d, token %q)", e.Max, e.Token)
}

// Is makes errors.Is(err, ErrConflict) work.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
