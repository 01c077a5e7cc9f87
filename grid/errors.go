package grid

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidBounds     = errors.New("grid: bounds must have positive finite width and height")
	ErrInvalidDimensions = errors.New("grid: dimensions must be at least 1x1 and at most MaxCells cells")
	ErrInvalidID         = errors.New("grid: entity id must be positive")
	ErrDuplicateEntity   = errors.New("grid: entity already inserted")
	ErrUnknownEntity     = errors.New("grid: entity not inserted")
)

// DecodeError is returned when serialized grid data cannot be turned back into
// a consistent Grid
type DecodeError struct {
	Format string // "json" or "msgpack"
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	msg := "grid: decode " + e.Format
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

func decodeErrorf(format, reason string, args ...any) *DecodeError {
	return &DecodeError{Format: format, Reason: fmt.Sprintf(reason, args...)}
}
