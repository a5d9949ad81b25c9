package docmerge

import (
	"errors"
	"fmt"
)

// Sentinel errors for batch-level failure conditions. Row-level failures
// are never returned as errors; they are recorded on the Result.
var (
	ErrIncompleteMapping = errors.New("docmerge: mapping does not cover every placeholder")
	ErrUnknownFormat     = errors.New("docmerge: unknown output format")
	ErrNoFiles           = errors.New("docmerge: generation produced no files")
)

// BatchError wraps an error with the operation and, when applicable, the
// 1-based data row it occurred on.
type BatchError struct {
	Op  string // operation name, e.g. "Run", "Package"
	Row int    // 1-based row number; 0 when not row-scoped
	Err error  // underlying error
}

func (e *BatchError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("docmerge.%s: row %d: %v", e.Op, e.Row, e.Err)
	}
	return fmt.Sprintf("docmerge.%s: %v", e.Op, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// newBatchError creates a BatchError wrapping err with operation context.
func newBatchError(op string, row int, err error) *BatchError {
	return &BatchError{Op: op, Row: row, Err: err}
}
