package trx

import (
	"errors"
	"fmt"
)

// ContentError reports input the reporter cannot render into a valid document,
// such as an unterminated [tag] in a test name. A content error aborts the
// current emission and is not retried.
type ContentError struct {
	Msg string
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("content error: %s", e.Msg)
}

// NewContentError creates a new ContentError
func NewContentError(format string, args ...any) *ContentError {
	return &ContentError{Msg: fmt.Sprintf(format, args...)}
}

// IsContentError checks if the error is or wraps a ContentError
func IsContentError(err error) bool {
	var contentErr *ContentError
	return err != nil && errors.As(err, &contentErr)
}
