package catalog

import (
	"errors"
	"fmt"
)

// Catalog error taxonomy. Handlers map these onto HTTP statuses; any store
// failure that is not one of them is wrapped in a QueryError.
var (
	ErrInvalidID       = errors.New("catalog: invalid identifier")
	ErrCourseNotFound  = errors.New("catalog: course not found")
	ErrChapterNotFound = errors.New("catalog: chapter not found")
	ErrOrphanChapter   = errors.New("catalog: chapter has no owning course")
)

// QueryError wraps an underlying store failure with the operation that hit it.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("catalog: %s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
