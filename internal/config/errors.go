package config

import (
	"strings"
)

// Error reports an unusable configuration. It is always fatal and is raised
// before any request is issued.
type Error struct {
	Problems []string
	Err      error
}

func (e *Error) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with the given problem descriptions
func NewError(err error, problems ...string) *Error {
	return &Error{Problems: problems, Err: err}
}
