package core

import (
	"errors"
	"fmt"
)

var (
	ErrSyntax               = errors.New("syntax error")
	ErrIO                   = errors.New("io error")
	ErrDuplicateLogicalName = errors.New("duplicate logical name")
	ErrInvalidName          = errors.New("invalid asset name")
)

// AssetError ties a failure to the asset that caused it. Kind is one of
// the sentinel errors above so callers can branch with errors.Is.
type AssetError struct {
	Path   string
	Kind   error
	Line   int
	Column int
	Err    error
}

func (e *AssetError) Error() string {
	if e == nil {
		return ""
	}
	loc := e.Path
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d:%d", e.Path, e.Line, e.Column)
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", loc, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", loc, e.Kind, e.Err)
}

func (e *AssetError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func NewSyntaxError(path string, line, column int, err error) *AssetError {
	return &AssetError{Path: path, Kind: ErrSyntax, Line: line, Column: column, Err: err}
}

func NewIOError(path string, err error) *AssetError {
	return &AssetError{Path: path, Kind: ErrIO, Err: err}
}

func IsSyntaxError(err error) bool {
	return errors.Is(err, ErrSyntax)
}
