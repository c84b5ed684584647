package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the pipeline error taxonomy. Per-row and per-file
// problems recover locally; only store writes and configuration are fatal.
var (
	// ErrInvalidRecord marks a malformed row (skipped with a warning).
	ErrInvalidRecord = errors.New("invalid record")
	// ErrParse marks an unreadable input file (file skipped, run continues).
	ErrParse = errors.New("parse error")
	// ErrConfig marks invalid configuration (pipeline refuses to start).
	ErrConfig = errors.New("config error")
	// ErrStore marks a store failure. Writes are fatal, reads degrade.
	ErrStore = errors.New("store error")
)

// ParseError carries file and line context for an unrecoverable input.
type ParseError struct {
	File   string
	Line   int
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.File, e.Line, e.Reason)
	}
	return fmt.Sprintf("parse error: %s: %s", e.File, e.Reason)
}

// Unwrap makes ParseError match errors.Is(err, ErrParse).
func (e *ParseError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrParse
}

// NewParseError builds a ParseError wrapping ErrParse.
func NewParseError(file string, line int, reason string) *ParseError {
	return &ParseError{File: file, Line: line, Reason: reason, Err: ErrParse}
}
