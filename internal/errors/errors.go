package errors

import (
	"errors"
	"fmt"
	"time"

	"github.com/standardbeagle/reflens/internal/types"
)

// Error types for the reference-resolution engine. Nothing in this taxonomy
// is fatal to a running query: scan, parse and resolve failures degrade a
// single file's results, never the invocation. Invariant violations are the
// one exception and mark a defect in a collaborator, not user input.
type ErrorType string

const (
	// Query pipeline errors
	ErrorTypeScan    ErrorType = "scan"
	ErrorTypeParse   ErrorType = "parse"
	ErrorTypeResolve ErrorType = "resolve"

	// File errors
	ErrorTypeFileNotFound ErrorType = "file_not_found"
	ErrorTypeFileTooLarge ErrorType = "file_too_large"
	ErrorTypePermission   ErrorType = "permission"

	// Configuration errors
	ErrorTypeConfig ErrorType = "config"

	// Invariant violations in external collaborators
	ErrorTypeInvariant ErrorType = "invariant"
)

// ErrNoSymbolAtCursor reports a query whose start position does not sit on
// an identifier token.
var ErrNoSymbolAtCursor = errors.New("no identifier at the requested position")

// ScanError represents a per-file failure during candidate scanning. The
// file is skipped and the query continues; Recoverable marks skips that a
// retry could fix (transient I/O) versus ones it could not (file deleted).
type ScanError struct {
	Type        ErrorType
	FileID      types.FileID
	FilePath    string
	Operation   string
	Underlying  error
	Timestamp   time.Time
	Recoverable bool
}

// NewScanError creates a new scan error with context
func NewScanError(op string, err error) *ScanError {
	return &ScanError{
		Type:       ErrorTypeScan,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// WithFile adds file information to the error
func (e *ScanError) WithFile(fileID types.FileID, path string) *ScanError {
	e.FileID = fileID
	e.FilePath = path
	return e
}

// WithRecoverable marks the error as recoverable
func (e *ScanError) WithRecoverable(recoverable bool) *ScanError {
	e.Recoverable = recoverable
	return e
}

// Error implements the error interface
func (e *ScanError) Error() string {
	if e.FilePath != "" {
		return fmt.Sprintf("%s %s failed for %s: %v", e.Type, e.Operation, e.FilePath, e.Underlying)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Type, e.Operation, e.Underlying)
}

// Unwrap returns the underlying error for errors.Is/As
func (e *ScanError) Unwrap() error {
	return e.Underlying
}

// IsRecoverable checks if the skipped file could succeed on retry
func (e *ScanError) IsRecoverable() bool {
	return e.Recoverable
}

// ParseError represents a parsing error in a candidate file. Candidates from
// that file cannot be verified; the file contributes zero usages.
type ParseError struct {
	Type       ErrorType
	FileID     types.FileID
	FilePath   string
	Line       int
	Column     int
	Underlying error
	Timestamp  time.Time
}

// NewParseError creates a new parse error
func NewParseError(fileID types.FileID, path string, line, column int, err error) *ParseError {
	return &ParseError{
		Type:       ErrorTypeParse,
		FileID:     fileID,
		FilePath:   path,
		Line:       line,
		Column:     column,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %s:%d:%d: %v",
		e.FilePath, e.Line, e.Column, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ParseError) Unwrap() error {
	return e.Underlying
}

// ResolveError represents a resolver failure for one candidate. The
// candidate is discarded; it never aborts the funnel.
type ResolveError struct {
	Type       ErrorType
	Pos        types.Position
	Name       string
	Underlying error
	Timestamp  time.Time
}

// NewResolveError creates a new resolve error
func NewResolveError(pos types.Position, name string, err error) *ResolveError {
	return &ResolveError{
		Type:       ErrorTypeResolve,
		Pos:        pos,
		Name:       name,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve failed for %q at %s: %v", e.Name, e.Pos, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ResolveError) Unwrap() error {
	return e.Underlying
}

// FileError represents a file-related error
type FileError struct {
	Type       ErrorType
	Path       string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewFileError creates a new file error
func NewFileError(op, path string, err error) *FileError {
	errorType := ErrorTypeFileNotFound
	if isPermissionError(err) {
		errorType = ErrorTypePermission
	}

	return &FileError{
		Type:       errorType,
		Path:       path,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// isPermissionError checks if the error is a permission error
func isPermissionError(err error) bool {
	errStr := err.Error()
	return errStr == "permission denied" || errStr == "access denied"
}

// Error implements the error interface
func (e *FileError) Error() string {
	return fmt.Sprintf("file %s failed for %s: %v", e.Operation, e.Path, e.Underlying)
}

// Unwrap returns the underlying error
func (e *FileError) Unwrap() error {
	return e.Underlying
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
	Timestamp  time.Time
}

// NewConfigError creates a new config error
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{
		Field:      field,
		Value:      value,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value %s): %v", e.Field, e.Value, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}

// InvariantError marks a collaborator returning impossible data (for
// example, a syntax node whose span lies outside the file it was parsed
// from). Unlike everything else in this package it indicates a defect and
// should propagate to the caller instead of being recorded as a diagnostic.
type InvariantError struct {
	Component  string
	Detail     string
	Underlying error
}

// NewInvariantError creates a new invariant violation error
func NewInvariantError(component, detail string, err error) *InvariantError {
	return &InvariantError{
		Component:  component,
		Detail:     detail,
		Underlying: err,
	}
}

// Error implements the error interface
func (e *InvariantError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("invariant violation in %s: %s: %v", e.Component, e.Detail, e.Underlying)
	}
	return fmt.Sprintf("invariant violation in %s: %s", e.Component, e.Detail)
}

// Unwrap returns the underlying error
func (e *InvariantError) Unwrap() error {
	return e.Underlying
}

// MultiError represents multiple errors
type MultiError struct {
	Errors []error
}

// NewMultiError creates a new multi-error
func NewMultiError(errs []error) *MultiError {
	// Filter out nil errors
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

// Error implements the error interface
func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
}

// Unwrap returns all errors
func (e *MultiError) Unwrap() []error {
	return e.Errors
}
