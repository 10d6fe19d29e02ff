package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Wrap one of these as the Cause of an ExportError so callers can
// classify failures with errors.Is.
var (
	ErrConfig        = errors.New("configuration error")
	ErrNotFound      = errors.New("work item not found")
	ErrWrongType     = errors.New("unexpected work item type")
	ErrParse         = errors.New("malformed steps document")
	ErrTransport     = errors.New("transport error")
	ErrAuth          = errors.New("authentication failed")
	ErrCycleDetected = errors.New("shared steps cycle detected")
)

// ExportError is the base error type with context.
type ExportError struct {
	Phase      string // "config", "source", "fetch", "parse", "resolve", "write"
	File       string
	LineNumber int
	WorkItemID int
	Message    string
	Suggestion string
	Cause      error
}

func (e *ExportError) Error() string {
	s := fmt.Sprintf("[%s]", e.Phase)
	if e.File != "" {
		s += fmt.Sprintf(" %s", e.File)
		if e.LineNumber > 0 {
			s += fmt.Sprintf(":%d", e.LineNumber)
		}
	}
	if e.WorkItemID > 0 {
		s += fmt.Sprintf(" work item %d", e.WorkItemID)
	}
	s += fmt.Sprintf(": %s", e.Message)
	if e.Cause != nil {
		s += fmt.Sprintf(": %v", e.Cause)
	}
	if e.Suggestion != "" {
		s += fmt.Sprintf(" (hint: %s)", e.Suggestion)
	}
	return s
}

func (e *ExportError) Unwrap() error {
	return e.Cause
}

// NewError creates a new ExportError tied to a file location.
func NewError(phase, file string, line int, message string, cause error) *ExportError {
	return &ExportError{
		Phase:      phase,
		File:       file,
		LineNumber: line,
		Message:    message,
		Cause:      cause,
	}
}

// NewErrorWithSuggestion creates an ExportError carrying a hint for the user.
func NewErrorWithSuggestion(phase, file string, line int, message, suggestion string, cause error) *ExportError {
	e := NewError(phase, file, line, message, cause)
	e.Suggestion = suggestion
	return e
}

// NewItemError creates an ExportError about a single work item.
func NewItemError(phase string, id int, message string, cause error) *ExportError {
	return &ExportError{
		Phase:      phase,
		WorkItemID: id,
		Message:    message,
		Cause:      cause,
	}
}
