package model

import "fmt"

// ErrorKind classifies an OptimizationError.
type ErrorKind string

const (
	ErrInvalidInput  ErrorKind = "invalid_input"
	ErrUnsatisfiable ErrorKind = "unsatisfiable"
	ErrInternal      ErrorKind = "internal"
)

// OptimizationError is the structured error returned by validation and optimization.
type OptimizationError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	PieceID string    `json:"pieceId,omitempty"`
	SheetID string    `json:"sheetId,omitempty"`
}

func (e *OptimizationError) Error() string {
	switch {
	case e.PieceID != "":
		return fmt.Sprintf("%s: %s (piece %s)", e.Kind, e.Message, e.PieceID)
	case e.SheetID != "":
		return fmt.Sprintf("%s: %s (sheet %s)", e.Kind, e.Message, e.SheetID)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches another *OptimizationError by kind, so errors.Is works against a bare kind value.
func (e *OptimizationError) Is(target error) bool {
	t, ok := target.(*OptimizationError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// NewError builds an OptimizationError with a formatted message.
func NewError(kind ErrorKind, format string, args ...any) *OptimizationError {
	return &OptimizationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func invalidInput(format string, args ...any) *OptimizationError {
	return NewError(ErrInvalidInput, format, args...)
}
