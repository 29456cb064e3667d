// Package errors provides the standardized failure taxonomy for blueprint
// parsing. It includes parse-failure kinds, standard error variables, and
// helper functions for consistent error wrapping and classification across
// the system.
package errors

import (
	"errors"
	"fmt"

	"github.com/c360/blueprint/document"
)

// Kind classifies a parse failure for handling purposes.
type Kind int

const (
	// KindUnknown is the zero value for unclassified failures.
	KindUnknown Kind = iota
	// KindUnresolvedNamespace marks an element whose namespace has no
	// registered handler.
	KindUnresolvedNamespace
	// KindIncompatibleHandler marks a handler whose managed classes
	// resolve to different artifacts in the backing class space.
	KindIncompatibleHandler
	// KindDuplicateIdentifier marks a component id collision in the graph.
	KindDuplicateIdentifier
	// KindHandlerInvocation marks a handler that failed during
	// Parse or Decorate.
	KindHandlerInvocation
	// KindMalformedDeclaration marks structural misuse of the
	// definition grammar.
	KindMalformedDeclaration
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindUnresolvedNamespace:
		return "unresolved_namespace"
	case KindIncompatibleHandler:
		return "incompatible_handler"
	case KindDuplicateIdentifier:
		return "duplicate_identifier"
	case KindHandlerInvocation:
		return "handler_invocation"
	case KindMalformedDeclaration:
		return "malformed_declaration"
	default:
		return "unknown"
	}
}

// Standard error variables for common parse failures.
var (
	ErrUnresolvedNamespace  = errors.New("no handler registered for namespace")
	ErrIncompatibleHandler  = errors.New("handler incompatible with class space")
	ErrDuplicateIdentifier  = errors.New("duplicate component identifier")
	ErrHandlerInvocation    = errors.New("handler invocation failed")
	ErrMalformedDeclaration = errors.New("malformed declaration")

	// Registry and session errors outside the per-element taxonomy.
	ErrGraphFrozen   = errors.New("metadata graph is frozen")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ParseError is the structured error surfaced when a parse session is
// aborted. It identifies the offending element and its source location.
type ParseError struct {
	Kind      Kind
	Element   string // qualified element name, e.g. "{ns}name"
	Namespace string
	Location  document.Location
	Err       error
}

// Error implements the error interface.
func (pe *ParseError) Error() string {
	msg := fmt.Sprintf("parse failed (%s)", pe.Kind)
	if pe.Element != "" {
		msg += ": element " + pe.Element
	}
	if !pe.Location.IsZero() {
		msg += fmt.Sprintf(" at %d:%d", pe.Location.Line, pe.Location.Column)
	}
	if pe.Err != nil {
		msg += ": " + pe.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (pe *ParseError) Unwrap() error {
	return pe.Err
}

// NewParseError builds a ParseError for the given element. The kind's
// sentinel error is attached when cause is nil so errors.Is works against
// the standard variables.
func NewParseError(kind Kind, el *document.Element, cause error) *ParseError {
	pe := &ParseError{Kind: kind, Err: cause}
	if el != nil {
		pe.Element = el.QName()
		pe.Namespace = el.Namespace
		pe.Location = el.Location
	}
	if pe.Err == nil {
		pe.Err = sentinel(kind)
	}
	return pe
}

func sentinel(kind Kind) error {
	switch kind {
	case KindUnresolvedNamespace:
		return ErrUnresolvedNamespace
	case KindIncompatibleHandler:
		return ErrIncompatibleHandler
	case KindDuplicateIdentifier:
		return ErrDuplicateIdentifier
	case KindHandlerInvocation:
		return ErrHandlerInvocation
	case KindMalformedDeclaration:
		return ErrMalformedDeclaration
	default:
		return nil
	}
}

// KindOf returns the failure kind for an error, or KindUnknown when the
// error is not a ParseError and matches no sentinel.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	switch {
	case errors.Is(err, ErrUnresolvedNamespace):
		return KindUnresolvedNamespace
	case errors.Is(err, ErrIncompatibleHandler):
		return KindIncompatibleHandler
	case errors.Is(err, ErrDuplicateIdentifier):
		return KindDuplicateIdentifier
	case errors.Is(err, ErrHandlerInvocation):
		return KindHandlerInvocation
	case errors.Is(err, ErrMalformedDeclaration):
		return KindMalformedDeclaration
	default:
		return KindUnknown
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapInvalid wraps an error caused by invalid input or configuration.
func WrapInvalid(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return Wrap(fmt.Errorf("%w: %w", ErrInvalidConfig, err), component, method, action)
}
