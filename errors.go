package docstamper

import (
	"errors"
	"fmt"
)

// ExpressionError reports a directive or inline expression the evaluator
// could not resolve.
type ExpressionError struct {
	Expression string // Expression text as written in the document
	Err        error  // Evaluator error
}

// Error implements the error interface.
func (e *ExpressionError) Error() string {
	return fmt.Sprintf("unresolved expression '%s': %v", e.Expression, e.Err)
}

func (e *ExpressionError) Unwrap() error { return e.Err }

// CompositionError reports a registration that cannot be composed into an
// evaluation target.
type CompositionError struct {
	Capability string // Capability being registered or built
	Member     string // Offending member, if any
	Message    string
}

// Error implements the error interface.
func (e *CompositionError) Error() string {
	if e.Member != "" {
		return fmt.Sprintf("capability %s: member %s: %s", e.Capability, e.Member, e.Message)
	}
	return fmt.Sprintf("capability %s: %s", e.Capability, e.Message)
}

// UnbalancedLoopError reports an endloop without a matching loop, or a loop
// that was never closed.
type UnbalancedLoopError struct {
	Message string
}

// Error implements the error interface.
func (e *UnbalancedLoopError) Error() string {
	return "unbalanced loop: " + e.Message
}

// StructuralError reports a mutation the document model refused.
type StructuralError struct {
	Op      string // Operation attempted, e.g. "delete annotation"
	Message string
}

// Error implements the error interface.
func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// NewExpressionError creates a new ExpressionError.
func NewExpressionError(expression string, err error) *ExpressionError {
	return &ExpressionError{Expression: expression, Err: err}
}

// NewCompositionError creates a new CompositionError.
func NewCompositionError(capability, member, message string) *CompositionError {
	return &CompositionError{Capability: capability, Member: member, Message: message}
}

// NewUnbalancedLoopError creates a new UnbalancedLoopError.
func NewUnbalancedLoopError(message string) *UnbalancedLoopError {
	return &UnbalancedLoopError{Message: message}
}

// NewStructuralError creates a new StructuralError.
func NewStructuralError(op, format string, args ...any) *StructuralError {
	return &StructuralError{Op: op, Message: fmt.Sprintf(format, args...)}
}

// fatal reports whether err signals a programming error in the registry, a
// processor or the document model rather than a bad user expression.
func fatal(err error) bool {
	var (
		ce *CompositionError
		ue *UnbalancedLoopError
		se *StructuralError
	)
	return errors.As(err, &ce) || errors.As(err, &ue) || errors.As(err, &se)
}
