package expr

import "fmt"

// SyntaxError reports an expression the grammar rejects.
type SyntaxError struct {
	Expression string
	Err        error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error in '%s': %v", e.Expression, e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// BindingError reports a name that could not be resolved or a call that
// failed.
type BindingError struct {
	Name string
	Err  error
}

func (e *BindingError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("unknown identifier '%s'", e.Name)
	}
	return fmt.Sprintf("'%s': %v", e.Name, e.Err)
}

func (e *BindingError) Unwrap() error { return e.Err }
