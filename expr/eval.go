// Package expr evaluates the small expression language used in template
// directives and inline tokens.
package expr

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/grahms/docstamper/internal/members"
)

// Target is what identifiers and bare calls resolve against when no variable
// with that name is bound.
type Target interface {
	Lookup(name string) (any, bool)
	Call(name string, args []any) (any, error)
}

// Evaluator parses and evaluates expressions. Variables bound with Bind
// shadow target members; bindings nest per name.
type Evaluator struct {
	vars map[string][]any
}

func New() *Evaluator {
	return &Evaluator{vars: map[string][]any{}}
}

// Bind pushes value as the visible binding of name.
func (e *Evaluator) Bind(name string, value any) {
	e.vars[name] = append(e.vars[name], value)
}

// Unbind drops the innermost binding of name.
func (e *Evaluator) Unbind(name string) {
	stack := e.vars[name]
	switch len(stack) {
	case 0:
		return
	case 1:
		delete(e.vars, name)
	default:
		e.vars[name] = stack[:len(stack)-1]
	}
}

func (e *Evaluator) lookupVar(name string) (any, bool) {
	stack := e.vars[name]
	if len(stack) == 0 {
		return nil, false
	}
	return stack[len(stack)-1], true
}

// Evaluate parses expression and evaluates it against target. target may be
// nil, in which case only bound variables and literals resolve.
func (e *Evaluator) Evaluate(expression string, target Target) (any, error) {
	ast, err := exprParser.ParseString("", expression)
	if err != nil {
		return nil, &SyntaxError{Expression: expression, Err: err}
	}
	return e.expression(ast, target)
}

func (e *Evaluator) expression(x *expression, target Target) (any, error) {
	v, err := e.postfix(x.Head, target)
	if err != nil {
		return nil, err
	}
	for _, operand := range x.Tail {
		r, err := e.postfix(operand, target)
		if err != nil {
			return nil, err
		}
		v = add(v, r)
	}
	return v, nil
}

func (e *Evaluator) postfix(x *postfix, target Target) (any, error) {
	cur, err := e.primary(x.Primary, target)
	if err != nil {
		return nil, err
	}
	for _, s := range x.Suffixes {
		switch {
		case s.Member != nil:
			cur, err = e.member(cur, s.Member, target)
		case s.Index != nil:
			var key any
			if key, err = e.expression(s.Index, target); err != nil {
				return nil, err
			}
			cur, err = members.Index(cur, key)
		}
		if err != nil {
			return nil, err
		}
	}
	return cur, nil
}

func (e *Evaluator) member(cur any, m *member, target Target) (any, error) {
	if cur == nil {
		return nil, nil
	}
	if m.Call == nil {
		v, err := members.Get(cur, m.Name)
		if err != nil {
			return nil, &BindingError{Name: m.Name, Err: err}
		}
		return v, nil
	}
	args, err := e.args(m.Call, target)
	if err != nil {
		return nil, err
	}
	v, err := members.Call(cur, m.Name, args)
	if err != nil {
		return nil, &BindingError{Name: m.Name, Err: err}
	}
	return v, nil
}

func (e *Evaluator) primary(x *primary, target Target) (any, error) {
	switch {
	case x.String != nil:
		return unquote(*x.String), nil
	case x.Float != nil:
		return *x.Float, nil
	case x.Int != nil:
		return *x.Int, nil
	case x.True:
		return true, nil
	case x.False:
		return false, nil
	case x.Null:
		return nil, nil
	case x.Group != nil:
		return e.expression(x.Group, target)
	}

	id := x.Ident
	if id.Call == nil {
		if v, ok := e.lookupVar(id.Name); ok {
			return v, nil
		}
		if target != nil {
			if v, ok := target.Lookup(id.Name); ok {
				return v, nil
			}
		}
		return nil, &BindingError{Name: id.Name}
	}

	args, err := e.args(id.Call, target)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, &BindingError{Name: id.Name, Err: errors.New("no evaluation target")}
	}
	v, err := target.Call(id.Name, args)
	if err != nil {
		return nil, &BindingError{Name: id.Name, Err: err}
	}
	return v, nil
}

func (e *Evaluator) args(c *callArgs, target Target) ([]any, error) {
	out := make([]any, 0, len(c.Args))
	for _, a := range c.Args {
		v, err := e.expression(a, target)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func add(a, b any) any {
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if a != nil && b != nil && members.IsNumber(av.Kind()) && members.IsNumber(bv.Kind()) {
		if isFloat(av.Kind()) || isFloat(bv.Kind()) {
			return toFloat(av) + toFloat(bv)
		}
		return toInt(av) + toInt(bv)
	}
	return text(a) + text(b)
}

func isFloat(k reflect.Kind) bool { return k == reflect.Float32 || k == reflect.Float64 }

func toFloat(v reflect.Value) float64 {
	return v.Convert(reflect.TypeOf(float64(0))).Float()
}

func toInt(v reflect.Value) int64 {
	return v.Convert(reflect.TypeOf(int64(0))).Int()
}

func text(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
