package docstamper

import (
	"fmt"
	"reflect"

	"github.com/grahms/docstamper/internal/members"
)

// Capability names the operations a processor contributes to the evaluation
// target. Members are expression names; each maps onto the processor method
// with the same name and an upper-cased first letter.
type Capability struct {
	Name    string
	Members []string
}

// Registration pairs a capability with the processor that owns it.
type Registration struct {
	Capability Capability
	Processor  Processor
}

// EvaluationTarget is the composite object one expression is evaluated
// against. Members declared by a registered capability dispatch to the owning
// processor; every other name resolves against the root data object.
type EvaluationTarget struct {
	root     any
	dispatch map[string]reflect.Value
	owners   map[string]string
}

// BuildTarget composes an evaluation target from root and regs. It fails
// with a CompositionError when two registrations claim the same capability
// or member, or a processor lacks a declared member.
func BuildTarget(root any, regs ...Registration) (*EvaluationTarget, error) {
	t := &EvaluationTarget{
		root:     root,
		dispatch: make(map[string]reflect.Value),
		owners:   make(map[string]string),
	}
	capabilities := make(map[string]bool, len(regs))
	for _, r := range regs {
		name := r.Capability.Name
		if name == "" {
			return nil, NewCompositionError(name, "", "capability has no name")
		}
		if capabilities[name] {
			return nil, NewCompositionError(name, "", "capability is already registered")
		}
		capabilities[name] = true
		if r.Processor == nil {
			return nil, NewCompositionError(name, "", "processor is nil")
		}
		for _, m := range r.Capability.Members {
			if owner, ok := t.owners[m]; ok {
				return nil, NewCompositionError(name, m, fmt.Sprintf("already provided by capability %s", owner))
			}
			fn, ok := members.Method(r.Processor, m)
			if !ok {
				return nil, NewCompositionError(name, m, fmt.Sprintf("processor %T has no method %s", r.Processor, members.Exported(m)))
			}
			t.dispatch[m] = fn
			t.owners[m] = name
		}
	}
	return t, nil
}

// Lookup resolves a bare identifier.
func (t *EvaluationTarget) Lookup(name string) (any, bool) {
	if fn, ok := t.dispatch[name]; ok {
		return fn.Interface(), true
	}
	if t.root == nil {
		return nil, false
	}
	v, err := members.Get(t.root, name)
	if err != nil {
		return nil, false
	}
	return v, true
}

// Call invokes a bare call expression.
func (t *EvaluationTarget) Call(name string, args []any) (any, error) {
	if fn, ok := t.dispatch[name]; ok {
		return members.Invoke(fn, args)
	}
	return members.Call(t.root, name, args)
}

// Owner returns the capability that provides member, if any.
func (t *EvaluationTarget) Owner(member string) (string, bool) {
	c, ok := t.owners[member]
	return c, ok
}
