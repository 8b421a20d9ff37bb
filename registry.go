package docstamper

// Registry holds the processors of an engine in registration order.
type Registry struct {
	regs []Registration
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds p as the owner of capability c. Registering a capability
// name or a member that is already owned is rejected with a
// CompositionError, so every member has exactly one owner.
func (r *Registry) Register(c Capability, p Processor) error {
	next := append(append([]Registration(nil), r.regs...), Registration{Capability: c, Processor: p})
	if _, err := BuildTarget(nil, next...); err != nil {
		return err
	}
	r.regs = next
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(c Capability, p Processor) {
	if err := r.Register(c, p); err != nil {
		panic(err)
	}
}

// Registrations returns the registrations in registration order.
func (r *Registry) Registrations() []Registration {
	return append([]Registration(nil), r.regs...)
}

func (r *Registry) each(fn func(p Processor)) {
	for _, reg := range r.regs {
		fn(reg.Processor)
	}
}
