package docstamper

import (
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session is the state of one pass over one document. The engine creates a
// session per Run and hands it to every processor; nothing in it survives
// the pass.
type Session struct {
	ID string

	engine    *Engine
	doc       Document
	root      any
	resolver  annotationResolver
	logger    *zap.Logger
	processed map[string]int // annotation id -> evaluation sequence
	sequence  int
	directive int // sequence of the directive under evaluation, 0 if none
	bound     []Binding
	bindings  int
	suspended int

	committing bool
	staged     bool // a directive ran during the current commit round

	paragraph ParagraphCoordinates
	run       *RunCoordinates
}

// Binding is a variable made visible to evaluations by Session.Bind.
type Binding struct {
	Name  string
	Value any

	id int
}

func newSession(e *Engine, doc Document, root any) *Session {
	id := uuid.NewString()
	return &Session{
		ID:        id,
		engine:    e,
		doc:       doc,
		root:      root,
		resolver:  annotationResolver{doc: doc},
		logger:    e.logger.With(zap.String("pass", id)),
		processed: make(map[string]int),
	}
}

func (s *Session) Document() Document { return s.doc }

func (s *Session) Root() any { return s.root }

func (s *Session) Logger() *zap.Logger { return s.logger }

// Bind makes value visible to subsequent evaluations under name until the
// returned binding is passed to Unbind.
func (s *Session) Bind(name string, value any) Binding {
	s.bindings++
	b := Binding{Name: name, Value: value, id: s.bindings}
	s.engine.evaluator.Bind(name, value)
	s.bound = append(s.bound, b)
	return b
}

// Unbind removes exactly b, even when later bindings of the same name
// shadow it.
func (s *Session) Unbind(b Binding) {
	i := slices.IndexFunc(s.bound, func(x Binding) bool { return x.id == b.id })
	if i < 0 {
		return
	}
	var shadowing []Binding
	for _, x := range s.bound[i+1:] {
		if x.Name == b.Name {
			shadowing = append(shadowing, x)
		}
	}
	for range shadowing {
		s.engine.evaluator.Unbind(b.Name)
	}
	s.engine.evaluator.Unbind(b.Name)
	for _, x := range shadowing {
		s.engine.evaluator.Bind(x.Name, x.Value)
	}
	s.bound = slices.Delete(s.bound, i, i+1)
}

// Bindings returns the bindings currently held, outermost first.
func (s *Session) Bindings() []Binding {
	return slices.Clone(s.bound)
}

// Suspend stops inline expressions from being rendered until the matching
// Resume. Directives are still evaluated.
func (s *Session) Suspend() { s.suspended++ }

func (s *Session) Resume() {
	if s.suspended > 0 {
		s.suspended--
	}
}

// Render runs the evaluation pass over blocks, typically copies inserted
// during commit, with vars bound in order. Processors are notified of every
// block and directives reach their capabilities as in the main pass.
func (s *Session) Render(blocks []Coordinates, vars []Binding) error {
	for _, v := range vars {
		b := s.Bind(v.Name, v.Value)
		defer s.Unbind(b)
	}
	return s.doc.WalkRange(blocks, passWalker{s: s})
}

// release drops every binding still held when the pass ends.
func (s *Session) release() {
	for i := len(s.bound) - 1; i >= 0; i-- {
		s.engine.evaluator.Unbind(s.bound[i].Name)
	}
	s.bound = nil
}

// markProcessed records the first evaluation of an annotation and reports
// whether this is it.
func (s *Session) markProcessed(id string) bool {
	if _, ok := s.processed[id]; ok {
		return false
	}
	s.sequence++
	s.processed[id] = s.sequence
	return true
}

// evaluatedAt returns the evaluation sequence of an annotation.
func (s *Session) evaluatedAt(id string) (int, bool) {
	seq, ok := s.processed[id]
	return seq, ok
}

// position returns the sequence of the directive under evaluation or, for
// inline calls, of the last directive evaluated.
func (s *Session) position() int {
	if s.directive != 0 {
		return s.directive
	}
	return s.sequence
}

// passWalker drives the evaluation pass.
type passWalker struct {
	s *Session
}

// VisitParagraph evaluates the paragraph directive, then the directives of
// its runs, then its inline expressions.
func (w passWalker) VisitParagraph(p ParagraphCoordinates) error {
	s := w.s
	s.paragraph, s.run = p, nil
	s.engine.reg.each(func(proc Processor) { proc.OnParagraph(p) })

	if a, ok := s.resolver.governing(p); ok && s.markProcessed(a.ID) {
		if err := s.evaluateDirective(a); err != nil {
			return err
		}
	}
	for _, r := range s.doc.Runs(p) {
		if err := w.runDirective(r); err != nil {
			return err
		}
	}
	s.paragraph, s.run = p, nil
	if s.suspended > 0 {
		return nil
	}
	return s.evaluateInline(p)
}

// VisitRun finds the directives of its run already evaluated with the
// paragraph; the processed set keeps it from evaluating them again.
func (w passWalker) VisitRun(r RunCoordinates) error {
	return w.runDirective(r)
}

func (w passWalker) runDirective(r RunCoordinates) error {
	s := w.s
	a, ok := s.resolver.governing(r)
	if !ok || !s.markProcessed(a.ID) {
		return nil
	}
	s.paragraph, s.run = r.Paragraph, &r
	defer func() { s.run = nil }()
	return s.evaluateDirective(a)
}

func (w passWalker) VisitTable(t TableCoordinates) error {
	w.s.engine.reg.each(func(proc Processor) { proc.OnTable(t) })
	return nil
}
