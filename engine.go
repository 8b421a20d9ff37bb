package docstamper

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/grahms/docstamper/expr"
)

// Evaluator is the expression language the engine evaluates directives and
// inline expressions with. *expr.Evaluator is the default.
type Evaluator interface {
	Evaluate(expression string, target expr.Target) (any, error)
	Bind(name string, value any)
	Unbind(name string)
}

func NewEngine(reg *Registry, opts ...func(*Engine)) *Engine {
	e := &Engine{reg: reg, policy: FailFast, logger: zap.NewNop()}
	for _, o := range opts {
		o(e)
	}
	if e.evaluator == nil {
		e.evaluator = expr.New()
	}
	return e
}

func WithExpressionPolicy(p ExpressionPolicy) func(*Engine) {
	return func(e *Engine) { e.policy = p }
}

func WithEvaluator(ev Evaluator) func(*Engine) {
	return func(e *Engine) { e.evaluator = ev }
}

func WithLogger(l *zap.Logger) func(*Engine) {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// SetFailOnInvalidExpression selects fail-fast (true, the default) or
// lenient handling of unresolved expressions.
func (e *Engine) SetFailOnInvalidExpression(fail bool) {
	if fail {
		e.policy = FailFast
	} else {
		e.policy = Lenient
	}
}

func (e *Engine) FailOnInvalidExpression() bool { return e.policy == FailFast }

// Run walks doc once, evaluating every annotation directive and inline
// expression against root and the registered processors, then lets each
// processor commit its staged changes in registration order.
//
// Processors are reset before the pass starts, so one engine can run
// passes over any number of documents, one at a time.
func (e *Engine) Run(doc Document, root any) error {
	s := newSession(e, doc, root)
	defer s.release()

	e.reg.each(func(p Processor) {
		p.Reset()
		p.Begin(s)
	})
	s.logger.Info("pass started", zap.Int("processors", len(e.reg.regs)))

	if err := doc.Walk(passWalker{s: s}); err != nil {
		return err
	}

	if err := e.commit(s); err != nil {
		return err
	}
	s.logger.Info("pass finished", zap.Int("annotations", len(s.processed)))
	return nil
}

// maxCommitRounds bounds how often commit is repeated while processors keep
// evaluating directives of inserted blocks.
const maxCommitRounds = 32

// commit lets every processor apply its staged changes in registration
// order. A commit may render new blocks whose directives stage work for
// processors that already committed, so rounds repeat until one evaluates no
// directive.
func (e *Engine) commit(s *Session) error {
	s.committing = true
	defer func() { s.committing = false }()
	for round := 1; ; round++ {
		s.staged = false
		for _, reg := range e.reg.regs {
			if err := reg.Processor.Commit(s); err != nil {
				return fmt.Errorf("commit %s: %w", reg.Capability.Name, err)
			}
		}
		if !s.staged {
			return nil
		}
		if round == maxCommitRounds {
			return NewStructuralError("commit", "changes still staged after %d rounds", round)
		}
		s.logger.Debug("commit round staged new changes", zap.Int("round", round))
	}
}

// Reset clears the per-pass state of every registered processor.
func (e *Engine) Reset() {
	e.reg.each(func(p Processor) { p.Reset() })
}

// evaluate builds a fresh target and evaluates expression against it. With
// processors set, every processor is first told where the evaluation
// happens and its capabilities join the target.
func (s *Session) evaluate(expression string, processors bool) (any, error) {
	var regs []Registration
	if processors {
		regs = s.engine.reg.regs
		for _, r := range regs {
			r.Processor.SetCurrentParagraph(s.paragraph)
			r.Processor.SetCurrentRun(s.run)
		}
	}
	target, err := BuildTarget(s.root, regs...)
	if err != nil {
		return nil, err
	}
	return s.engine.evaluator.Evaluate(expression, target)
}

// evaluateDirective evaluates a block directive and deletes its annotation
// on success.
func (s *Session) evaluateDirective(a *Annotation) error {
	s.directive, _ = s.evaluatedAt(a.ID)
	defer func() { s.directive = 0 }()
	if s.committing {
		s.staged = true
	}
	if _, err := s.evaluate(a.Text, true); err != nil {
		return s.fail(a.Text, err)
	}
	if err := s.resolver.delete(a); err != nil {
		return err
	}
	s.logger.Debug("directive processed", zap.String("expression", a.Text), zap.String("annotation", a.ID))
	return nil
}

// evaluateInline substitutes every inline expression of p with its value.
func (s *Session) evaluateInline(p ParagraphCoordinates) error {
	shift := 0
	for offset, token := range locateExpressions(s.doc.ParagraphText(p)) {
		body := StripDelimiters(token)
		s.paragraph, s.run = p, nil
		v, err := s.evaluate(body, true)
		if err != nil {
			if err := s.fail(body, err); err != nil {
				return err
			}
			continue
		}
		replacement := Format(v)
		if err := s.doc.ReplaceText(p, offset+shift, token, replacement); err != nil {
			return err
		}
		shift += len(replacement) - len(token)
		s.logger.Debug("expression processed", zap.String("expression", body))
	}
	return nil
}

// fail applies the expression policy to err. Registry, processor and
// document errors are always returned.
func (s *Session) fail(expression string, err error) error {
	if fatal(err) {
		return fmt.Errorf("evaluating '%s': %w", expression, err)
	}
	xerr := NewExpressionError(expression, err)
	if s.engine.policy == FailFast {
		return xerr
	}
	s.logger.Warn("skipping unresolved expression", zap.String("expression", expression), zap.Error(err))
	return nil
}
