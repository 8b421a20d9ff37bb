package docstamper

import "go.uber.org/zap"

type ExpressionPolicy int

const (
	FailFast ExpressionPolicy = iota // abort the pass on the first unresolved expression
	Lenient                          // log, leave the expression in place and continue
)

type Engine struct {
	reg       *Registry
	policy    ExpressionPolicy
	evaluator Evaluator
	logger    *zap.Logger
}
