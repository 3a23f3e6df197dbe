// Package rules implements the condition evaluator: compact boolean rule
// expressions evaluated against an answer store.
//
// An expression is a sequence of whitespace-separated clauses, implicitly
// AND-ed. Equality clauses ("q1 = baz") compare a resolved answer with a
// literal; every other clause names an operator from the operators package.
//
//	ev := rules.NewEvaluator()
//	ok, err := ev.Evaluate("q1 = baz AnsweredLessThan children 3", store)
//
// Evaluation never panics. Malformed expressions return an *EvaluationError,
// which callers acting as guards treat as "not satisfied".
package rules

import (
	"errors"
	"time"

	"github.com/comalice/formchart/internal/answers"
	"github.com/comalice/formchart/internal/rules/operators"
)

// Evaluator evaluates rule expressions. It is immutable and safe for concurrent use.
type Evaluator struct {
	now func() time.Time
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithClock overrides the wall clock used by date operators.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		e.now = now
	}
}

// NewEvaluator creates an Evaluator using time.Now unless overridden.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate parses expr and evaluates it against store. An empty expression is
// satisfied. Clauses are evaluated left to right and evaluation stops at the
// first false clause.
func (e *Evaluator) Evaluate(expr string, store answers.Store) (bool, error) {
	rules, err := Parse(expr)
	if err != nil {
		return false, err
	}
	return e.EvaluateRules(rules, store)
}

// EvaluateRules evaluates already parsed rules. All rules share one clock reading.
func (e *Evaluator) EvaluateRules(rules []Rule, store answers.Store) (bool, error) {
	if len(rules) == 0 {
		return false, &EvaluationError{Code: CodeEmptyExpression, Message: "no clauses to evaluate"}
	}
	now := e.now()
	for _, r := range rules {
		ok, err := e.evaluate(r, store, now)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (e *Evaluator) evaluate(r Rule, store answers.Store, now time.Time) (bool, error) {
	switch r := r.(type) {
	case Unconditional:
		return true, nil
	case Equality:
		v, ok := store.Resolve(r.QuestionRef)
		if !ok {
			return false, nil
		}
		return operators.FormatValue(v) == r.Literal, nil
	case OperatorCall:
		op, ok := operators.Lookup(r.Name)
		if !ok {
			return false, &EvaluationError{Code: CodeUnknownOperator, Clause: r.String(), Message: "no operator named " + r.Name}
		}
		ok, err := op.Call(r.Args, store, now)
		if err != nil {
			return false, classify(r, err)
		}
		return ok, nil
	default:
		return false, &EvaluationError{Code: CodeUnknownOperator, Clause: r.String(), Message: "unsupported rule"}
	}
}

func classify(r OperatorCall, err error) error {
	code := CodeBadArguments
	if errors.Is(err, operators.ErrUnknownComparator) {
		code = CodeUnknownComparator
	}
	return &EvaluationError{Code: code, Clause: r.String(), Message: err.Error(), Err: err}
}
