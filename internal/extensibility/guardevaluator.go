package extensibility

import (
	"errors"
	"fmt"

	"github.com/comalice/formchart/internal/answers"
	"github.com/comalice/formchart/internal/core"
	"github.com/comalice/formchart/internal/rules"
)

// GuardRule is the registry name of the guard returned by RuleGuard.
const GuardRule = "rule"

var errMissingRule = errors.New(`rule guard needs a string "rule" param`)

// StoreFunc extracts the answer store a rule is evaluated against.
type StoreFunc[C any] func(args core.GuardArgs[C]) answers.Store

// RuleConditions evaluates cond expressions with ev against the store produced by store.
// Evaluation errors are returned so the interpreter fails the candidate closed.
func RuleConditions[C any](ev *rules.Evaluator, store StoreFunc[C]) core.ConditionEvaluator[C] {
	return core.ConditionFunc[C](func(cond string, args core.GuardArgs[C]) (bool, error) {
		return ev.Evaluate(cond, store(args))
	})
}

// RuleGuard is a guard whose expression is carried in the candidate's
// guardParams, e.g. {guard: rule, guardParams: {rule: "q1 = baz"}}.
func RuleGuard[C any](ev *rules.Evaluator, store StoreFunc[C]) core.Guard[C] {
	return func(args core.GuardArgs[C]) (bool, error) {
		expr, ok := args.Params["rule"].(string)
		if !ok {
			return false, errMissingRule
		}
		return ev.Evaluate(expr, store(args))
	}
}

// ExpressionGuards turns named rule expressions into guards, so a definition
// can say guard: isBaz with isBaz registered as "q1 = baz". Expressions are
// parsed up front; the first malformed one is returned as an error.
func ExpressionGuards[C any](ev *rules.Evaluator, store StoreFunc[C], exprs map[string]string) (map[string]core.Guard[C], error) {
	guards := make(map[string]core.Guard[C], len(exprs))
	for name, expr := range exprs {
		parsed, err := rules.Parse(expr)
		if err != nil {
			return nil, fmt.Errorf("guard %q: %w", name, err)
		}
		guards[name] = func(args core.GuardArgs[C]) (bool, error) {
			return ev.EvaluateRules(parsed, store(args))
		}
	}
	return guards, nil
}
