package rules

import (
	"fmt"
	"strings"

	"github.com/comalice/formchart/internal/rules/operators"
)

// Rule is one parsed clause of an expression.
type Rule interface {
	fmt.Stringer
	rule()
}

// Equality compares the value resolved for QuestionRef with Literal.
type Equality struct {
	QuestionRef string
	Literal     string
}

// OperatorCall invokes a library operator with the clause's remaining tokens.
type OperatorCall struct {
	Name string
	Args []string
}

// Unconditional is the rule of an empty expression; it is always satisfied.
type Unconditional struct{}

func (Equality) rule()      {}
func (OperatorCall) rule()  {}
func (Unconditional) rule() {}

func (r Equality) String() string { return r.QuestionRef + " = " + r.Literal }

func (r OperatorCall) String() string {
	return strings.TrimSpace(r.Name + " " + strings.Join(r.Args, " "))
}

func (Unconditional) String() string { return "" }

// Parse splits an expression into clauses.
//
// Tokens are separated by whitespace. A token naming an operator starts an
// operator clause that consumes the operator's fixed number of arguments (a
// variadic operator consumes the rest of the expression); any other token must
// start a "ref = literal" equality triple. An empty expression parses to a
// single Unconditional rule.
func Parse(expr string) ([]Rule, error) {
	tokens := strings.Fields(expr)
	if len(tokens) == 0 {
		return []Rule{Unconditional{}}, nil
	}

	var rules []Rule
	for i := 0; i < len(tokens); {
		name := tokens[i]
		op, ok := operators.Lookup(name)
		if !ok && i+2 < len(tokens) && tokens[i+1] == "=" {
			rules = append(rules, Equality{QuestionRef: name, Literal: tokens[i+2]})
			i += 3
			continue
		}
		if !ok {
			return nil, &EvaluationError{
				Code:    CodeUnknownOperator,
				Clause:  strings.Join(tokens[i:], " "),
				Message: fmt.Sprintf("no operator named %q", name),
			}
		}
		rest := tokens[i+1:]
		n := op.Arity
		if n == operators.Variadic {
			n = len(rest)
		}
		if n > len(rest) || (n == 0 && op.Arity == operators.Variadic) {
			return nil, &EvaluationError{
				Code:    CodeBadArguments,
				Clause:  strings.Join(tokens[i:], " "),
				Message: fmt.Sprintf("%s needs %d arguments, got %d", op.Name, op.Arity, len(rest)),
				Err:     operators.ErrBadArguments,
			}
		}
		rules = append(rules, OperatorCall{Name: op.Name, Args: append([]string(nil), rest[:n]...)})
		i += 1 + n
	}
	return rules, nil
}
