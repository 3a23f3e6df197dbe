// Package operators is the library of named predicates used by rule expressions
// for clauses that are not simple equalities.
//
// Every operator is a pure function of its arguments, the answer store and the
// evaluation time. Missing answers make a predicate false; only malformed rules
// (wrong arity, unknown comparator or unit) produce errors.
package operators

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/comalice/formchart/internal/answers"
)

var (
	// ErrUnknownComparator is returned by DateCompareToToday for comparators other than < and >.
	ErrUnknownComparator = errors.New("unknown comparator")
	// ErrUnknownUnit is returned for an unsupported date granularity.
	ErrUnknownUnit = errors.New("unknown date unit")
	// ErrBadArguments is returned when an operator receives the wrong number or shape of arguments.
	ErrBadArguments = errors.New("bad operator arguments")
)

// Variadic marks an operator that consumes every remaining token of the expression.
const Variadic = -1

// Func evaluates an operator clause. args are the clause tokens after the operator name.
type Func func(args []string, store answers.Store, now time.Time) (bool, error)

// Operator is a library entry.
type Operator struct {
	Name  string
	Arity int
	Fn    Func
}

// Call checks arity and invokes the operator.
func (o Operator) Call(args []string, store answers.Store, now time.Time) (bool, error) {
	if o.Arity != Variadic && len(args) != o.Arity {
		return false, fmt.Errorf("%w: %s takes %d arguments, got %d", ErrBadArguments, o.Name, o.Arity, len(args))
	}
	if o.Arity == Variadic && len(args) == 0 {
		return false, fmt.Errorf("%w: %s needs at least one argument", ErrBadArguments, o.Name)
	}
	return o.Fn(args, store, now)
}

var library = map[string]Operator{}

func register(name string, arity int, fn Func) {
	op := Operator{Name: name, Arity: arity, Fn: fn}
	library[name] = op
	// lower-camel alias: answeredLessThan
	library[strings.ToLower(name[:1])+name[1:]] = op
}

func init() {
	register("AnsweredLessThan", 2, answeredLessThan)
	register("DateCompareToToday", 4, dateCompareToToday)
	register("DateDifferenceGreaterThanTwoDays", 2, dateDifferenceGreaterThanTwoDays)
	register("DateExceedsTwoYearsFromNow", 1, dateExceedsTwoYearsFromNow)
	register("DateGreaterThanTwoDaysAgo", 1, dateGreaterThanTwoDaysAgo)
	register("DateLessThanEighteenYearsAgo", 1, dateLessThanEighteenYearsAgo)
	register("IncludesNullIsFalse", 2, includesNullIsFalse)
	register("OrNullIsFalse", Variadic, orNullIsFalse)
}

// Lookup returns the operator registered under name.
func Lookup(name string) (Operator, bool) {
	op, ok := library[name]
	return op, ok
}

// Names returns the canonical operator names.
func Names() []string {
	return []string{
		"AnsweredLessThan",
		"DateCompareToToday",
		"DateDifferenceGreaterThanTwoDays",
		"DateExceedsTwoYearsFromNow",
		"DateGreaterThanTwoDaysAgo",
		"DateLessThanEighteenYearsAgo",
		"IncludesNullIsFalse",
		"OrNullIsFalse",
	}
}

// AnsweredLessThan reports whether count is strictly below threshold.
func AnsweredLessThan(count int, threshold float64) bool {
	return float64(count) < threshold
}

func answeredLessThan(args []string, store answers.Store, _ time.Time) (bool, error) {
	threshold, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		v, ok := store.Resolve(args[1])
		if !ok {
			return false, nil
		}
		n, ok := toNumber(v)
		if !ok {
			return false, nil
		}
		threshold = n
	}
	return AnsweredLessThan(store.Count(args[0]), threshold), nil
}

// IncludesNullIsFalse reports whether the collection value contains literal.
// Scalars are treated as one-element collections; nil never includes anything.
func IncludesNullIsFalse(value any, literal string) bool {
	switch v := value.(type) {
	case nil:
		return false
	case []any:
		for _, item := range v {
			if formatValue(item) == literal {
				return true
			}
		}
		return false
	case []string:
		for _, item := range v {
			if item == literal {
				return true
			}
		}
		return false
	default:
		return formatValue(v) == literal
	}
}

func includesNullIsFalse(args []string, store answers.Store, _ time.Time) (bool, error) {
	v, ok := store.Resolve(args[0])
	if !ok {
		return false, nil
	}
	return IncludesNullIsFalse(v, args[1]), nil
}

// OrNullIsFalse reports whether any value is truthy.
func OrNullIsFalse(values ...any) bool {
	for _, v := range values {
		if Truthy(v) {
			return true
		}
	}
	return false
}

func orNullIsFalse(args []string, store answers.Store, _ time.Time) (bool, error) {
	values := make([]any, 0, len(args))
	for _, ref := range args {
		if v, ok := store.Resolve(ref); ok {
			values = append(values, v)
		}
	}
	return OrNullIsFalse(values...), nil
}

// Truthy: nil, false, "", "false", zero numbers and empty collections are false.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != "" && !strings.EqualFold(x, "false")
	case []any:
		return len(x) > 0
	case []string:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		if n, ok := toNumber(x); ok {
			return n != 0
		}
		return true
	}
}

// FormatValue renders an answer value the way rule literals are written.
func FormatValue(v any) string {
	return formatValue(v)
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	default:
		return fmt.Sprint(x)
	}
}

func toNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return n, err == nil
	default:
		return 0, false
	}
}
