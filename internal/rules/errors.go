package rules

import (
	"errors"
	"fmt"
)

// EvaluationError is the recoverable error value produced when an expression
// cannot be evaluated. Guards treat it as "not satisfied".
type EvaluationError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Clause is the offending clause, as written.
	Clause string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes evaluation errors.
type ErrorCode string

const (
	// CodeUnknownOperator indicates a clause shape that names no library operator.
	CodeUnknownOperator ErrorCode = "UNKNOWN_OPERATOR"

	// CodeUnknownComparator indicates DateCompareToToday got a comparator other than < or >.
	CodeUnknownComparator ErrorCode = "UNKNOWN_COMPARATOR"

	// CodeBadArguments indicates an operator received malformed arguments.
	CodeBadArguments ErrorCode = "BAD_ARGUMENTS"

	// CodeEmptyExpression indicates EvaluateRules was given no rules.
	CodeEmptyExpression ErrorCode = "EMPTY_EXPRESSION"
)

// Error implements the error interface.
func (e *EvaluationError) Error() string {
	if e.Clause != "" {
		return fmt.Sprintf("%s: %s (clause=%q)", e.Code, e.Message, e.Clause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// IsUnknownComparator returns true if err is an unknown comparator evaluation error.
func IsUnknownComparator(err error) bool {
	return hasCode(err, CodeUnknownComparator)
}

// IsUnknownOperator returns true if err is an unknown operator evaluation error.
func IsUnknownOperator(err error) bool {
	return hasCode(err, CodeUnknownOperator)
}

// IsBadArguments returns true if err reports malformed operator arguments.
func IsBadArguments(err error) bool {
	return hasCode(err, CodeBadArguments)
}

func hasCode(err error, code ErrorCode) bool {
	var ee *EvaluationError
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}
