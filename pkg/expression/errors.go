package expression

import "fmt"

// ValidationError reports a structural problem with the input itself:
// empty after trimming, or over the length limit.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid expression: " + e.Reason
}

// SecurityError reports a disallowed construct in an otherwise well-formed
// string: a denylisted identifier, assignment or statement syntax, a string
// literal, or a call to a function outside the whitelist. Security errors are
// always recorded to the audit trail before being returned, and are returned
// from every entry point, including EvaluateCondition.
type SecurityError struct {
	Reason string
}

func (e *SecurityError) Error() string {
	return "security violation: " + e.Reason
}

// ParseError reports a syntax error in a validated expression.
type ParseError struct {
	Pos     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at position %d: %s", e.Pos, e.Message)
}

// EvalError reports an expression that is syntactically valid and
// security-clean but cannot be computed in the given context, such as a
// reference to an undefined variable or a non-numeric operand in an
// arithmetic position. EvaluateCondition converts these to false.
type EvalError struct {
	Message string
	// NonNumeric is set when a well-formed expression evaluated fine but
	// produced a boolean or other non-number through a numeric entry point.
	// Callers can use it to retry the input as a condition.
	NonNumeric bool
}

func (e *EvalError) Error() string {
	return "evaluation error: " + e.Message
}
