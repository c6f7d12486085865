package expression

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxExpressionLength is the hard cap on expression length, enforced before
// any scanning or parsing. It is the primary defense against algorithmic
// denial of service: everything downstream is linear in input length.
const MaxExpressionLength = 500

// funcWhitelist is the only set of callables an expression may name. The
// evaluator keeps its own dispatch table as an independent second check.
var funcWhitelist = map[string]struct{}{
	"min":   {},
	"max":   {},
	"floor": {},
	"ceil":  {},
	"round": {},
	"abs":   {},
}

// validate runs the lexical security gate over a raw expression. It returns
// a *ValidationError for structural problems with the input itself and a
// *SecurityError for disallowed constructs. Emptiness is judged on the
// trimmed input so that all entry points agree on what "empty" means.
func validate(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return &ValidationError{Reason: "expression is empty"}
	}
	if utf8.RuneCountInString(expr) > MaxExpressionLength {
		return &ValidationError{Reason: fmt.Sprintf("expression exceeds %d characters", MaxExpressionLength)}
	}
	return scan(expr)
}

// scan walks the expression once, checking whole identifiers against the
// denylist and call syntax against the function whitelist, and rejecting
// assignment, statement, and string-literal syntax outright. Identifier
// matching is structural, not substring-based: "evaluationScore" passes,
// "a.eval()" and "window . location" do not.
func scan(expr string) error {
	runes := []rune(expr)
	n := len(runes)

	for i := 0; i < n; {
		c := runes[i]

		switch {
		case c == '\'' || c == '"' || c == '`':
			return &SecurityError{Reason: "string literals are not allowed"}

		case c == ';':
			return &SecurityError{Reason: "statement syntax is not allowed"}

		case c == '+' && i+1 < n && runes[i+1] == '+':
			return &SecurityError{Reason: "increment operator is not allowed"}

		case c == '-' && i+1 < n && runes[i+1] == '-':
			return &SecurityError{Reason: "decrement operator is not allowed"}

		case isCompoundAssignHead(c) && i+1 < n && runes[i+1] == '=':
			// Compound assignment (+=, -=, *=, /=, %=, ^=, &=, |=).
			// Comparison heads (!, <, >) legitimately precede '='.
			return &SecurityError{Reason: "assignment is not allowed"}

		case (c == '!' || c == '<' || c == '>') && i+1 < n && runes[i+1] == '=':
			i += 2

		case c == '=':
			if i+1 < n && runes[i+1] == '=' {
				i += 2
				continue
			}
			return &SecurityError{Reason: "assignment is not allowed"}

		case isIdentStart(c):
			start := i
			for i < n && isIdentPart(runes[i]) {
				i++
			}
			name := string(runes[start:i])
			if isDeniedIdentifier(name) {
				return &SecurityError{Reason: fmt.Sprintf("disallowed identifier %q", name)}
			}
			// Identifier followed by '(' is call syntax; only whitelisted
			// function names may be called.
			j := i
			for j < n && (runes[j] == ' ' || runes[j] == '\t' || runes[j] == '\n' || runes[j] == '\r') {
				j++
			}
			if j < n && runes[j] == '(' {
				if _, ok := funcWhitelist[name]; !ok {
					return &SecurityError{Reason: fmt.Sprintf("call to unauthorized function %q", name)}
				}
			}

		default:
			i++
		}
	}
	return nil
}

func isCompoundAssignHead(c rune) bool {
	switch c {
	case '+', '-', '*', '/', '%', '^', '&', '|':
		return true
	}
	return false
}

func isIdentStart(c rune) bool {
	return c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c rune) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
