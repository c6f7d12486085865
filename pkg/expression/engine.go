// Package expression evaluates narrative condition expressions against live
// simulation state. Expressions are authored as game content ("grief_memory
// > 500", "health / maxHealth > 0.5") and evaluated in a sandbox: a closed
// grammar with no assignment, no string literals, no member access, and a
// fixed function whitelist, over a context restricted to primitive values.
package expression

import (
	"errors"
	"log/slog"
)

// Engine is the shared evaluator. It owns the audit state and is safe for
// concurrent use; services hold one long-lived instance.
type Engine struct {
	log   *slog.Logger
	audit *Auditor
}

func New(log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		log:   log,
		audit: NewAuditor(),
	}
}

// Validate runs the security gate over an expression without evaluating it.
// Content linters use this to reject bad authored expressions at build time.
// Returns *ValidationError or *SecurityError; rejections are audited.
func (e *Engine) Validate(expr string) error {
	if err := validate(expr); err != nil {
		e.recordRejection(expr, err)
		return err
	}
	return nil
}

// Evaluate validates, parses, and evaluates an expression, which must
// produce a number. Any failure is returned: *ValidationError,
// *SecurityError, *ParseError, or *EvalError.
func (e *Engine) Evaluate(expr string, ctx Context) (float64, error) {
	e.audit.RecordEvaluation()

	if err := validate(expr); err != nil {
		e.recordRejection(expr, err)
		return 0, err
	}
	root, err := parse(expr)
	if err != nil {
		// Plain syntax errors are authoring mistakes, not violations;
		// only security-classified parse failures enter the audit trail.
		if isSecurity(err) {
			e.recordRejection(expr, err)
		}
		return 0, err
	}
	return e.evaluateNumber(expr, root, ctx)
}

// EvaluateCondition evaluates an expression as a boolean gate. It fails
// closed: parse and evaluation failures yield (false, nil) so that a
// malformed or stale condition never halts a simulation tick. Validation
// and security failures are still returned, since they signal an attack or
// a configuration bug rather than a runtime data gap.
func (e *Engine) EvaluateCondition(expr string, ctx Context) (bool, error) {
	e.audit.RecordEvaluation()

	if err := validate(expr); err != nil {
		e.recordRejection(expr, err)
		return false, err
	}
	root, err := parse(expr)
	if err != nil {
		if isSecurity(err) {
			e.recordRejection(expr, err)
			return false, err
		}
		e.log.Debug("condition failed to parse, treating as false", "expression", expr, "error", err)
		return false, nil
	}
	return e.evaluateTruthy(expr, root, ctx)
}

// Stats returns a snapshot of the audit counters and recent violations.
func (e *Engine) Stats() Stats {
	return e.audit.Stats()
}

// Compiled is a validated, parsed expression that can be evaluated many
// times without re-parsing. Scenario content compiles its trigger
// conditions once at load time and reuses them every tick.
type Compiled struct {
	src  string
	root Node
}

// Source returns the original expression text.
func (c *Compiled) Source() string { return c.src }

// Compile validates and parses an expression for repeated evaluation.
func (e *Engine) Compile(expr string) (*Compiled, error) {
	if err := validate(expr); err != nil {
		e.recordRejection(expr, err)
		return nil, err
	}
	root, err := parse(expr)
	if err != nil {
		if isSecurity(err) {
			e.recordRejection(expr, err)
		}
		return nil, err
	}
	return &Compiled{src: expr, root: root}, nil
}

// EvaluateCompiled evaluates a compiled expression as a number.
func (e *Engine) EvaluateCompiled(c *Compiled, ctx Context) (float64, error) {
	e.audit.RecordEvaluation()
	return e.evaluateNumber(c.src, c.root, ctx)
}

// EvaluateCompiledCondition evaluates a compiled expression as a boolean
// gate with the same fail-closed policy as EvaluateCondition.
func (e *Engine) EvaluateCompiledCondition(c *Compiled, ctx Context) (bool, error) {
	e.audit.RecordEvaluation()
	return e.evaluateTruthy(c.src, c.root, ctx)
}

func (e *Engine) evaluateNumber(expr string, root Node, ctx Context) (float64, error) {
	result, err := eval(root, ctx)
	if err != nil {
		if isSecurity(err) {
			e.recordRejection(expr, err)
		}
		return 0, err
	}
	if result.Kind() != KindNumber {
		return 0, &EvalError{
			Message:    "expression did not produce a number, got " + result.Kind().String(),
			NonNumeric: true,
		}
	}
	return result.Num(), nil
}

func (e *Engine) evaluateTruthy(expr string, root Node, ctx Context) (bool, error) {
	result, err := eval(root, ctx)
	if err != nil {
		if isSecurity(err) {
			e.recordRejection(expr, err)
			return false, err
		}
		e.log.Debug("condition failed to evaluate, treating as false", "expression", expr, "error", err)
		return false, nil
	}
	return result.Truthy(), nil
}

func (e *Engine) recordRejection(expr string, err error) {
	e.audit.RecordViolation(err.Error(), expr)
	if isSecurity(err) {
		e.log.Warn("expression rejected", "error", err)
	}
}

func isSecurity(err error) bool {
	var se *SecurityError
	return errors.As(err, &se)
}
