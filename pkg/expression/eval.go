package expression

import (
	"fmt"
	"math"
)

// funcTable is the evaluator's own dispatch table for whitelisted functions.
// It is resolved at evaluation time independently of the validator's
// whitelist, so even a bypassed validation pass cannot make the evaluator
// call anything else.
var funcTable = map[string]func(args []float64) (float64, error){
	"min": func(args []float64) (float64, error) {
		if len(args) == 0 {
			return 0, &EvalError{Message: "min requires at least one argument"}
		}
		out := args[0]
		for _, a := range args[1:] {
			out = math.Min(out, a)
		}
		return out, nil
	},
	"max": func(args []float64) (float64, error) {
		if len(args) == 0 {
			return 0, &EvalError{Message: "max requires at least one argument"}
		}
		out := args[0]
		for _, a := range args[1:] {
			out = math.Max(out, a)
		}
		return out, nil
	},
	"floor": oneArg("floor", math.Floor),
	"ceil":  oneArg("ceil", math.Ceil),
	"round": oneArg("round", math.Round),
	"abs":   oneArg("abs", math.Abs),
}

func oneArg(name string, fn func(float64) float64) func(args []float64) (float64, error) {
	return func(args []float64) (float64, error) {
		if len(args) != 1 {
			return 0, &EvalError{Message: fmt.Sprintf("%s requires exactly one argument", name)}
		}
		return fn(args[0]), nil
	}
}

// eval walks an expression tree against a context. Numeric semantics are
// IEEE 754: division by zero yields Inf or NaN rather than an error.
func eval(node Node, ctx Context) (Value, error) {
	switch n := node.(type) {
	case NumberLit:
		return Number(n.Value), nil

	case BoolLit:
		return Bool(n.Value), nil

	case Ident:
		val, ok := ctx[n.Name]
		if !ok {
			return Value{}, &EvalError{Message: fmt.Sprintf("undefined variable %q", n.Name)}
		}
		return val, nil

	case Unary:
		operand, err := eval(n.Operand, ctx)
		if err != nil {
			return Value{}, err
		}
		switch n.Op {
		case "!":
			return Bool(!operand.Truthy()), nil
		case "-":
			if operand.Kind() != KindNumber {
				return Value{}, &EvalError{Message: fmt.Sprintf("cannot negate %s value", operand.Kind())}
			}
			return Number(-operand.Num()), nil
		}
		return Value{}, &EvalError{Message: fmt.Sprintf("unknown unary operator %q", n.Op)}

	case Binary:
		return evalBinary(n, ctx)

	case Call:
		fn, ok := funcTable[n.Name]
		if !ok {
			return Value{}, &SecurityError{Reason: fmt.Sprintf("call to unauthorized function %q", n.Name)}
		}
		args := make([]float64, len(n.Args))
		for i, argNode := range n.Args {
			arg, err := eval(argNode, ctx)
			if err != nil {
				return Value{}, err
			}
			if arg.Kind() != KindNumber {
				return Value{}, &EvalError{Message: fmt.Sprintf("%s: argument %d is %s, want number", n.Name, i+1, arg.Kind())}
			}
			args[i] = arg.Num()
		}
		out, err := fn(args)
		if err != nil {
			return Value{}, err
		}
		return Number(out), nil
	}
	return Value{}, &EvalError{Message: fmt.Sprintf("unknown node type %T", node)}
}

func evalBinary(n Binary, ctx Context) (Value, error) {
	// Logical operators short-circuit on truthiness.
	if n.Op == "&&" || n.Op == "||" {
		left, err := eval(n.Left, ctx)
		if err != nil {
			return Value{}, err
		}
		if n.Op == "&&" && !left.Truthy() {
			return Bool(false), nil
		}
		if n.Op == "||" && left.Truthy() {
			return Bool(true), nil
		}
		right, err := eval(n.Right, ctx)
		if err != nil {
			return Value{}, err
		}
		return Bool(right.Truthy()), nil
	}

	left, err := eval(n.Left, ctx)
	if err != nil {
		return Value{}, err
	}
	right, err := eval(n.Right, ctx)
	if err != nil {
		return Value{}, err
	}

	switch n.Op {
	case "==":
		return Bool(left.Equal(right)), nil
	case "!=":
		return Bool(!left.Equal(right)), nil
	}

	// Everything else is numeric-only.
	if left.Kind() != KindNumber || right.Kind() != KindNumber {
		return Value{}, &EvalError{Message: fmt.Sprintf("operator %q requires numeric operands, got %s and %s", n.Op, left.Kind(), right.Kind())}
	}
	l, r := left.Num(), right.Num()

	switch n.Op {
	case "+":
		return Number(l + r), nil
	case "-":
		return Number(l - r), nil
	case "*":
		return Number(l * r), nil
	case "/":
		return Number(l / r), nil
	case "%":
		return Number(math.Mod(l, r)), nil
	case "^":
		return Number(math.Pow(l, r)), nil
	case "<":
		return Bool(l < r), nil
	case ">":
		return Bool(l > r), nil
	case "<=":
		return Bool(l <= r), nil
	case ">=":
		return Bool(l >= r), nil
	}
	return Value{}, &EvalError{Message: fmt.Sprintf("unknown operator %q", n.Op)}
}
