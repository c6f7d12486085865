package expression

import (
	"errors"
	"strings"
	"testing"
)

func TestValidate_DeniedIdentifiers(t *testing.T) {
	denied := []string{
		"eval", "Function", "window", "document", "process", "global",
		"require", "import", "fetch", "XMLHttpRequest", "setTimeout",
		"setInterval", "constructor", "prototype", "__proto__",
		"navigator", "location",
	}

	for _, name := range denied {
		t.Run(name, func(t *testing.T) {
			exprs := []string{
				name,
				name + " > 5",
				"x + " + name,
				"(a && (" + name + "))",
				"a." + name,
				"a . " + name + " ()",
			}
			for _, expr := range exprs {
				err := validate(expr)
				var se *SecurityError
				if !errors.As(err, &se) {
					t.Errorf("validate(%q) = %v, want SecurityError", expr, err)
				}
			}
		})
	}
}

func TestValidate_IdentifierMatchingIsStructural(t *testing.T) {
	// Names that merely contain a denied word must pass.
	allowed := []string{
		"evaluationScore > 10",
		"windowsill + 1",
		"processing == 2",
		"globalization",
		"important_flag && true",
		"relocation > 0",
	}
	for _, expr := range allowed {
		if err := validate(expr); err != nil {
			t.Errorf("validate(%q) = %v, want nil", expr, err)
		}
	}
}

func TestValidate_StatementAndAssignmentSyntax(t *testing.T) {
	rejected := []string{
		"x = 5",
		"x=5",
		"x += 1",
		"x -= 1",
		"x *= 2",
		"x /= 2",
		"x++",
		"x--",
		"a; b",
		"1 + 1;",
	}
	for _, expr := range rejected {
		err := validate(expr)
		var se *SecurityError
		if !errors.As(err, &se) {
			t.Errorf("validate(%q) = %v, want SecurityError", expr, err)
		}
	}

	// Comparison operators containing '=' are fine.
	allowed := []string{"x == 5", "x != 5", "x <= 5", "x >= 5"}
	for _, expr := range allowed {
		if err := validate(expr); err != nil {
			t.Errorf("validate(%q) = %v, want nil", expr, err)
		}
	}
}

func TestValidate_StringLiterals(t *testing.T) {
	for _, expr := range []string{`x == "gone"`, "x == 'gone'", "x == `gone`"} {
		err := validate(expr)
		var se *SecurityError
		if !errors.As(err, &se) {
			t.Errorf("validate(%q) = %v, want SecurityError", expr, err)
		}
	}
}

func TestValidate_FunctionWhitelist(t *testing.T) {
	allowed := []string{
		"min(1, 2)",
		"max(a, b, c)",
		"floor(1.5)",
		"ceil(x / y)",
		"round( 2.4 )",
		"abs(-5)",
	}
	for _, expr := range allowed {
		if err := validate(expr); err != nil {
			t.Errorf("validate(%q) = %v, want nil", expr, err)
		}
	}

	rejected := []string{
		"alert(1)",
		"sqrt(4)",
		"undefined_function()",
		"foo ()",
		"min(alert(1), 2)",
	}
	for _, expr := range rejected {
		err := validate(expr)
		var se *SecurityError
		if !errors.As(err, &se) {
			t.Errorf("validate(%q) = %v, want SecurityError", expr, err)
		}
	}
}

func TestValidate_EmptyAndLength(t *testing.T) {
	for _, expr := range []string{"", "   ", "\t\n"} {
		err := validate(expr)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("validate(%q) = %v, want ValidationError", expr, err)
		}
	}

	// Exactly at the cap is fine, one over is not.
	atCap := "x" + strings.Repeat(" ", MaxExpressionLength-2) + "y"
	if len(atCap) != MaxExpressionLength {
		t.Fatalf("test setup: len = %d", len(atCap))
	}
	if err := validate(atCap); err != nil {
		t.Errorf("validate(at cap) = %v, want nil", err)
	}

	over := "x + " + strings.Repeat("1", MaxExpressionLength)
	err := validate(over)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("validate(over cap) = %v, want ValidationError", err)
	}
	if !strings.Contains(ve.Reason, "exceeds") {
		t.Errorf("length rejection should name the limit, got %q", ve.Reason)
	}
}
