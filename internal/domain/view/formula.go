package view

import (
	"fmt"

	"github.com/Knetic/govaluate"
)

// Formula is a compiled arithmetic expression over the variable x,
// such as "x * 1.8 + 32".
type Formula struct {
	source string
	expr   *govaluate.EvaluableExpression
}

func ParseFormula(source string) (*Formula, error) {
	expr, err := govaluate.NewEvaluableExpression(source)
	if err != nil {
		return nil, fmt.Errorf("parsing formula %q: %w", source, err)
	}
	for _, v := range expr.Vars() {
		if v != "x" {
			return nil, fmt.Errorf("parsing formula %q: unknown variable %q", source, v)
		}
	}
	return &Formula{source: source, expr: expr}, nil
}

func (f *Formula) String() string {
	return f.source
}

// Apply evaluates the formula; on any evaluation error x is returned as is.
func (f *Formula) Apply(x float64) float64 {
	result, err := f.expr.Evaluate(map[string]interface{}{"x": x})
	if err != nil {
		return x
	}
	if val, ok := result.(float64); ok {
		return val
	}
	return x
}
