package transforms

import (
	"fmt"
	"math"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/san-kum/ace/internal/ace"
)

// Analytic is a user-supplied transform: closed-form expressions for the
// map, its derivative, and its inverse, compiled once at construction. The
// forward and derivative expressions see the distance as `r`; the inverse
// expression sees the transformed coordinate as `x`.
type Analytic struct {
	fn, deriv, inv *vm.Program
}

// NewAnalytic compiles the three expressions. A malformed or empty
// expression is a configuration error.
func NewAnalytic(transform, derivative, inverse string) (*Analytic, error) {
	fn, err := compileExpr("transform", transform, "r")
	if err != nil {
		return nil, err
	}
	deriv, err := compileExpr("transform_derivative", derivative, "r")
	if err != nil {
		return nil, err
	}
	inv, err := compileExpr("inverse_transform", inverse, "x")
	if err != nil {
		return nil, err
	}
	return &Analytic{fn: fn, deriv: deriv, inv: inv}, nil
}

func compileExpr(field, src, varName string) (*vm.Program, error) {
	if src == "" {
		return nil, &ace.ConfigError{Field: field, Reason: "empty expression"}
	}
	prog, err := expr.Compile(src,
		expr.Env(map[string]interface{}{varName: float64(0)}),
		expr.AsFloat64(),
	)
	if err != nil {
		return nil, &ace.ConfigError{Field: field, Reason: fmt.Sprintf("malformed expression %q: %v", src, err)}
	}
	return prog, nil
}

func runProgram(p *vm.Program, varName string, v float64) float64 {
	out, err := expr.Run(p, map[string]interface{}{varName: v})
	if err != nil {
		return math.NaN()
	}
	f, ok := out.(float64)
	if !ok {
		return math.NaN()
	}
	return f
}

func (t *Analytic) Transform(r float64) float64 { return runProgram(t.fn, "r", r) }

func (t *Analytic) Deriv(r float64) float64 { return runProgram(t.deriv, "r", r) }

func (t *Analytic) Inverse(x float64) (float64, error) {
	r := runProgram(t.inv, "x", x)
	if math.IsNaN(r) || math.IsInf(r, 0) || r < 0 {
		return 0, fmt.Errorf("analytic inverse of %g: %w", x, ace.ErrTransformDomain)
	}
	return r, nil
}
