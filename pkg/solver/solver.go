// Package solver solves linear and quadratic equations in x in closed form.
package solver

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lemonberrylabs/polycalc/pkg/expr"
	"github.com/lemonberrylabs/polycalc/pkg/ops"
	"github.com/lemonberrylabs/polycalc/pkg/poly"
	"github.com/lemonberrylabs/polycalc/pkg/types"
)

// Kind classifies a Solution.
type Kind string

const (
	Linear      Kind = "LINEAR"
	RealPair    Kind = "REAL"
	ComplexPair Kind = "COMPLEX"
)

// Solution is the closed-form solution of a degree 1 or 2 equation.
type Solution struct {
	Kind Kind
	// Roots holds one root for Linear and two (x1 then x2) for RealPair.
	Roots []float64
	// Real and Imag describe the conjugate pair Real ± Imag·i for ComplexPair.
	Real float64
	Imag float64
}

// String renders the solution:
//
//	x = -2.0
//	x1 = 1.0000, x2 = -1.0000
//	x = 0.0000 ± 1.0000i
func (s Solution) String() string {
	switch s.Kind {
	case Linear:
		return "x = " + FormatDouble(s.Roots[0])
	case RealPair:
		return fmt.Sprintf("x1 = %.4f, x2 = %.4f", s.Roots[0], s.Roots[1])
	case ComplexPair:
		return fmt.Sprintf("x = %.4f ± %.4fi", s.Real, s.Imag)
	default:
		return ""
	}
}

// Solve solves p(x) = 0. Only degrees 1 and 2 are supported.
func Solve(p poly.Polynomial) (Solution, error) {
	switch deg := p.Degree(); deg {
	case 1:
		a, b := p.Get(1), p.Get(0)
		if a == 0 {
			return Solution{}, types.NewUnsupportedEquationError("not a valid linear equation in x")
		}
		x := negate(b) / float64(a)
		return Solution{Kind: Linear, Roots: []float64{x}}, nil

	case 2:
		a, b, c := float64(p.Get(2)), float64(p.Get(1)), float64(p.Get(0))
		if a == 0 {
			return Solution{}, types.NewUnsupportedEquationError("not a valid quadratic equation")
		}

		negB := negate(p.Get(1))
		disc := b*b - 4*a*c
		if disc < 0 {
			return Solution{
				Kind: ComplexPair,
				Real: negB / (2 * a),
				Imag: math.Sqrt(-disc) / (2 * a),
			}, nil
		}
		sqrtD := math.Sqrt(disc)
		return Solution{
			Kind:  RealPair,
			Roots: []float64{(negB + sqrtD) / (2 * a), (negB - sqrtD) / (2 * a)},
		}, nil

	default:
		return Solution{}, types.NewUnsupportedEquationError(
			fmt.Sprintf("only linear and quadratic equations are supported, got degree %d", deg))
	}
}

// SolveForX parses expression with set and solves the resulting
// "left - right = 0" polynomial.
func SolveForX(expression string, set ops.Set) (string, error) {
	p, err := expr.ParseWith(expression, set)
	if err != nil {
		return "", err
	}
	sol, err := Solve(p)
	if err != nil {
		return "", err
	}
	return sol.String(), nil
}

// Display is the text a calculator display shows for expression: the
// solution when it is an equation, its canonical polynomial otherwise, and
// "ERR: <message>" on any failure.
func Display(expression string, set ops.Set) string {
	if strings.Contains(expression, "=") {
		out, err := SolveForX(expression, set)
		if err != nil {
			return "ERR: " + errorMessage(err)
		}
		return out
	}

	p, err := expr.ParseWith(expression, set)
	if err != nil {
		return "ERR: " + errorMessage(err)
	}
	return p.String()
}

// negate returns -b as a float64. It negates after conversion so that
// math.MinInt64 does not wrap, and maps b = 0 to +0 rather than -0.
func negate(b int64) float64 {
	if b == 0 {
		return 0
	}
	return -float64(b)
}

func errorMessage(err error) string {
	var ae *types.AlgebraError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}

// FormatDouble renders v in the shortest form that round-trips, with at
// least one fractional digit ("-2.0") and E notation outside [1e-3, 1e7)
// ("1.0E7", "1.25E-4").
func FormatDouble(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}

	abs := math.Abs(v)
	if v == 0 || (abs >= 1e-3 && abs < 1e7) {
		s := strconv.FormatFloat(v, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}

	s := strconv.FormatFloat(v, 'E', -1, 64)
	mantissa, exp, _ := strings.Cut(s, "E")
	if !strings.Contains(mantissa, ".") {
		mantissa += ".0"
	}
	e, _ := strconv.Atoi(exp)
	return mantissa + "E" + strconv.Itoa(e)
}
