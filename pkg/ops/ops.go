// Package ops provides the pluggable arithmetic strategies the expression
// parser folds polynomials with.
package ops

import (
	"fmt"
	"math/big"

	"github.com/lemonberrylabs/polycalc/pkg/poly"
	"github.com/lemonberrylabs/polycalc/pkg/types"
)

// Binary combines two polynomials.
type Binary interface {
	Apply(a, b poly.Polynomial) (poly.Polynomial, error)
	Symbol() string
}

// Unary transforms one polynomial.
type Unary interface {
	Apply(p poly.Polynomial) (poly.Polynomial, error)
	Symbol() string
}

// Power raises a polynomial to an integer exponent.
type Power interface {
	Apply(base poly.Polynomial, exp int) (poly.Polynomial, error)
	Symbol() string
}

// Set bundles one strategy per operator. Strategies are stateless, so a Set
// may be shared across goroutines.
type Set struct {
	Add  Binary
	Sub  Binary
	Mul  Binary
	Div  Binary
	Neg  Unary
	Pow  Power
	Root Unary
}

// Default returns the exact integer-polynomial strategies.
func Default() Set {
	return Set{
		Add:  AddOp{},
		Sub:  SubOp{},
		Mul:  MulOp{},
		Div:  DivOp{},
		Neg:  NegOp{},
		Pow:  PowOp{},
		Root: RootOp{},
	}
}

// Validate checks that every strategy is present.
func (s Set) Validate() error {
	missing := ""
	switch {
	case s.Add == nil:
		missing = "add"
	case s.Sub == nil:
		missing = "subtract"
	case s.Mul == nil:
		missing = "multiply"
	case s.Div == nil:
		missing = "divide"
	case s.Neg == nil:
		missing = "negate"
	case s.Pow == nil:
		missing = "power"
	case s.Root == nil:
		missing = "root"
	}
	if missing != "" {
		return fmt.Errorf("operation set has no %s strategy", missing)
	}
	return nil
}

// AddOp is coefficient-wise addition.
type AddOp struct{}

// Apply returns a + b.
func (AddOp) Apply(a, b poly.Polynomial) (poly.Polynomial, error) { return a.Add(b), nil }

// Symbol returns "+".
func (AddOp) Symbol() string { return "+" }

// SubOp computes a + (-1)b.
type SubOp struct{}

// Apply returns a - b.
func (SubOp) Apply(a, b poly.Polynomial) (poly.Polynomial, error) { return a.Add(b.Scale(-1)), nil }

// Symbol returns "-".
func (SubOp) Symbol() string { return "-" }

// MulOp is convolution.
type MulOp struct{}

// Apply returns a * b.
func (MulOp) Apply(a, b poly.Polynomial) (poly.Polynomial, error) { return a.Mul(b), nil }

// Symbol returns "*".
func (MulOp) Symbol() string { return "*" }

// DivOp divides by a non-zero constant. Each coefficient is divided with Go
// integer division, which truncates toward zero, so 3x / 2 yields x.
type DivOp struct{}

// Apply divides every coefficient of a by the constant b. A zero or
// non-constant divisor is an ArithmeticError.
func (DivOp) Apply(a, b poly.Polynomial) (poly.Polynomial, error) {
	if b.Degree() != 0 {
		if b.IsZero() {
			return poly.Polynomial{}, types.NewArithmeticError("division by zero")
		}
		return poly.Polynomial{}, types.NewArithmeticError(
			fmt.Sprintf("only division by constants is supported, divisor is %s", b))
	}
	divisor := b.Get(0)

	cs := a.Coefficients()
	for i := range cs {
		cs[i] /= divisor
	}
	return poly.FromCoefficients(cs), nil
}

// Symbol returns "/".
func (DivOp) Symbol() string { return "/" }

// NegOp scales by -1.
type NegOp struct{}

// Apply returns -p.
func (NegOp) Apply(p poly.Polynomial) (poly.Polynomial, error) { return p.Scale(-1), nil }

// Symbol returns "-".
func (NegOp) Symbol() string { return "-" }

// PowOp uses binary exponentiation.
type PowOp struct{}

// Apply returns base^exp.
func (PowOp) Apply(base poly.Polynomial, exp int) (poly.Polynomial, error) { return base.Pow(exp) }

// Symbol returns "^".
func (PowOp) Symbol() string { return "^" }

// RootOp takes the integer square root of a non-negative perfect-square
// constant.
type RootOp struct{}

// Apply returns the square root of p. The operand must have degree 0, so
// the zero polynomial (degree -1) is rejected like any other non-constant.
func (RootOp) Apply(p poly.Polynomial) (poly.Polynomial, error) {
	if p.Degree() != 0 {
		return poly.Polynomial{}, types.NewArithmeticError("square root only supports integer constants")
	}
	v := p.Get(0)
	if v < 0 {
		return poly.Polynomial{}, types.NewArithmeticError(
			fmt.Sprintf("cannot take the square root of negative value %d", v))
	}

	r := new(big.Int).Sqrt(big.NewInt(v)).Int64()
	if r*r != v {
		return poly.Polynomial{}, types.NewArithmeticError(
			fmt.Sprintf("square root of %d is not an integer", v))
	}
	return poly.Constant(r), nil
}

// Symbol returns "√".
func (RootOp) Symbol() string { return "√" }

// BoundedPow rejects exponents above Max before delegating to Next. Services
// inject it to cap the coefficient growth caused by user-supplied exponents.
type BoundedPow struct {
	Max  int
	Next Power
}

// Apply rejects exp > Max with an ArithmeticError and otherwise delegates
// to Next, or PowOp when Next is nil.
func (b BoundedPow) Apply(base poly.Polynomial, exp int) (poly.Polynomial, error) {
	if exp > b.Max {
		return poly.Polynomial{}, types.NewArithmeticError(
			fmt.Sprintf("exponent %d exceeds the limit of %d", exp, b.Max))
	}
	next := b.Next
	if next == nil {
		next = PowOp{}
	}
	return next.Apply(base, exp)
}

// Symbol returns "^".
func (b BoundedPow) Symbol() string { return "^" }

// WithMaxExponent returns a copy of s whose power strategy rejects exponents
// greater than limit. A non-positive limit leaves s unchanged.
func (s Set) WithMaxExponent(limit int) Set {
	if limit <= 0 {
		return s
	}
	s.Pow = BoundedPow{Max: limit, Next: s.Pow}
	return s
}
