// Package poly implements an exact single-variable polynomial with integer
// coefficients.
package poly

import (
	"strconv"
	"strings"

	"github.com/lemonberrylabs/polycalc/pkg/types"
)

// Polynomial is an immutable polynomial in x. Coefficient k is the
// coefficient of x^k. The coefficient slice never has trailing zeros, so
// the zero polynomial holds no coefficients at all.
//
// The zero value is the zero polynomial and is ready to use.
type Polynomial struct {
	coeffs []int64
}

// Zero returns the zero polynomial.
func Zero() Polynomial {
	return Polynomial{}
}

// Constant returns p(x) = c.
func Constant(c int64) Polynomial {
	return newTrimmed([]int64{c})
}

// Variable returns p(x) = x.
func Variable() Polynomial {
	return Polynomial{coeffs: []int64{0, 1}}
}

// FromCoefficients builds a polynomial where cs[k] is the coefficient of x^k.
// The slice is copied.
func FromCoefficients(cs []int64) Polynomial {
	buf := make([]int64, len(cs))
	copy(buf, cs)
	return newTrimmed(buf)
}

// newTrimmed takes ownership of buf and drops trailing zeros.
func newTrimmed(buf []int64) Polynomial {
	n := len(buf)
	for n > 0 && buf[n-1] == 0 {
		n--
	}
	if n == 0 {
		return Polynomial{}
	}
	return Polynomial{coeffs: buf[:n:n]}
}

// Get returns the coefficient of x^k, or 0 when k is negative or beyond the
// degree.
func (p Polynomial) Get(k int) int64 {
	if k < 0 || k >= len(p.coeffs) {
		return 0
	}
	return p.coeffs[k]
}

// Degree returns the highest exponent with a non-zero coefficient, or -1 for
// the zero polynomial.
func (p Polynomial) Degree() int {
	return len(p.coeffs) - 1
}

// IsZero reports whether p is the zero polynomial.
func (p Polynomial) IsZero() bool {
	return len(p.coeffs) == 0
}

// Coefficients returns a copy of the coefficients, index k holding the
// coefficient of x^k.
func (p Polynomial) Coefficients() []int64 {
	out := make([]int64, len(p.coeffs))
	copy(out, p.coeffs)
	return out
}

// Add returns p + q.
func (p Polynomial) Add(q Polynomial) Polynomial {
	n := max(len(p.coeffs), len(q.coeffs))
	buf := make([]int64, n)
	for k := 0; k < n; k++ {
		buf[k] = p.Get(k) + q.Get(k)
	}
	return newTrimmed(buf)
}

// Mul returns p * q by coefficient convolution.
func (p Polynomial) Mul(q Polynomial) Polynomial {
	if p.IsZero() || q.IsZero() {
		return Polynomial{}
	}
	buf := make([]int64, len(p.coeffs)+len(q.coeffs)-1)
	for i, a := range p.coeffs {
		if a == 0 {
			continue
		}
		for j, b := range q.coeffs {
			buf[i+j] += a * b
		}
	}
	return newTrimmed(buf)
}

// Scale returns k * p.
func (p Polynomial) Scale(k int64) Polynomial {
	if k == 0 || p.IsZero() {
		return Polynomial{}
	}
	buf := make([]int64, len(p.coeffs))
	for i, c := range p.coeffs {
		buf[i] = c * k
	}
	return newTrimmed(buf)
}

// Pow returns p^e using binary exponentiation. Pow(0) is 1 for every p,
// including the zero polynomial. A negative exponent is an ArithmeticError.
func (p Polynomial) Pow(e int) (Polynomial, error) {
	if e < 0 {
		return Polynomial{}, types.NewArithmeticError("negative exponent not supported")
	}
	if e == 0 {
		return Constant(1), nil
	}
	if e == 1 {
		return p, nil
	}

	base := p
	res := Constant(1)
	for k := e; k > 0; k >>= 1 {
		if k&1 == 1 {
			res = res.Mul(base)
		}
		if k > 1 {
			base = base.Mul(base)
		}
	}
	return res, nil
}

// Evaluate returns p(x).
func (p Polynomial) Evaluate(x float64) float64 {
	sum := 0.0
	xk := 1.0
	for _, c := range p.coeffs {
		sum += float64(c) * xk
		xk *= x
	}
	return sum
}

// Equal reports structural equality.
func (p Polynomial) Equal(q Polynomial) bool {
	if len(p.coeffs) != len(q.coeffs) {
		return false
	}
	for k, c := range p.coeffs {
		if q.coeffs[k] != c {
			return false
		}
	}
	return true
}

// String renders the canonical text form, highest exponent first, e.g.
// "3x^2 - x + 5". The zero polynomial renders as "0".
func (p Polynomial) String() string {
	d := p.Degree()
	if d < 0 {
		return "0"
	}

	var sb strings.Builder
	for k := d; k >= 0; k-- {
		c := p.coeffs[k]
		if c == 0 {
			continue
		}

		if sb.Len() == 0 {
			if c < 0 {
				sb.WriteByte('-')
			}
		} else if c < 0 {
			sb.WriteString(" - ")
		} else {
			sb.WriteString(" + ")
		}

		abs := strconv.FormatUint(absUint(c), 10)
		switch {
		case k == 0:
			sb.WriteString(abs)
		case k == 1:
			if abs != "1" {
				sb.WriteString(abs)
			}
			sb.WriteByte('x')
		default:
			if abs != "1" {
				sb.WriteString(abs)
			}
			sb.WriteString("x^")
			sb.WriteString(strconv.Itoa(k))
		}
	}
	return sb.String()
}

// absUint returns |c| without overflowing on math.MinInt64.
func absUint(c int64) uint64 {
	if c < 0 {
		return uint64(-(c + 1)) + 1
	}
	return uint64(c)
}
