package poly

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lemonberrylabs/polycalc/pkg/types"
)

func TestFactoriesTrim(t *testing.T) {
	tests := []struct {
		name   string
		p      Polynomial
		want   []int64
		degree int
	}{
		{"zero value", Polynomial{}, []int64{}, -1},
		{"constant zero", Constant(0), []int64{}, -1},
		{"constant", Constant(7), []int64{7}, 0},
		{"variable", Variable(), []int64{0, 1}, 1},
		{"trailing zeros", FromCoefficients([]int64{1, 2, 0, 0}), []int64{1, 2}, 1},
		{"all zeros", FromCoefficients([]int64{0, 0, 0}), []int64{}, -1},
		{"nil slice", FromCoefficients(nil), []int64{}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.p.Coefficients()); diff != "" {
				t.Errorf("coefficients mismatch (-want +got):\n%s", diff)
			}
			if got := tt.p.Degree(); got != tt.degree {
				t.Errorf("Degree() = %d, want %d", got, tt.degree)
			}
		})
	}
}

func TestFromCoefficientsCopiesInput(t *testing.T) {
	cs := []int64{1, 2, 3}
	p := FromCoefficients(cs)
	cs[0] = 99
	if p.Get(0) != 1 {
		t.Fatalf("polynomial changed with its source slice: %v", p)
	}

	out := p.Coefficients()
	out[1] = 42
	if p.Get(1) != 2 {
		t.Fatalf("polynomial changed through Coefficients(): %v", p)
	}
}

func TestGetOutOfRange(t *testing.T) {
	p := FromCoefficients([]int64{4, 5})
	for _, k := range []int{-5, -1, 2, 100} {
		if got := p.Get(k); got != 0 {
			t.Errorf("Get(%d) = %d, want 0", k, got)
		}
	}
	if got := p.Get(1); got != 5 {
		t.Errorf("Get(1) = %d, want 5", got)
	}
}

func TestAdd(t *testing.T) {
	p := FromCoefficients([]int64{1, 2, 3})
	q := FromCoefficients([]int64{-1, 0, -3})
	got := p.Add(q)
	if !got.Equal(FromCoefficients([]int64{0, 2})) {
		t.Fatalf("got %v, want 2x", got)
	}
	if got.Degree() != 1 {
		t.Fatalf("cancellation should trim, degree = %d", got.Degree())
	}
}

func TestAddDegreeBound(t *testing.T) {
	samples := samplePolynomials()
	for _, p := range samples {
		for _, q := range samples {
			sum := p.Add(q)
			if sum.Degree() > max(p.Degree(), q.Degree()) {
				t.Errorf("deg(%v + %v) = %d exceeds max(%d, %d)", p, q, sum.Degree(), p.Degree(), q.Degree())
			}
		}
	}
}

func TestMul(t *testing.T) {
	// (x + 1)(x - 1) = x^2 - 1
	p := FromCoefficients([]int64{1, 1})
	q := FromCoefficients([]int64{-1, 1})
	got := p.Mul(q)
	if diff := cmp.Diff([]int64{-1, 0, 1}, got.Coefficients()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestMulDegree(t *testing.T) {
	samples := samplePolynomials()
	for _, p := range samples {
		for _, q := range samples {
			prod := p.Mul(q)
			if p.IsZero() || q.IsZero() {
				if !prod.IsZero() {
					t.Errorf("%v * %v = %v, want 0", p, q, prod)
				}
				continue
			}
			if prod.Degree() != p.Degree()+q.Degree() {
				t.Errorf("deg(%v * %v) = %d, want %d", p, q, prod.Degree(), p.Degree()+q.Degree())
			}
		}
	}
}

func TestScale(t *testing.T) {
	p := FromCoefficients([]int64{1, -2, 3})
	if got := p.Scale(-2); !got.Equal(FromCoefficients([]int64{-2, 4, -6})) {
		t.Errorf("Scale(-2) = %v", got)
	}
	if got := p.Scale(0); !got.IsZero() {
		t.Errorf("Scale(0) = %v, want 0", got)
	}
}

func TestPow(t *testing.T) {
	xPlusOne := FromCoefficients([]int64{1, 1})

	got, err := xPlusOne.Pow(3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]int64{1, 3, 3, 1}, got.Coefficients()); diff != "" {
		t.Errorf("(x+1)^3 mismatch (-want +got):\n%s", diff)
	}

	zeroPow, err := Zero().Pow(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !zeroPow.Equal(Constant(1)) {
		t.Errorf("0^0 = %v, want 1", zeroPow)
	}
}

func TestPowNegativeExponent(t *testing.T) {
	_, err := Variable().Pow(-1)
	if !types.IsKind(err, types.KindArithmetic) {
		t.Fatalf("expected ArithmeticError, got %v", err)
	}
}

func TestPowMatchesRepeatedMultiplication(t *testing.T) {
	for _, p := range samplePolynomials() {
		naive := Constant(1)
		for e := 0; e <= 9; e++ {
			got, err := p.Pow(e)
			if err != nil {
				t.Fatalf("Pow(%d): %v", e, err)
			}
			if !got.Equal(naive) {
				t.Errorf("(%v)^%d = %v, want %v", p, e, got, naive)
			}
			naive = naive.Mul(p)
		}

		one, _ := p.Pow(1)
		if !one.Equal(p) {
			t.Errorf("(%v)^1 = %v", p, one)
		}
	}
}

func TestEvaluate(t *testing.T) {
	p := FromCoefficients([]int64{1, 2, 2}) // 2x^2 + 2x + 1
	tests := []struct {
		x    float64
		want float64
	}{
		{0, 1},
		{1, 5},
		{-1, 1},
		{0.5, 2.5},
		{-10, 181},
	}
	for _, tt := range tests {
		if got := p.Evaluate(tt.x); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("p(%v) = %v, want %v", tt.x, got, tt.want)
		}
	}
	if got := Zero().Evaluate(3); got != 0 {
		t.Errorf("0(3) = %v", got)
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		cs   []int64
		want string
	}{
		{nil, "0"},
		{[]int64{5}, "5"},
		{[]int64{-5}, "-5"},
		{[]int64{0, 1}, "x"},
		{[]int64{0, -1}, "-x"},
		{[]int64{1, 2, 2}, "2x^2 + 2x + 1"},
		{[]int64{5, -1, 3}, "3x^2 - x + 5"},
		{[]int64{0, 0, -1}, "-x^2"},
		{[]int64{-7, 0, 0, 1}, "x^3 - 7"},
		{[]int64{0, 4, 0, -1}, "-x^3 + 4x"},
		{[]int64{math.MinInt64}, "-9223372036854775808"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FromCoefficients(tt.cs).String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEqualIgnoresPadding(t *testing.T) {
	a := FromCoefficients([]int64{1, 2})
	b := FromCoefficients([]int64{1, 2, 0, 0, 0})
	if !a.Equal(b) || !b.Equal(a) {
		t.Fatal("padded polynomial should equal its trimmed form")
	}
	if a.Equal(FromCoefficients([]int64{1, 3})) {
		t.Fatal("different coefficients compared equal")
	}
	if !Zero().Equal(Constant(0)) {
		t.Fatal("zero polynomials should be equal")
	}
}

func TestOperandsNotMutated(t *testing.T) {
	p := FromCoefficients([]int64{1, 1})
	before := p.Coefficients()

	_ = p.Add(p)
	_ = p.Mul(p)
	_ = p.Scale(3)
	_, _ = p.Pow(4)

	if diff := cmp.Diff(before, p.Coefficients()); diff != "" {
		t.Errorf("operand mutated (-before +after):\n%s", diff)
	}
}

func samplePolynomials() []Polynomial {
	return []Polynomial{
		Zero(),
		Constant(3),
		Constant(-1),
		Variable(),
		FromCoefficients([]int64{1, 1}),
		FromCoefficients([]int64{-2, 0, 1}),
		FromCoefficients([]int64{0, 3, -1, 2}),
	}
}
