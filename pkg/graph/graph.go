// Package graph samples polynomials for plotting.
package graph

import (
	"fmt"
	"math"
)

// Default sampling window used by the plotting front ends.
const (
	DefaultXMin    = -10.0
	DefaultXMax    = 10.0
	DefaultSamples = 400

	// MaxSamples bounds a single request.
	MaxSamples = 10000
)

// Evaluator is anything that can be evaluated at x. poly.Polynomial
// satisfies it.
type Evaluator interface {
	Evaluate(x float64) float64
}

// Point is one sampled (x, f(x)) pair.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sample evaluates f at n evenly spaced points from xMin to xMax inclusive.
func Sample(f Evaluator, xMin, xMax float64, n int) ([]Point, error) {
	if n < 2 {
		return nil, fmt.Errorf("need at least 2 samples, got %d", n)
	}
	if n > MaxSamples {
		return nil, fmt.Errorf("%d samples exceeds the maximum of %d", n, MaxSamples)
	}
	if !isFinite(xMin) || !isFinite(xMax) {
		return nil, fmt.Errorf("sample range must be finite")
	}
	if xMin >= xMax {
		return nil, fmt.Errorf("invalid range [%g, %g]", xMin, xMax)
	}

	step := (xMax - xMin) / float64(n-1)
	points := make([]Point, n)
	for i := range points {
		x := xMin + float64(i)*step
		if i == n-1 {
			x = xMax
		}
		points[i] = Point{X: x, Y: f.Evaluate(x)}
	}
	return points, nil
}

// Range returns the smallest and largest finite y among points. ok is false
// when there is no finite y.
func Range(points []Point) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, p := range points {
		if !isFinite(p.Y) {
			continue
		}
		lo = math.Min(lo, p.Y)
		hi = math.Max(hi, p.Y)
		ok = true
	}
	if !ok {
		return 0, 0, false
	}
	return lo, hi, true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
