// Package simplify reduces sampled time series with the Ramer-Douglas-Peucker
// algorithm before they are shipped to the renderer. Simulations routinely
// produce tens of thousands of samples per compartment; most of them are
// co-linear and carry no visible information.
package simplify

import "math"

// DefaultTolerance is the default maximum deviation (in the units of the
// sampled variable, e.g. mV) a removed point may have from the simplified
// curve.
const DefaultTolerance = 0.32

// Point is a single (x, y) sample of a curve
type Point struct {
	X float64
	Y float64
}

// RDP reduces an ordered series of points to a subsequence that preserves the
// shape of the curve within epsilon. The first and last points are always
// retained. Series with fewer than three points are returned as a copy,
// unchanged.
//
// The split points are processed with an explicit stack rather than
// recursion, so adversarial inputs cannot exhaust the call stack.
func RDP(points []Point, epsilon float64) []Point {
	if len(points) < 3 {
		return append([]Point(nil), points...)
	}

	keep := make([]bool, len(points))
	keep[0] = true
	keep[len(points)-1] = true

	type span struct{ first, last int }
	stack := []span{{0, len(points) - 1}}

	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if s.last-s.first < 2 {
			continue
		}

		// Find the interior point farthest from the chord first..last
		index := s.first
		dmax := 0.0
		for i := s.first + 1; i < s.last; i++ {
			if d := pointLineDistance(points[i], points[s.first], points[s.last]); d > dmax {
				index = i
				dmax = d
			}
		}

		// Split only when the farthest point is strictly interior: an
		// exactly collinear span has no such point and collapses to its
		// endpoints even at zero tolerance.
		if index > s.first && dmax >= epsilon {
			keep[index] = true
			stack = append(stack, span{s.first, index}, span{index, s.last})
		}
	}

	result := make([]Point, 0, len(points))
	for i, p := range points {
		if keep[i] {
			result = append(result, p)
		}
	}
	return result
}

// Series reduces a (times, values) pair with RDP and returns the reduced
// pair. The two slices must be the same length.
func Series(times, values []float64, epsilon float64) ([]float64, []float64) {
	points := make([]Point, len(times))
	for i := range times {
		points[i] = Point{X: times[i], Y: values[i]}
	}

	reduced := RDP(points, epsilon)

	rtimes := make([]float64, len(reduced))
	rvalues := make([]float64, len(reduced))
	for i, p := range reduced {
		rtimes[i] = p.X
		rvalues[i] = p.Y
	}
	return rtimes, rvalues
}

// pointLineDistance returns the perpendicular distance from p to the line
// through start and end. When start and end coincide the line is degenerate
// and the plain Euclidean distance to start is used instead.
func pointLineDistance(p, start, end Point) float64 {
	if start == end {
		return math.Hypot(p.X-start.X, p.Y-start.Y)
	}

	n := math.Abs((end.X-start.X)*(start.Y-p.Y) - (start.X-p.X)*(end.Y-start.Y))
	d := math.Hypot(end.X-start.X, end.Y-start.Y)
	return n / d
}
