package simplify

import (
	"math"
	"reflect"
	"testing"
	"time"
)

func TestRDPShortSeries(t *testing.T) {
	tests := []struct {
		name   string
		points []Point
	}{
		{"Empty", nil},
		{"Single Point", []Point{{0, 1}}},
		{"Two Points", []Point{{0, 1}, {1, 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RDP(tt.points, 0.5)
			if len(got) != len(tt.points) {
				t.Fatalf("RDP() returned %d points, want %d", len(got), len(tt.points))
			}
			for i := range got {
				if got[i] != tt.points[i] {
					t.Errorf("RDP()[%d] = %v, want %v", i, got[i], tt.points[i])
				}
			}
		})
	}
}

func TestRDPZeroToleranceKeepsAll(t *testing.T) {
	points := []Point{{0, 0}, {1, 3}, {2, -1}, {3, 5}, {4, 0}}

	got := RDP(points, 0)
	if !reflect.DeepEqual(got, points) {
		t.Errorf("RDP(points, 0) = %v, want original %v", got, points)
	}
}

func TestRDPFlatSeriesZeroTolerance(t *testing.T) {
	// A constant resting-voltage trace is exactly collinear: every interior
	// point sits on the chord, so even zero tolerance collapses it to the
	// endpoints instead of splitting forever.
	flat := []Point{{0, -65}, {1, -65}, {2, -65}, {3, -65}, {4, -65}}
	want := []Point{{0, -65}, {4, -65}}

	for _, epsilon := range []float64{0, -1, 0.32} {
		done := make(chan []Point, 1)
		go func() { done <- RDP(flat, epsilon) }()

		select {
		case got := <-done:
			if !reflect.DeepEqual(got, want) {
				t.Errorf("RDP(flat, %g) = %v, want %v", epsilon, got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("RDP(flat, %g) did not return", epsilon)
		}
	}
}

func TestRDPCollinearSegmentZeroTolerance(t *testing.T) {
	// Mixed series: the collinear run collapses, the genuine corners survive
	points := []Point{{0, 0}, {1, 0}, {2, 0}, {3, 0}, {4, 10}, {5, 0}}

	got := RDP(points, 0)
	want := []Point{{0, 0}, {3, 0}, {4, 10}, {5, 0}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RDP(points, 0) = %v, want %v", got, want)
	}
}

func TestRDPInfiniteToleranceKeepsEndpoints(t *testing.T) {
	points := []Point{{0, 0}, {1, 100}, {2, -50}, {3, 80}, {4, 4}}

	got := RDP(points, math.Inf(1))
	want := []Point{{0, 0}, {4, 4}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RDP(points, +Inf) = %v, want %v", got, want)
	}
}

func TestRDPEndpointsAlwaysRetained(t *testing.T) {
	points := []Point{{0, 2}, {1, 9}, {2, 1}, {3, 7}, {4, 4}, {5, 0}, {6, 6}}

	for _, epsilon := range []float64{0, 0.1, 0.32, 1, 5, 100} {
		got := RDP(points, epsilon)
		if len(got) == 0 {
			t.Fatalf("RDP(points, %g) returned empty result", epsilon)
		}
		if got[0] != points[0] {
			t.Errorf("RDP(points, %g) first = %v, want %v", epsilon, got[0], points[0])
		}
		if got[len(got)-1] != points[len(points)-1] {
			t.Errorf("RDP(points, %g) last = %v, want %v", epsilon, got[len(got)-1], points[len(points)-1])
		}
	}
}

func TestRDPLinearSeriesCollapses(t *testing.T) {
	// A perfectly linear ramp reduces to its endpoints at the default tolerance
	points := []Point{{0, 0}, {1, 1}, {2, 2}, {3, 3}, {4, 4}}

	got := RDP(points, DefaultTolerance)
	want := []Point{{0, 0}, {4, 4}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RDP(linear, %g) = %v, want %v", DefaultTolerance, got, want)
	}
}

func TestRDPPreservesSpike(t *testing.T) {
	// Flat baseline with one action-potential-like spike: the spike must survive
	points := make([]Point, 0, 101)
	for i := 0; i <= 100; i++ {
		y := -65.0
		if i == 50 {
			y = 40.0
		}
		points = append(points, Point{X: float64(i), Y: y})
	}

	got := RDP(points, DefaultTolerance)

	found := false
	for _, p := range got {
		if p.X == 50 && p.Y == 40 {
			found = true
		}
	}
	if !found {
		t.Errorf("RDP() dropped the spike point, kept %d points: %v", len(got), got)
	}
	if len(got) >= len(points) {
		t.Errorf("RDP() kept %d of %d points, expected reduction", len(got), len(points))
	}
}

func TestRDPCoincidentEndpoints(t *testing.T) {
	// Degenerate chord: start == end, distance falls back to point distance
	points := []Point{{0, 0}, {1, 10}, {0, 0}}

	got := RDP(points, 1)
	want := []Point{{0, 0}, {1, 10}, {0, 0}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RDP() = %v, want %v", got, want)
	}

	got = RDP(points, 100)
	want = []Point{{0, 0}, {0, 0}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RDP() with large tolerance = %v, want %v", got, want)
	}
}

func TestSeries(t *testing.T) {
	times := []float64{0, 1, 2, 3, 4}
	values := []float64{0, 1, 2, 3, 4}

	rtimes, rvalues := Series(times, values, DefaultTolerance)

	if !reflect.DeepEqual(rtimes, []float64{0, 4}) {
		t.Errorf("Series() times = %v, want [0 4]", rtimes)
	}
	if !reflect.DeepEqual(rvalues, []float64{0, 4}) {
		t.Errorf("Series() values = %v, want [0 4]", rvalues)
	}
}

func TestRDPMatchesRecursiveReference(t *testing.T) {
	// The stack-based implementation must agree with the textbook recursive form
	points := []Point{
		{0, -65}, {1, -64.8}, {2, -60}, {3, 20}, {4, 35},
		{5, -10}, {6, -70}, {7, -68}, {8, -66}, {9, -65.2}, {10, -65},
	}

	for _, epsilon := range []float64{0.1, 0.32, 1, 5} {
		got := RDP(points, epsilon)
		want := recursiveRDP(points, epsilon)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("RDP(points, %g) = %v, want %v", epsilon, got, want)
		}
	}
}

func recursiveRDP(points []Point, epsilon float64) []Point {
	if len(points) < 3 {
		return append([]Point(nil), points...)
	}

	index := 0
	dmax := 0.0
	for i := 1; i < len(points)-1; i++ {
		if d := pointLineDistance(points[i], points[0], points[len(points)-1]); d > dmax {
			index = i
			dmax = d
		}
	}

	if index > 0 && dmax >= epsilon {
		left := recursiveRDP(points[:index+1], epsilon)
		right := recursiveRDP(points[index:], epsilon)
		return append(left[:len(left)-1], right...)
	}
	return []Point{points[0], points[len(points)-1]}
}
