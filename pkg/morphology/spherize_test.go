package morphology

import (
	"math"
	"testing"

	"github.com/nrnviz/blender-bridge/pkg/model"
)

func sphereCandidate() model.SectionRecord {
	// Cylinder with intermediate points from (0,0,0) to (10,0,0), radius 5
	return model.SectionRecord{
		Name:   "Cell[0].soma",
		Coords: []float64{0, 0, 0, 3, 0, 0, 7, 0, 0, 10, 0, 0},
		Radii:  []float64{5, 5, 5, 5},
	}
}

func TestShouldSpherize(t *testing.T) {
	tests := []struct {
		name     string
		section  string
		length   float64
		diameter float64
		want     bool
	}{
		{"Soma Equal Dims", "Cell[0].soma", 10, 10, true},
		{"Soma Within Threshold", "Cell[0].soma", 10, 10.05, true},
		{"Soma Uppercase", "Cell[0].SOMA", 10, 10, true},
		{"Soma Outside Threshold", "Cell[0].soma", 10, 10.2, false},
		{"Thin Soma", "soma", 10, 2, false},
		{"Dendrite Equal Dims", "Cell[0].dend", 10, 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldSpherize(tt.section, tt.length, tt.diameter); got != tt.want {
				t.Errorf("ShouldSpherize(%q, %g, %g) = %v, want %v",
					tt.section, tt.length, tt.diameter, got, tt.want)
			}
		})
	}
}

func TestSpherize(t *testing.T) {
	rec := sphereCandidate()

	if !Spherize(&rec, 10, DefaultSphereSteps) {
		t.Fatal("Spherize() = false, want true")
	}

	if !rec.Spherical {
		t.Error("record not marked spherical")
	}
	if got := rec.PointCount(); got != DefaultSphereSteps+2 {
		t.Errorf("point count = %d, want %d", got, DefaultSphereSteps+2)
	}
	if len(rec.Radii) != DefaultSphereSteps+2 {
		t.Fatalf("radii count = %d, want %d", len(rec.Radii), DefaultSphereSteps+2)
	}

	// Boundary caps are closed
	if rec.Radii[0] != 0 || rec.Radii[len(rec.Radii)-1] != 0 {
		t.Errorf("boundary radii = %g, %g, want 0, 0", rec.Radii[0], rec.Radii[len(rec.Radii)-1])
	}

	// Intermediate points follow the chord and carry spherical cross-sections
	length, radius := 10.0, 5.0
	stepSize := length / float64(DefaultSphereSteps+1)
	for s := 0; s < DefaultSphereSteps; s++ {
		dist := stepSize * float64(s+1)
		wantR := math.Sqrt(radius*radius - (radius-dist)*(radius-dist))
		if got := rec.Radii[s+1]; math.Abs(got-wantR) > 1e-9 {
			t.Errorf("radius[%d] = %g, want %g", s+1, got, wantR)
		}
		if got := rec.Coords[(s+1)*3]; math.Abs(got-dist) > 1e-9 {
			t.Errorf("x[%d] = %g, want %g", s+1, got, dist)
		}
		if rec.Radii[s+1] < 0 || math.IsNaN(rec.Radii[s+1]) {
			t.Errorf("radius[%d] = %g, invalid", s+1, rec.Radii[s+1])
		}
	}

	// The midpoint cross-section equals the sphere radius
	mid := (len(rec.Radii) - 1) / 2
	if got := rec.Radii[mid]; math.Abs(got-radius) > 1e-9 {
		t.Errorf("midpoint radius = %g, want %g", got, radius)
	}
}

func TestSpherizeDegenerateGeometry(t *testing.T) {
	tests := []struct {
		name   string
		rec    model.SectionRecord
		length float64
	}{
		{
			name:   "Single Point",
			rec:    model.SectionRecord{Coords: []float64{0, 0, 0}, Radii: []float64{5}},
			length: 10,
		},
		{
			name:   "Zero Length",
			rec:    sphereCandidate(),
			length: 0,
		},
		{
			// Radius far smaller than length: step offsets leave the sphere,
			// sqrt would go negative
			name: "Radius Outside Sphere",
			rec: model.SectionRecord{
				Coords: []float64{0, 0, 0, 10, 0, 0},
				Radii:  []float64{0.5, 0.5},
			},
			length: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := model.SectionRecord{
				Coords: append([]float64(nil), tt.rec.Coords...),
				Radii:  append([]float64(nil), tt.rec.Radii...),
			}

			if Spherize(&tt.rec, tt.length, DefaultSphereSteps) {
				t.Fatal("Spherize() = true, want false for degenerate geometry")
			}
			if tt.rec.Spherical {
				t.Error("degenerate record marked spherical")
			}
			for i := range before.Coords {
				if tt.rec.Coords[i] != before.Coords[i] {
					t.Fatal("Spherize() mutated coords despite failing")
				}
			}
			for i := range before.Radii {
				if tt.rec.Radii[i] != before.Radii[i] {
					t.Fatal("Spherize() mutated radii despite failing")
				}
			}
			for _, r := range tt.rec.Radii {
				if math.IsNaN(r) {
					t.Error("Spherize() produced NaN radius")
				}
			}
		})
	}
}
