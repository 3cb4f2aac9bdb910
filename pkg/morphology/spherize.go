package morphology

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/nrnviz/blender-bridge/pkg/model"
)

// DefaultSphereSteps is the number of intermediate points inserted when a
// section is rendered as a sphere. More steps give a smoother sphere at the
// cost of more polygons at the renderer.
const DefaultSphereSteps = 7

// SpherizeThreshold is the maximum |diameter - length| difference (um) for a
// soma section to be treated as a sphere.
const SpherizeThreshold = 0.1

// ShouldSpherize reports whether a section should be rendered as a sphere:
// its name contains "soma" (case-insensitive) and its length and diameter
// are approximately equal.
func ShouldSpherize(name string, length, diameter float64) bool {
	return strings.Contains(strings.ToLower(name), "soma") &&
		math.Abs(diameter-length) < SpherizeThreshold
}

// Spherize rewrites a cylindrical section record into a sphere approximation
// spanning the section length: the intermediate points are collapsed, steps
// evenly spaced points with spherical cross-section radii are inserted along
// the chord, and both boundary radii are forced to zero so the renderer
// closes the caps.
//
// Degenerate geometry (zero length, fewer than two points, or a step that
// would fall outside the sphere and produce a NaN radius) leaves the record
// untouched and returns false, so the section falls back to the cylinder
// path.
func Spherize(rec *model.SectionRecord, length float64, steps int) bool {
	if steps <= 0 {
		steps = DefaultSphereSteps
	}
	n := rec.PointCount()
	if n < 2 || length <= 0 {
		return false
	}

	first := r3.Vec{X: rec.Coords[0], Y: rec.Coords[1], Z: rec.Coords[2]}
	last := r3.Vec{X: rec.Coords[3*(n-1)], Y: rec.Coords[3*(n-1)+1], Z: rec.Coords[3*(n-1)+2]}
	chord := r3.Sub(last, first)
	radius := rec.Radii[0]

	// Compute all intermediate radii up front; bail out before mutating the
	// record if any step would be numerically invalid.
	stepSize := length / float64(steps+1)
	stepRadii := make([]float64, steps)
	stepCoords := make([]r3.Vec, steps)
	for s := 0; s < steps; s++ {
		distFromStart := stepSize * float64(s+1)
		distToCenter := math.Abs(radius - distFromStart)
		sq := radius*radius - distToCenter*distToCenter
		if sq < 0 {
			return false
		}
		stepRadii[s] = math.Sqrt(sq)
		stepCoords[s] = r3.Add(first, r3.Scale(distFromStart/length, chord))
	}

	coords := make([]float64, 0, (steps+2)*3)
	radii := make([]float64, 0, steps+2)

	coords = append(coords, first.X, first.Y, first.Z)
	radii = append(radii, 0)
	for s := 0; s < steps; s++ {
		coords = append(coords, stepCoords[s].X, stepCoords[s].Y, stepCoords[s].Z)
		radii = append(radii, stepRadii[s])
	}
	coords = append(coords, last.X, last.Y, last.Z)
	radii = append(radii, 0)

	rec.Coords = coords
	rec.Radii = radii
	rec.Spherical = true
	return true
}
