package morphology

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/nrnviz/blender-bridge/pkg/engine"
)

// CoordAlongSection returns the 3D coordinate at a 0..1 fraction along a
// section, interpolating linearly between the section's defined 3D points.
func CoordAlongSection(eng engine.Engine, id engine.SectionID, along float64) (r3.Vec, error) {
	count := eng.PointCount(id)
	if count == 0 {
		if err := eng.DefineShape(id); err != nil {
			return r3.Vec{}, fmt.Errorf("defining shape for %q: %w", eng.Name(id), err)
		}
		count = eng.PointCount(id)
	}
	if count == 0 {
		return r3.Vec{}, fmt.Errorf("section %q has no 3D points", eng.Name(id))
	}

	alongPoints := float64(count-1) * along
	start := int(alongPoints)
	frac := alongPoints - float64(start)

	x, y, z, _ := eng.Point(id, start)
	p := r3.Vec{X: x, Y: y, Z: z}
	if frac <= 0 || start+1 >= count {
		return p, nil
	}

	x2, y2, z2, _ := eng.Point(id, start+1)
	next := r3.Vec{X: x2, Y: y2, Z: z2}
	return r3.Add(p, r3.Scale(frac, r3.Sub(next, p))), nil
}
