package morphology

import (
	"fmt"

	"github.com/nrnviz/blender-bridge/pkg/engine"
	"github.com/nrnviz/blender-bridge/pkg/model"
)

// Gatherer extracts coordinate/radius records from an engine's section trees
type Gatherer struct {
	Engine       engine.Engine
	SpherizeSoma bool // render near-spherical soma sections as spheres
	SphereSteps  int  // intermediate sphere points, DefaultSphereSteps if zero
}

// NewGatherer returns a gatherer with soma spherization enabled
func NewGatherer(eng engine.Engine) *Gatherer {
	return &Gatherer{
		Engine:       eng,
		SpherizeSoma: true,
		SphereSteps:  DefaultSphereSteps,
	}
}

// GroupCells gathers the records of every cell in a group, keyed by cell
// name. A cell reporting multiple disjoint roots under the same name has its
// records concatenated, not overwritten.
func (g *Gatherer) GroupCells(roots []engine.SectionID) (map[string][]model.SectionRecord, error) {
	cells := make(map[string][]model.SectionRecord, len(roots))

	for _, root := range roots {
		records, err := g.CellRecords(root)
		if err != nil {
			return nil, err
		}

		name := g.Engine.CellName(root)
		cells[name] = append(cells[name], records...)
	}

	return cells, nil
}

// CellRecords walks the subtree of one root and returns a flat pre-order
// list of section records.
func (g *Gatherer) CellRecords(root engine.SectionID) ([]model.SectionRecord, error) {
	var records []model.SectionRecord

	err := Walk(g.Engine, root, func(id engine.SectionID) error {
		rec, err := g.SectionRecord(id)
		if err != nil {
			return err
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

// SectionRecord extracts one section's interleaved coordinates and radii,
// asking the engine to generate a shape first if the section has no 3D
// points yet.
func (g *Gatherer) SectionRecord(id engine.SectionID) (model.SectionRecord, error) {
	eng := g.Engine
	name := eng.Name(id)

	count, err := g.pointCount(id)
	if err != nil {
		return model.SectionRecord{}, err
	}

	rec := model.SectionRecord{
		Name:   model.ShortenName(name),
		Coords: make([]float64, count*3),
		Radii:  make([]float64, count),
	}
	for i := 0; i < count; i++ {
		x, y, z, diam := eng.Point(id, i)
		rec.Coords[i*3] = x
		rec.Coords[i*3+1] = y
		rec.Coords[i*3+2] = z
		rec.Radii[i] = diam / 2.0
	}

	if g.SpherizeSoma && ShouldSpherize(name, eng.Length(id), eng.Diameter(id)) {
		Spherize(&rec, eng.Length(id), g.SphereSteps)
	}

	return rec, nil
}

// pointCount returns the section's 3D point count, triggering on-demand
// shape generation when the engine reports none
func (g *Gatherer) pointCount(id engine.SectionID) (int, error) {
	count := g.Engine.PointCount(id)
	if count > 0 {
		return count, nil
	}

	if err := g.Engine.DefineShape(id); err != nil {
		return 0, fmt.Errorf("defining shape for %q: %w", g.Engine.Name(id), err)
	}
	return g.Engine.PointCount(id), nil
}
