// Package engine defines the accessor interface through which the bridge
// reads a running neuronal simulation: section geometry, tree structure,
// simulation time, sampled state variables, and synaptic connections.
//
// The real backing implementation wraps a live simulator process; the
// Snapshot implementation in this package backs the same interface with a
// static model file for the CLI and for tests.
package engine

import "errors"

// SectionID identifies a section within an engine's section arena.
type SectionID int

// ErrNoTrace is returned by Sample when the engine has no recording of the
// requested variable for a section.
var ErrNoTrace = errors.New("no trace recorded for variable")

// Terminal is one end of a synaptic connection: a normalized position along
// a section. Resolved is false when the endpoint has no concrete section
// (e.g. an artificial spike source), in which case the connection cannot be
// placed in 3D space.
type Terminal struct {
	Section  SectionID
	Pos      float64 // 0..1 fraction along the section
	Resolved bool
}

// Connection is a (source, target) pair of terminals
type Connection struct {
	Name   string
	Source Terminal
	Target Terminal
}

// Engine exposes the simulation state the bridge needs. All geometry
// accessors use the engine's native units (um for coordinates and lengths,
// ms for times).
type Engine interface {
	// Roots returns the parentless sections, one entry per cell root.
	Roots() []SectionID

	// Children returns the child sections of id, in the order the
	// simulator defines them.
	Children(id SectionID) []SectionID

	// Name returns the full hierarchical section name.
	Name(id SectionID) string

	// CellName returns the name of the cell the section belongs to.
	// For sections without an owning cell object this is the section name.
	CellName(id SectionID) string

	// PointCount returns the number of 3D points defined for the section.
	// May be zero until DefineShape is called.
	PointCount(id SectionID) int

	// Point returns the i-th 3D point and its diameter.
	Point(id SectionID, i int) (x, y, z, diam float64)

	// Arc returns the arc length from the section start to the i-th point.
	Arc(id SectionID, i int) float64

	// Length returns the section length.
	Length(id SectionID) float64

	// Diameter returns the section diameter at its midpoint.
	Diameter(id SectionID) float64

	// DefineShape asks the engine to generate 3D points for a section that
	// has none. Must be called before Point when PointCount is zero.
	DefineShape(id SectionID) error

	// Now returns the current simulation time in ms.
	Now() float64

	// TStop returns the configured end time of the simulation in ms.
	TStop() float64

	// Sample reads the value of a named state variable (e.g. "v") at a
	// normalized position along a section.
	Sample(variable string, id SectionID, pos float64) (float64, error)

	// Connections returns the synaptic connections of the model.
	Connections() []Connection
}
