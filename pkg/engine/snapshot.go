package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// Trace is a recorded (times, values) pair for one state variable
type Trace struct {
	Times  []float64 `json:"times"`
	Values []float64 `json:"values"`
}

// SectionDef describes one section in a model snapshot file. Parent is the
// index of the parent section in the snapshot's section list, or -1 for a
// root. Points are [x, y, z, diam] quadruples.
type SectionDef struct {
	Name     string           `json:"name"`
	Cell     string           `json:"cell,omitempty"`
	Parent   int              `json:"parent"`
	Points   [][4]float64     `json:"points,omitempty"`
	Length   float64          `json:"length"`
	Diameter float64          `json:"diameter"`
	Traces   map[string]Trace `json:"traces,omitempty"`
}

// TerminalDef is a connection endpoint in a snapshot file. Section -1 marks
// an endpoint without a resolvable section.
type TerminalDef struct {
	Section int     `json:"section"`
	Pos     float64 `json:"pos"`
}

// ConnectionDef describes one synaptic connection in a snapshot file
type ConnectionDef struct {
	Name   string      `json:"name"`
	Source TerminalDef `json:"source"`
	Target TerminalDef `json:"target"`
}

// SnapshotDef is the on-disk model snapshot format
type SnapshotDef struct {
	TStop       float64         `json:"tstop"`
	Sections    []SectionDef    `json:"sections"`
	Connections []ConnectionDef `json:"connections,omitempty"`
}

// sectionNode is one arena entry. Children are indices into the arena, so
// the tree carries no pointers and sections can be shared freely across
// group membership views.
type sectionNode struct {
	def      SectionDef
	children []SectionID
}

// Snapshot implements Engine on top of a static model definition. It is used
// by the CLI (model snapshot files) and by tests. Time advances only through
// Step, and Sample reads the recorded traces at the current clock.
type Snapshot struct {
	nodes []sectionNode
	roots []SectionID
	cons  []Connection
	tstop float64
	now   float64
}

// NewSnapshot builds an engine from an in-memory snapshot definition
func NewSnapshot(def SnapshotDef) (*Snapshot, error) {
	s := &Snapshot{
		nodes: make([]sectionNode, len(def.Sections)),
		tstop: def.TStop,
	}

	for i, sec := range def.Sections {
		if sec.Parent >= len(def.Sections) || sec.Parent == i {
			return nil, fmt.Errorf("section %q: invalid parent index %d", sec.Name, sec.Parent)
		}
		s.nodes[i].def = sec
	}

	// Children in definition order gives deterministic traversal order
	for i, sec := range def.Sections {
		if sec.Parent < 0 {
			s.roots = append(s.roots, SectionID(i))
		} else {
			p := &s.nodes[sec.Parent]
			p.children = append(p.children, SectionID(i))
		}
	}

	for _, c := range def.Connections {
		s.cons = append(s.cons, Connection{
			Name:   c.Name,
			Source: s.terminal(c.Source),
			Target: s.terminal(c.Target),
		})
	}

	return s, nil
}

// LoadSnapshot reads a model snapshot from a JSON file
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var def SnapshotDef
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", path, err)
	}

	return NewSnapshot(def)
}

func (s *Snapshot) terminal(d TerminalDef) Terminal {
	if d.Section < 0 || d.Section >= len(s.nodes) {
		return Terminal{Resolved: false}
	}
	return Terminal{Section: SectionID(d.Section), Pos: d.Pos, Resolved: true}
}

func (s *Snapshot) Roots() []SectionID { return s.roots }

func (s *Snapshot) Children(id SectionID) []SectionID { return s.nodes[id].children }

func (s *Snapshot) Name(id SectionID) string { return s.nodes[id].def.Name }

func (s *Snapshot) CellName(id SectionID) string {
	if cell := s.nodes[id].def.Cell; cell != "" {
		return cell
	}
	return s.nodes[id].def.Name
}

func (s *Snapshot) PointCount(id SectionID) int { return len(s.nodes[id].def.Points) }

func (s *Snapshot) Point(id SectionID, i int) (x, y, z, diam float64) {
	p := s.nodes[id].def.Points[i]
	return p[0], p[1], p[2], p[3]
}

// Arc returns the cumulative distance along the section's points up to point i
func (s *Snapshot) Arc(id SectionID, i int) float64 {
	pts := s.nodes[id].def.Points
	arc := 0.0
	for k := 1; k <= i; k++ {
		a := r3.Vec{X: pts[k-1][0], Y: pts[k-1][1], Z: pts[k-1][2]}
		b := r3.Vec{X: pts[k][0], Y: pts[k][1], Z: pts[k][2]}
		arc += r3.Norm(r3.Sub(b, a))
	}
	return arc
}

func (s *Snapshot) Length(id SectionID) float64 { return s.nodes[id].def.Length }

func (s *Snapshot) Diameter(id SectionID) float64 { return s.nodes[id].def.Diameter }

// DefineShape generates a minimal two-point shape for a section that has no
// 3D points: a straight segment of the section's length along the x axis,
// starting at the parent's last point (or the origin for roots).
func (s *Snapshot) DefineShape(id SectionID) error {
	node := &s.nodes[id]
	if len(node.def.Points) > 0 {
		return nil
	}

	start := [3]float64{}
	if p := node.def.Parent; p >= 0 {
		if pts := s.nodes[p].def.Points; len(pts) > 0 {
			last := pts[len(pts)-1]
			start = [3]float64{last[0], last[1], last[2]}
		}
	}

	d := node.def.Diameter
	node.def.Points = [][4]float64{
		{start[0], start[1], start[2], d},
		{start[0] + node.def.Length, start[1], start[2], d},
	}
	return nil
}

func (s *Snapshot) Now() float64 { return s.now }

func (s *Snapshot) TStop() float64 { return s.tstop }

// Step advances the snapshot clock by dt ms and returns the new time
func (s *Snapshot) Step(dt float64) float64 {
	s.now += dt
	return s.now
}

// Reset rewinds the snapshot clock to zero
func (s *Snapshot) Reset() { s.now = 0 }

// Sample interpolates the recorded trace of a variable at the current clock.
// Snapshot traces are recorded per section, so the position argument selects
// no finer detail than the section itself.
func (s *Snapshot) Sample(variable string, id SectionID, pos float64) (float64, error) {
	trace, ok := s.nodes[id].def.Traces[variable]
	if !ok || len(trace.Times) == 0 {
		return 0, fmt.Errorf("section %q, variable %q: %w", s.nodes[id].def.Name, variable, ErrNoTrace)
	}
	return interpolate(trace, s.now), nil
}

func (s *Snapshot) Connections() []Connection { return s.cons }

// interpolate reads a trace at time t with linear interpolation, clamping to
// the first/last recorded value outside the recorded range
func interpolate(trace Trace, t float64) float64 {
	times, values := trace.Times, trace.Values

	i := sort.SearchFloat64s(times, t)
	if i == 0 {
		return values[0]
	}
	if i >= len(times) {
		return values[len(values)-1]
	}
	if times[i] == t {
		return values[i]
	}

	span := times[i] - times[i-1]
	if span == 0 {
		return values[i]
	}
	frac := (t - times[i-1]) / span
	return values[i-1] + frac*(values[i]-values[i-1])
}
