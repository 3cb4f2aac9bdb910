package activity

import (
	"fmt"

	"github.com/nrnviz/blender-bridge/pkg/engine"
	"github.com/nrnviz/blender-bridge/pkg/model"
	"github.com/nrnviz/blender-bridge/pkg/morphology"
)

// Collector samples a group's variable from the engine at the group's
// granularity. One Collect call appends exactly one time point and exactly
// one value to every series the granularity produces, so every series stays
// as long as the group's time list.
type Collector struct {
	Engine engine.Engine
}

// NewCollector returns a collector reading from eng
func NewCollector(eng engine.Engine) *Collector {
	return &Collector{Engine: eng}
}

// MaybeCollect runs Collect if the group's collection period has elapsed,
// and advances the group's collection schedule.
func (c *Collector) MaybeCollect(g *Group) error {
	if !g.Due(c.Engine.Now()) {
		return nil
	}
	if err := c.Collect(g); err != nil {
		return err
	}
	g.advanceSchedule()
	return nil
}

// sample is one staged (name, value) pair; staging keeps a failed collection
// from leaving the group's series shorter than its time list
type sample struct {
	name  string
	value float64
}

// Collect samples the group once at the current simulation time. On error
// the group's accumulated state is left exactly as it was.
func (c *Collector) Collect(g *Group) error {
	var staged []sample
	var err error

	switch g.Options.ColorLevel {
	case model.GranularitySegment:
		staged, err = c.collectSegments(g)
	case model.GranularitySection:
		staged, err = c.collectSections(g, true)
	case model.GranularityCell:
		staged, err = c.collectSections(g, false)
	case model.GranularityGroup:
		staged, err = c.collectGroupMean(g)
	default:
		err = fmt.Errorf("unknown granularity %q", g.Options.ColorLevel)
	}
	if err != nil {
		return fmt.Errorf("group %q: %w", g.Name, err)
	}

	g.commit(c.Engine.Now(), staged)
	return nil
}

// collectSegments samples between every adjacent pair of 3D points of every
// section of every root. Segments are named <section>[<i>] with a 0-based
// index in point order.
func (c *Collector) collectSegments(g *Group) ([]sample, error) {
	eng := c.Engine
	variable := g.Options.Variable
	var staged []sample

	for _, root := range g.Roots() {
		err := morphology.Walk(eng, root, func(id engine.SectionID) error {
			count, err := c.pointCount(id)
			if err != nil {
				return err
			}

			name := model.ShortenName(eng.Name(id))
			length := eng.Length(id)

			for i := 1; i < count; i++ {
				pos := 0.5
				if length > 0 {
					pos = (eng.Arc(id, i-1) + eng.Arc(id, i)) / 2.0 / length
				}

				value, err := eng.Sample(variable, id, pos)
				if err != nil {
					return err
				}
				staged = append(staged, sample{
					name:  fmt.Sprintf("%s[%d]", name, i-1),
					value: value,
				})
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return staged, nil
}

// collectSections samples the midpoint of each root, recursing into children
// when recursive is set. Non-recursive collection names series by cell.
func (c *Collector) collectSections(g *Group, recursive bool) ([]sample, error) {
	eng := c.Engine
	variable := g.Options.Variable
	var staged []sample

	for _, root := range g.Roots() {
		if !recursive {
			value, err := eng.Sample(variable, root, 0.5)
			if err != nil {
				return nil, err
			}
			staged = append(staged, sample{name: eng.CellName(root), value: value})
			continue
		}

		err := morphology.Walk(eng, root, func(id engine.SectionID) error {
			value, err := eng.Sample(variable, id, 0.5)
			if err != nil {
				return err
			}
			staged = append(staged, sample{name: model.ShortenName(eng.Name(id)), value: value})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return staged, nil
}

// collectGroupMean samples each root's midpoint and stores the average as a
// single series named after the group
func (c *Collector) collectGroupMean(g *Group) ([]sample, error) {
	roots := g.Roots()
	if len(roots) == 0 {
		return nil, fmt.Errorf("group has no cells")
	}

	total := 0.0
	for _, root := range roots {
		value, err := c.Engine.Sample(g.Options.Variable, root, 0.5)
		if err != nil {
			return nil, err
		}
		total += value
	}

	return []sample{{
		name:  g.Name + "Group",
		value: total / float64(len(roots)),
	}}, nil
}

func (c *Collector) pointCount(id engine.SectionID) (int, error) {
	count := c.Engine.PointCount(id)
	if count > 0 {
		return count, nil
	}
	if err := c.Engine.DefineShape(id); err != nil {
		return 0, fmt.Errorf("defining shape for %q: %w", c.Engine.Name(id), err)
	}
	return c.Engine.PointCount(id), nil
}
