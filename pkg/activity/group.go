// Package activity accumulates per-compartment samples of a simulation
// variable for each visualization group, at the group's configured
// granularity and collection period.
package activity

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/nrnviz/blender-bridge/pkg/engine"
	"github.com/nrnviz/blender-bridge/pkg/model"
)

var validate = validator.New()

// Options are the per-group collection and display settings
type Options struct {
	CollectActivity    bool    `koanf:"collect_activity"`
	Variable           string  `koanf:"variable" validate:"required"`
	CollectionPeriod   float64 `koanf:"collection_period_ms" validate:"gt=0"`
	FramesPerMs        float64 `koanf:"frames_per_ms" validate:"gt=0"`
	SpherizeSomaIfDeqL bool    `koanf:"spherize_soma_if_deql"`

	Color                [3]float64        `koanf:"color"`
	InteractionLevel     model.Granularity `koanf:"interaction_level" validate:"oneof=Group Cell Section Segment"`
	ColorLevel           model.Granularity `koanf:"color_level" validate:"oneof=Group Cell Section Segment"`
	AsLines              bool              `koanf:"as_lines"`
	SegmentSubdivisions  int               `koanf:"segment_subdivisions" validate:"min=1"`
	CircularSubdivisions int               `koanf:"circular_subdivisions" validate:"min=4"`
	SmoothSections       bool              `koanf:"smooth_sections"`
}

// DefaultOptions returns the default group settings, with detail levels
// picked for the given cell count
func DefaultOptions(cellCount int) Options {
	level := model.DetailLevel(cellCount)
	return Options{
		CollectActivity:      true,
		Variable:             "v",
		CollectionPeriod:     1,
		FramesPerMs:          2,
		SpherizeSomaIfDeqL:   true,
		Color:                [3]float64{1, 1, 1},
		InteractionLevel:     level,
		ColorLevel:           level,
		SegmentSubdivisions:  3,
		CircularSubdivisions: 12,
		SmoothSections:       true,
	}
}

// Validate checks the option values and ranges
func (o *Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("invalid group options: %w", err)
	}
	return nil
}

// Group is one named collection of root sections sharing visualization
// settings and accumulated activity. The accumulated series keep insertion
// order so batches are sent deterministically.
//
// The collection loop appends samples while status handlers read them from
// other goroutines, so the mutable state sits behind a mutex. Name and
// Options are fixed at creation.
type Group struct {
	Name    string
	Options Options

	mu          sync.Mutex
	roots       []engine.SectionID
	times       []float64
	names       []string
	series      map[string][]float64
	nextCollect float64
}

// NewGroup creates a group with empty accumulated activity
func NewGroup(name string, roots []engine.SectionID, opts Options) *Group {
	g := &Group{Name: name, Options: opts, roots: roots}
	g.ClearActivity()
	return g
}

// Roots returns a copy of the group's root sections
func (g *Group) Roots() []engine.SectionID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]engine.SectionID(nil), g.roots...)
}

// RootCount returns the number of root sections in the group
func (g *Group) RootCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.roots)
}

// SetRoots replaces the group's root sections after the model is re-gathered
func (g *Group) SetRoots(roots []engine.SectionID) {
	g.mu.Lock()
	g.roots = append([]engine.SectionID(nil), roots...)
	g.mu.Unlock()
}

// ClearActivity discards all accumulated samples and rearms collection from
// time zero. Called at the start of each simulation run.
func (g *Group) ClearActivity() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.times = nil
	g.names = nil
	g.series = make(map[string][]float64)
	g.nextCollect = 0
}

// Due reports whether the group's next collection time has been reached
func (g *Group) Due(now float64) bool {
	if !g.Options.CollectActivity {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return now >= g.nextCollect-1e-9
}

// commit appends one time point and one staged value per series in a single
// critical section, so readers never observe a series shorter than the time
// list
func (g *Group) commit(now float64, staged []sample) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.times = append(g.times, now)
	for _, s := range staged {
		if _, ok := g.series[s.name]; !ok {
			g.names = append(g.names, s.name)
		}
		g.series[s.name] = append(g.series[s.name], s.value)
	}
}

// advanceSchedule moves the next collection time one period forward
func (g *Group) advanceSchedule() {
	g.mu.Lock()
	g.nextCollect += g.Options.CollectionPeriod
	g.mu.Unlock()
}

// SampleCount returns the number of collected time points
func (g *Group) SampleCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.times)
}

// Times returns a copy of the collected time points
func (g *Group) Times() []float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]float64(nil), g.times...)
}

// SeriesCount returns the number of accumulated named series
func (g *Group) SeriesCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.names)
}

// Series returns the accumulated series in insertion order. The snapshot is
// consistent: every series carries exactly one value per time point. The
// slices alias the group's storage; continued collection only appends past
// their length, it never rewrites collected elements.
func (g *Group) Series() []model.NamedSeries {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]model.NamedSeries, 0, len(g.names))
	for _, name := range g.names {
		out = append(out, model.NamedSeries{
			Name:     name,
			Times:    g.times,
			Activity: g.series[name],
		})
	}
	return out
}
