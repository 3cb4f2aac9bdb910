// Package bridge orchestrates a visualization session: it owns the cell
// groups and their accumulated activity, drives collection during a
// simulation run, and transmits morphology, connections, and reduced
// activity to the remote renderer.
package bridge

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nrnviz/blender-bridge/pkg/activity"
	"github.com/nrnviz/blender-bridge/pkg/engine"
	"github.com/nrnviz/blender-bridge/pkg/pubsub"
	"github.com/nrnviz/blender-bridge/pkg/renderer"
	"github.com/nrnviz/blender-bridge/pkg/simplify"
)

// DefaultGroupName is the group created when the caller defines none
const DefaultGroupName = "all"

// ConnectionGroupName names the renderer group holding synapse segments
const ConnectionGroupName = "Synapses"

// Options configure a bridge session
type Options struct {
	// Tolerance is the RDP simplification tolerance applied to every
	// collected series before transmission.
	Tolerance float64

	// BatchLimit caps the series count per set_segment_activities call.
	BatchLimit int

	// ReadyTimeout bounds the readiness wait before a transmission.
	ReadyTimeout time.Duration

	// PingInterval is the poll interval of the readiness wait.
	PingInterval time.Duration

	IncludeMorphology  bool
	IncludeConnections bool
	IncludeActivity    bool
	ColorUniqueNames   bool
}

// DefaultOptions returns the standard session settings
func DefaultOptions() Options {
	return Options{
		Tolerance:          simplify.DefaultTolerance,
		BatchLimit:         renderer.BatchLimit,
		ReadyTimeout:       10 * time.Second,
		PingInterval:       time.Second,
		IncludeMorphology:  true,
		IncludeConnections: true,
		IncludeActivity:    true,
		ColorUniqueNames:   true,
	}
}

// Bridge owns the groups, connections, and accumulated activity of one
// visualization session. Collection runs on the simulation's stepping
// goroutine while renderer dispatch drains on a background goroutine, so the
// group structures are guarded by a mutex.
type Bridge struct {
	eng       engine.Engine
	client    renderer.Client
	collector *activity.Collector
	opts      Options

	// publisher receives transmission progress events when set
	publisher pubsub.Publisher

	mu         sync.Mutex
	groupNames []string
	groups     map[string]*activity.Group
	cons       []engine.Connection
}

// New creates a bridge over an engine and a renderer client
func New(eng engine.Engine, client renderer.Client, opts Options) *Bridge {
	return &Bridge{
		eng:       eng,
		client:    client,
		collector: activity.NewCollector(eng),
		opts:      opts,
		groups:    make(map[string]*activity.Group),
	}
}

// SetPublisher routes transmission progress events to p
func (b *Bridge) SetPublisher(p pubsub.Publisher) { b.publisher = p }

// CreateGroup registers a named cell group. An existing group with the same
// name is replaced in place, keeping its position in the send order.
func (b *Bridge) CreateGroup(name string, roots []engine.SectionID, opts activity.Options) (*activity.Group, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("group %q: %w", name, err)
	}

	// Segment-level interaction is not supported by the renderer
	if opts.InteractionLevel == "Segment" {
		opts.InteractionLevel = "Section"
	}

	g := activity.NewGroup(name, roots, opts)

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.groups[name]; !exists {
		b.groupNames = append(b.groupNames, name)
	}
	b.groups[name] = g
	return g, nil
}

// Group returns a registered group by name
func (b *Bridge) Group(name string) (*activity.Group, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	g, ok := b.groups[name]
	return g, ok
}

// Groups returns the registered groups in creation order
func (b *Bridge) Groups() []*activity.Group {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*activity.Group, 0, len(b.groupNames))
	for _, name := range b.groupNames {
		out = append(out, b.groups[name])
	}
	return out
}

// SetupDefaultGroup creates (or refreshes) the "all" group containing every
// root section the engine reports
func (b *Bridge) SetupDefaultGroup() (*activity.Group, error) {
	roots := b.eng.Roots()

	b.mu.Lock()
	existing, ok := b.groups[DefaultGroupName]
	b.mu.Unlock()

	if ok {
		// Re-gather after model changes: new roots, fresh activity
		existing.SetRoots(roots)
		existing.ClearActivity()
		return existing, nil
	}

	return b.CreateGroup(DefaultGroupName, roots, activity.DefaultOptions(len(roots)))
}

// SetupDefaultConnections registers every connection the engine reports
func (b *Bridge) SetupDefaultConnections() {
	cons := b.eng.Connections()
	b.mu.Lock()
	b.cons = cons
	b.mu.Unlock()
}

// Refresh rebuilds the default group and connection list. Call it after the
// model changes (sections added or modified).
func (b *Bridge) Refresh() error {
	if _, err := b.SetupDefaultGroup(); err != nil {
		return err
	}
	b.SetupDefaultConnections()
	return nil
}

// setupDefaultsIfNeeded creates the default group and connections when the
// caller has not defined any
func (b *Bridge) setupDefaultsIfNeeded() error {
	b.mu.Lock()
	noGroups := len(b.groupNames) == 0
	noCons := len(b.cons) == 0
	b.mu.Unlock()

	if noGroups && b.opts.IncludeMorphology {
		if _, err := b.SetupDefaultGroup(); err != nil {
			return err
		}
	}
	if noCons && b.opts.IncludeConnections {
		b.SetupDefaultConnections()
	}
	return nil
}

// CollectTick samples every group whose collection period has elapsed. It is
// called by the simulation loop after each step. A failing group does not
// stop collection for the others.
func (b *Bridge) CollectTick() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	for _, name := range b.groupNames {
		if err := b.collector.MaybeCollect(b.groups[name]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ClearActivity discards the accumulated activity of every group. Hook this
// to the engine's run initialization so each run starts clean.
func (b *Bridge) ClearActivity() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, g := range b.groups {
		g.ClearActivity()
	}
}

// NumFrames returns the renderer animation length: the simulation stop time
// times the highest frames-per-ms across groups
func (b *Bridge) NumFrames() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	maxFrames := 0.0
	for _, g := range b.groups {
		if g.Options.FramesPerMs > maxFrames {
			maxFrames = g.Options.FramesPerMs
		}
	}
	return int(math.Ceil(maxFrames * b.eng.TStop()))
}

// newSessionID returns the ID that tags one transmission session in logs and
// progress events
func newSessionID() string { return uuid.New().String() }

func (b *Bridge) publish(eventType string, data any) {
	if b.publisher == nil {
		return
	}
	// Progress events are advisory; a full subscriber must not stall a send
	_ = b.publisher.Publish(pubsub.TopicTransmission, eventType, data)
}
