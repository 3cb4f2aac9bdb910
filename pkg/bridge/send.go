package bridge

import (
	"context"
	"fmt"

	"github.com/nrnviz/blender-bridge/pkg/activity"
	"github.com/nrnviz/blender-bridge/pkg/engine"
	"github.com/nrnviz/blender-bridge/pkg/logging"
	"github.com/nrnviz/blender-bridge/pkg/model"
	"github.com/nrnviz/blender-bridge/pkg/morphology"
	"github.com/nrnviz/blender-bridge/pkg/pubsub"
	"github.com/nrnviz/blender-bridge/pkg/renderer"
	"github.com/nrnviz/blender-bridge/pkg/simplify"
)

// SendScene transmits the whole session to the renderer and finalizes the
// scene: clear, morphology, connections, activity, then linking, framing,
// and coloring. It blocks until the renderer is ready or the ready timeout
// expires, and until every enqueued call has been dispatched.
func (b *Bridge) SendScene(ctx context.Context) error {
	session := newSessionID()
	logging.Info("starting transmission", "session", session)
	b.publish("session_started", pubsub.TransmissionStatus{State: "waiting", Session: session})

	if err := renderer.WaitReady(ctx, b.client, b.opts.ReadyTimeout, b.opts.PingInterval); err != nil {
		b.publish("session_failed", pubsub.TransmissionStatus{State: "not_ready", Session: session})
		return err
	}

	if err := b.SendModel(ctx); err != nil {
		b.publish("session_failed", pubsub.TransmissionStatus{State: "failed", Session: session})
		return err
	}

	if err := b.client.Enqueue(renderer.MethodLinkObjects); err != nil {
		return err
	}
	if err := b.client.Enqueue(renderer.MethodShowFullScene); err != nil {
		return err
	}
	if b.opts.ColorUniqueNames {
		if err := b.client.Enqueue(renderer.MethodColorByUniqueMaterials); err != nil {
			return err
		}
	}
	if err := b.client.Call(ctx, renderer.MethodSetRenderParams, nil, 0, b.NumFrames()); err != nil {
		return err
	}

	// Surface any asynchronous dispatch failure to the caller
	if err := b.client.Flush(ctx); err != nil {
		b.publish("session_failed", pubsub.TransmissionStatus{State: "failed", Session: session})
		return err
	}

	logging.Info("transmission complete", "session", session)
	b.publish("session_complete", pubsub.TransmissionStatus{State: "complete", Session: session})
	return nil
}

// SendModel clears the remote scene and transmits morphology, connections,
// and activity for every group, honoring the include flags.
func (b *Bridge) SendModel(ctx context.Context) error {
	if err := b.client.Ping(ctx); err != nil {
		return fmt.Errorf("renderer unreachable: %w", err)
	}

	if err := b.setupDefaultsIfNeeded(); err != nil {
		return err
	}

	if err := b.client.Enqueue(renderer.MethodClear); err != nil {
		return err
	}

	if b.opts.IncludeMorphology {
		if err := b.sendMorphology(); err != nil {
			return err
		}
	}
	if b.opts.IncludeConnections {
		if err := b.sendConnections(); err != nil {
			return err
		}
	}
	if b.opts.IncludeActivity {
		if err := b.sendActivity(); err != nil {
			return err
		}
	}
	return nil
}

// sendMorphology gathers and transmits the coordinate records of every group
func (b *Bridge) sendMorphology() error {
	for _, g := range b.Groups() {
		record, err := b.gatherGroup(g)
		if err != nil {
			return fmt.Errorf("gathering group %q: %w", g.Name, err)
		}

		if err := b.client.Enqueue(renderer.MethodVisualizeGroup, record); err != nil {
			return err
		}
		b.publish("group_sent", pubsub.TransmissionStatus{State: "morphology", Group: g.Name})
	}
	return nil
}

// gatherGroup walks a group's section trees into a renderer group record
func (b *Bridge) gatherGroup(g *activity.Group) (model.GroupRecord, error) {
	gatherer := morphology.NewGatherer(b.eng)
	gatherer.SpherizeSoma = g.Options.SpherizeSomaIfDeqL

	cells, err := gatherer.GroupCells(g.Roots())
	if err != nil {
		return model.GroupRecord{}, err
	}

	return model.GroupRecord{
		Name:                 g.Name,
		Color:                g.Options.Color,
		InteractionLevel:     g.Options.InteractionLevel,
		ColorLevel:           g.Options.ColorLevel,
		AsLines:              g.Options.AsLines,
		SegmentSubdivisions:  g.Options.SegmentSubdivisions,
		CircularSubdivisions: g.Options.CircularSubdivisions,
		SmoothSections:       g.Options.SmoothSections,
		Cells:                cells,
	}, nil
}

// sendConnections resolves the 3D endpoints of every connection and
// transmits them as two-point segments. Connections without resolvable
// endpoints on both sides are not visualizable and are skipped.
func (b *Bridge) sendConnections() error {
	b.mu.Lock()
	cons := append([]engine.Connection(nil), b.cons...)
	b.mu.Unlock()

	cells := make(map[string][]model.SectionRecord, len(cons))
	for i, con := range cons {
		rec, ok := b.connectionRecord(i, con)
		if !ok {
			logging.Debug("skipping connection without 3D anchors", "name", rec.Name)
			continue
		}
		cells[rec.Name] = []model.SectionRecord{rec}
	}

	record := model.GroupRecord{
		Name:                 ConnectionGroupName,
		Color:                [3]float64{1, 1, 0},
		InteractionLevel:     model.GranularityGroup,
		ColorLevel:           model.GranularityGroup,
		SegmentSubdivisions:  1,
		CircularSubdivisions: 4,
		Cells:                cells,
	}
	return b.client.Enqueue(renderer.MethodCreateCons, record)
}

// connectionRecord builds a two-point segment record for one connection
func (b *Bridge) connectionRecord(i int, con engine.Connection) (model.SectionRecord, bool) {
	name := con.Name
	if name == "" {
		name = fmt.Sprintf("NetCon[%d]", i)
	}
	rec := model.SectionRecord{Name: name}

	if !con.Source.Resolved || !con.Target.Resolved {
		return rec, false
	}

	src, err := morphology.CoordAlongSection(b.eng, con.Source.Section, con.Source.Pos)
	if err != nil {
		return rec, false
	}
	dst, err := morphology.CoordAlongSection(b.eng, con.Target.Section, con.Target.Pos)
	if err != nil {
		return rec, false
	}

	rec.Coords = []float64{src.X, src.Y, src.Z, dst.X, dst.Y, dst.Z}
	rec.Radii = []float64{1, 1}
	return rec, true
}

// sendActivity reduces and transmits the accumulated activity of every
// group. Groups that collected nothing are skipped; a malformed series is
// skipped without blocking the rest of its group.
func (b *Bridge) sendActivity() error {
	for _, g := range b.Groups() {
		series := g.Series()
		frames := g.Options.FramesPerMs

		if g.SampleCount() == 0 || len(series) == 0 {
			logging.Debug("group has no collected activity", "group", g.Name)
			continue
		}

		batcher := renderer.NewBatcher(b.client, b.opts.BatchLimit)
		for _, s := range series {
			if len(s.Times) != len(s.Activity) {
				logging.Warn("series length mismatch, skipping",
					"group", g.Name, "series", s.Name,
					"times", len(s.Times), "values", len(s.Activity))
				continue
			}

			rtimes, rvalues := simplify.Series(s.Times, s.Activity, b.opts.Tolerance)

			// Rescale simulation time to renderer animation frames
			for i := range rtimes {
				rtimes[i] *= frames
			}

			if err := batcher.Add(model.NamedSeries{Name: s.Name, Times: rtimes, Activity: rvalues}); err != nil {
				return err
			}
		}
		if err := batcher.Flush(); err != nil {
			return err
		}

		b.publish("group_sent", pubsub.TransmissionStatus{State: "activity", Group: g.Name, Series: batcher.Sent()})
	}
	return nil
}
