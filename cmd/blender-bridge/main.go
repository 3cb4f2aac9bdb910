package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/nrnviz/blender-bridge/pkg/activity"
	"github.com/nrnviz/blender-bridge/pkg/bridge"
	"github.com/nrnviz/blender-bridge/pkg/config"
	"github.com/nrnviz/blender-bridge/pkg/engine"
	"github.com/nrnviz/blender-bridge/pkg/logging"
	"github.com/nrnviz/blender-bridge/pkg/pubsub"
	"github.com/nrnviz/blender-bridge/pkg/renderer"
	"github.com/nrnviz/blender-bridge/pkg/status"
	"github.com/nrnviz/blender-bridge/pkg/watcher"
)

func main() {
	flags := pflag.NewFlagSet("blender-bridge", pflag.ExitOnError)
	flags.String("snapshot", "model.json", "Model snapshot file to load")
	flags.String("endpoint", "http://127.0.0.1:8000", "Renderer JSON-RPC endpoint")
	flags.Float64("step", 0.25, "Simulation step in ms")
	flags.Float64("tolerance", 0.32, "Activity simplification tolerance")
	flags.Int("batch", 1000, "Series per transport batch")
	flags.Float64("timeout", 10, "Renderer readiness timeout in seconds")
	flags.Bool("morphology", true, "Send section geometry")
	flags.Bool("connections", true, "Send synaptic connections")
	flags.Bool("activity", true, "Collect and send activity")
	flags.Bool("serve", false, "Run the status HTTP server")
	flags.Int("port", 8080, "Status server port")
	flags.Bool("watch", false, "Re-send when the snapshot file changes")
	flags.String("verbosity", "", "Log level (trace, debug, info, warn, error)")
	flags.CountP("verbose", "v", "Increase log verbosity (repeatable)")
	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		logging.Fatal("failed to load configuration", "error", err)
	}

	logging.SetLevel(logging.LevelFromVerbosity(cfg.Verbosity, cfg.VerboseCnt))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := renderer.NewHTTPClient(renderer.HTTPConfig{Endpoint: cfg.Endpoint})
	defer client.Close()

	sess := &session{}

	var publisher pubsub.Publisher
	if cfg.Serve {
		srv := status.NewServer(sess, sess)
		publisher = srv.Publisher()
		go func() {
			if err := srv.Start(cfg.Port); err != nil {
				logging.Fatal("status server failed", "error", err)
			}
		}()
	}

	if err := runOnce(ctx, cfg, client, sess, publisher); err != nil {
		if !cfg.Watch {
			logging.Fatal("transmission failed", "error", err)
		}
		logging.Error("transmission failed, waiting for snapshot changes", "error", err)
	}

	if !cfg.Watch {
		return
	}

	sw, err := watcher.NewSnapshotWatcher(cfg.Snapshot)
	if err != nil {
		logging.Fatal("failed to create snapshot watcher", "error", err)
	}
	if err := sw.Start(ctx); err != nil {
		logging.Fatal("failed to start snapshot watcher", "error", err)
	}

	deb := watcher.NewDebouncer(sw.Events(), 500*time.Millisecond, 5*time.Second)
	deb.Start(ctx)

	for range deb.Output() {
		logging.Info("snapshot changed, re-sending scene", "path", cfg.Snapshot)
		if err := runOnce(ctx, cfg, client, sess, publisher); err != nil {
			logging.Error("transmission failed", "error", err)
		}
	}
}

// runOnce loads the snapshot, replays the recorded simulation to collect
// activity, and transmits the scene
func runOnce(ctx context.Context, cfg *config.Config, client renderer.Client, sess *session, publisher pubsub.Publisher) error {
	eng, err := engine.LoadSnapshot(cfg.Snapshot)
	if err != nil {
		return err
	}

	opts := bridge.DefaultOptions()
	opts.Tolerance = cfg.Tolerance
	opts.BatchLimit = cfg.Batch
	opts.ReadyTimeout = time.Duration(cfg.Timeout * float64(time.Second))
	opts.IncludeMorphology = cfg.Morphology
	opts.IncludeConnections = cfg.Connections
	opts.IncludeActivity = cfg.Activity

	br := bridge.New(eng, client, opts)
	if publisher != nil {
		br.SetPublisher(publisher)
	}
	sess.set(eng, br)

	if cfg.Activity {
		if _, err := br.SetupDefaultGroup(); err != nil {
			return err
		}
		simulate(eng, br, cfg.Step, publisher)
	}

	return br.SendScene(ctx)
}

// simulate replays the snapshot clock from zero to tstop, collecting due
// group activity at each step
func simulate(eng *engine.Snapshot, br *bridge.Bridge, step float64, publisher pubsub.Publisher) {
	eng.Reset()
	br.ClearActivity()

	for {
		if err := br.CollectTick(); err != nil {
			logging.Warn("collection failed", "time", eng.Now(), "error", err)
		}
		if publisher != nil {
			for _, g := range br.Groups() {
				_ = publisher.Publish(pubsub.TopicCollection, "collected", pubsub.CollectionStatus{
					Group:   g.Name,
					Time:    eng.Now(),
					Samples: g.SampleCount(),
				})
			}
		}
		if eng.Now() >= eng.TStop() {
			break
		}
		eng.Step(step)
	}

	logging.Info("simulation replay complete", "tstop", eng.TStop())
}

// session is the status server's view of the currently loaded model. Watch
// mode swaps in a fresh engine and bridge on every reload.
type session struct {
	mu sync.Mutex
	br *bridge.Bridge
	en *engine.Snapshot
}

func (s *session) set(eng *engine.Snapshot, br *bridge.Bridge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.en = eng
	s.br = br
}

func (s *session) Groups() []*activity.Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.br == nil {
		return nil
	}
	return s.br.Groups()
}

func (s *session) NumFrames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.br == nil {
		return 0
	}
	return s.br.NumFrames()
}

func (s *session) Now() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.en == nil {
		return 0
	}
	return s.en.Now()
}

func (s *session) TStop() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.en == nil {
		return 0
	}
	return s.en.TStop()
}
