// Package status exposes the bridge's state over HTTP: group summaries,
// simulation progress, and server-sent event streams of transmission and
// collection progress.
package status

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nrnviz/blender-bridge/pkg/activity"
	"github.com/nrnviz/blender-bridge/pkg/logging"
	"github.com/nrnviz/blender-bridge/pkg/pubsub"
)

// Bridge is the part of the bridge the status server reports on
type Bridge interface {
	Groups() []*activity.Group
	NumFrames() int
}

// Clock reports simulation progress. Satisfied by any engine.
type Clock interface {
	Now() float64
	TStop() float64
}

// Server serves bridge status over HTTP and SSE
type Server struct {
	router    *mux.Router
	publisher *pubsub.SSEPublisher
	bridge    Bridge
	clock     Clock
}

// NewServer creates a status server for the given bridge and simulation clock
func NewServer(b Bridge, clock Clock) *Server {
	ssePublisher := pubsub.NewSSEPublisher()

	// transmission_status: new subscribers see the current session state
	ssePublisher.ConfigureTopic(pubsub.TopicTransmission, pubsub.TopicConfig{
		BufferSize: 10,
		ReplayAll:  false,
	})

	// collection_status: latest collection tick only
	ssePublisher.ConfigureTopic(pubsub.TopicCollection, pubsub.TopicConfig{
		BufferSize: 1,
		ReplayAll:  false,
	})

	s := &Server{
		router:    mux.NewRouter(),
		publisher: ssePublisher,
		bridge:    b,
		clock:     clock,
	}
	s.setupRoutes()
	return s
}

// Publisher returns the server's event publisher so the bridge can emit
// progress events through it
func (s *Server) Publisher() pubsub.Publisher {
	return s.publisher
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/subscribe/{topic}", s.handleSubscribe).Methods("GET")
	s.router.HandleFunc("/api/status", s.handleStatus).Methods("GET")
	s.router.HandleFunc("/api/groups", s.handleGroups).Methods("GET")
	s.router.HandleFunc("/api/groups/{name}", s.handleGroup).Methods("GET")
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["topic"]
	if topic != pubsub.TopicTransmission && topic != pubsub.TopicCollection {
		http.Error(w, fmt.Sprintf("unknown topic: %s", topic), http.StatusNotFound)
		return
	}

	// SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// Initial comment establishes the connection (Safari compatibility)
	fmt.Fprintf(w, ": connected\n\n")
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	sub, err := s.publisher.Subscribe(r.Context(), topic)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer sub.Close()

	for event := range sub.Events() {
		if err := pubsub.WriteSSE(w, event); err != nil {
			logging.Warn("failed to write SSE event", "topic", topic, "error", err)
			return
		}
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}
	}
}

// statusResponse summarizes the simulation and scene state
type statusResponse struct {
	Time   float64 `json:"time_ms"`
	TStop  float64 `json:"tstop_ms"`
	Frames int     `json:"frames"`
	Groups int     `json:"groups"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	resp := statusResponse{
		Time:   s.clock.Now(),
		TStop:  s.clock.TStop(),
		Frames: s.bridge.NumFrames(),
		Groups: len(s.bridge.Groups()),
	}
	json.NewEncoder(w).Encode(resp)
}

// groupSummary is the JSON shape of one group in listings
type groupSummary struct {
	Name             string  `json:"name"`
	Roots            int     `json:"roots"`
	Samples          int     `json:"samples"`
	Series           int     `json:"series"`
	Variable         string  `json:"variable"`
	CollectionPeriod float64 `json:"collection_period_ms"`
	CollectActivity  bool    `json:"collect_activity"`
	InteractionLevel string  `json:"interaction_level"`
	ColorLevel       string  `json:"color_level"`
}

func summarize(g *activity.Group) groupSummary {
	return groupSummary{
		Name:             g.Name,
		Roots:            g.RootCount(),
		Samples:          g.SampleCount(),
		Series:           g.SeriesCount(),
		Variable:         g.Options.Variable,
		CollectionPeriod: g.Options.CollectionPeriod,
		CollectActivity:  g.Options.CollectActivity,
		InteractionLevel: string(g.Options.InteractionLevel),
		ColorLevel:       string(g.Options.ColorLevel),
	}
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	groups := s.bridge.Groups()
	summaries := make([]groupSummary, 0, len(groups))
	for _, g := range groups {
		summaries = append(summaries, summarize(g))
	}
	json.NewEncoder(w).Encode(summaries)
}

// groupDetail extends the summary with the accumulated series names
type groupDetail struct {
	groupSummary
	SeriesNames []string  `json:"series_names"`
	Times       []float64 `json:"times"`
}

func (s *Server) handleGroup(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	name := mux.Vars(r)["name"]
	for _, g := range s.bridge.Groups() {
		if g.Name != name {
			continue
		}

		detail := groupDetail{groupSummary: summarize(g)}
		for _, series := range g.Series() {
			detail.SeriesNames = append(detail.SeriesNames, series.Name)
		}
		detail.Times = g.Times()
		json.NewEncoder(w).Encode(detail)
		return
	}

	http.Error(w, fmt.Sprintf("group not found: %s", name), http.StatusNotFound)
}

// Handler returns the server's HTTP handler with request logging applied
func (s *Server) Handler() http.Handler {
	return logging.RequestIDMiddleware(s.router)
}

// Start serves the status API on the given port, blocking until the
// listener fails
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	logging.Info("status server listening", "addr", fmt.Sprintf("http://localhost%s", addr))
	return http.ListenAndServe(addr, s.Handler())
}
