package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config holds all configuration for the bridge
type Config struct {
	Snapshot  string  `koanf:"snapshot"`  // Model snapshot file to load
	Endpoint  string  `koanf:"endpoint"`  // Renderer JSON-RPC endpoint
	Step      float64 `koanf:"step"`      // Simulation step, ms
	Tolerance float64 `koanf:"tolerance"` // Simplification tolerance
	Batch     int     `koanf:"batch"`     // Series per transport batch
	Timeout   float64 `koanf:"timeout"`   // Renderer readiness timeout, seconds

	Morphology  bool `koanf:"morphology"`  // Send section geometry
	Connections bool `koanf:"connections"` // Send synaptic connections
	Activity    bool `koanf:"activity"`    // Collect and send activity

	Serve bool `koanf:"serve"` // Run the status HTTP server
	Port  int  `koanf:"port"`  // Status server port
	Watch bool `koanf:"watch"` // Re-send when the snapshot file changes

	Verbosity  string `koanf:"verbosity"`
	VerboseCnt int    `koanf:"verbose"`
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	defaults := map[string]interface{}{
		"snapshot":    "model.json",
		"endpoint":    "http://127.0.0.1:8000",
		"step":        0.25,
		"tolerance":   0.32,
		"batch":       1000,
		"timeout":     10.0,
		"morphology":  true,
		"connections": true,
		"activity":    true,
		"serve":       false,
		"port":        8080,
		"watch":       false,
		"verbosity":   "",
		"verbose":     0,
	}
	if err := k.Load(makeMapProvider(defaults), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config File (optional) - blender-bridge.toml
	// We ignore errors here as the file might not exist
	_ = k.Load(file.Provider("blender-bridge.toml"), toml.Parser())

	// 3. Environment Variables
	// Prefix: BLENDER_BRIDGE_ (e.g., BLENDER_BRIDGE_PORT=9090)
	if err := k.Load(env.Provider("BLENDER_BRIDGE_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, "BLENDER_BRIDGE_")), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// Unmarshal into struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
