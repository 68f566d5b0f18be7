// File: internal/envcfg/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Config gathers the legacy environment variables the bridge must
// honor at client_open (§6) plus the functional-option overrides a
// caller may supply on top of them.

package envcfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config is the resolved set of options a client opens with.
type Config struct {
	// NoJack mirrors PIPEWIRE_NOJACK: when set, client_open must fail
	// immediately with StatusFailure|StatusServerFailed.
	NoJack bool

	// LatencyFrames and LatencySampleRate come from PIPEWIRE_LATENCY,
	// formatted "frames/rate" (default "1024/48000").
	LatencyFrames     uint32
	LatencySampleRate uint32

	// RestrictToNode mirrors PIPEWIRE_NODE: when >=0, get_ports style
	// queries are restricted to this node id.
	RestrictToNode int64

	// NoStartServer mirrors JACK_START_SERVER being unset: client_new
	// adds the no-start-server option.
	NoStartServer bool

	ServerSocket string
	ClientName   string
}

// Option customizes a Config on top of its environment defaults.
type Option func(*Config)

// WithServerSocket overrides the control socket path the client dials.
func WithServerSocket(path string) Option {
	return func(c *Config) { c.ServerSocket = path }
}

// WithClientName overrides the name advertised at client_open.
func WithClientName(name string) Option {
	return func(c *Config) { c.ClientName = name }
}

// WithLatency overrides the negotiated frames-per-cycle/sample-rate pair.
func WithLatency(frames, sampleRate uint32) Option {
	return func(c *Config) {
		c.LatencyFrames = frames
		c.LatencySampleRate = sampleRate
	}
}

// Load resolves a Config from the process environment, then applies
// opts on top.
func Load(opts ...Option) (Config, error) {
	cfg := Config{
		LatencyFrames:     1024,
		LatencySampleRate: 48000,
		RestrictToNode:    -1,
		ServerSocket:      defaultServerSocket,
	}

	if _, ok := os.LookupEnv("PIPEWIRE_NOJACK"); ok {
		cfg.NoJack = true
	}

	if v := os.Getenv("PIPEWIRE_LATENCY"); v != "" {
		frames, rate, err := parseLatency(v)
		if err != nil {
			return cfg, fmt.Errorf("envcfg: PIPEWIRE_LATENCY: %w", err)
		}
		cfg.LatencyFrames, cfg.LatencySampleRate = frames, rate
	}

	if v := os.Getenv("PIPEWIRE_NODE"); v != "" {
		node, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("envcfg: PIPEWIRE_NODE: %w", err)
		}
		cfg.RestrictToNode = node
	}

	if _, ok := os.LookupEnv("JACK_START_SERVER"); !ok {
		cfg.NoStartServer = true
	}

	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg, nil
}

const defaultServerSocket = "/run/graphbridge/server.sock"

func parseLatency(v string) (frames, rate uint32, err error) {
	parts := strings.SplitN(v, "/", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected \"frames/rate\", got %q", v)
	}
	f, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return 0, 0, err
	}
	r, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return 0, 0, err
	}
	return uint32(f), uint32(r), nil
}
