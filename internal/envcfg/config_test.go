// File: internal/envcfg/config_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package envcfg

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JACK_START_SERVER", "1")

	cfg, err := Load()
	require.NoError(t, err)
	require.False(t, cfg.NoJack)
	require.EqualValues(t, 1024, cfg.LatencyFrames)
	require.EqualValues(t, 48000, cfg.LatencySampleRate)
	require.EqualValues(t, -1, cfg.RestrictToNode)
}

func TestLoadParsesLatencyOverride(t *testing.T) {
	t.Setenv("PIPEWIRE_LATENCY", "256/44100")
	cfg, err := Load()
	require.NoError(t, err)
	require.EqualValues(t, 256, cfg.LatencyFrames)
	require.EqualValues(t, 44100, cfg.LatencySampleRate)
}

func TestLoadRejectsMalformedLatency(t *testing.T) {
	t.Setenv("PIPEWIRE_LATENCY", "garbage")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadHonorsNoStartServerWhenUnset(t *testing.T) {
	t.Setenv("JACK_START_SERVER", "")
	os.Unsetenv("JACK_START_SERVER")
	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.NoStartServer)
}

func TestOptionsOverrideEnvironment(t *testing.T) {
	cfg, err := Load(WithClientName("probe"), WithLatency(128, 96000))
	require.NoError(t, err)
	require.Equal(t, "probe", cfg.ClientName)
	require.EqualValues(t, 128, cfg.LatencyFrames)
	require.EqualValues(t, 96000, cfg.LatencySampleRate)
}
