package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaultsWithNoArgs(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	require.Equal(t, "pokerd.sqlite", cfg.DBPath)
	require.Equal(t, 20*time.Second, cfg.DefaultTurnBudget)
	require.Equal(t, 60*time.Second, cfg.DefaultDisconnectGrace)
	require.Equal(t, 30*time.Second, cfg.DefaultMPStepDeadline)
}

func TestParseOverridesFromArgs(t *testing.T) {
	cfg, err := Parse([]string{
		"-listen", "0.0.0.0:9000",
		"-db", "/tmp/other.sqlite",
		"-debuglevel", "debug",
		"-turnbudgetms", "15000",
	})
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9000", cfg.ListenAddr)
	require.Equal(t, "/tmp/other.sqlite", cfg.DBPath)
	require.Equal(t, "debug", cfg.DebugLevel)
	require.Equal(t, 15*time.Second, cfg.DefaultTurnBudget)
}

func TestParseRejectsUnknownFlag(t *testing.T) {
	_, err := Parse([]string{"-not-a-real-flag"})
	require.Error(t, err)
}

func TestTableDefaultsCarriesServerDurationsOnly(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)

	tc := cfg.TableDefaults()
	require.Equal(t, cfg.DefaultTurnBudget, tc.TurnBudget)
	require.Equal(t, cfg.DefaultDisconnectGrace, tc.DisconnectGrace)
	require.Equal(t, cfg.DefaultMPStepDeadline, tc.MPStepDeadline)
	require.Empty(t, tc.ID)
}
