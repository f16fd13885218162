package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider: google\nfeed: club@group.calendar.google.com\napi_key: k\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderGoogle, cfg.Provider)
	assert.Equal(t, "club@group.calendar.google.com", cfg.Feed)
	assert.Equal(t, "k", cfg.APIKey)
	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Equal(t, 15, cfg.Transition.IntervalMs)
	assert.Equal(t, 0.1, cfg.Transition.Rate)
}

func TestLoadUnknownProviderFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider: carrier-pigeon\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderAtom, cfg.Provider)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("listen: [\n"), 0o600))
	_, err := Load(bad)
	assert.Error(t, err)

	ics := filepath.Join(dir, "ics.yaml")
	require.NoError(t, os.WriteFile(ics, []byte("provider: ics\n"), 0o600))
	_, err = Load(ics)
	assert.Error(t, err)

	auth := filepath.Join(dir, "auth.yaml")
	require.NoError(t, os.WriteFile(auth, []byte("basic_auth:\n  username: u\n"), 0o600))
	_, err = Load(auth)
	assert.Error(t, err)

	_, err = Load("")
	assert.Error(t, err)
}

func TestTransitionSettings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Transition.IntervalMs = 40
	cfg.Transition.Rate = 0.2

	tc := cfg.TransitionSettings()
	assert.Equal(t, 40*time.Millisecond, tc.Interval)
	assert.Equal(t, 0.2, tc.Rate)
	assert.Equal(t, 0.1, tc.Floor)
}

func TestSaveRejectsBadInput(t *testing.T) {
	assert.Error(t, Save("", DefaultConfig()))
	assert.Error(t, Save(filepath.Join(t.TempDir(), "c.yaml"), nil))
}
