package main

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/dd0wney/cluso-kv/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("kvnode", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cluster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
node_id: 1
listen_addr: ":7001"
data_dir: /from/file
log_level: info
peers:
  - id: 2
    addr: "node-2:7000"
  - id: 3
    addr: "node-3:7000"
`), 0o644))

	env := map[string]string{
		config.EnvDataDir:  "/from/env",
		config.EnvLogLevel: "warn",
	}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }

	f, err := parseFlags(newFlagSet(), []string{"-config", path, "-log-level", "debug"})
	require.NoError(t, err)

	cfg, err := loadConfig(f, lookup)
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.NodeID)            // file
	assert.Equal(t, "/from/env", cfg.DataDir) // env over file
	assert.Equal(t, "debug", cfg.LogLevel)    // flag over env
	assert.Len(t, cfg.Peers, 2)
}

func TestLoadConfig_FlagsOnly(t *testing.T) {
	f, err := parseFlags(newFlagSet(), []string{"-id", "4", "-listen", "127.0.0.1:7004", "-data", t.TempDir()})
	require.NoError(t, err)

	cfg, err := loadConfig(f, func(string) (string, bool) { return "", false })
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.NodeID)
	assert.Equal(t, "127.0.0.1:7004", cfg.ListenAddr)
	assert.Empty(t, cfg.Peers)
}

func TestLoadConfig_Invalid(t *testing.T) {
	f, err := parseFlags(newFlagSet(), nil)
	require.NoError(t, err)

	_, err = loadConfig(f, func(string) (string, bool) { return "", false })
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestParseFlags_Unknown(t *testing.T) {
	_, err := parseFlags(newFlagSet(), []string{"-bogus"})
	assert.Error(t, err)
}
