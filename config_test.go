package optrx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/op-trx/flags"
)

// configFromArgs runs a throwaway cli app with the real flag set and captures
// the Config the action would receive.
func configFromArgs(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	var cfg *Config
	var cfgErr error
	app := &cli.App{
		Name:  "op-trx-test",
		Flags: flags.Flags,
		Action: func(ctx *cli.Context) error {
			cfg, cfgErr = NewConfig(ctx, log.Root())
			return nil
		},
	}
	err := app.Run(append([]string{"op-trx-test"}, args...))
	if err != nil {
		return nil, err
	}
	return cfg, cfgErr
}

func TestNewConfigDefaults(t *testing.T) {
	cfg, err := configFromArgs(t, "--output", "results.trx")
	require.NoError(t, err)

	assert.Equal(t, "-", cfg.InputPath)
	assert.True(t, filepath.IsAbs(cfg.OutputPath))
	assert.Equal(t, "results.trx", filepath.Base(cfg.OutputPath))
	assert.Empty(t, cfg.RunName)
	assert.Empty(t, cfg.SourcePrefix)
	assert.Empty(t, cfg.AttachmentPaths)
	assert.False(t, cfg.Follow)
	assert.True(t, cfg.Summary)
}

func TestNewConfigAllFlags(t *testing.T) {
	cfg, err := configFromArgs(t,
		"--input", "events.jsonl",
		"--output", "results.trx",
		"--run-name", "nightly",
		"--source-prefix", "/src/",
		"--attachment", "logs/run.log",
		"--attachment", "shots/final.png",
		"--follow",
		"--summary=false",
	)
	require.NoError(t, err)

	assert.Equal(t, "events.jsonl", cfg.InputPath)
	assert.Equal(t, "nightly", cfg.RunName)
	assert.Equal(t, "/src/", cfg.SourcePrefix)
	assert.Equal(t, []string{"logs/run.log", "shots/final.png"}, cfg.AttachmentPaths)
	assert.True(t, cfg.Follow)
	assert.False(t, cfg.Summary)
}

func TestNewConfigRequiresOutput(t *testing.T) {
	_, err := configFromArgs(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output")
}

func TestNewConfigRunMetadataDefaults(t *testing.T) {
	dir := t.TempDir()
	metaPath := filepath.Join(dir, "run.yaml")
	meta := `run_name: metadata-run
source_prefix: /repo/
attachments:
  - logs/run.log
`
	require.NoError(t, os.WriteFile(metaPath, []byte(meta), 0o644))

	cfg, err := configFromArgs(t, "--output", "results.trx", "--run-config", metaPath)
	require.NoError(t, err)

	assert.Equal(t, "metadata-run", cfg.RunName)
	assert.Equal(t, "/repo/", cfg.SourcePrefix)
	assert.Equal(t, []string{"logs/run.log"}, cfg.AttachmentPaths)
}

func TestNewConfigFlagsOverrideRunMetadata(t *testing.T) {
	dir := t.TempDir()
	metaPath := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(metaPath, []byte("run_name: metadata-run\n"), 0o644))

	cfg, err := configFromArgs(t,
		"--output", "results.trx",
		"--run-config", metaPath,
		"--run-name", "flag-run",
	)
	require.NoError(t, err)
	assert.Equal(t, "flag-run", cfg.RunName)
}

func TestNewConfigBadRunMetadata(t *testing.T) {
	dir := t.TempDir()
	metaPath := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(metaPath, []byte("run_name: [unclosed"), 0o644))

	_, err := configFromArgs(t, "--output", "results.trx", "--run-config", metaPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse run metadata")

	_, err = configFromArgs(t, "--output", "results.trx", "--run-config", filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read run metadata")
}
