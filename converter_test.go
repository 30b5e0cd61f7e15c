package optrx

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEventStream(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func newTestConverter(t *testing.T, cfg *Config) *Converter {
	t.Helper()
	if cfg.OutputPath == "" {
		cfg.OutputPath = filepath.Join(t.TempDir(), "results.trx")
	}
	cfg.Log = log.Root()
	cfg.Summary = false

	conv, err := New(context.Background(), cfg, "test")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conv.Stop(context.Background())
	})
	return conv
}

func TestConverterPassingRun(t *testing.T) {
	input := writeEventStream(t,
		`{"action":"run-start","run":"suite"}`,
		`{"action":"section-start","section":"Parsing works"}`,
		`{"action":"traversal","record":{"runName":"suite","sections":[{"name":"Parsing works"}],"complete":true}}`,
		`{"action":"run-end"}`,
	)
	conv := newTestConverter(t, &Config{InputPath: input})

	require.NoError(t, conv.Start(context.Background()))
	assert.True(t, conv.Stopped())

	summary := conv.Summary()
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.Passed)
	assert.True(t, summary.Ok())

	doc, err := os.ReadFile(conv.config.OutputPath)
	require.NoError(t, err)
	text := string(doc)
	assert.True(t, strings.HasPrefix(text, "<?xml"))
	assert.Contains(t, text, `name="suite"`)
	assert.Contains(t, text, `testName="Parsing works"`)
	assert.Contains(t, text, `<ResultSummary outcome="Passed"`)
}

func TestConverterFailingRunReturnsTestFailure(t *testing.T) {
	input := writeEventStream(t,
		`{"action":"traversal","record":{"runName":"suite","sections":[{"name":"Broken"}],"complete":true,"assertions":[{"kind":"expression-failed","macro":"REQUIRE","expression":"x == 1","expanded":"2 == 1","file":"a_test.cpp","line":5}]}}`,
		`{"action":"run-end"}`,
	)
	conv := newTestConverter(t, &Config{InputPath: input})

	err := conv.Start(context.Background())
	require.Error(t, err)
	assert.True(t, IsTestFailureError(err))
	assert.False(t, IsRuntimeError(err))

	// The document is still written in full before the exit code is decided.
	doc, err2 := os.ReadFile(conv.config.OutputPath)
	require.NoError(t, err2)
	assert.Contains(t, string(doc), `<ResultSummary outcome="Failed"`)
}

func TestConverterFollowModeRewrites(t *testing.T) {
	input := writeEventStream(t,
		`{"action":"traversal","record":{"runName":"suite","sections":[{"name":"First"}],"complete":true}}`,
		`{"action":"traversal","record":{"runName":"suite","sections":[{"name":"Second"}],"complete":true}}`,
		`{"action":"run-end"}`,
	)
	conv := newTestConverter(t, &Config{InputPath: input, Follow: true})

	require.NoError(t, conv.Start(context.Background()))
	// One emission per traversal; run-end adds nothing in follow mode.
	assert.Equal(t, 2, conv.reporter.Emissions())

	doc, err := os.ReadFile(conv.config.OutputPath)
	require.NoError(t, err)
	text := string(doc)
	assert.Equal(t, 1, strings.Count(text, "<?xml"))
	assert.Contains(t, text, `testName="First"`)
	assert.Contains(t, text, `testName="Second"`)
}

func TestConverterMissingInputIsRuntimeError(t *testing.T) {
	conv := newTestConverter(t, &Config{InputPath: filepath.Join(t.TempDir(), "missing.jsonl")})

	err := conv.Start(context.Background())
	require.Error(t, err)
	assert.True(t, IsRuntimeError(err))
}

func TestConverterRunNameDefaultApplied(t *testing.T) {
	input := writeEventStream(t,
		`{"action":"traversal","record":{"sections":[{"name":"Unnamed"}],"complete":true}}`,
		`{"action":"run-end"}`,
	)
	conv := newTestConverter(t, &Config{InputPath: input, RunName: "configured-run"})

	require.NoError(t, conv.Start(context.Background()))

	doc, err := os.ReadFile(conv.config.OutputPath)
	require.NoError(t, err)
	assert.Contains(t, string(doc), `name="configured-run"`)
}

func TestConverterRequiresConfig(t *testing.T) {
	_, err := New(context.Background(), nil, "test")
	require.Error(t, err)
}

func TestConverterRunID(t *testing.T) {
	input := writeEventStream(t, `{"action":"run-end"}`)
	conv := newTestConverter(t, &Config{InputPath: input})
	assert.NotEmpty(t, conv.RunID())
}
