package ingest

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-trx/types"
)

type hookRecorder struct {
	calls []string
}

func (h *hookRecorder) SectionStarting(name string) error {
	h.calls = append(h.calls, "section:"+name)
	return nil
}

func (h *hookRecorder) TraversalEnded() error {
	h.calls = append(h.calls, "traversal")
	return nil
}

func (h *hookRecorder) RunEnded() error {
	h.calls = append(h.calls, "run-end")
	return nil
}

func newTestReader(t *testing.T, hooks Hooks, opts ...ReaderOption) (*Reader, *types.RecordStore) {
	t.Helper()
	store := types.NewRecordStore()
	return NewReader(log.Root(), store, hooks, opts...), store
}

func TestReadAllFiresHooksInOrder(t *testing.T) {
	stream := strings.Join([]string{
		`{"action":"run-start","run":"suite"}`,
		`{"action":"section-start","section":"Parsing works"}`,
		`{"action":"traversal","record":{"runName":"suite","sections":[{"name":"Parsing works"}],"complete":true}}`,
		`{"action":"run-end"}`,
	}, "\n")

	hooks := &hookRecorder{}
	reader, store := newTestReader(t, hooks)
	require.NoError(t, reader.ReadAll(strings.NewReader(stream)))

	assert.Equal(t, []string{"section:Parsing works", "traversal", "run-end"}, hooks.calls)
	require.Equal(t, 1, store.Len())
	assert.Equal(t, "Parsing works", store.Get(0).RootSectionName())
	assert.True(t, store.Get(0).Complete)
}

func TestReadAllSkipsMalformedAndBlankLines(t *testing.T) {
	stream := strings.Join([]string{
		``,
		`this is not json`,
		`{"action":"traversal","record":{"complete":true}}`,
		``,
		`{"action":"run-end"}`,
	}, "\n")

	hooks := &hookRecorder{}
	reader, store := newTestReader(t, hooks)
	require.NoError(t, reader.ReadAll(strings.NewReader(stream)))

	assert.Equal(t, 1, store.Len())
	assert.Equal(t, []string{"traversal", "run-end"}, hooks.calls)
}

func TestReadAllUnknownActionIgnored(t *testing.T) {
	stream := `{"action":"heartbeat"}` + "\n" + `{"action":"run-end"}`

	hooks := &hookRecorder{}
	reader, store := newTestReader(t, hooks)
	require.NoError(t, reader.ReadAll(strings.NewReader(stream)))

	assert.Equal(t, 0, store.Len())
	assert.Equal(t, []string{"run-end"}, hooks.calls)
}

func TestReadAllTruncatedStreamStillEndsRun(t *testing.T) {
	// A killed engine never writes run-end; the reader finalizes anyway so the
	// document covers the records received so far.
	stream := `{"action":"traversal","record":{"complete":true}}`

	hooks := &hookRecorder{}
	reader, store := newTestReader(t, hooks)
	require.NoError(t, reader.ReadAll(strings.NewReader(stream)))

	assert.Equal(t, 1, store.Len())
	assert.Equal(t, []string{"traversal", "run-end"}, hooks.calls)
}

func TestReadAllTraversalWithoutRecordSkipped(t *testing.T) {
	stream := `{"action":"traversal"}` + "\n" + `{"action":"run-end"}`

	hooks := &hookRecorder{}
	reader, store := newTestReader(t, hooks)
	require.NoError(t, reader.ReadAll(strings.NewReader(stream)))

	assert.Equal(t, 0, store.Len())
	assert.Equal(t, []string{"run-end"}, hooks.calls)
}

func TestReadAllScrubsRecords(t *testing.T) {
	stream := `{"action":"traversal","record":{"complete":true,"stdout":"\u001b[31mred\u001b[0m text","stderr":"\u001b[1mbold\u001b[0m"}}` +
		"\n" + `{"action":"run-end"}`

	hooks := &hookRecorder{}
	reader, store := newTestReader(t, hooks, WithDefaultRunName("fallback-run"))
	require.NoError(t, reader.ReadAll(strings.NewReader(stream)))

	require.Equal(t, 1, store.Len())
	record := store.Get(0)
	assert.Equal(t, "red text", record.Stdout)
	assert.Equal(t, "bold", record.Stderr)
	assert.Equal(t, "fallback-run", record.RunName)
}

func TestReadAllDefaultRunNameDoesNotOverride(t *testing.T) {
	stream := `{"action":"traversal","record":{"runName":"explicit","complete":true}}` +
		"\n" + `{"action":"run-end"}`

	hooks := &hookRecorder{}
	reader, store := newTestReader(t, hooks, WithDefaultRunName("fallback-run"))
	require.NoError(t, reader.ReadAll(strings.NewReader(stream)))

	require.Equal(t, 1, store.Len())
	assert.Equal(t, "explicit", store.Get(0).RunName)
}
