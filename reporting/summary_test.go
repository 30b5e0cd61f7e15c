package reporting

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-trx/trx"
	"github.com/ethereum-optimism/infra/op-trx/types"
)

func groupedResults(t *testing.T, records ...*types.TraversalRecord) []*trx.Result {
	t.Helper()
	store := types.NewRecordStore()
	for _, record := range records {
		store.Append(record)
	}
	return trx.GroupTraversals(store, &seqGenerator{})
}

func TestBuildSummary(t *testing.T) {
	results := groupedResults(t,
		newRecord("A", true),
		newRecord("A", true),
		newRecord("B", false),
		newRecord("C", true),
	)

	summary := BuildSummary(results)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Passed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.DataDriven)
	assert.False(t, summary.Ok())
	assert.Equal(t, "Failed", summary.Outcome())
	assert.Equal(t, "3 results (2 passed, 1 failed, 1 data-driven), outcome Failed", summary.String())
}

func TestBuildSummaryEmpty(t *testing.T) {
	summary := BuildSummary(nil)
	assert.Equal(t, 0, summary.Total)
	assert.True(t, summary.Ok())
	assert.Equal(t, "Passed", summary.Outcome())
}

func TestPrintSummaryTable(t *testing.T) {
	results := groupedResults(t,
		newRecord("Parsing works", true),
		newRecord("Edge cases", false),
	)

	var buf bytes.Buffer
	PrintSummaryTable(&buf, "test-run", results, 1500*time.Millisecond)

	out := buf.String()
	require.NotEmpty(t, out)
	assert.Contains(t, out, "TRX Conversion Results (test-run)")
	assert.Contains(t, out, "Parsing works")
	assert.Contains(t, out, "Edge cases")
	assert.Contains(t, out, "✓ pass")
	assert.Contains(t, out, "✗ fail")
	assert.Contains(t, out, "2 results in 1.5s")
}
