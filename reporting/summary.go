package reporting

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/op-trx/trx"
)

// Summary aggregates the final Result set for console output and exit-code
// decisions.
type Summary struct {
	Total      int
	Passed     int
	Failed     int
	DataDriven int
}

// Ok reports whether every result passed.
func (s Summary) Ok() bool {
	return s.Failed == 0
}

// Outcome returns the TRX-style overall outcome string.
func (s Summary) Outcome() string {
	if s.Ok() {
		return "Passed"
	}
	return "Failed"
}

func (s Summary) String() string {
	return fmt.Sprintf("%d results (%d passed, %d failed, %d data-driven), outcome %s",
		s.Total, s.Passed, s.Failed, s.DataDriven, s.Outcome())
}

// BuildSummary tallies the given results.
func BuildSummary(results []*trx.Result) Summary {
	var s Summary
	for _, result := range results {
		if len(result.Occurrences) == 0 {
			continue
		}
		s.Total++
		if result.IsDataDriven() {
			s.DataDriven++
		}
		if result.IsOk() {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	return s
}

// PrintSummaryTable prints a per-result table of the conversion to w.
func PrintSummaryTable(w io.Writer, runID string, results []*trx.Result, duration time.Duration) {
	now := time.Now()

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("TRX Conversion Results (%s)", runID))

	t.AppendHeader(table.Row{
		"Test", "Rows", "Duration", "Outcome",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Test", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Rows", Align: text.AlignRight},
		{Name: "Duration", Align: text.AlignRight},
	})

	for _, result := range results {
		if len(result.Occurrences) == 0 {
			continue
		}
		elapsed := result.FinishTime(now).Sub(result.StartTime(now))
		t.AppendRow(table.Row{
			result.RootTestName(),
			len(result.Occurrences),
			trx.FormatDuration(elapsed),
			outcomeString(result.IsOk()),
		})
	}

	summary := BuildSummary(results)
	t.AppendFooter(table.Row{
		fmt.Sprintf("%d results in %s", summary.Total, duration.Round(time.Millisecond)),
		"", "",
		outcomeString(summary.Ok()),
	})
	t.Render()
}

// outcomeString returns a colored marker for the outcome
func outcomeString(ok bool) string {
	if ok {
		return "✓ pass"
	}
	return "✗ fail"
}
