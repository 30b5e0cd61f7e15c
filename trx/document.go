package trx

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ethereum-optimism/infra/op-trx/types"
)

// Constants fixed by the VSTest v2 schema and its consumers. These must be
// reproduced exactly for interoperability.
const (
	trxNamespace       = "http://microsoft.com/schemas/VisualStudio/TeamTest/2010"
	trxRunUser         = "OpTrxReporter"
	trxComputerName    = "localhost"
	trxTestTypeID      = "13cdc9d9-ddb5-4fa4-a97d-d965ccfc6d4b"
	trxAdapterTypeName = "executor://mstestadapter/v2"
	trxClassName       = "TestEngine.Test"
	trxDefaultListName = "Default test list"

	outcomePassed = "Passed"
	outcomeFailed = "Failed"

	resultTypeDataDriven = "DataDrivenTest"
	resultTypeDataRow    = "DataDrivenDataRow"
)

const incompleteNotice = "Test execution terminated unexpectedly before this test completed. " +
	"Please see redirected output, if available, for more details.\n"

// TestRun is the root of a TRX document. Field order fixes the element order
// required by the schema: Times, Results, TestDefinitions, TestLists,
// TestEntries, ResultSummary.
type TestRun struct {
	XMLName xml.Name `xml:"TestRun"`
	ID      string   `xml:"id,attr"`
	Name    string   `xml:"name,attr"`
	RunUser string   `xml:"runUser,attr"`
	Xmlns   string   `xml:"xmlns,attr"`

	Times           Times           `xml:"Times"`
	Results         RunResults      `xml:"Results"`
	TestDefinitions TestDefinitions `xml:"TestDefinitions"`
	TestLists       TestLists       `xml:"TestLists"`
	TestEntries     TestEntries     `xml:"TestEntries"`
	Summary         ResultSummary   `xml:"ResultSummary"`
}

// Times carries the run-level timestamps.
type Times struct {
	Creation string `xml:"creation,attr"`
	Queuing  string `xml:"queuing,attr"`
	Start    string `xml:"start,attr"`
	Finish   string `xml:"finish,attr"`
}

// RunResults contains one UnitTestResult per non-empty Result.
type RunResults struct {
	UnitTestResults []UnitTestResult `xml:"UnitTestResult"`
}

// UnitTestResult is one result entry. Data-driven composites nest one child
// UnitTestResult per occurrence.
type UnitTestResult struct {
	ExecutionID       string `xml:"executionId,attr"`
	TestID            string `xml:"testId,attr"`
	TestName          string `xml:"testName,attr"`
	ComputerName      string `xml:"computerName,attr"`
	TestType          string `xml:"testType,attr"`
	TestListID        string `xml:"testListId,attr"`
	ParentExecutionID string `xml:"parentExecutionId,attr,omitempty"`
	StartTime         string `xml:"startTime,attr"`
	EndTime           string `xml:"endTime,attr"`
	Duration          string `xml:"duration,attr"`
	Outcome           string `xml:"outcome,attr"`
	ResultType        string `xml:"resultType,attr,omitempty"`

	Output   *Output          `xml:"Output,omitempty"`
	Children []UnitTestResult `xml:"UnitTestResult,omitempty"`
}

// Output carries captured streams and error details for one occurrence.
// StdOut/StdErr are pointers: an incomplete occurrence emits them even when
// empty, so redirected-output consumers see the elements exist.
type Output struct {
	StdOut    *string    `xml:"StdOut,omitempty"`
	StdErr    *string    `xml:"StdErr,omitempty"`
	ErrorInfo *ErrorInfo `xml:"ErrorInfo,omitempty"`
}

// ErrorInfo carries the composed error and stack text for one occurrence.
type ErrorInfo struct {
	Message    string `xml:"Message,omitempty"`
	StackTrace string `xml:"StackTrace,omitempty"`
}

// TestDefinitions lists one UnitTest definition per Result.
type TestDefinitions struct {
	UnitTests []UnitTest `xml:"UnitTest"`
}

// UnitTest defines one test: name, storage, categories and its method.
type UnitTest struct {
	Name    string `xml:"name,attr"`
	Storage string `xml:"storage,attr"`
	ID      string `xml:"id,attr"`

	TestCategory *TestCategory `xml:"TestCategory,omitempty"`
	Execution    Execution     `xml:"Execution"`
	TestMethod   TestMethod    `xml:"TestMethod"`
}

// TestCategory lists the tags of a test as category items.
type TestCategory struct {
	Items []TestCategoryItem `xml:"TestCategoryItem"`
}

// TestCategoryItem is one tag.
type TestCategoryItem struct {
	TestCategory string `xml:"TestCategory,attr"`
}

// Execution links a definition to its execution identifier.
type Execution struct {
	ID string `xml:"id,attr"`
}

// TestMethod describes the adapter-visible method backing a test.
type TestMethod struct {
	CodeBase        string `xml:"codeBase,attr"`
	AdapterTypeName string `xml:"adapterTypeName,attr"`
	ClassName       string `xml:"className,attr"`
	Name            string `xml:"name,attr"`
}

// TestLists holds the single default list every entry maps to.
type TestLists struct {
	Lists []TestList `xml:"TestList"`
}

// TestList is one named list of tests.
type TestList struct {
	Name string `xml:"name,attr"`
	ID   string `xml:"id,attr"`
}

// TestEntries maps test/execution identifiers to the default list.
type TestEntries struct {
	Entries []TestEntry `xml:"TestEntry"`
}

// TestEntry is one identifier mapping.
type TestEntry struct {
	TestID      string `xml:"testId,attr"`
	ExecutionID string `xml:"executionId,attr"`
	TestListID  string `xml:"testListId,attr"`
}

// ResultSummary carries the overall outcome and any attachment references.
type ResultSummary struct {
	Outcome     string       `xml:"outcome,attr"`
	ResultFiles *ResultFiles `xml:"ResultFiles,omitempty"`
}

// ResultFiles lists attachment paths already resolved by the caller.
type ResultFiles struct {
	Files []ResultFile `xml:"ResultFile"`
}

// ResultFile references one attachment by path.
type ResultFile struct {
	Path string `xml:"path,attr"`
}

// Serializer builds TRX documents from aggregated Results. A document is built
// fresh for every emission and discarded after the write completes; the
// Serializer itself holds only configuration.
type Serializer struct {
	ids          Generator
	now          func() time.Time
	sourcePrefix string
	attachments  []string
}

// SerializerOption customizes a Serializer.
type SerializerOption func(*Serializer)

// WithIDGenerator substitutes the identifier generator. Tests use a
// deterministic generator so emitted documents can be compared byte for byte.
func WithIDGenerator(ids Generator) SerializerOption {
	return func(s *Serializer) { s.ids = ids }
}

// WithClock substitutes the wall-clock source used for placeholder timestamps.
func WithClock(now func() time.Time) SerializerOption {
	return func(s *Serializer) { s.now = now }
}

// NewSerializer creates a Serializer. sourcePrefix is trimmed from file paths
// in stack text; attachments are referenced (not copied) in the summary.
func NewSerializer(sourcePrefix string, attachments []string, opts ...SerializerOption) *Serializer {
	s := &Serializer{
		ids:          NewRandomGenerator(),
		now:          time.Now,
		sourcePrefix: sourcePrefix,
		attachments:  attachments,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serialize builds the document for the given Results and writes it to w as
// indented XML. The only failure mode besides writer errors is a content error
// from name sanitization, which aborts the emission.
func (s *Serializer) Serialize(w io.Writer, results []*Result) error {
	doc, err := s.BuildDocument(results)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("failed to write document header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode TRX document: %w", err)
	}
	_, err = io.WriteString(w, "\n")
	return err
}

// BuildDocument assembles the full document structure for one emission.
func (s *Serializer) BuildDocument(results []*Result) (*TestRun, error) {
	now := s.now()
	defaultListID := s.ids.NewID()

	doc := &TestRun{
		ID:      s.ids.NewID(),
		Name:    runName(results),
		RunUser: trxRunUser,
		Xmlns:   trxNamespace,
		Times:   s.buildTimes(results, now),
		TestLists: TestLists{Lists: []TestList{{
			Name: trxDefaultListName,
			ID:   defaultListID,
		}}},
	}

	for _, result := range results {
		if len(result.Occurrences) == 0 {
			continue
		}
		utr, err := s.buildTopLevelResult(result, defaultListID, now)
		if err != nil {
			return nil, err
		}
		doc.Results.UnitTestResults = append(doc.Results.UnitTestResults, utr)
	}

	runHasFailures := false
	for _, result := range results {
		doc.TestDefinitions.UnitTests = append(doc.TestDefinitions.UnitTests, s.buildDefinition(result))
		doc.TestEntries.Entries = append(doc.TestEntries.Entries, TestEntry{
			TestID:      result.TestID,
			ExecutionID: result.ExecutionID,
			TestListID:  defaultListID,
		})
		if !result.IsOk() {
			runHasFailures = true
		}
	}

	doc.Summary.Outcome = outcomePassed
	if runHasFailures {
		doc.Summary.Outcome = outcomeFailed
	}
	if len(s.attachments) > 0 {
		files := &ResultFiles{}
		for _, path := range s.attachments {
			files.Files = append(files.Files, ResultFile{Path: path})
		}
		doc.Summary.ResultFiles = files
	}

	return doc, nil
}

func runName(results []*Result) string {
	if len(results) == 0 {
		return ""
	}
	return results[0].RootRunName()
}

// buildTimes sets creation/queuing/start to the earliest Result's start time
// and finish to the latest Result's finish time; with no Results everything is
// "now".
func (s *Serializer) buildTimes(results []*Result, now time.Time) Times {
	start, finish := now, now
	if len(results) > 0 && len(results[0].Occurrences) > 0 {
		start = results[0].StartTime(now)
		finish = results[len(results)-1].FinishTime(now)
	}
	startText := FormatTimestamp(start)
	return Times{
		Creation: startText,
		Queuing:  startText,
		Start:    startText,
		Finish:   FormatTimestamp(finish),
	}
}

func (s *Serializer) buildTopLevelResult(result *Result, listID string, now time.Time) (UnitTestResult, error) {
	utr := s.newUnitTestResult(result.TestID, result.ExecutionID, result.RootTestName(), listID)
	setTimestamps(&utr, result.StartTime(now), result.FinishTime(now))
	utr.Outcome = outcomeText(result.IsOk())

	if !result.IsDataDriven() {
		utr.Output = s.buildOutput(result.Record(0))
		return utr, nil
	}

	// Composite parent carries no Output block; each occurrence renders as a
	// child data row with its own identifiers.
	utr.ResultType = resultTypeDataDriven
	for i := range result.Occurrences {
		child, err := s.buildInnerResult(result, result.Record(i), listID)
		if err != nil {
			return UnitTestResult{}, err
		}
		utr.Children = append(utr.Children, child)
	}
	return utr, nil
}

func (s *Serializer) buildInnerResult(parent *Result, record *types.TraversalRecord, listID string) (UnitTestResult, error) {
	fullName, err := fullTestName(record)
	if err != nil {
		return UnitTestResult{}, err
	}
	utr := s.newUnitTestResult(s.ids.NewID(), s.ids.NewID(), fullName, listID)
	utr.ParentExecutionID = parent.ExecutionID
	utr.ResultType = resultTypeDataRow
	setTimestamps(&utr, record.StartTime, record.FinishTime)
	utr.Outcome = outcomeText(record.IsOk())
	utr.Output = s.buildOutput(record)
	return utr, nil
}

func (s *Serializer) newUnitTestResult(testID, executionID, testName, listID string) UnitTestResult {
	return UnitTestResult{
		ExecutionID:  executionID,
		TestID:       testID,
		TestName:     testName,
		ComputerName: trxComputerName,
		TestType:     trxTestTypeID,
		TestListID:   listID,
	}
}

func setTimestamps(utr *UnitTestResult, start, finish time.Time) {
	utr.StartTime = FormatTimestamp(start)
	utr.EndTime = FormatTimestamp(finish)
	utr.Duration = FormatDuration(finish.Sub(start))
}

// buildOutput renders the Output block for one occurrence, or nil when the
// occurrence is ok and produced no output. StdOut/StdErr are always present
// for an incomplete occurrence, otherwise only when non-empty.
func (s *Serializer) buildOutput(record *types.TraversalRecord) *Output {
	stdout, stderr := record.Stdout, record.Stderr
	if record.IsOk() && stdout == "" && stderr == "" {
		return nil
	}

	out := &Output{}
	if stdout != "" || !record.Complete {
		out.StdOut = &stdout
	}
	if stderr != "" || !record.Complete {
		out.StdErr = &stderr
	}

	errorMsg := s.errorMessage(record)
	stackMsg := s.stackMessage(record)
	if errorMsg != "" || stackMsg != "" {
		out.ErrorInfo = &ErrorInfo{Message: errorMsg, StackTrace: stackMsg}
	}
	return out
}

// errorMessage composes the ErrorInfo message text for one occurrence: a
// terminated-unexpectedly notice for incomplete runs, one line per failed
// assertion (with its expansion when it differs from the raw expression), and
// any fatal signal with its location.
func (s *Serializer) errorMessage(record *types.TraversalRecord) string {
	var b strings.Builder
	if !record.Complete {
		b.WriteString(incompleteNotice)
	}
	for _, a := range record.Assertions {
		switch {
		case a.Kind == types.AssertionExprFailed:
			// The failure and its expanded form, e.g.:
			//  REQUIRE( x == 1 ) as REQUIRE( 2 == 1 )
			b.WriteString(a.ExpressionInMacro())
			if a.Expression != a.Expanded {
				fmt.Fprintf(&b, " as %s( %s )\n", a.Macro, a.Expanded)
			}
		case a.Kind == types.AssertionThrew:
			fmt.Fprintf(&b, "Exception: %s\n", a.Message)
		case !a.IsOk():
			fmt.Fprintf(&b, "Failed: %s\n", a.Message)
		}
	}
	if record.FatalSignal != "" {
		fmt.Fprintf(&b, "Fatal error: %s at %s",
			record.FatalSignal,
			FormatSourceInfo(s.sourcePrefix, record.FatalSignalFile, record.FatalSignalLine))
	}
	return b.String()
}

// stackMessage composes the ErrorInfo stack text: one source line per
// assertion, plus the last section's location when the occurrence never
// completed.
func (s *Serializer) stackMessage(record *types.TraversalRecord) string {
	var b strings.Builder
	for _, a := range record.Assertions {
		b.WriteString(FormatSourceInfo(s.sourcePrefix, a.File, a.Line))
	}
	if !record.Complete && len(record.Sections) > 0 {
		last := record.Sections[len(record.Sections)-1]
		b.WriteString(FormatSourceInfo(s.sourcePrefix, last.File, last.Line))
	}
	return b.String()
}

// buildDefinition renders the UnitTest definition for one Result.
func (s *Serializer) buildDefinition(result *Result) UnitTest {
	def := UnitTest{
		Name:      result.RootTestName(),
		Storage:   result.RootRunName(),
		ID:        result.TestID,
		Execution: Execution{ID: result.ExecutionID},
		TestMethod: TestMethod{
			CodeBase:        result.RootRunName(),
			AdapterTypeName: trxAdapterTypeName,
			ClassName:       trxClassName,
			Name:            result.RootTestName(),
		},
	}
	if tags := result.RootTags(); len(tags) > 0 {
		category := &TestCategory{}
		for _, tag := range tags {
			category.Items = append(category.Items, TestCategoryItem{TestCategory: tag})
		}
		def.TestCategory = category
	}
	return def
}

// fullTestName joins every section name (sanitized) with " / " to label one
// data row.
func fullTestName(record *types.TraversalRecord) (string, error) {
	parts := make([]string, 0, len(record.Sections))
	for _, section := range record.Sections {
		name, err := SanitizeName(section.Name)
		if err != nil {
			return "", err
		}
		parts = append(parts, name)
	}
	return strings.Join(parts, " / "), nil
}

func outcomeText(ok bool) string {
	if ok {
		return outcomePassed
	}
	return outcomeFailed
}
