package types

import (
	"fmt"
	"time"
)

// AssertionKind classifies the outcome of a single assertion within a traversal.
type AssertionKind string

const (
	AssertionOk           AssertionKind = "ok"
	AssertionExprFailed   AssertionKind = "expression-failed"
	AssertionThrew        AssertionKind = "exception-thrown"
	AssertionOtherFailure AssertionKind = "other-failure"
)

// SectionInfo identifies one section of a nested test, with its source location.
type SectionInfo struct {
	Name string `json:"name"`
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
}

// Assertion captures one assertion outcome together with its expanded form,
// e.g. "x == 1" expanded to "2 == 1".
type Assertion struct {
	Kind       AssertionKind `json:"kind"`
	Macro      string        `json:"macro,omitempty"`      // e.g. "REQUIRE"
	Expression string        `json:"expression,omitempty"` // original expression text
	Expanded   string        `json:"expanded,omitempty"`   // expanded expression text
	Message    string        `json:"message,omitempty"`
	File       string        `json:"file,omitempty"`
	Line       int           `json:"line,omitempty"`
}

// IsOk reports whether the assertion succeeded.
func (a Assertion) IsOk() bool {
	return a.Kind == AssertionOk
}

// ExpressionInMacro returns the assertion as it appeared in the test source,
// e.g. `REQUIRE( x == 1 )`.
func (a Assertion) ExpressionInMacro() string {
	if a.Macro == "" {
		return a.Expression
	}
	return fmt.Sprintf("%s( %s )", a.Macro, a.Expression)
}

// TraversalRecord is one complete depth-first pass through a nested test's
// sections, with captured output, timing and assertion outcomes. Records are
// produced by the test-execution engine and are read-only from the reporter's
// point of view.
type TraversalRecord struct {
	RunName         string        `json:"runName,omitempty"`
	Sections        []SectionInfo `json:"sections"`
	Tags            []string      `json:"tags,omitempty"`
	Stdout          string        `json:"stdout,omitempty"`
	Stderr          string        `json:"stderr,omitempty"`
	StartTime       time.Time     `json:"startTime"`
	FinishTime      time.Time     `json:"finishTime"`
	Complete        bool          `json:"complete"`
	FatalSignal     string        `json:"fatalSignal,omitempty"`
	FatalSignalFile string        `json:"fatalSignalFile,omitempty"`
	FatalSignalLine int           `json:"fatalSignalLine,omitempty"`
	Assertions      []Assertion   `json:"assertions,omitempty"`
}

// IsOk reports whether the traversal completed cleanly: it finished, raised no
// fatal signal, and every assertion succeeded.
func (t *TraversalRecord) IsOk() bool {
	if !t.Complete || t.FatalSignal != "" {
		return false
	}
	for _, a := range t.Assertions {
		if !a.IsOk() {
			return false
		}
	}
	return true
}

// RootSectionName returns the name of the outermost section, or "" when the
// traversal carries no sections.
func (t *TraversalRecord) RootSectionName() string {
	if len(t.Sections) == 0 {
		return ""
	}
	return t.Sections[0].Name
}

// RecordStore is the ordered, append-only store of traversal records for one
// run. The store owns the records; consumers hold indices into it and must
// never outlive it.
type RecordStore struct {
	records []*TraversalRecord
}

// NewRecordStore creates an empty record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{}
}

// Append adds a record to the store and returns its index.
func (s *RecordStore) Append(r *TraversalRecord) int {
	s.records = append(s.records, r)
	return len(s.records) - 1
}

// Len returns the number of records in the store.
func (s *RecordStore) Len() int {
	return len(s.records)
}

// Get returns the record at index i.
func (s *RecordStore) Get(i int) *TraversalRecord {
	return s.records[i]
}
