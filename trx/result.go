package trx

import (
	"time"

	"github.com/ethereum-optimism/infra/op-trx/types"
)

// Result is one logical test: an ordered, non-empty group of traversal
// occurrences sharing a root section name. A Result with more than one
// occurrence is data-driven and renders as a composite entry. Occurrences are
// indices into the caller-owned record store; the Result borrows the records
// and never mutates them.
type Result struct {
	TestID      string
	ExecutionID string
	Occurrences []int

	store *types.RecordStore
}

// NewResult creates a Result over the given store with fresh identifiers.
func NewResult(store *types.RecordStore, ids Generator, occurrences ...int) *Result {
	return &Result{
		TestID:      ids.NewID(),
		ExecutionID: ids.NewID(),
		Occurrences: occurrences,
		store:       store,
	}
}

// GroupTraversals scans the record store left to right and groups adjacent
// records that share a root section name into Results. Adjacency, not full
// equality, is the grouping key: records with the same root name separated by
// a differently-named record form two separate Results. Records without
// sections always form single-occurrence groups. Every record is covered
// exactly once, in order.
func GroupTraversals(store *types.RecordStore, ids Generator) []*Result {
	var results []*Result
	var current *Result
	for i := 0; i < store.Len(); i++ {
		record := store.Get(i)
		if current == nil || startsNewGroup(store, current, record) {
			current = NewResult(store, ids)
			results = append(results, current)
		}
		current.Occurrences = append(current.Occurrences, i)
	}
	return results
}

func startsNewGroup(store *types.RecordStore, group *Result, record *types.TraversalRecord) bool {
	if len(group.Occurrences) == 0 {
		return true
	}
	first := store.Get(group.Occurrences[0])
	return len(first.Sections) == 0 ||
		len(record.Sections) == 0 ||
		first.Sections[0].Name != record.Sections[0].Name
}

// IsDataDriven reports whether the Result holds multiple occurrences.
func (r *Result) IsDataDriven() bool {
	return len(r.Occurrences) > 1
}

// IsOk reports whether every occurrence completed cleanly. An empty occurrence
// list cannot arise from GroupTraversals but is handled as vacuously true.
func (r *Result) IsOk() bool {
	for _, idx := range r.Occurrences {
		if !r.store.Get(idx).IsOk() {
			return false
		}
	}
	return true
}

// Record returns the occurrence at position i within this Result.
func (r *Result) Record(i int) *types.TraversalRecord {
	return r.store.Get(r.Occurrences[i])
}

// RootTestName returns the root section name of the first occurrence, or ""
// when there are no occurrences or sections.
func (r *Result) RootTestName() string {
	if len(r.Occurrences) == 0 {
		return ""
	}
	return r.Record(0).RootSectionName()
}

// RootRunName returns the run name carried by the first occurrence.
func (r *Result) RootRunName() string {
	if len(r.Occurrences) == 0 {
		return ""
	}
	return r.Record(0).RunName
}

// RootTags returns the tag set of the first occurrence.
func (r *Result) RootTags() []string {
	if len(r.Occurrences) == 0 {
		return nil
	}
	return r.Record(0).Tags
}

// StartTime returns the first occurrence's start time. For an in-flight or
// aborted run (first occurrence incomplete) the supplied wall-clock time
// stands in as a placeholder.
func (r *Result) StartTime(now time.Time) time.Time {
	if len(r.Occurrences) == 0 || !r.Record(0).Complete {
		return now
	}
	return r.Record(0).StartTime
}

// FinishTime is symmetric to StartTime, using the last occurrence.
func (r *Result) FinishTime(now time.Time) time.Time {
	if len(r.Occurrences) == 0 {
		return now
	}
	last := r.Record(len(r.Occurrences) - 1)
	if !last.Complete {
		return now
	}
	return last.FinishTime
}
