package reporting

import (
	"fmt"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-trx/metrics"
	"github.com/ethereum-optimism/infra/op-trx/trx"
	"github.com/ethereum-optimism/infra/op-trx/types"
)

// OutputSink abstracts the rewritable output target for document emissions.
// Reset prepares the sink for a full rewrite; for a file that means seeking to
// the start and truncating. Resetting before every write is what keeps the
// last completed emission valid if the process dies mid-run.
type OutputSink interface {
	io.Writer
	Reset() error
}

// Config configures a TrxReporter.
type Config struct {
	Log             log.Logger
	RunID           string
	Store           *types.RecordStore
	Output          OutputSink
	SourcePrefix    string
	AttachmentPaths []string

	// Incremental re-emits the full document on every lifecycle event instead
	// of once at run end. Requires an output that supports Reset.
	Incremental bool

	// IDs and Now are injectable for deterministic tests; production uses
	// random IDs and the wall clock.
	IDs trx.Generator
	Now func() time.Time
}

// TrxReporter drives TRX document emission from engine lifecycle events.
// Every emission re-runs the full aggregation and serialization pipeline over
// the current record store; there is no partial update. Emissions are
// strictly ordered by the sequence of lifecycle calls.
type TrxReporter struct {
	log         log.Logger
	runID       string
	store       *types.RecordStore
	out         OutputSink
	ids         trx.Generator
	serializer  *trx.Serializer
	incremental bool

	emissions   int
	lastResults []*trx.Result
}

// NewTrxReporter creates a reporter over a caller-owned record store and
// output sink.
func NewTrxReporter(cfg Config) (*TrxReporter, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("record store is required")
	}
	if cfg.Output == nil {
		return nil, fmt.Errorf("output sink is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.Root()
	}
	if cfg.IDs == nil {
		cfg.IDs = trx.NewRandomGenerator()
	}

	opts := []trx.SerializerOption{trx.WithIDGenerator(cfg.IDs)}
	if cfg.Now != nil {
		opts = append(opts, trx.WithClock(cfg.Now))
	}

	return &TrxReporter{
		log:         cfg.Log,
		runID:       cfg.RunID,
		store:       cfg.Store,
		out:         cfg.Output,
		ids:         cfg.IDs,
		serializer:  trx.NewSerializer(cfg.SourcePrefix, cfg.AttachmentPaths, opts...),
		incremental: cfg.Incremental,
	}, nil
}

// SectionStarting re-emits the document in incremental mode so consumers see
// the section the engine is about to enter reflected in timing placeholders.
func (r *TrxReporter) SectionStarting(name string) error {
	if !r.incremental {
		return nil
	}
	r.log.Debug("Section starting, re-emitting", "section", name)
	return r.Emit()
}

// TraversalEnded re-emits the document in incremental mode after a record has
// been appended to the store.
func (r *TrxReporter) TraversalEnded() error {
	if !r.incremental {
		return nil
	}
	return r.Emit()
}

// RunEnded performs the single end-of-run emission when incremental output is
// not in use. In incremental mode the final traversal already produced the
// complete document.
func (r *TrxReporter) RunEnded() error {
	if r.incremental {
		return nil
	}
	return r.Emit()
}

// Emit rebuilds the complete document from the full current record set and
// rewrites the output. Content errors abort the emission and surface to the
// caller unrecovered.
func (r *TrxReporter) Emit() error {
	if err := r.out.Reset(); err != nil {
		metrics.RecordErrorDetails("output reset", err)
		return fmt.Errorf("failed to reset output: %w", err)
	}

	results := trx.GroupTraversals(r.store, r.ids)
	if err := r.serializer.Serialize(r.out, results); err != nil {
		metrics.RecordErrorDetails("serialize", err)
		return err
	}

	r.emissions++
	r.lastResults = results
	metrics.RecordEmission(r.runID, len(results))
	r.log.Debug("Emitted TRX document",
		"emission", r.emissions,
		"records", r.store.Len(),
		"results", len(results))
	return nil
}

// Emissions returns how many documents have been written so far.
func (r *TrxReporter) Emissions() int {
	return r.emissions
}

// LastResults returns the Result set of the most recent emission. The slice
// is owned by the reporter; callers must not mutate it.
func (r *TrxReporter) LastResults() []*trx.Result {
	return r.lastResults
}
