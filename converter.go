package optrx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ethereum-optimism/infra/op-trx/ingest"
	"github.com/ethereum-optimism/infra/op-trx/metrics"
	"github.com/ethereum-optimism/infra/op-trx/reporting"
	"github.com/ethereum-optimism/infra/op-trx/types"
)

// Converter drives one conversion run: it ingests the engine event stream
// into a record store and lets the TRX reporter rewrite the output document
// as lifecycle events arrive.
type Converter struct {
	config   *Config
	version  string
	runID    string
	store    *types.RecordStore
	sink     *reporting.FileSink
	reporter *reporting.TrxReporter
	summary  reporting.Summary

	running atomic.Bool
}

func New(ctx context.Context, config *Config, version string) (*Converter, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	config.Log.Debug("Creating converter with config",
		"input", config.InputPath,
		"output", config.OutputPath,
		"follow", config.Follow,
		"sourcePrefix", config.SourcePrefix,
		"attachments", len(config.AttachmentPaths))

	runID := uuid.New().String()

	store := types.NewRecordStore()
	sink, err := reporting.NewFileSink(config.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output sink: %w", err)
	}

	reporter, err := reporting.NewTrxReporter(reporting.Config{
		Log:             config.Log,
		RunID:           runID,
		Store:           store,
		Output:          sink,
		SourcePrefix:    config.SourcePrefix,
		AttachmentPaths: config.AttachmentPaths,
		Incremental:     config.Follow,
	})
	if err != nil {
		sink.Close() //nolint:errcheck
		return nil, fmt.Errorf("failed to create reporter: %w", err)
	}

	return &Converter{
		config:   config,
		version:  version,
		runID:    runID,
		store:    store,
		sink:     sink,
		reporter: reporter,
	}, nil
}

// Start runs the conversion to completion. It returns a TestFailureError when
// the converted run contains failed results, and a RuntimeError for anything
// that prevented a complete document from being written.
func (c *Converter) Start(ctx context.Context) error {
	c.running.Store(true)
	defer c.running.Store(false)

	if c.config.Follow {
		c.config.Log.Info("Starting op-trx in follow mode", "output", c.config.OutputPath)
	} else {
		c.config.Log.Info("Starting op-trx in run-once mode", "output", c.config.OutputPath)
	}
	start := time.Now()

	input, closeInput, err := c.openInput()
	if err != nil {
		return NewRuntimeError(err)
	}
	defer closeInput()

	reader := ingest.NewReader(c.config.Log, c.store, c.reporter,
		ingest.WithDefaultRunName(c.config.RunName))
	if err := reader.ReadAll(input); err != nil {
		c.config.Log.Error("Conversion failed", "run_id", c.runID, "error", err)
		metrics.RecordErrorDetails("conversion", err)
		return NewRuntimeError(err)
	}

	results := c.reporter.LastResults()
	c.summary = reporting.BuildSummary(results)
	duration := time.Since(start)
	metrics.RecordRun(c.runID, c.summary.Outcome(), c.summary.Total, c.summary.Failed, duration)

	if c.config.Summary {
		reporting.PrintSummaryTable(os.Stdout, c.runID, results, duration)
	}

	c.config.Log.Info("Conversion completed",
		"run_id", c.runID,
		"records", c.store.Len(),
		"results", c.summary.Total,
		"emissions", c.reporter.Emissions(),
		"outcome", c.summary.Outcome(),
		"output", c.config.OutputPath)

	if !c.summary.Ok() {
		return NewTestFailureError(c.summary.String())
	}
	return nil
}

// Stop releases the output sink. The last completed emission remains on disk.
func (c *Converter) Stop(ctx context.Context) error {
	c.config.Log.Info("Stopping op-trx")
	c.running.Store(false)
	if err := c.sink.Close(); err != nil {
		return fmt.Errorf("failed to close output sink: %w", err)
	}
	return nil
}

// Stopped returns true if the converter is not running.
func (c *Converter) Stopped() bool {
	return !c.running.Load()
}

// RunID returns the identifier of this conversion run.
func (c *Converter) RunID() string {
	return c.runID
}

// Summary returns the final run summary; valid after Start returns.
func (c *Converter) Summary() reporting.Summary {
	return c.summary
}

func (c *Converter) openInput() (io.Reader, func(), error) {
	if c.config.InputPath == "" || c.config.InputPath == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(c.config.InputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input '%s': %w", c.config.InputPath, err)
	}
	return f, func() { f.Close() }, nil //nolint:errcheck
}
