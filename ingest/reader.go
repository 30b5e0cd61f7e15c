package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-trx/types"
)

// Action identifies one lifecycle event in the engine's stream.
type Action string

const (
	ActionRunStart     Action = "run-start"
	ActionSectionStart Action = "section-start"
	ActionTraversal    Action = "traversal"
	ActionRunEnd       Action = "run-end"
)

// Event is one line of the engine's JSON-lines event stream. Traversal events
// carry one complete TraversalRecord; the other actions only mark lifecycle
// points the reporter reacts to.
type Event struct {
	Action  Action                 `json:"action"`
	Time    time.Time              `json:"time,omitempty"`
	Run     string                 `json:"run,omitempty"`
	Section string                 `json:"section,omitempty"`
	Record  *types.TraversalRecord `json:"record,omitempty"`
}

// Hooks receives lifecycle callbacks as the stream is decoded. The TRX
// reporter implements this to drive (re-)emission.
type Hooks interface {
	SectionStarting(name string) error
	TraversalEnded() error
	RunEnded() error
}

// Reader decodes an engine event stream into the record store, firing hooks
// as events arrive. The reader owns nothing: the store and hooks belong to
// the caller.
type Reader struct {
	log            log.Logger
	store          *types.RecordStore
	hooks          Hooks
	defaultRunName string
}

// ReaderOption customizes a Reader.
type ReaderOption func(*Reader)

// WithDefaultRunName stamps records that arrive without a run name. Engines
// that don't carry run metadata in their stream get it from configuration.
func WithDefaultRunName(name string) ReaderOption {
	return func(r *Reader) { r.defaultRunName = name }
}

// NewReader creates a Reader over the given store and hooks.
func NewReader(logger log.Logger, store *types.RecordStore, hooks Hooks, opts ...ReaderOption) *Reader {
	r := &Reader{
		log:   logger,
		store: store,
		hooks: hooks,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Lines in the stream can carry full captured stdout/stderr; allow generous
// room before giving up on a line.
const maxLineBytes = 16 * 1024 * 1024

// ReadAll consumes the stream until EOF. Malformed lines are skipped with a
// warning; everything else degrades gracefully. If the stream ends without a
// run-end event (engine crashed or was killed), RunEnded fires anyway so the
// final document still covers every record received.
func (r *Reader) ReadAll(src io.Reader) error {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	sawRunEnd := false
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			r.log.Warn("Skipping malformed event line", "line", lineNum, "error", err)
			continue
		}

		if err := r.apply(event); err != nil {
			return err
		}
		if event.Action == ActionRunEnd {
			sawRunEnd = true
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read event stream: %w", err)
	}

	if !sawRunEnd {
		r.log.Warn("Event stream ended without a run-end event; finalizing with records received so far",
			"records", r.store.Len())
		return r.hooks.RunEnded()
	}
	return nil
}

func (r *Reader) apply(event Event) error {
	switch event.Action {
	case ActionRunStart:
		r.log.Debug("Run started", "run", event.Run)
		return nil
	case ActionSectionStart:
		return r.hooks.SectionStarting(event.Section)
	case ActionTraversal:
		if event.Record == nil {
			r.log.Warn("Skipping traversal event without a record")
			return nil
		}
		r.scrubRecord(event.Record)
		r.store.Append(event.Record)
		return r.hooks.TraversalEnded()
	case ActionRunEnd:
		r.log.Debug("Run ended", "records", r.store.Len())
		return r.hooks.RunEnded()
	default:
		r.log.Warn("Skipping event with unknown action", "action", event.Action)
		return nil
	}
}

// scrubRecord strips ANSI escape sequences from captured output before it can
// reach the document; engines frequently leak color codes into redirected
// streams.
func (r *Reader) scrubRecord(record *types.TraversalRecord) {
	record.Stdout = stripansi.Strip(record.Stdout)
	record.Stderr = stripansi.Strip(record.Stderr)
	if record.RunName == "" {
		record.RunName = r.defaultRunName
	}
}
