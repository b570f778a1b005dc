// Package merge accumulates fetched documents into size-bounded output units.
//
// The engine is a two-state machine: it accumulates documents into the open
// unit and transitions through finalizing whenever appending the next
// document would push the unit past the configured ceiling. The ceiling is a
// soft boundary checked only between whole documents; a single document is
// never split across units.
package merge

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cmaloney/bindery/internal/fetch"
)

type state int

const (
	stateAccumulating state = iota
	stateFinalizing
)

// OutputUnit is one finalized output artifact. Immutable once closed.
type OutputUnit struct {
	Seq       int
	Path      string
	Size      int64
	Pages     int
	Documents int
}

// Config configures an Engine.
type Config struct {
	Handler Handler

	// OutputDir receives the output units. Created if absent.
	OutputDir string

	// BaseName is the configured output filename, e.g. "merged.pdf". Its
	// extension is replaced by the handler's.
	BaseName string

	// MaxBytes is the size ceiling that triggers a split. Zero disables
	// splitting entirely.
	MaxBytes int64

	Logger *slog.Logger
}

// Engine appends documents to the current output unit and splits into a new
// unit when the projected size would exceed the configured ceiling.
type Engine struct {
	handler Handler
	outDir  string
	base    string
	limit   int64
	log     *slog.Logger

	state  state
	unit   *OutputUnit
	closed []OutputUnit
	merged int
}

// NewEngine creates an engine in the accumulating state with a fresh empty
// unit (sequence number 1).
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Handler == nil {
		return nil, fmt.Errorf("merge: handler is required")
	}
	if cfg.BaseName == "" {
		return nil, fmt.Errorf("merge: base name is required")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating output directory %s: %w", cfg.OutputDir, err)
		}
	}
	e := &Engine{
		handler: cfg.Handler,
		outDir:  cfg.OutputDir,
		base:    cfg.BaseName,
		limit:   cfg.MaxBytes,
		log:     log,
		state:   stateAccumulating,
	}
	e.unit = e.open(1)
	return e, nil
}

// Add prepares a fetched source and appends it to the current unit, splitting
// first when the projected size would exceed the limit and the unit already
// holds at least one document.
func (e *Engine) Add(res *fetch.Result) (*Document, error) {
	doc, err := e.handler.Prepare(res)
	if err != nil {
		return nil, err
	}

	if e.limit > 0 && e.unit.Documents > 0 && e.unit.Size+doc.Size > e.limit {
		e.state = stateFinalizing
		e.finalize()
		e.unit = e.open(e.unit.Seq + 1)
		e.state = stateAccumulating
	}

	if err := e.handler.Append(doc, e.unit.Path); err != nil {
		return nil, fmt.Errorf("appending %s to %s: %w", doc.Source.Name(), e.unit.Path, err)
	}

	// Accumulated size is what actually landed on disk, not the sum of
	// input sizes; merged PDFs share resources and compress differently.
	if info, err := os.Stat(e.unit.Path); err == nil {
		e.unit.Size = info.Size()
	} else {
		e.unit.Size += doc.Size
	}
	e.unit.Pages += doc.Pages
	e.unit.Documents++
	e.merged++

	e.log.Debug("appended document",
		"source", doc.Source.Name(),
		"unit", e.unit.Seq,
		"unit_size", e.unit.Size,
		"unit_docs", e.unit.Documents,
	)
	return doc, nil
}

// Close finalizes the current unit regardless of size and returns every unit
// produced, in sequence order. When no document was merged at all it returns
// ErrNoContentMerged and no output file exists.
func (e *Engine) Close() ([]OutputUnit, error) {
	if e.merged == 0 {
		return nil, ErrNoContentMerged
	}
	e.state = stateFinalizing
	if e.unit.Documents > 0 {
		e.finalize()
	}
	return e.closed, nil
}

// MergedCount returns the number of documents folded into units so far.
func (e *Engine) MergedCount() int {
	return e.merged
}

// Units returns the finalized units so far.
func (e *Engine) Units() []OutputUnit {
	return e.closed
}

// finalize closes the current unit. The unit file is already complete on
// disk; finalizing is bookkeeping.
func (e *Engine) finalize() {
	e.closed = append(e.closed, *e.unit)
	e.log.Info("output unit finalized",
		"unit", e.unit.Seq,
		"path", e.unit.Path,
		"bytes", e.unit.Size,
		"pages", e.unit.Pages,
		"documents", e.unit.Documents,
	)
}

// open starts a fresh empty unit with the given sequence number. Any file
// left at the unit path by an earlier run is removed; appends must start
// from empty so re-running the same inputs produces the same outputs.
func (e *Engine) open(seq int) *OutputUnit {
	path := filepath.Join(e.outDir, e.unitName(seq))
	os.Remove(path)
	return &OutputUnit{Seq: seq, Path: path}
}

// unitName builds the output filename for a unit. Unit 1 uses the configured
// base name; later units insert "-<seq>" before the extension so produced
// files sort deterministically.
func (e *Engine) unitName(seq int) string {
	ext := e.handler.Extension()
	stem := strings.TrimSuffix(e.base, filepath.Ext(e.base))
	if seq == 1 {
		return stem + ext
	}
	return fmt.Sprintf("%s-%d%s", stem, seq, ext)
}
