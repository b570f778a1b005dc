package merge

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/cmaloney/bindery/internal/fetch"
	"github.com/cmaloney/bindery/internal/source"
)

// fakeHandler treats each fetched result's declared size as its content and
// appends that many bytes to the unit file, so the engine's stat-based size
// accounting behaves like the real handlers without touching a PDF library.
type fakeHandler struct {
	appended []string // source names in append order
	corrupt  map[string]bool
}

func (h *fakeHandler) Prepare(res *fetch.Result) (*Document, error) {
	if h.corrupt[res.Source.Name()] {
		return nil, fmt.Errorf("%w: %s", ErrCorruptDocument, res.Source.Name())
	}
	return &Document{Source: res.Source, Path: res.Path, Size: res.Size, Pages: 1}, nil
}

func (h *fakeHandler) Append(doc *Document, unitPath string) error {
	f, err := os.OpenFile(unitPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(bytes.Repeat([]byte("x"), int(doc.Size))); err != nil {
		return err
	}
	h.appended = append(h.appended, doc.Source.Name())
	return nil
}

func (h *fakeHandler) Extension() string { return ".pdf" }

func result(name string, size int64, order int) *fetch.Result {
	return &fetch.Result{
		Source: source.Descriptor{Origin: name, Kind: source.KindLocalPath, OrderIndex: order},
		Path:   name,
		Size:   size,
	}
}

func newTestEngine(t *testing.T, h Handler, maxBytes int64) (*Engine, string) {
	t.Helper()
	dir := t.TempDir()
	e, err := NewEngine(Config{
		Handler:   h,
		OutputDir: dir,
		BaseName:  "merged.pdf",
		MaxBytes:  maxBytes,
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e, dir
}

func addAll(t *testing.T, e *Engine, results ...*fetch.Result) {
	t.Helper()
	for _, r := range results {
		if _, err := e.Add(r); err != nil {
			t.Fatalf("Add(%s): %v", r.Source.Origin, err)
		}
	}
}

func TestEngineSingleUnit(t *testing.T) {
	h := &fakeHandler{}
	e, dir := newTestEngine(t, h, 0)

	addAll(t, e,
		result("a.pdf", 10, 0),
		result("b.pdf", 20, 1),
		result("c.pdf", 30, 2),
	)

	units, err := e.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(units) != 1 {
		t.Fatalf("expected 1 unit without a limit, got %d", len(units))
	}
	u := units[0]
	if u.Seq != 1 {
		t.Errorf("expected sequence 1, got %d", u.Seq)
	}
	if u.Path != filepath.Join(dir, "merged.pdf") {
		t.Errorf("expected base filename for unit 1, got %s", u.Path)
	}
	if u.Size != 60 {
		t.Errorf("expected accumulated size 60, got %d", u.Size)
	}
	if u.Documents != 3 || u.Pages != 3 {
		t.Errorf("expected 3 documents / 3 pages, got %d / %d", u.Documents, u.Pages)
	}

	want := []string{"a.pdf", "b.pdf", "c.pdf"}
	for i, name := range h.appended {
		if name != want[i] {
			t.Errorf("append order position %d: expected %s, got %s", i, want[i], name)
		}
	}
}

func TestEngineSplitsAtLimit(t *testing.T) {
	// Any two 20-byte documents exceed the 30-byte ceiling, so each lands
	// in its own unit.
	h := &fakeHandler{}
	e, dir := newTestEngine(t, h, 30)

	addAll(t, e,
		result("a.pdf", 20, 0),
		result("b.pdf", 20, 1),
		result("c.pdf", 20, 2),
	)

	units, err := e.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(units) != 3 {
		t.Fatalf("expected 3 units, got %d", len(units))
	}

	wantPaths := []string{"merged.pdf", "merged-2.pdf", "merged-3.pdf"}
	for i, u := range units {
		if u.Seq != i+1 {
			t.Errorf("unit %d: expected sequence %d, got %d", i, i+1, u.Seq)
		}
		if u.Path != filepath.Join(dir, wantPaths[i]) {
			t.Errorf("unit %d: expected path %s, got %s", i, wantPaths[i], u.Path)
		}
		if u.Documents != 1 {
			t.Errorf("unit %d: expected exactly one document, got %d", i, u.Documents)
		}
		if u.Size != 20 {
			t.Errorf("unit %d: expected size 20, got %d", i, u.Size)
		}
	}
}

func TestEngineFillsUnitsBeforeSplitting(t *testing.T) {
	h := &fakeHandler{}
	e, _ := newTestEngine(t, h, 50)

	addAll(t, e,
		result("a.pdf", 20, 0),
		result("b.pdf", 20, 1), // 40 <= 50, stays
		result("c.pdf", 20, 2), // 60 > 50, splits
	)

	units, err := e.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}
	if units[0].Documents != 2 || units[0].Size != 40 {
		t.Errorf("unit 1: expected 2 documents of 40 bytes, got %d documents, %d bytes", units[0].Documents, units[0].Size)
	}
	if units[1].Documents != 1 || units[1].Size != 20 {
		t.Errorf("unit 2: expected 1 document of 20 bytes, got %d documents, %d bytes", units[1].Documents, units[1].Size)
	}
}

func TestEngineOversizedDocumentOccupiesOneUnit(t *testing.T) {
	t.Run("as the only source", func(t *testing.T) {
		h := &fakeHandler{}
		e, _ := newTestEngine(t, h, 10)

		addAll(t, e, result("huge.pdf", 50, 0))

		units, err := e.Close()
		if err != nil {
			t.Fatalf("Close: %v", err)
		}
		if len(units) != 1 {
			t.Fatalf("expected 1 unit, got %d", len(units))
		}
		if units[0].Size != 50 || units[0].Documents != 1 {
			t.Errorf("oversized document must occupy exactly one unit, got %+v", units[0])
		}
	})

	t.Run("mid-stream", func(t *testing.T) {
		h := &fakeHandler{}
		e, _ := newTestEngine(t, h, 10)

		addAll(t, e,
			result("a.pdf", 5, 0),
			result("huge.pdf", 50, 1),
			result("b.pdf", 5, 2),
		)

		units, err := e.Close()
		if err != nil {
			t.Fatalf("Close: %v", err)
		}
		if len(units) != 3 {
			t.Fatalf("expected 3 units, got %d", len(units))
		}
		if units[1].Documents != 1 || units[1].Size != 50 {
			t.Errorf("expected the oversized document alone in unit 2, got %+v", units[1])
		}
	})
}

func TestEngineNoContentMerged(t *testing.T) {
	h := &fakeHandler{}
	e, dir := newTestEngine(t, h, 0)

	units, err := e.Close()
	if !errors.Is(err, ErrNoContentMerged) {
		t.Fatalf("expected ErrNoContentMerged, got %v", err)
	}
	if len(units) != 0 {
		t.Errorf("expected no units, got %d", len(units))
	}

	// No zero-byte output file may exist
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no output files, found %d", len(entries))
	}
}

func TestEngineCorruptDocument(t *testing.T) {
	h := &fakeHandler{corrupt: map[string]bool{"bad.pdf": true}}
	e, _ := newTestEngine(t, h, 0)

	if _, err := e.Add(result("bad.pdf", 10, 0)); !errors.Is(err, ErrCorruptDocument) {
		t.Fatalf("expected ErrCorruptDocument, got %v", err)
	}
	addAll(t, e, result("good.pdf", 10, 1))

	units, err := e.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(units) != 1 || units[0].Documents != 1 {
		t.Errorf("corrupt document must not count toward the unit, got %+v", units)
	}
}

func TestEngineReplacesStaleUnitFile(t *testing.T) {
	// A unit file left by an earlier run must not be appended into.
	dir := t.TempDir()
	stale := filepath.Join(dir, "merged.pdf")
	if err := os.WriteFile(stale, bytes.Repeat([]byte("y"), 100), 0o644); err != nil {
		t.Fatal(err)
	}

	h := &fakeHandler{}
	e, err := NewEngine(Config{Handler: h, OutputDir: dir, BaseName: "merged.pdf"})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	addAll(t, e, result("a.pdf", 10, 0))

	units, err := e.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if units[0].Size != 10 {
		t.Errorf("expected stale content discarded, got unit size %d", units[0].Size)
	}
	data, err := os.ReadFile(stale)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 10 || bytes.ContainsRune(data, 'y') {
		t.Errorf("stale bytes survived into the new unit: %d bytes", len(data))
	}
}

func TestEngineCreatesOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "nested")
	e, err := NewEngine(Config{Handler: &fakeHandler{}, OutputDir: dir, BaseName: "merged.pdf"})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if _, statErr := os.Stat(dir); statErr != nil {
		t.Errorf("output directory not created: %v", statErr)
	}
	addAll(t, e, result("a.pdf", 5, 0))
	if _, err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
