package merge

import (
	"errors"

	"github.com/cmaloney/bindery/internal/fetch"
	"github.com/cmaloney/bindery/internal/source"
)

// Sentinel errors for merge outcomes.
var (
	// ErrCorruptDocument is returned when a fetched source cannot be
	// parsed. Recoverable: the source is recorded as failed and skipped.
	ErrCorruptDocument = errors.New("corrupt document")

	// ErrNoContentMerged is returned when every source failed and no
	// output would be produced. Fatal.
	ErrNoContentMerged = errors.New("no content merged")
)

// Document is a fetched source prepared for appending: parsed, validated,
// and measured. Size is the serialized content size used against the split
// limit; Pages counts PDF pages or transcript sections.
type Document struct {
	Source source.Descriptor
	Path   string
	Size   int64
	Pages  int

	// content holds rendered text for transcript output. Unused by the
	// PDF handler.
	content string
}

// Handler abstracts the output content representation so the engine's
// splitting logic applies uniformly to PDF pages and extracted text.
type Handler interface {
	// Prepare parses and measures a fetched source. A source the
	// underlying library cannot parse yields ErrCorruptDocument.
	Prepare(res *fetch.Result) (*Document, error)

	// Append folds a prepared document into the output unit at unitPath,
	// creating the file on first use.
	Append(doc *Document, unitPath string) error

	// Extension returns the output filename extension, including the dot.
	Extension() string
}
