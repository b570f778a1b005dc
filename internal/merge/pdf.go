package merge

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/cmaloney/bindery/internal/fetch"
)

// PDFHandler merges sources page-for-page into output PDFs using pdfcpu.
type PDFHandler struct{}

// NewPDFHandler returns a handler producing merged PDF output units.
func NewPDFHandler() *PDFHandler {
	return &PDFHandler{}
}

// Prepare validates the fetched PDF and records its page count and byte size.
func (h *PDFHandler) Prepare(res *fetch.Result) (*Document, error) {
	if err := api.ValidateFile(res.Path, nil); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptDocument, res.Source.Name(), err)
	}
	pages, err := api.PageCountFile(res.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptDocument, res.Source.Name(), err)
	}

	size := res.Size
	if info, err := os.Stat(res.Path); err == nil {
		size = info.Size()
	}

	return &Document{
		Source: res.Source,
		Path:   res.Path,
		Size:   size,
		Pages:  pages,
	}, nil
}

// Append folds the document's pages onto the end of the unit file, creating
// it when absent. pdfcpu preserves page order and raw content.
func (h *PDFHandler) Append(doc *Document, unitPath string) error {
	return api.MergeAppendFile([]string{doc.Path}, unitPath, false, nil)
}

// Extension returns ".pdf".
func (h *PDFHandler) Extension() string {
	return ".pdf"
}
