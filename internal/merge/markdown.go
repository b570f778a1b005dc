package merge

import (
	"fmt"
	"os"
	"strings"

	"github.com/tsawler/tabula"

	"github.com/cmaloney/bindery/internal/fetch"
)

// MarkdownHandler renders sources as a plain-text transcript instead of
// merged pages. Each page becomes a section headed by its originating source,
// so the split logic sees text length as the content size.
type MarkdownHandler struct{}

// NewMarkdownHandler returns a handler producing Markdown transcript units.
func NewMarkdownHandler() *MarkdownHandler {
	return &MarkdownHandler{}
}

// Prepare extracts per-page text from the fetched PDF and renders the
// document's transcript sections.
func (h *MarkdownHandler) Prepare(res *fetch.Result) (*Document, error) {
	ext := tabula.Open(res.Path)
	pages, err := ext.PageCount()
	ext.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptDocument, res.Source.Name(), err)
	}

	var b strings.Builder
	for page := 1; page <= pages; page++ {
		text, _, err := tabula.Open(res.Path).Pages(page).Text()
		if err != nil {
			return nil, fmt.Errorf("%w: %s page %d: %v", ErrCorruptDocument, res.Source.Name(), page, err)
		}
		b.WriteString(renderSection(res.Source.Name(), page, text))
	}
	content := b.String()

	return &Document{
		Source:  res.Source,
		Path:    res.Path,
		Size:    int64(len(content)),
		Pages:   pages,
		content: content,
	}, nil
}

// Append writes the rendered sections onto the end of the unit file.
func (h *MarkdownHandler) Append(doc *Document, unitPath string) error {
	f, err := os.OpenFile(unitPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	_, writeErr := f.WriteString(doc.content)
	closeErr := f.Close()
	if writeErr != nil {
		return writeErr
	}
	return closeErr
}

// Extension returns ".md".
func (h *MarkdownHandler) Extension() string {
	return ".md"
}

// renderSection formats one extracted page as a transcript section.
func renderSection(name string, page int, text string) string {
	return fmt.Sprintf("## Document: %s, Page: %d\n\n%s\n\n", name, page, text)
}
