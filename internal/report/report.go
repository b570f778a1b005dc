// Package report collects per-source outcomes and renders run summaries.
package report

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/cmaloney/bindery/internal/source"
)

// Failure records one source that could not be merged and why.
type Failure struct {
	Source source.Descriptor
	Reason error
}

// Report accumulates outcomes in input order. It is built incrementally by
// the pipeline and read-only once the run completes.
type Report struct {
	Succeeded []source.Descriptor
	Failed    []Failure
}

// New returns an empty report.
func New() *Report {
	return &Report{}
}

// Success records a source whose content was folded into an output unit.
func (r *Report) Success(d source.Descriptor) {
	r.Succeeded = append(r.Succeeded, d)
}

// Fail records a source that was skipped, with the reason.
func (r *Report) Fail(d source.Descriptor, reason error) {
	r.Failed = append(r.Failed, Failure{Source: d, Reason: reason})
}

// MergedCount returns the number of successfully merged sources.
func (r *Report) MergedCount() int {
	return len(r.Succeeded)
}

// FailedCount returns the number of skipped sources.
func (r *Report) FailedCount() int {
	return len(r.Failed)
}

// Summary renders a human-readable run summary: counts, then one line per
// failure with its reason.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Merge summary: %d merged, %d failed (total: %d)\n",
		r.MergedCount(), r.FailedCount(), r.MergedCount()+r.FailedCount())
	for _, f := range r.Failed {
		fmt.Fprintf(&b, "  failed: %s (%v)\n", f.Source.Origin, f.Reason)
	}
	return b.String()
}

// Markdown renders the summary as a Markdown section, suitable for embedding
// at the end of a transcript.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("## Merge Summary\n\n")
	fmt.Fprintf(&b, "- Merged: %d\n", r.MergedCount())
	fmt.Fprintf(&b, "- Failed: %d\n", r.FailedCount())
	if len(r.Failed) > 0 {
		b.WriteString("\n### Failures\n\n")
		for _, f := range r.Failed {
			fmt.Fprintf(&b, "- `%s`: %v\n", f.Source.Origin, f.Reason)
		}
	}
	return b.String()
}

// Log writes the summary through the logger, one record per outcome class.
func (r *Report) Log(log *slog.Logger) {
	log.Info("merge summary", "merged", r.MergedCount(), "failed", r.FailedCount())
	for _, f := range r.Failed {
		log.Warn("source skipped", "source", f.Source.Origin, "reason", f.Reason)
	}
}

// AppendTo appends the Markdown summary to the file at path. A reporting
// failure must not erase an otherwise-successful merge, so errors are logged
// and swallowed.
func (r *Report) AppendTo(path string, log *slog.Logger) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Warn("could not append summary", "path", path, "error", err)
		return
	}
	defer f.Close()
	if _, err := f.WriteString(r.Markdown()); err != nil {
		log.Warn("could not append summary", "path", path, "error", err)
	}
}
