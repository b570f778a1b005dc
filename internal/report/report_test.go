package report

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cmaloney/bindery/internal/source"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReportCounts(t *testing.T) {
	r := New()
	r.Success(source.Descriptor{Origin: "a.pdf", OrderIndex: 0})
	r.Fail(source.Descriptor{Origin: "b.pdf", OrderIndex: 1}, errors.New("fetch failed"))
	r.Success(source.Descriptor{Origin: "c.pdf", OrderIndex: 2})

	if r.MergedCount() != 2 {
		t.Errorf("expected 2 merged, got %d", r.MergedCount())
	}
	if r.FailedCount() != 1 {
		t.Errorf("expected 1 failed, got %d", r.FailedCount())
	}
	if r.Succeeded[0].Origin != "a.pdf" || r.Succeeded[1].Origin != "c.pdf" {
		t.Errorf("success order not preserved: %+v", r.Succeeded)
	}
}

func TestReportSummary(t *testing.T) {
	r := New()
	r.Success(source.Descriptor{Origin: "a.pdf"})
	r.Fail(source.Descriptor{Origin: "https://example.com/b.pdf"}, errors.New("HTTP 404"))

	s := r.Summary()
	if !strings.Contains(s, "1 merged, 1 failed (total: 2)") {
		t.Errorf("summary missing counts: %q", s)
	}
	if !strings.Contains(s, "https://example.com/b.pdf") || !strings.Contains(s, "HTTP 404") {
		t.Errorf("summary missing failure detail: %q", s)
	}
}

func TestReportMarkdown(t *testing.T) {
	t.Run("includes failures section when present", func(t *testing.T) {
		r := New()
		r.Success(source.Descriptor{Origin: "a.pdf"})
		r.Fail(source.Descriptor{Origin: "b.pdf"}, errors.New("corrupt document"))

		md := r.Markdown()
		for _, want := range []string{"## Merge Summary", "- Merged: 1", "- Failed: 1", "### Failures", "`b.pdf`", "corrupt document"} {
			if !strings.Contains(md, want) {
				t.Errorf("markdown missing %q:\n%s", want, md)
			}
		}
	})

	t.Run("omits failures section when clean", func(t *testing.T) {
		r := New()
		r.Success(source.Descriptor{Origin: "a.pdf"})

		if strings.Contains(r.Markdown(), "### Failures") {
			t.Errorf("unexpected failures section in clean report")
		}
	})
}

func TestReportAppendTo(t *testing.T) {
	t.Run("appends the markdown summary", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "merged.md")
		if err := os.WriteFile(path, []byte("transcript body\n"), 0o644); err != nil {
			t.Fatal(err)
		}

		r := New()
		r.Success(source.Descriptor{Origin: "a.pdf"})
		r.AppendTo(path, discard())

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(string(data), "transcript body\n") {
			t.Errorf("existing content overwritten")
		}
		if !strings.Contains(string(data), "## Merge Summary") {
			t.Errorf("summary not appended")
		}
	})

	t.Run("swallows write failures", func(t *testing.T) {
		r := New()
		// Directory as target: open fails, must not panic or error out
		r.AppendTo(t.TempDir(), discard())
	})
}
