// Package fetch materializes source descriptors into local files.
//
// Local paths pass through untouched; remote URLs are downloaded to a
// temporary file that the caller removes via Result.Cleanup once the content
// has been folded into an output unit. Each source gets exactly one retrieval
// attempt.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/cmaloney/bindery/internal/source"
)

// Sentinel errors for per-source fetch outcomes. Both are recoverable: the
// pipeline records them and moves on to the next source.
var (
	// ErrSourceNotFound is returned when a local source file does not exist
	// or cannot be opened.
	ErrSourceNotFound = errors.New("source not found")

	// ErrFetchFailed is returned when a remote retrieval fails for any
	// reason: connection error, timeout, or non-2xx status.
	ErrFetchFailed = errors.New("fetch failed")
)

// Result is a fetched source materialized on the local filesystem.
type Result struct {
	Source source.Descriptor
	Path   string
	Size   int64

	cleanup func()
}

// Cleanup removes any temporary file backing the result. It is safe to call
// multiple times and is a no-op for local passthrough sources.
func (r *Result) Cleanup() {
	if r.cleanup != nil {
		r.cleanup()
		r.cleanup = nil
	}
}

// Config configures a Fetcher.
type Config struct {
	// Client issues remote requests. Its Timeout is the single
	// request-level ceiling; there is no per-source retry.
	Client *http.Client

	// TempDir receives downloaded files. Empty means the system default.
	TempDir string

	// UserAgent is sent with every remote request.
	UserAgent string

	Logger *slog.Logger
}

// Fetcher turns descriptors into local byte streams.
type Fetcher struct {
	client    *http.Client
	tempDir   string
	userAgent string
	log       *slog.Logger
}

// New creates a Fetcher from cfg, filling in usable defaults.
func New(cfg Config) *Fetcher {
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{
		client:    client,
		tempDir:   cfg.TempDir,
		userAgent: cfg.UserAgent,
		log:       log,
	}
}

// Fetch materializes a single descriptor. The returned Result is backed by a
// local file; callers must invoke Cleanup when done with it.
func (f *Fetcher) Fetch(ctx context.Context, desc source.Descriptor) (*Result, error) {
	switch desc.Kind {
	case source.KindRemoteURL:
		return f.download(ctx, desc)
	default:
		return f.local(desc)
	}
}

// local verifies that a local source exists and is readable.
func (f *Fetcher) local(desc source.Descriptor) (*Result, error) {
	info, err := os.Stat(desc.Origin)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, desc.Origin)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrSourceNotFound, desc.Origin)
	}
	// Readability check up front so the failure is attributed to the
	// fetch stage, not to the PDF parser downstream.
	r, err := os.Open(desc.Origin)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, desc.Origin)
	}
	r.Close()

	return &Result{Source: desc, Path: desc.Origin, Size: info.Size()}, nil
}

// download retrieves a remote source into a temporary file.
func (f *Fetcher) download(ctx context.Context, desc source.Descriptor) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, desc.Origin, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: HTTP %d from %s", ErrFetchFailed, resp.StatusCode, desc.Origin)
	}

	tmp, err := os.CreateTemp(f.tempDir, "bindery-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("%w: creating temp file: %v", ErrFetchFailed, err)
	}
	tmpPath := tmp.Name()

	size, copyErr := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("%w: writing download: %v", ErrFetchFailed, copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("%w: closing temp file: %v", ErrFetchFailed, closeErr)
	}

	f.log.Debug("downloaded source", "url", desc.Origin, "bytes", size, "path", tmpPath)

	return &Result{
		Source:  desc,
		Path:    tmpPath,
		Size:    size,
		cleanup: func() { os.Remove(tmpPath) },
	}, nil
}
