// Package pipeline runs the single-pass merge: resolve sources, fetch each
// one, fold it into the current output unit, and record the outcome. One
// source completes before the next begins; per-source failures never abort
// the batch.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/cmaloney/bindery/internal/config"
	"github.com/cmaloney/bindery/internal/fetch"
	"github.com/cmaloney/bindery/internal/merge"
	"github.com/cmaloney/bindery/internal/report"
	"github.com/cmaloney/bindery/internal/source"
)

// Result is the outcome of a completed run.
type Result struct {
	Units  []merge.OutputUnit
	Report *report.Report
}

// Pipeline wires the resolver, fetcher, engine, and reporter together for
// one run.
type Pipeline struct {
	cfg     *config.Config
	log     *slog.Logger
	fetcher *fetch.Fetcher
	handler merge.Handler
}

// Option adjusts pipeline construction; used by tests to inject fakes.
type Option func(*Pipeline)

// WithHandler overrides the output handler chosen from the config.
func WithHandler(h merge.Handler) Option {
	return func(p *Pipeline) { p.handler = h }
}

// WithFetcher overrides the default fetcher.
func WithFetcher(f *fetch.Fetcher) Option {
	return func(p *Pipeline) { p.fetcher = f }
}

// New builds a pipeline for cfg. The logger is threaded through every stage;
// no stage reads ambient state.
func New(cfg *config.Config, log *slog.Logger, opts ...Option) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	p := &Pipeline{
		cfg: cfg,
		log: log.With("run_id", uuid.New().String()[:8]),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.fetcher == nil {
		p.fetcher = fetch.New(fetch.Config{
			Client:    &http.Client{Timeout: cfg.HTTPTimeout},
			UserAgent: cfg.UserAgent,
			Logger:    p.log,
		})
	}
	if p.handler == nil {
		if cfg.Markdown {
			p.handler = merge.NewMarkdownHandler()
		} else {
			p.handler = merge.NewPDFHandler()
		}
	}
	return p
}

// Run executes the merge. The returned Report is populated even when Run
// fails, so callers can always surface the per-source outcomes. The error is
// non-nil only for the two fatal conditions: no usable input, or every
// source failed.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	rep := report.New()
	result := &Result{Report: rep}

	sources, err := source.Resolve(p.cfg.InputDir, p.cfg.Manifest)
	if err != nil {
		return result, err
	}
	p.log.Info("resolved sources", "count", len(sources), "markdown", p.cfg.Markdown)

	engine, err := merge.NewEngine(merge.Config{
		Handler:   p.handler,
		OutputDir: p.cfg.OutputDir,
		BaseName:  p.cfg.Output,
		MaxBytes:  p.cfg.MaxSizeBytes(),
		Logger:    p.log,
	})
	if err != nil {
		return result, err
	}

	for _, desc := range sources {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := p.process(ctx, engine, desc); err != nil {
			p.log.Warn("skipping source", "source", desc.Origin, "reason", err)
			rep.Fail(desc, err)
			continue
		}
		rep.Success(desc)
	}

	units, err := engine.Close()
	if err != nil {
		return result, fmt.Errorf("%w: all %d sources failed", err, len(sources))
	}
	result.Units = units

	if p.cfg.Markdown && len(units) > 0 {
		last := units[len(units)-1]
		rep.AppendTo(last.Path, p.log)
	}
	return result, nil
}

// process fetches one source and folds it into the engine. The fetched temp
// file is removed on every exit path.
func (p *Pipeline) process(ctx context.Context, engine *merge.Engine, desc source.Descriptor) error {
	res, err := p.fetcher.Fetch(ctx, desc)
	if err != nil {
		return err
	}
	defer res.Cleanup()

	_, err = engine.Add(res)
	return err
}
