// Package docmerge implements a batch mail-merge rendering pipeline: it
// merges tabular data rows into a visual document template and produces
// one rendered artifact per row, with per-row failure isolation, progress
// reporting and archive packaging.
//
// The pipeline owns no persistent state and is delivery-agnostic: callers
// supply the template, the rows and the mapping, and receive generated
// files to store or ship however they like.
package docmerge

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/lvillar/docmerge/export"
	"github.com/lvillar/docmerge/format"
	"github.com/lvillar/docmerge/metrics"
	"github.com/lvillar/docmerge/render"
	"github.com/lvillar/docmerge/template"
)

// Config is the immutable per-run generation configuration.
type Config struct {
	Format        string    `json:"format"`      // png, jpeg, pdf, docx
	PageSize      string    `json:"pageSize"`    // A4 (default), Letter, Legal, A3, A5
	Orientation   string    `json:"orientation"` // portrait (default), landscape
	DPI           float64   `json:"dpi"`         // raster density; 0 means 96
	NamingPattern string    `json:"namingPattern"`
	Range         RangeSpec `json:"range"`
	SkipEmptyRows bool      `json:"skipEmptyRows"`
	StopOnError   bool      `json:"stopOnError"`
	ArchiveName   string    `json:"archiveName,omitempty"`
}

// ProgressFunc receives (completed, totalSelected) after every processed
// row. Completed counts skipped and failed rows; it is monotonically
// non-decreasing.
type ProgressFunc func(completed, total int)

// Runner drives batch generation runs. A Runner is stateless across runs
// and safe for reuse; construct one with NewRunner.
type Runner struct {
	log     *zap.Logger
	client  *http.Client
	metrics bool
	now     func() time.Time
}

// NewRunner creates a Runner with the given options.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		log: zap.NewNop(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ValidateMapping reports whether every placeholder in the registry has a
// non-empty column mapping. It gates entry into generation: Run rejects
// an incomplete mapping before processing any row.
func ValidateMapping(mapping map[string]string, registry []template.Placeholder) bool {
	for _, p := range registry {
		if mapping[p.Name] == "" {
			return false
		}
	}
	return true
}

// Run executes one batch generation run: it resolves the configured row
// range, instantiates and exports each selected row, and accumulates a
// Result.
//
// Row-level failures are isolated: they are recorded on the Result and,
// unless cfg.StopOnError is set, do not affect sibling rows. Only
// configuration and construction problems (incomplete mapping, unknown
// output format) return an error, and they do so before any row is
// processed.
//
// Cancellation is cooperative: ctx is polled between rows, never
// preempting a row in flight. A cancelled run returns its partial Result
// with buffered artifacts discarded, not an error.
func (r *Runner) Run(ctx context.Context, tpl *template.Template, rows []Row, mapping map[string]string, cfg Config, onProgress ProgressFunc) (*Result, error) {
	registry := template.BuildRegistry(tpl)
	if !ValidateMapping(mapping, registry) {
		return nil, newBatchError("Run", 0, ErrIncompleteMapping)
	}
	exporter, err := export.New(cfg.Format)
	if err != nil {
		return nil, newBatchError("Run", 0, fmt.Errorf("%w: %q", ErrUnknownFormat, cfg.Format))
	}

	indices := ResolveRange(cfg.Range, len(rows))
	res := &Result{State: StateRunning, Total: len(indices)}

	inst := render.New(r.client)
	settings := export.Settings{
		PageSize:    cfg.PageSize,
		Orientation: cfg.Orientation,
		DPI:         cfg.DPI,
	}
	names := newNameResolver(r.now())

	r.log.Info("batch started",
		zap.String("template", tpl.Name),
		zap.String("format", cfg.Format),
		zap.Int("selected", len(indices)))

	for i, idx := range indices {
		if ctx.Err() != nil {
			res.State = StateCancelled
			res.Files = nil
			r.finish(res)
			return res, nil
		}

		row := rows[idx]
		seq := i + 1

		if cfg.SkipEmptyRows && rowEmpty(row, mapping, registry) {
			r.count(metrics.RowsSkipped)
			r.progress(onProgress, seq, res.Total)
			continue
		}

		file, err := r.renderRow(ctx, inst, exporter, tpl, row, mapping, settings, cfg.NamingPattern, names, seq)
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, RowError{Row: idx + 1, Message: err.Error()})
			r.count(metrics.RowsFailed)
			r.log.Warn("row failed", zap.Int("row", idx+1), zap.Error(err))
			if cfg.StopOnError {
				r.progress(onProgress, seq, res.Total)
				res.State = StateStoppedOnError
				r.finish(res)
				return res, nil
			}
		} else {
			res.Successful++
			res.Files = append(res.Files, file)
			r.count(metrics.RowsRendered)
		}
		r.progress(onProgress, seq, res.Total)
	}

	res.State = StateCompleted
	r.finish(res)
	return res, nil
}

// renderRow runs one row through Instantiator, Exporter and the filename
// resolver. The resolved instance is local to this call and released when
// it returns, bounding peak memory across large batches.
func (r *Runner) renderRow(ctx context.Context, inst *render.Instantiator, exporter export.Exporter, tpl *template.Template, row Row, mapping map[string]string, settings export.Settings, pattern string, names *nameResolver, seq int) (GeneratedFile, error) {
	resolved, err := inst.Instantiate(ctx, tpl, row, mapping)
	if err != nil {
		return GeneratedFile{}, err
	}
	content, err := exporter.Export(resolved, settings)
	if err != nil {
		return GeneratedFile{}, err
	}
	name := names.resolve(pattern, row, mapping, seq)
	return GeneratedFile{Name: name + "." + exporter.Ext(), Content: content}, nil
}

// rowEmpty reports whether every mapped cell of the row is empty.
func rowEmpty(row Row, mapping map[string]string, registry []template.Placeholder) bool {
	for _, p := range registry {
		if format.Stringify(row[mapping[p.Name]]) != "" {
			return false
		}
	}
	return true
}

func (r *Runner) progress(onProgress ProgressFunc, completed, total int) {
	if onProgress != nil {
		onProgress(completed, total)
	}
}

func (r *Runner) count(c prometheus.Counter) {
	if r.metrics {
		c.Inc()
	}
}

func (r *Runner) finish(res *Result) {
	if r.metrics {
		metrics.BatchesFinished.WithLabelValues(res.State.String()).Inc()
	}
	r.log.Info("batch finished",
		zap.String("state", res.State.String()),
		zap.Int("successful", res.Successful),
		zap.Int("failed", res.Failed),
		zap.Int("total", res.Total))
}
