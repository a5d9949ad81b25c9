// Command docmerge merges a CSV dataset into a JSON document template and
// writes one rendered artifact per row (or a single archive) to disk.
//
// Usage:
//
//	docmerge -template certificate.json -data students.csv -out ./dist \
//	    -format pdf -page A4 -orientation landscape \
//	    -pattern 'Cert_{{Name}}_{{sequence}}' -rows '1-50'
//
// The mapping between placeholders and CSV columns defaults to matching
// names; override with -mapping 'Placeholder=Column,Other=Column2'.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/lvillar/docmerge"
	"github.com/lvillar/docmerge/metrics"
	"github.com/lvillar/docmerge/template"
)

func main() {
	var (
		templatePath = flag.String("template", "", "path to the JSON template (required)")
		dataPath     = flag.String("data", "", "path to the CSV data file (required)")
		outDir       = flag.String("out", ".", "output directory")
		formatName   = flag.String("format", "pdf", "output format: png, jpeg, pdf, docx")
		pageSize     = flag.String("page", "A4", "page size: A4, Letter, Legal, A3, A5")
		orientation  = flag.String("orientation", "portrait", "page orientation: portrait, landscape")
		dpi          = flag.Float64("dpi", 96, "raster density")
		pattern      = flag.String("pattern", "Document_{{sequence}}", "file naming pattern")
		rowSpec      = flag.String("rows", "", "row selection, e.g. '1-50,75' (default: all rows)")
		mappingSpec  = flag.String("mapping", "", "placeholder=column pairs, comma separated")
		batchName    = flag.String("name", "", "archive base name (default: template name)")
		skipEmpty    = flag.Bool("skip-empty", false, "skip rows whose mapped cells are all empty")
		stopOnError  = flag.Bool("stop-on-error", false, "stop at the first failing row")
		metricsAddr  = flag.String("metrics-addr", "", "serve prometheus metrics on this address")
		verbose      = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	if *templatePath == "" || *dataPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	log := buildLogger(*verbose)
	defer log.Sync()

	if err := run(log, options{
		templatePath: *templatePath,
		dataPath:     *dataPath,
		outDir:       *outDir,
		mappingSpec:  *mappingSpec,
		batchName:    *batchName,
		metricsAddr:  *metricsAddr,
		config: docmerge.Config{
			Format:        *formatName,
			PageSize:      *pageSize,
			Orientation:   *orientation,
			DPI:           *dpi,
			NamingPattern: *pattern,
			Range:         rangeSpec(*rowSpec),
			SkipEmptyRows: *skipEmpty,
			StopOnError:   *stopOnError,
		},
	}); err != nil {
		fmt.Fprintf(os.Stderr, "docmerge: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	templatePath string
	dataPath     string
	outDir       string
	mappingSpec  string
	batchName    string
	metricsAddr  string
	config       docmerge.Config
}

func run(log *zap.Logger, opts options) error {
	tpl, err := loadTemplate(opts.templatePath)
	if err != nil {
		return err
	}
	columns, rows, err := loadRows(opts.dataPath)
	if err != nil {
		return err
	}

	registry := template.BuildRegistry(tpl)
	mapping := buildMapping(opts.mappingSpec, registry, columns)
	if !docmerge.ValidateMapping(mapping, registry) {
		return fmt.Errorf("mapping does not cover every placeholder; have columns %s", strings.Join(columns, ", "))
	}

	runnerOpts := []docmerge.Option{docmerge.WithLogger(log)}
	if opts.metricsAddr != "" {
		metrics.Init()
		go func() {
			if err := metrics.Serve(opts.metricsAddr); err != nil {
				log.Warn("metrics server stopped", zap.Error(err))
			}
		}()
		runnerOpts = append(runnerOpts, docmerge.WithMetrics())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runner := docmerge.NewRunner(runnerOpts...)
	result, err := runner.Run(ctx, tpl, rows, mapping, opts.config, func(done, total int) {
		log.Debug("progress", zap.Int("done", done), zap.Int("total", total))
	})
	if err != nil {
		return err
	}

	log.Info("run finished",
		zap.String("state", result.State.String()),
		zap.Int("successful", result.Successful),
		zap.Int("failed", result.Failed))
	for _, re := range result.Errors {
		log.Warn("row error", zap.Int("row", re.Row), zap.String("message", re.Message))
	}
	if len(result.Files) == 0 {
		return fmt.Errorf("no files generated (state %s)", result.State)
	}

	batchName := opts.batchName
	if batchName == "" {
		batchName = tpl.Name
	}
	artifact, err := docmerge.Package(batchName, result.Files)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	dest := filepath.Join(opts.outDir, artifact.Name)
	if err := os.WriteFile(dest, artifact.Content, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	log.Info("wrote artifact", zap.String("path", dest), zap.Int("bytes", len(artifact.Content)))
	return nil
}

func buildLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	log, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "docmerge: building logger: %v\n", err)
		os.Exit(1)
	}
	return log
}

func loadTemplate(path string) (*template.Template, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening template: %w", err)
	}
	defer f.Close()
	return template.Decode(f)
}

// loadRows reads a CSV file with a header row into column names and row
// records. All cell values stay strings; the value formatter parses
// numbers and dates on demand.
func loadRows(path string) ([]string, []docmerge.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening data file: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%s: empty data file", path)
	}

	columns := records[0]
	rows := make([]docmerge.Row, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(docmerge.Row, len(columns))
		for i, col := range columns {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return columns, rows, nil
}

// buildMapping parses "Placeholder=Column" pairs; placeholders without an
// explicit pair map to the column with the same name, when one exists.
func buildMapping(spec string, registry []template.Placeholder, columns []string) map[string]string {
	haveColumn := make(map[string]bool, len(columns))
	for _, c := range columns {
		haveColumn[c] = true
	}

	mapping := make(map[string]string)
	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		if k, v, ok := strings.Cut(pair, "="); ok {
			mapping[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}
	for _, p := range registry {
		if mapping[p.Name] == "" && haveColumn[p.Name] {
			mapping[p.Name] = p.Name
		}
	}
	return mapping
}

func rangeSpec(spec string) docmerge.RangeSpec {
	if spec == "" {
		return docmerge.RangeSpec{Mode: docmerge.RangeAll}
	}
	return docmerge.RangeSpec{Mode: docmerge.RangeCustom, Custom: spec}
}
