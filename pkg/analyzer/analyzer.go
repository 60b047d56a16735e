package analyzer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	"github.com/leiMizzou/fdaschema/pkg/apperrors"
	"github.com/leiMizzou/fdaschema/pkg/models"
	"github.com/leiMizzou/fdaschema/pkg/walker"
)

// Sampling limits. Inference quality plateaus quickly; a handful of files
// and a hundred records per file is enough to see every recurring path.
const (
	DefaultMaxFiles          = 10
	DefaultMaxRecordsPerFile = 100
)

// Options configures a single dataset analysis run.
type Options struct {
	// Pattern is a filename glob; empty means a dataset-scoped default.
	Pattern string
	// MaxFiles caps how many matching files are sampled.
	MaxFiles int
	// MaxRecordsPerFile caps how many records are read from each file.
	MaxRecordsPerFile int
	// Recursive enables walking subdirectories during file discovery.
	Recursive bool
	// HistogramCap overrides the per-path value histogram size.
	HistogramCap int
}

func (o *Options) applyDefaults() {
	if o.MaxFiles <= 0 {
		o.MaxFiles = DefaultMaxFiles
	}
	if o.MaxRecordsPerFile <= 0 {
		o.MaxRecordsPerFile = DefaultMaxRecordsPerFile
	}
}

// Analyzer runs the full per-dataset inference pipeline: discover files,
// walk records, aggregate path statistics, then resolve tables and keys.
// One Analyzer owns one dataset's aggregation state and is not safe for
// concurrent use.
type Analyzer struct {
	dataset string
	opts    Options
	agg     *Aggregator
	parser  fastjson.Parser
	logger  *zap.Logger
}

// New creates an Analyzer for the given dataset kind. An empty kind means
// it will be guessed from the first discovered file.
func New(dataset string, opts Options, logger *zap.Logger) *Analyzer {
	opts.applyDefaults()
	return &Analyzer{
		dataset: NormalizeDatasetKind(dataset),
		opts:    opts,
		logger:  logger.Named("analyzer"),
	}
}

// Dataset returns the dataset kind, which may have been guessed during
// processing when none was configured.
func (a *Analyzer) Dataset() string { return a.dataset }

func (a *Analyzer) ensureAggregator() *Aggregator {
	if a.agg == nil {
		a.agg = NewAggregator(a.dataset, AggregatorOptions{HistogramCap: a.opts.HistogramCap})
	}
	return a.agg
}

// ProcessDirectory discovers matching files under dir, samples them, and
// returns the finalized analysis with tables resolved. Malformed files are
// logged and skipped; the only hard failures are no matching files and no
// usable records at all.
func (a *Analyzer) ProcessDirectory(dir string) (*models.DatasetAnalysis, error) {
	pattern := a.opts.Pattern
	if pattern == "" {
		pattern = DefaultPattern(a.dataset)
	}

	files, err := FindJSONFiles(dir, pattern, a.opts.Recursive)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s (recursive=%v)",
			apperrors.ErrNoFilesFound, filepath.Join(dir, pattern), a.opts.Recursive)
	}
	if len(files) > a.opts.MaxFiles {
		files = files[:a.opts.MaxFiles]
	}

	if a.dataset == "" {
		a.dataset = GuessDatasetKind(files[0])
		a.logger.Info("guessed dataset kind from first file",
			zap.String("dataset", a.dataset),
			zap.String("file", files[0]))
	}

	a.logger.Info("processing dataset directory",
		zap.String("dataset", a.dataset),
		zap.String("dir", dir),
		zap.String("pattern", pattern),
		zap.Int("files", len(files)))

	for i, f := range files {
		n, err := a.ProcessFile(f)
		if err != nil {
			a.logger.Warn("skipping unreadable file",
				zap.String("file", f),
				zap.Error(err))
			continue
		}
		a.logger.Info("processed file",
			zap.Int("index", i+1),
			zap.Int("total", len(files)),
			zap.String("file", filepath.Base(f)),
			zap.Int("records", n))
	}

	return a.Finalize()
}

// ProcessFile parses one JSON file and ingests up to MaxRecordsPerFile
// records into the aggregation state. The file may hold a {"results":[...]}
// envelope, a bare array, or a single object.
func (a *Analyzer) ProcessFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	v, err := a.parser.ParseBytes(data)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}

	records := extractRecords(v)
	if len(records) > a.opts.MaxRecordsPerFile {
		records = records[:a.opts.MaxRecordsPerFile]
	}

	agg := a.ensureAggregator()
	for _, rec := range records {
		agg.IngestRecord(walker.Walk(rec, a.dataset))
	}
	agg.FileDone()
	return len(records), nil
}

// Finalize closes aggregation, resolves table boundaries and keys, and
// returns the complete analysis. Returns ErrNoTables when nothing usable
// was ingested.
func (a *Analyzer) Finalize() (*models.DatasetAnalysis, error) {
	analysis := a.ensureAggregator().Finalize()
	if len(analysis.Paths) == 0 {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrNoTables, a.dataset)
	}
	ResolveTables(analysis)
	a.logger.Info("dataset analysis complete",
		zap.String("dataset", a.dataset),
		zap.Int("files", analysis.FilesProcessed),
		zap.Int("records", analysis.RecordsProcessed),
		zap.Int("paths", len(analysis.Paths)),
		zap.Int("tables", len(analysis.Tables)))
	return analysis, nil
}

// extractRecords pulls the record list out of whatever envelope the file
// uses. A single object is treated as a one-record batch.
func extractRecords(v *fastjson.Value) []*fastjson.Value {
	if v.Type() == fastjson.TypeArray {
		return v.GetArray()
	}
	if results := v.GetArray("results"); results != nil {
		return results
	}
	return []*fastjson.Value{v}
}
