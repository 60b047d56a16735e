package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/leiMizzou/fdaschema/pkg/analyzer"
	"github.com/leiMizzou/fdaschema/pkg/apperrors"
	"github.com/leiMizzou/fdaschema/pkg/config"
	"github.com/leiMizzou/fdaschema/pkg/database"
	"github.com/leiMizzou/fdaschema/pkg/ddl"
	"github.com/leiMizzou/fdaschema/pkg/logging"
	"github.com/leiMizzou/fdaschema/pkg/models"
	"github.com/leiMizzou/fdaschema/pkg/relations"
	"github.com/leiMizzou/fdaschema/pkg/report"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	inputDir := flag.String("input", cfg.Analysis.InputDir, "directory holding raw JSON files")
	dataset := flag.String("dataset", cfg.Analysis.Dataset, "explicit dataset kind (empty = auto-discover)")
	pattern := flag.String("pattern", cfg.Analysis.Pattern, "filename glob (empty = dataset default)")
	outputDir := flag.String("output", cfg.Output.Dir, "directory for DDL/CSV artifacts")
	maxFiles := flag.Int("max-files", cfg.Analysis.MaxFiles, "max files sampled per dataset")
	maxRecords := flag.Int("max-records", cfg.Analysis.MaxRecordsPerFile, "max records read per file")
	recursive := flag.Bool("recursive", cfg.Analysis.Recursive, "search subdirectories for input files")
	apply := flag.Bool("apply", cfg.Output.Apply, "apply generated DDL to the configured database")
	logLevel := flag.String("log-level", cfg.LogLevel, "log verbosity: debug, info, warn, error")
	flag.Parse()

	logger, err := logging.New(*logLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		logger.Fatal("cannot create output directory",
			zap.String("dir", *outputDir), zap.Error(err))
	}

	opts := analyzer.Options{
		Pattern:           *pattern,
		MaxFiles:          *maxFiles,
		MaxRecordsPerFile: *maxRecords,
		Recursive:         *recursive,
	}

	summary := report.NewRunSummary(*inputDir, *outputDir)

	var analyses []*models.DatasetAnalysis
	if *dataset != "" {
		a := analyzer.New(*dataset, opts, logger)
		analysis, err := a.ProcessDirectory(*inputDir)
		if err != nil {
			logger.Fatal("dataset analysis failed",
				zap.String("dataset", *dataset), zap.Error(err))
		}
		analyses = append(analyses, analysis)
	} else {
		analyses, err = runDiscovered(*inputDir, opts, logger)
		if err != nil {
			logger.Fatal("dataset discovery failed", zap.Error(err))
		}
	}

	emitter := ddl.NewEmitter(logger)
	var combinedDDL string

	for _, analysis := range analyses {
		summary.AddDataset(analysis)

		prefix := analyzer.MainTableName(analysis.Dataset)
		ddlPath := filepath.Join(*outputDir, prefix+"_tables.sql")
		if err := os.WriteFile(ddlPath, []byte(emitter.EmitDataset(analysis)), 0o644); err != nil {
			logger.Fatal("cannot write DDL", zap.String("path", ddlPath), zap.Error(err))
		}
		summary.AddArtifact(ddlPath)

		if err := emitter.WriteDatasetCSVs(*outputDir, analysis); err != nil {
			logger.Fatal("cannot write CSV artifacts", zap.Error(err))
		}
	}

	if len(analyses) > 1 {
		combinedDDL = emitCrossDataset(analyses, emitter, *outputDir, summary, logger)
	}

	if *apply {
		script := combinedDDL
		if script == "" && len(analyses) == 1 {
			script = emitter.EmitDataset(analyses[0])
		}
		if err := applyDDL(cfg, script, logger); err != nil {
			logger.Fatal("applying DDL failed",
				zap.String("error", logging.SanitizeError(err)))
		}
	}

	if err := summary.Write(); err != nil {
		logger.Fatal("cannot write run summary", zap.Error(err))
	}

	logger.Info("analysis run complete",
		zap.String("run_id", summary.RunID),
		zap.Int("datasets", len(analyses)),
		zap.String("output", *outputDir))
}

// runDiscovered groups the input directory's files by guessed dataset kind
// and analyzes each group. Datasets that yield nothing usable are skipped
// with a warning rather than failing the run.
func runDiscovered(inputDir string, opts analyzer.Options, logger *zap.Logger) ([]*models.DatasetAnalysis, error) {
	kinds, err := analyzer.DiscoverDatasetKinds(inputDir, opts.Recursive)
	if err != nil {
		return nil, err
	}
	if len(kinds) == 0 {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrNoDatasets, inputDir)
	}

	sorted := make([]string, 0, len(kinds))
	for kind := range kinds {
		sorted = append(sorted, kind)
	}
	sort.Strings(sorted)

	var analyses []*models.DatasetAnalysis
	for _, kind := range sorted {
		a := analyzer.New(kind, opts, logger)
		files := kinds[kind]
		if len(files) > opts.MaxFiles {
			files = files[:opts.MaxFiles]
		}
		for _, f := range files {
			if _, err := a.ProcessFile(f); err != nil {
				logger.Warn("skipping unreadable file",
					zap.String("file", f), zap.Error(err))
			}
		}
		analysis, err := a.Finalize()
		if err != nil {
			if errors.Is(err, apperrors.ErrNoTables) {
				logger.Warn("dataset produced no tables, skipping",
					zap.String("dataset", kind))
				continue
			}
			return nil, err
		}
		analyses = append(analyses, analysis)
	}
	if len(analyses) == 0 {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrNoDatasets, inputDir)
	}
	return analyses, nil
}

// emitCrossDataset runs relation inference over every analyzed dataset and
// writes the cross-dataset artifacts: relations CSV, grouping CSV, DOT
// graph, constraints SQL, and the combined schema. Returns the combined
// schema text.
func emitCrossDataset(analyses []*models.DatasetAnalysis, emitter *ddl.Emitter, outputDir string, summary *report.RunSummary, logger *zap.Logger) string {
	inferencer := relations.NewInferencer(logger)
	byKind := make(map[string]*models.DatasetAnalysis, len(analyses))
	var datasets []string
	for _, analysis := range analyses {
		inferencer.Add(analysis)
		byKind[analysis.Dataset] = analysis
		datasets = append(datasets, analysis.Dataset)
	}
	sort.Strings(datasets)

	rels := inferencer.Infer()
	summary.CrossDatasetRelations = len(rels)

	if err := emitter.WriteRelationsCSV(outputDir, rels); err != nil {
		logger.Fatal("cannot write relations CSV", zap.Error(err))
	}
	summary.AddArtifact(filepath.Join(outputDir, "cross_dataset_relations.csv"))

	if err := emitter.WriteRelationGroupsCSV(outputDir, rels); err != nil {
		logger.Fatal("cannot write relation groups CSV", zap.Error(err))
	}
	summary.AddArtifact(filepath.Join(outputDir, "relation_groups.csv"))

	dotPath := filepath.Join(outputDir, "relation_graph.dot")
	if err := os.WriteFile(dotPath, []byte(ddl.RelationGraphDOT(rels)), 0o644); err != nil {
		logger.Fatal("cannot write relation graph", zap.Error(err))
	}
	summary.AddArtifact(dotPath)

	sqlPath := filepath.Join(outputDir, "cross_dataset_constraints.sql")
	if err := os.WriteFile(sqlPath, []byte(emitter.ConstraintsSQL(rels, datasets)), 0o644); err != nil {
		logger.Fatal("cannot write constraints SQL", zap.Error(err))
	}
	summary.AddArtifact(sqlPath)

	combined := emitter.EmitCombined(byKind, rels)
	combinedPath := filepath.Join(outputDir, "fda_combined_schema.sql")
	if err := os.WriteFile(combinedPath, []byte(combined), 0o644); err != nil {
		logger.Fatal("cannot write combined schema", zap.Error(err))
	}
	summary.AddArtifact(combinedPath)

	return combined
}

func applyDDL(cfg *config.Config, script string, logger *zap.Logger) error {
	if script == "" {
		return nil
	}
	ctx := context.Background()
	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	return database.ApplyDDL(ctx, db, script, logger)
}
