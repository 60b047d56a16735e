package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/leiMizzou/fdaschema/pkg/models"
)

// RunSummary is the manifest written at the end of an analysis run: what
// was analyzed, what came out, and where the artifacts went.
type RunSummary struct {
	RunID      string    `yaml:"run_id"`
	StartedAt  time.Time `yaml:"started_at"`
	FinishedAt time.Time `yaml:"finished_at"`
	InputDir   string    `yaml:"input_dir"`
	OutputDir  string    `yaml:"output_dir"`

	Datasets []DatasetSummary `yaml:"datasets"`

	CrossDatasetRelations int      `yaml:"cross_dataset_relations"`
	Artifacts             []string `yaml:"artifacts"`
}

// DatasetSummary captures one dataset's analysis totals.
type DatasetSummary struct {
	Dataset          string `yaml:"dataset"`
	FilesProcessed   int    `yaml:"files_processed"`
	RecordsProcessed int    `yaml:"records_processed"`
	UniquePaths      int    `yaml:"unique_paths"`
	Tables           int    `yaml:"tables"`
}

// NewRunSummary starts a summary for a run beginning now.
func NewRunSummary(inputDir, outputDir string) *RunSummary {
	return &RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		InputDir:  inputDir,
		OutputDir: outputDir,
	}
}

// AddDataset records one finalized dataset analysis.
func (s *RunSummary) AddDataset(analysis *models.DatasetAnalysis) {
	s.Datasets = append(s.Datasets, DatasetSummary{
		Dataset:          analysis.Dataset,
		FilesProcessed:   analysis.FilesProcessed,
		RecordsProcessed: analysis.RecordsProcessed,
		UniquePaths:      len(analysis.Paths),
		Tables:           len(analysis.Tables),
	})
	sort.Slice(s.Datasets, func(i, j int) bool {
		return s.Datasets[i].Dataset < s.Datasets[j].Dataset
	})
}

// AddArtifact records an output file path for the manifest.
func (s *RunSummary) AddArtifact(path string) {
	s.Artifacts = append(s.Artifacts, path)
}

// Write finalizes the summary and writes run_summary.yaml into the output
// directory.
func (s *RunSummary) Write() error {
	s.FinishedAt = time.Now().UTC()
	sort.Strings(s.Artifacts)

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}

	path := filepath.Join(s.OutputDir, "run_summary.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
