package apperrors

import "errors"

var (
	ErrNoFilesFound       = errors.New("no matching input files found")
	ErrNoTables           = errors.New("no tables resolved for dataset")
	ErrUnknownDatasetKind = errors.New("dataset kind could not be determined")
	ErrNoDatasets         = errors.New("no datasets discovered under input directory")
)
