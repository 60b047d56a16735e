package analyzer

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/leiMizzou/fdaschema/pkg/apperrors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestProcessDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "device-recall-0001.json"),
		`{"results": [
			{"recall_number": "Z-0001-2020", "status": "Ongoing"},
			{"recall_number": "Z-0002-2020", "status": "Terminated"}
		]}`)
	writeFile(t, filepath.Join(dir, "device-recall-0002.json"),
		`{"results": [{"recall_number": "Z-0003-2020", "status": "Ongoing"}]}`)

	a := New("recall", Options{}, zap.NewNop())
	analysis, err := a.ProcessDirectory(dir)
	if err != nil {
		t.Fatal(err)
	}
	if analysis.FilesProcessed != 2 {
		t.Errorf("files = %d, want 2", analysis.FilesProcessed)
	}
	if analysis.RecordsProcessed != 3 {
		t.Errorf("records = %d, want 3", analysis.RecordsProcessed)
	}
	if analysis.Tables["recall"] == nil {
		t.Fatal("main table missing from analysis")
	}
	if rec := analysis.Paths["recall.recall_number"]; rec == nil || rec.OccurrenceCount != 3 {
		t.Errorf("recall_number path = %+v, want 3 occurrences", rec)
	}
}

func TestProcessDirectoryNoFiles(t *testing.T) {
	a := New("recall", Options{}, zap.NewNop())
	_, err := a.ProcessDirectory(t.TempDir())
	if !errors.Is(err, apperrors.ErrNoFilesFound) {
		t.Errorf("err = %v, want ErrNoFilesFound", err)
	}
}

func TestProcessDirectorySkipsMalformedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "device-recall-0001.json"), `{not json`)
	writeFile(t, filepath.Join(dir, "device-recall-0002.json"),
		`{"results": [{"recall_number": "Z-0001-2020"}]}`)

	a := New("recall", Options{}, zap.NewNop())
	analysis, err := a.ProcessDirectory(dir)
	if err != nil {
		t.Fatal(err)
	}
	if analysis.RecordsProcessed != 1 {
		t.Errorf("records = %d, want 1 from the readable file", analysis.RecordsProcessed)
	}
}

func TestProcessFileRecordCap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.json")
	writeFile(t, path,
		`[{"n": 1}, {"n": 2}, {"n": 3}, {"n": 4}]`)

	a := New("event", Options{MaxRecordsPerFile: 2}, zap.NewNop())
	n, err := a.ProcessFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("records ingested = %d, want capped 2", n)
	}
}

func TestProcessFileSingleObject(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "one.json")
	writeFile(t, path, `{"pma_number": "P123456"}`)

	a := New("pma", Options{}, zap.NewNop())
	n, err := a.ProcessFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("records = %d, want 1", n)
	}
}

func TestFinalizeEmpty(t *testing.T) {
	a := New("pma", Options{}, zap.NewNop())
	_, err := a.Finalize()
	if !errors.Is(err, apperrors.ErrNoTables) {
		t.Errorf("err = %v, want ErrNoTables", err)
	}
}
