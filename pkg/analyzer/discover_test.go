package analyzer

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeDatasetKind(t *testing.T) {
	if got := NormalizeDatasetKind("510k"); got != "k510" {
		t.Errorf("NormalizeDatasetKind(510k) = %q, want k510", got)
	}
	if got := NormalizeDatasetKind("recall"); got != "recall" {
		t.Errorf("NormalizeDatasetKind(recall) = %q, want recall", got)
	}
}

func TestGuessDatasetKindFromDirectory(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/data/recall/file-0001.json", "recall"},
		{"/data/classification/anything.json", "classification"},
		{"/data/udi/part-1.json", "udi"},
	}
	for _, tt := range tests {
		if got := GuessDatasetKind(tt.path); got != tt.want {
			t.Errorf("GuessDatasetKind(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestGuessDatasetKindFromFileName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/downloads/device-event-0001.json", "event"},
		{"/downloads/device-510k-0001.json", "k510"},
		{"/downloads/pma-0003.json", "pma"},
		{"/downloads/openfda-classification.json", "classification"},
	}
	for _, tt := range tests {
		if got := GuessDatasetKind(tt.path); got != tt.want {
			t.Errorf("GuessDatasetKind(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestGuessDatasetKindFromContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "export.json")
	doc := `{"meta": {"data_type": "enforcement"}, "results": [{"city": "Rockville"}]}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := GuessDatasetKind(path); got != "enforcement" {
		t.Errorf("GuessDatasetKind = %q, want enforcement", got)
	}
}

func TestGuessDatasetKindUnknown(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.json")
	if err := os.WriteFile(path, []byte(`{"foo": "bar"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := GuessDatasetKind(path); got != UnknownDatasetKind {
		t.Errorf("GuessDatasetKind = %q, want %q", got, UnknownDatasetKind)
	}
}

func TestDefaultPattern(t *testing.T) {
	tests := []struct {
		dataset string
		want    string
	}{
		{"", "*.json"},
		{"k510", "*510k*.json"},
		{"recall", "*recall*.json"},
	}
	for _, tt := range tests {
		if got := DefaultPattern(tt.dataset); got != tt.want {
			t.Errorf("DefaultPattern(%q) = %q, want %q", tt.dataset, got, tt.want)
		}
	}
}

func TestFindJSONFiles(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{
		filepath.Join(dir, "b.json"),
		filepath.Join(dir, "a.json"),
		filepath.Join(dir, "ignore.txt"),
		filepath.Join(sub, "c.json"),
	} {
		if err := os.WriteFile(p, []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	flat, err := FindJSONFiles(dir, "*.json", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(flat) != 2 || filepath.Base(flat[0]) != "a.json" || filepath.Base(flat[1]) != "b.json" {
		t.Errorf("non-recursive matches = %v, want sorted a.json, b.json", flat)
	}

	deep, err := FindJSONFiles(dir, "*.json", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(deep) != 3 {
		t.Errorf("recursive matches = %v, want 3 files", deep)
	}
}

func TestDiscoverDatasetKinds(t *testing.T) {
	dir := t.TempDir()
	for _, sub := range []string{"recall", "pma"} {
		if err := os.Mkdir(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, sub, "part-1.json"), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	kinds, err := DiscoverDatasetKinds(dir, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(kinds) != 2 {
		t.Fatalf("kinds = %v, want recall and pma", kinds)
	}
	for _, kind := range []string{"recall", "pma"} {
		if len(kinds[kind]) != 1 {
			t.Errorf("kind %s files = %v, want one file", kind, kinds[kind])
		}
	}
}
