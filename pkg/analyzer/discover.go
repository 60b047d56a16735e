package analyzer

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/valyala/fastjson"
)

// UnknownDatasetKind is the fallback label used when no heuristic can
// determine what a file contains. Downstream table names become unknown_*.
const UnknownDatasetKind = "unknown"

// datasetKindSniffLimit bounds how much of a file is read when guessing
// its dataset kind from content.
const datasetKindSniffLimit = 10240

// knownDatasetKinds are the openFDA dataset labels the discovery
// heuristics recognize in directory and file names.
var knownDatasetKinds = map[string]bool{
	"k510":                true,
	"classification":      true,
	"covid19serology":     true,
	"enforcement":         true,
	"event":               true,
	"pma":                 true,
	"recall":              true,
	"registrationlisting": true,
	"udi":                 true,
	"adverse":             true,
	"drug":                true,
	"device":              true,
	"food":                true,
	"animalandveterinary": true,
}

var fileNameKindPatterns = []*regexp.Regexp{
	regexp.MustCompile(`device-(\w+)-\d+`),
	regexp.MustCompile(`(\w+)-\d+`),
}

// noiseNameSegments are filename words the kind patterns must not mistake
// for a dataset label.
var noiseNameSegments = map[string]bool{
	"of":      true,
	"part":    true,
	"section": true,
}

// NormalizeDatasetKind maps the openFDA "510k" spelling to "k510" so the
// label can prefix SQL identifiers. Every ingestion point routes labels
// through here so both spellings collapse to one dataset.
func NormalizeDatasetKind(kind string) string {
	if kind == "510k" {
		return "k510"
	}
	return kind
}

// GuessDatasetKind determines what dataset a JSON file belongs to, trying
// in order: the containing directory name, filename patterns, a bounded
// content sniff for type metadata, then ancestor directory names. Returns
// UnknownDatasetKind when nothing matches.
func GuessDatasetKind(filePath string) string {
	dir := strings.ToLower(filepath.Base(filepath.Dir(filePath)))
	if knownDatasetKinds[dir] {
		return dir
	}

	fileName := filepath.Base(filePath)
	for _, pat := range fileNameKindPatterns {
		if m := pat.FindStringSubmatch(fileName); m != nil {
			kind := strings.ToLower(m[1])
			if !noiseNameSegments[kind] {
				return NormalizeDatasetKind(kind)
			}
		}
	}

	lowerName := strings.ToLower(fileName)
	for kind := range knownDatasetKinds {
		if strings.Contains(lowerName, kind) {
			return kind
		}
	}

	if kind := sniffDatasetKind(filePath); kind != "" {
		return NormalizeDatasetKind(kind)
	}

	for d := filepath.Dir(filePath); d != "." && d != string(filepath.Separator); d = filepath.Dir(d) {
		part := strings.ToLower(filepath.Base(d))
		if part == "510k" {
			return "k510"
		}
		if knownDatasetKinds[part] {
			return part
		}
	}

	return UnknownDatasetKind
}

// sniffDatasetKind reads the head of the file and looks for explicit type
// metadata: a top-level "type", "meta.data_type"/"meta.type", or a type
// field on the first record. A truncated read that fails to parse as JSON
// is not an error, just no answer.
func sniffDatasetKind(filePath string) string {
	f, err := os.Open(filePath)
	if err != nil {
		return ""
	}
	defer f.Close()

	buf := make([]byte, datasetKindSniffLimit)
	n, _ := f.Read(buf)
	v, err := fastjson.ParseBytes(buf[:n])
	if err != nil || v.Type() != fastjson.TypeObject {
		return ""
	}

	if t := v.GetStringBytes("type"); t != nil {
		return string(t)
	}
	if meta := v.Get("meta"); meta != nil && meta.Type() == fastjson.TypeObject {
		if t := meta.GetStringBytes("data_type"); t != nil {
			return string(t)
		}
		if t := meta.GetStringBytes("type"); t != nil {
			return string(t)
		}
	}
	for _, listKey := range []string{"results", "data", "records"} {
		items := v.GetArray(listKey)
		if len(items) == 0 || items[0].Type() != fastjson.TypeObject {
			continue
		}
		for _, typeKey := range []string{"report_type", "type", "data_type", "category", "submission_type"} {
			if t := items[0].GetStringBytes(typeKey); t != nil {
				return string(t)
			}
		}
	}
	return ""
}

// FindJSONFiles lists files under dir matching a glob-style pattern.
// Non-recursive search matches directly under dir; recursive search walks
// the whole subtree matching on base names.
func FindJSONFiles(dir, pattern string, recursive bool) ([]string, error) {
	if !recursive {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid file pattern %q: %w", pattern, err)
		}
		sort.Strings(matches)
		return matches, nil
	}

	var matches []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ok, err := filepath.Match(pattern, d.Name())
		if err != nil {
			return fmt.Errorf("invalid file pattern %q: %w", pattern, err)
		}
		if ok {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(matches)
	return matches, nil
}

// DefaultPattern returns the filename glob used when none is configured:
// scoped to the dataset label when one is known, otherwise all JSON files.
func DefaultPattern(dataset string) string {
	switch dataset {
	case "":
		return "*.json"
	case "k510":
		return "*510k*.json"
	default:
		return "*" + dataset + "*.json"
	}
}

// DiscoverDatasetKinds groups JSON files under dir by guessed dataset
// kind, skipping files whose kind cannot be determined. The result maps
// each kind to its files in sorted order.
func DiscoverDatasetKinds(dir string, recursive bool) (map[string][]string, error) {
	files, err := FindJSONFiles(dir, "*.json", recursive)
	if err != nil {
		return nil, err
	}
	kinds := make(map[string][]string)
	for _, f := range files {
		kind := GuessDatasetKind(f)
		if kind == UnknownDatasetKind {
			continue
		}
		kinds[kind] = append(kinds[kind], f)
	}
	return kinds, nil
}
