// Package walker enumerates every field path in a JSON document. The walk
// is a pure function of its input: it returns a structured result that the
// caller merges into a dataset-level aggregator, and never mutates shared
// state.
package walker

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/valyala/fastjson"

	"github.com/leiMizzou/fdaschema/pkg/models"
)

// ArraySampleLimit bounds how many elements of an array are descended into
// to discover the shape of array items. Sampling the leading elements keeps
// the walk cheap on large arrays at the cost of missing shape variation in
// late elements; this trade-off is deliberate.
const ArraySampleLimit = 3

// Sample is the representative literal recorded for a path within one
// record. Value carries the display string; Kind preserves the JSON
// runtime type for later type inference.
type Sample struct {
	Value string
	Kind  models.SampleKind
}

// Result is the outcome of walking a single record.
type Result struct {
	// Paths lists every discovered path in visit order. A path can appear
	// more than once (e.g. the same leaf under several sampled array
	// elements); each appearance counts as one occurrence.
	Paths []string

	// Samples holds the first literal seen at each path within this
	// record (first-writer-wins).
	Samples map[string]Sample

	// ObjectPaths and ArrayPaths record which paths resolved to objects
	// and arrays. Array paths carry a trailing "[]" marker.
	ObjectPaths map[string]bool
	ArrayPaths  map[string]bool

	// KeyCandidates lists paths whose leaf name looks like an identifier.
	KeyCandidates []string

	// SimpleArrayValues collects the distinct scalar values of arrays
	// containing only scalars, keyed by the array's field path (without
	// the "[]" marker). Used for the enum value reference export.
	SimpleArrayValues map[string][]string
}

// Walk enumerates all paths in v, rooted at the dataset name.
func Walk(v *fastjson.Value, dataset string) *Result {
	res := &Result{
		Samples:           make(map[string]Sample),
		ObjectPaths:       make(map[string]bool),
		ArrayPaths:        make(map[string]bool),
		SimpleArrayValues: make(map[string][]string),
	}
	res.walk(v, dataset)
	return res
}

func (r *Result) walk(v *fastjson.Value, current string) {
	switch v.Type() {
	case fastjson.TypeObject:
		if current != "" {
			r.ObjectPaths[current] = true
		}
		o, err := v.Object()
		if err != nil {
			return
		}
		o.Visit(func(key []byte, val *fastjson.Value) {
			k := string(key)
			p := current + "." + k
			r.Paths = append(r.Paths, p)
			r.recordSample(p, val)
			if IsKeyCandidateName(k) {
				r.KeyCandidates = append(r.KeyCandidates, p)
			}
			if val.Type() == fastjson.TypeObject || val.Type() == fastjson.TypeArray {
				r.walk(val, p)
			}
		})
	case fastjson.TypeArray:
		arrayPath := current + "[]"
		r.ArrayPaths[arrayPath] = true
		r.Paths = append(r.Paths, arrayPath)
		items, err := v.Array()
		if err != nil {
			return
		}
		if len(items) > 0 {
			if _, ok := r.Samples[arrayPath]; !ok {
				val, kind := SampleValue(items[0])
				r.Samples[arrayPath] = Sample{Value: val, Kind: kind}
			}
		}
		r.collectSimpleArray(current, items)
		for i, item := range items {
			if i >= ArraySampleLimit {
				break
			}
			if item.Type() == fastjson.TypeObject || item.Type() == fastjson.TypeArray {
				r.walk(item, fmt.Sprintf("%s[%d]", current, i))
			}
		}
	}
}

func (r *Result) recordSample(path string, v *fastjson.Value) {
	if _, ok := r.Samples[path]; ok {
		return
	}
	val, kind := SampleValue(v)
	r.Samples[path] = Sample{Value: val, Kind: kind}
}

// collectSimpleArray records the distinct scalar values of an array whose
// elements are all scalars. Mixed or object arrays are skipped.
func (r *Result) collectSimpleArray(path string, items []*fastjson.Value) {
	if len(items) == 0 {
		return
	}
	seen := make(map[string]bool)
	var values []string
	for _, item := range items {
		switch item.Type() {
		case fastjson.TypeObject, fastjson.TypeArray:
			return
		case fastjson.TypeNull:
			continue
		}
		val, _ := SampleValue(item)
		if val == "" || seen[val] {
			continue
		}
		seen[val] = true
		values = append(values, val)
	}
	if len(values) > 0 {
		r.SimpleArrayValues[path] = append(r.SimpleArrayValues[path], values...)
	}
}

// SampleValue renders a JSON value as a representative literal string plus
// its runtime kind. Objects and arrays are replaced by short structural
// placeholders so samples stay bounded regardless of subtree size.
func SampleValue(v *fastjson.Value) (string, models.SampleKind) {
	switch v.Type() {
	case fastjson.TypeNull:
		return "null", models.SampleNull
	case fastjson.TypeTrue:
		return "true", models.SampleBool
	case fastjson.TypeFalse:
		return "false", models.SampleBool
	case fastjson.TypeNumber:
		if i, err := v.Int64(); err == nil {
			return strconv.FormatInt(i, 10), models.SampleInt
		}
		f, _ := v.Float64()
		return strconv.FormatFloat(f, 'g', -1, 64), models.SampleFloat
	case fastjson.TypeString:
		b, _ := v.StringBytes()
		return string(b), models.SampleString
	case fastjson.TypeObject:
		o, err := v.Object()
		if err != nil {
			return "[Object]", models.SampleObject
		}
		return fmt.Sprintf("[Object with %d keys]", o.Len()), models.SampleObject
	case fastjson.TypeArray:
		items, err := v.Array()
		if err != nil {
			return "[Array]", models.SampleArray
		}
		return fmt.Sprintf("[Array with %d items]", len(items)), models.SampleArray
	}
	return "", models.SampleNull
}

// keySuffixes are leaf-name endings that mark a field as identifier-like.
var keySuffixes = []string{"_id", "_key", "_uuid", "_number", "_code"}

// nonKeyInfixes are name fragments that disqualify a field even when it
// carries a key suffix; version and back-reference ids are poor join keys.
var nonKeyInfixes = []string{"version_id", "parent_id", "related_id", "reference_id"}

// IsKeyCandidateName reports whether a field name follows an identifier
// naming convention (id, uuid, or a *_id / *_key / *_uuid / *_number /
// *_code suffix without a denylisted infix).
func IsKeyCandidateName(name string) bool {
	lower := strings.ToLower(name)
	if lower == "id" || lower == "uuid" {
		return true
	}
	for _, suffix := range keySuffixes {
		if !strings.HasSuffix(lower, suffix) {
			continue
		}
		for _, infix := range nonKeyInfixes {
			if strings.Contains(lower, infix) {
				return false
			}
		}
		return true
	}
	return false
}
