package walker

import (
	"fmt"
	"testing"

	"github.com/valyala/fastjson"

	"github.com/leiMizzou/fdaschema/pkg/models"
)

func countOccurrences(paths []string, want string) int {
	n := 0
	for _, p := range paths {
		if p == want {
			n++
		}
	}
	return n
}

func TestWalkScalarPaths(t *testing.T) {
	v := fastjson.MustParse(`{"k_number": "K123456", "decision_date": "2020-01-15", "openfda": {"device_name": "Pump"}}`)
	res := Walk(v, "k510")

	wantPaths := []string{"k510.k_number", "k510.decision_date", "k510.openfda", "k510.openfda.device_name"}
	for _, p := range wantPaths {
		if countOccurrences(res.Paths, p) != 1 {
			t.Errorf("path %s occurrences = %d, want 1", p, countOccurrences(res.Paths, p))
		}
	}

	if got := res.Samples["k510.k_number"].Value; got != "K123456" {
		t.Errorf("sample for k510.k_number = %q, want %q", got, "K123456")
	}
	if got := res.Samples["k510.k_number"].Kind; got != models.SampleString {
		t.Errorf("sample kind for k510.k_number = %v, want string", got)
	}
	if !res.ObjectPaths["k510.openfda"] {
		t.Error("k510.openfda not recorded as object path")
	}
}

func TestWalkArrayMarker(t *testing.T) {
	v := fastjson.MustParse(`{"product_codes": [{"code": "ABC"}, {"code": "DEF"}]}`)
	res := Walk(v, "udi")

	if !res.ArrayPaths["udi.product_codes[]"] {
		t.Error("array marker path udi.product_codes[] not recorded")
	}
	if countOccurrences(res.Paths, "udi.product_codes[]") != 1 {
		t.Error("array marker path should appear exactly once")
	}
	// Element fields are walked under indexed paths.
	if countOccurrences(res.Paths, "udi.product_codes[0].code") != 1 {
		t.Error("first array element not walked")
	}
	if countOccurrences(res.Paths, "udi.product_codes[1].code") != 1 {
		t.Error("second array element not walked")
	}
}

func TestWalkArraySampleLimit(t *testing.T) {
	v := fastjson.MustParse(`{"items": [{"n": 1}, {"n": 2}, {"n": 3}, {"n": 4}, {"n": 5}]}`)
	res := Walk(v, "event")

	for i := 0; i < ArraySampleLimit; i++ {
		p := fmt.Sprintf("event.items[%d].n", i)
		if countOccurrences(res.Paths, p) != 1 {
			t.Errorf("element %d should be sampled", i)
		}
	}
	if countOccurrences(res.Paths, "event.items[3].n") != 0 {
		t.Error("element beyond sample limit was walked")
	}
}

func TestWalkFirstSampleWins(t *testing.T) {
	v := fastjson.MustParse(`{"rows": [{"status": "open"}, {"status": "closed"}, {"status": "pending"}]}`)
	res := Walk(v, "recall")

	if got := res.Samples["recall.rows[0].status"].Value; got != "open" {
		t.Errorf("sample = %q, want %q", got, "open")
	}
	// The array path sample describes the first element.
	if got := res.Samples["recall.rows[]"].Value; got != "[Object with 1 keys]" {
		t.Errorf("array sample = %q, want object placeholder", got)
	}
}

func TestWalkKeyCandidates(t *testing.T) {
	v := fastjson.MustParse(`{"id": 7, "registration_number": "3001234567", "version_id": "v2", "description": "x"}`)
	res := Walk(v, "registrationlisting")

	want := map[string]bool{
		"registrationlisting.id":                  true,
		"registrationlisting.registration_number": true,
	}
	got := make(map[string]bool)
	for _, p := range res.KeyCandidates {
		got[p] = true
	}
	for p := range want {
		if !got[p] {
			t.Errorf("missing key candidate %s", p)
		}
	}
	if got["registrationlisting.version_id"] {
		t.Error("version_id should be disqualified as a key candidate")
	}
	if got["registrationlisting.description"] {
		t.Error("description should not be a key candidate")
	}
}

func TestWalkSimpleArrayValues(t *testing.T) {
	v := fastjson.MustParse(`{"tags": ["a", "b", "a", null], "mixed": ["a", {"x": 1}]}`)
	res := Walk(v, "d")

	got := res.SimpleArrayValues["d.tags"]
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("simple array values = %v, want [a b]", got)
	}
	if _, ok := res.SimpleArrayValues["d.mixed"]; ok {
		t.Error("mixed arrays should not be collected")
	}
}

func TestSampleValue(t *testing.T) {
	tests := []struct {
		name     string
		json     string
		want     string
		wantKind models.SampleKind
	}{
		{"int", `42`, "42", models.SampleInt},
		{"float", `3.14`, "3.14", models.SampleFloat},
		{"string", `"hello"`, "hello", models.SampleString},
		{"true", `true`, "true", models.SampleBool},
		{"false", `false`, "false", models.SampleBool},
		{"null", `null`, "null", models.SampleNull},
		{"object", `{"a": 1, "b": 2}`, "[Object with 2 keys]", models.SampleObject},
		{"array", `[1, 2, 3]`, "[Array with 3 items]", models.SampleArray},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, kind := SampleValue(fastjson.MustParse(tt.json))
			if got != tt.want {
				t.Errorf("SampleValue() = %q, want %q", got, tt.want)
			}
			if kind != tt.wantKind {
				t.Errorf("SampleValue() kind = %v, want %v", kind, tt.wantKind)
			}
		})
	}
}

func TestIsKeyCandidateName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"id", true},
		{"uuid", true},
		{"k_number", true},
		{"product_code", true},
		{"registration_number", true},
		{"api_key", true},
		{"version_id", false},
		{"parent_id", false},
		{"related_id", false},
		{"reference_id", false},
		{"description", false},
		{"device_name", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsKeyCandidateName(tt.name); got != tt.want {
				t.Errorf("IsKeyCandidateName(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}
