package envoverride

import "testing"

func TestReadGenericVsPerDist(t *testing.T) {
	environ := []string{
		"SCMVER_PRETEND_VERSION=1.0.0",
		"SCMVER_PRETEND_VERSION_FOR_MY_PROJECT=2.0.0",
	}
	r := NewReader(environ, "", "My.Project")
	v, ok := r.Read("PRETEND_VERSION")
	if !ok || v != "2.0.0" {
		t.Fatalf("got %q, %v; want 2.0.0, true", v, ok)
	}
}

func TestReadFallsBackToGeneric(t *testing.T) {
	environ := []string{"SCMVER_PRETEND_VERSION=1.0.0"}
	r := NewReader(environ, "", "other-project")
	v, ok := r.Read("PRETEND_VERSION")
	if !ok || v != "1.0.0" {
		t.Fatalf("got %q, %v", v, ok)
	}
}

func TestReadToolNamePrefixWinsOverDefault(t *testing.T) {
	environ := []string{
		"MYTOOL_PRETEND_VERSION=9.9.9",
		"SCMVER_PRETEND_VERSION=1.0.0",
	}
	r := NewReader(environ, "MYTOOL", "")
	v, ok := r.Read("PRETEND_VERSION")
	if !ok || v != "9.9.9" {
		t.Fatalf("got %q, %v", v, ok)
	}
}

func TestSetuptoolsScmLegacyPrefix(t *testing.T) {
	environ := []string{"SETUPTOOLS_SCM_PRETEND_VERSION=3.0.0"}
	r := NewReader(environ, "", "")
	v, ok := r.Read("PRETEND_VERSION")
	if !ok || v != "3.0.0" {
		t.Fatalf("got %q, %v", v, ok)
	}
}

func TestFuzzyDiagnosticNearMiss(t *testing.T) {
	environ := []string{"SCMVER_OVERRIDES_FOR_MY_PROJEKT={local_scheme=\"dirty-tag\"}"}
	r := NewReader(environ, "", "my-project")
	msg := r.FuzzyDiagnostic("OVERRIDES")
	if msg == "" {
		t.Fatal("expected a fuzzy diagnostic for a near-miss suffix")
	}
}

func TestFuzzyDiagnosticNoCandidates(t *testing.T) {
	r := NewReader(nil, "", "my-project")
	if msg := r.FuzzyDiagnostic("OVERRIDES"); msg != "" {
		t.Fatalf("expected no diagnostic, got %q", msg)
	}
}

func TestLoadTOMLOrInlineMap(t *testing.T) {
	result, dropped, err := LoadTOMLOrInlineMap("test", `{distance = 4, node = "gdeadbee", bogus = true}`, ValidFields)
	if err != nil {
		t.Fatal(err)
	}
	if result["distance"] != int64(4) {
		t.Errorf("distance = %v", result["distance"])
	}
	if len(dropped) != 1 || dropped[0] != "bogus" {
		t.Errorf("dropped = %v", dropped)
	}
}

func TestLoadTOMLOrInlineMapEmpty(t *testing.T) {
	result, dropped, err := LoadTOMLOrInlineMap("test", "", ValidFields)
	if err != nil || len(result) != 0 || dropped != nil {
		t.Fatalf("result=%v dropped=%v err=%v", result, dropped, err)
	}
}

func TestLoadTOMLOrInlineMapInvalid(t *testing.T) {
	_, _, err := LoadTOMLOrInlineMap("test", `{not valid toml`, ValidFields)
	if err == nil {
		t.Fatal("expected an error for malformed TOML")
	}
}
