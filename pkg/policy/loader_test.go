package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

const scrapSpikeRego = `# Flags any analysis during the pilot line trial.
package plantpulse.checks.pilot

import rego.v1

deny contains finding if {
	input.analysis
	finding := {
		"message": "pilot line data is under review",
		"severity": "info",
	}
}
`

func TestLoadRegoFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pilot-review.rego")
	if err := os.WriteFile(path, []byte(scrapSpikeRego), 0644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(zerolog.Nop())
	policies, err := loader.LoadFromPaths(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("LoadFromPaths failed: %v", err)
	}
	if len(policies) != 1 {
		t.Fatalf("policies = %d, want 1", len(policies))
	}

	p := policies[0]
	if p.Name != "pilot-review" {
		t.Errorf("name = %s, want pilot-review (from file name)", p.Name)
	}
	if p.Description != "Flags any analysis during the pilot line trial." {
		t.Errorf("description = %q", p.Description)
	}
	if p.Severity != SeverityWarning {
		t.Errorf("severity = %s, want the warning default", p.Severity)
	}
	if !p.Enabled {
		t.Error("loaded policy should default to enabled")
	}
}

func TestLoadDirectoryIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "pilot.rego"), []byte(scrapSpikeRego), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a policy"), 0644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(zerolog.Nop())
	policies, err := loader.LoadFromPaths(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("LoadFromPaths failed: %v", err)
	}
	if len(policies) != 1 {
		t.Errorf("policies = %d, want only the .rego file", len(policies))
	}
}

func TestLoadJSONPolicy(t *testing.T) {
	dir := t.TempDir()
	doc := `{
		"name": "night-shift-review",
		"description": "Flags night shift analyses",
		"rego": "package plantpulse.checks.night\n\nimport rego.v1\n\ndeny contains f if {\n\tinput.analysis.machine.shift_id == \"night\"\n\tf := \"night shift data needs sign-off\"\n}",
		"severity": "info"
	}`
	path := filepath.Join(dir, "night.json")
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(zerolog.Nop())
	policies, err := loader.LoadFromPaths(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("LoadFromPaths failed: %v", err)
	}
	if len(policies) != 1 {
		t.Fatalf("policies = %d, want 1", len(policies))
	}

	p := policies[0]
	if p.Name != "night-shift-review" {
		t.Errorf("name = %s", p.Name)
	}
	if p.Severity != SeverityInfo {
		t.Errorf("severity = %s, want info", p.Severity)
	}
	if p.CreatedAt.IsZero() {
		t.Error("CreatedAt should be defaulted")
	}
}

func TestLoadBundle(t *testing.T) {
	dir := t.TempDir()
	doc := `{
		"name": "plant-7",
		"version": "1.2.0",
		"description": "Plant 7 site policies",
		"policies": [
			{"name": "a", "rego": "package plantpulse.checks.a", "severity": "warning", "enabled": true},
			{"name": "b", "rego": "package plantpulse.checks.b", "severity": "info", "enabled": true}
		]
	}`
	path := filepath.Join(dir, "bundle.json")
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(zerolog.Nop())
	bundle, err := loader.LoadBundle(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadBundle failed: %v", err)
	}
	if bundle.Name != "plant-7" || bundle.Version != "1.2.0" {
		t.Errorf("bundle = %s@%s", bundle.Name, bundle.Version)
	}
	if len(bundle.Policies) != 2 {
		t.Errorf("bundle policies = %d, want 2", len(bundle.Policies))
	}
}

func TestLoaderCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pilot.rego")
	if err := os.WriteFile(path, []byte(scrapSpikeRego), 0644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(zerolog.Nop())
	ctx := context.Background()

	first, err := loader.LoadFromPaths(ctx, []string{path})
	if err != nil {
		t.Fatal(err)
	}

	// Rewrite the file; the cached entry must still be served.
	changed := "# Changed description.\npackage plantpulse.checks.pilot\n"
	if err := os.WriteFile(path, []byte(changed), 0644); err != nil {
		t.Fatal(err)
	}

	second, err := loader.LoadFromPaths(ctx, []string{path})
	if err != nil {
		t.Fatal(err)
	}
	if second[0].Description != first[0].Description {
		t.Error("cached policy should be returned until the cache is cleared")
	}

	loader.ClearCache()
	third, err := loader.LoadFromPaths(ctx, []string{path})
	if err != nil {
		t.Fatal(err)
	}
	if third[0].Description != "Changed description." {
		t.Errorf("description after reload = %q", third[0].Description)
	}
}

func TestEngineLoadsCustomPolicies(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "pilot-review.rego"), []byte(scrapSpikeRego), 0644); err != nil {
		t.Fatal(err)
	}

	e := newTestEngine(t)
	if err := e.LoadPolicies(context.Background(), []string{dir}); err != nil {
		t.Fatalf("LoadPolicies failed: %v", err)
	}

	res, err := e.EvaluateInput(context.Background(), plausibleInput())
	if err != nil {
		t.Fatalf("EvaluateInput failed: %v", err)
	}

	findings := findingsFrom(res, "pilot-review")
	if len(findings) != 1 {
		t.Fatalf("pilot-review findings = %d, want 1: %+v", len(findings), res.Findings)
	}
	if findings[0].Message != "pilot line data is under review" {
		t.Errorf("message = %q", findings[0].Message)
	}
	// The deny entry carries its own severity; it overrides the default.
	if findings[0].Severity != SeverityInfo {
		t.Errorf("severity = %s, want info from the deny entry", findings[0].Severity)
	}
}
