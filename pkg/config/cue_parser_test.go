package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/plantpulse/plantpulse/pkg/oee"
)

const basicDocument = `
settings: {
	compute: base_url: "http://oee-compute:8750"
	store: path:       "/tmp/history.db"
}

machines: "press-04": {
	window: {start: "2026-03-02T06:00:00Z", end: "2026-03-02T14:00:00Z"}
	time_model: {
		planned_production_time: value: 28800
		allocations: [
			{state: "running", duration: value: 25200},
			{state: "stopped", duration: {value: 3600, source: "inferred"}},
		]
	}
	production: {
		total_units: value:    1000
		good_units: value:     950
		scrap_units: value:    30
		reworked_units: value: 20
	}
	cycle_time: ideal_cycle_time: value: 25.2
}
`

func TestParseInlineBasicDocument(t *testing.T) {
	parser := NewParser()

	parsed, err := parser.ParseInline(context.Background(), basicDocument)
	if err != nil {
		t.Fatalf("ParseInline failed: %v", err)
	}
	if len(parsed.Errors) > 0 {
		t.Fatalf("unexpected parse errors: %+v", parsed.Errors)
	}

	if got := parsed.Settings.Compute.BaseURL; got != "http://oee-compute:8750" {
		t.Errorf("base_url = %s", got)
	}
	if got := parsed.Settings.Store.Path; got != "/tmp/history.db" {
		t.Errorf("store path = %s", got)
	}
	// Defaults survive where the document is silent.
	if got := parsed.Settings.Compute.MaxRetries; got != 3 {
		t.Errorf("max_retries = %d, want default 3", got)
	}

	if len(parsed.Inputs) != 1 {
		t.Fatalf("inputs = %d, want 1", len(parsed.Inputs))
	}
	in := parsed.Inputs[0]
	if in.Machine.MachineID != "press-04" {
		t.Errorf("machine_id = %s, want press-04 (from map key)", in.Machine.MachineID)
	}
	if got := in.TimeModel.PlannedProductionTime.Value().SecondsValue(); got != 28800 {
		t.Errorf("planned time = %v seconds", got)
	}
	if got := in.TimeModel.PlannedProductionTime.Source; got != oee.SourceExplicit {
		t.Errorf("planned time source = %s, want explicit", got)
	}
	if got := in.TimeModel.Allocations[1].Duration.Source; got != oee.SourceInferred {
		t.Errorf("allocation source = %s, want inferred", got)
	}
	if got := in.Thresholds; got != oee.DefaultThresholds() {
		t.Errorf("thresholds = %+v, want documented defaults", got)
	}
}

func TestParseDeriveScriptFillsInferredValues(t *testing.T) {
	doc := `
machines: "press-04": {
	window: {start: "2026-03-02T06:00:00Z", end: "2026-03-02T14:00:00Z"}
	production: {
		total_units: value:    1000
		good_units: value:     950
		scrap_units: value:    30
		reworked_units: value: 20
	}
	cycle_time: ideal_cycle_time: value: 25.2
	derive: """
		shift_seconds = 8 * 3600
		planned_production_time = shift_seconds - 30 * 60
		"""
}
`
	parser := NewParser()
	parsed, err := parser.ParseInline(context.Background(), doc)
	if err != nil {
		t.Fatalf("ParseInline failed: %v", err)
	}
	if len(parsed.Errors) > 0 {
		t.Fatalf("unexpected parse errors: %+v", parsed.Errors)
	}

	in := parsed.InputFor("press-04")
	if in == nil {
		t.Fatal("press-04 input missing")
	}
	if got := in.TimeModel.PlannedProductionTime.Value().SecondsValue(); got != 27000 {
		t.Errorf("derived planned time = %v seconds, want 27000", got)
	}
	if got := in.TimeModel.PlannedProductionTime.Source; got != oee.SourceInferred {
		t.Errorf("derived planned time source = %s, want inferred", got)
	}
}

func TestParseDeriveNeverOverridesExplicit(t *testing.T) {
	doc := `
machines: "press-04": {
	window: {start: "2026-03-02T06:00:00Z", end: "2026-03-02T14:00:00Z"}
	time_model: planned_production_time: value: 28800
	production: total_units: value: 1000
	cycle_time: ideal_cycle_time: value: 25.2
	derive: """
		planned_production_time = 1
		"""
}
`
	parser := NewParser()
	parsed, err := parser.ParseInline(context.Background(), doc)
	if err != nil {
		t.Fatalf("ParseInline failed: %v", err)
	}
	if len(parsed.Errors) > 0 {
		t.Fatalf("unexpected parse errors: %+v", parsed.Errors)
	}

	in := parsed.Inputs[0]
	if got := in.TimeModel.PlannedProductionTime.Value().SecondsValue(); got != 28800 {
		t.Errorf("planned time = %v, explicit value must win over derived", got)
	}
	if got := in.TimeModel.PlannedProductionTime.Source; got != oee.SourceExplicit {
		t.Errorf("planned time source = %s, want explicit", got)
	}
}

func TestParseRejectsUnknownSource(t *testing.T) {
	doc := `
machines: "press-04": {
	window: {start: "2026-03-02T06:00:00Z", end: "2026-03-02T14:00:00Z"}
	time_model: planned_production_time: {value: 28800, source: "guessed"}
	cycle_time: ideal_cycle_time: value: 25.2
}
`
	parser := NewParser()
	parsed, err := parser.ParseInline(context.Background(), doc)
	if err != nil {
		t.Fatalf("ParseInline failed: %v", err)
	}
	if len(parsed.Errors) == 0 {
		t.Fatal("expected an error for unknown provenance source")
	}
	if len(parsed.Inputs) != 0 {
		t.Errorf("inputs = %d, want 0 for a rejected block", len(parsed.Inputs))
	}
}

func TestParseSyntaxErrorHasPosition(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.cue")
	if err := os.WriteFile(path, []byte("machines: {\n\tbad ::: syntax\n}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	parser := NewParser()
	parsed, err := parser.Parse(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(parsed.Errors) == 0 {
		t.Fatal("expected parse errors")
	}
	if parsed.Errors[0].File == "" || parsed.Errors[0].Line == 0 {
		t.Errorf("error should carry a position, got %+v", parsed.Errors[0])
	}
}

func TestParseFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "analysis.cue")
	if err := os.WriteFile(path, []byte(basicDocument), 0644); err != nil {
		t.Fatal(err)
	}

	parser := NewParser()
	parsed, err := parser.Parse(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(parsed.Errors) > 0 {
		t.Fatalf("unexpected parse errors: %+v", parsed.Errors)
	}
	if len(parsed.Inputs) != 1 {
		t.Fatalf("inputs = %d, want 1", len(parsed.Inputs))
	}
	if len(parsed.SourceFiles) != 1 || parsed.SourceFiles[0] != path {
		t.Errorf("source files = %v", parsed.SourceFiles)
	}
}

func TestParseMissingMachineWindowFailsValidation(t *testing.T) {
	doc := `
machines: "press-04": {
	time_model: planned_production_time: value: 28800
	cycle_time: ideal_cycle_time: value: 25.2
}
`
	parser := NewParser()
	parsed, err := parser.ParseInline(context.Background(), doc)
	if err != nil {
		t.Fatalf("ParseInline failed: %v", err)
	}
	if len(parsed.Errors) == 0 {
		t.Fatal("expected a validation error for the missing window")
	}
}

func TestLoadFromDirectory(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.cue", "b.cue", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x: 1\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	parser := NewParser()
	files, err := parser.LoadFromDirectory(dir)
	if err != nil {
		t.Fatalf("LoadFromDirectory failed: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("files = %v, want the two .cue files", files)
	}
}
