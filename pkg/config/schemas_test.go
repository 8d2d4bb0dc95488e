package config

import (
	"context"
	"testing"
)

func TestRegistryListsBuiltinSchemas(t *testing.T) {
	sr := NewSchemaRegistry()

	names := sr.ListSchemas()
	want := map[string]bool{
		"input_value": false,
		"window":      false,
		"time_model":  false,
		"production":  false,
		"thresholds":  false,
		"settings":    false,
	}
	for _, name := range names {
		if _, ok := want[name]; ok {
			want[name] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("built-in schema %s not registered", name)
		}
	}
}

func TestValidateThresholds(t *testing.T) {
	sr := NewSchemaRegistry()
	ctx := context.Background()

	good := map[string]interface{}{
		"micro_stoppage_threshold":  60.0,
		"small_stop_threshold":      300.0,
		"speed_loss_threshold":      0.85,
		"high_scrap_rate_threshold": 0.05,
		"low_utilization_threshold": 0.60,
	}
	if err := sr.ValidateThresholds(ctx, good); err != nil {
		t.Errorf("valid thresholds rejected: %v", err)
	}

	bad := map[string]interface{}{
		"micro_stoppage_threshold":  60.0,
		"small_stop_threshold":      300.0,
		"speed_loss_threshold":      1.5, // ratio over 1
		"high_scrap_rate_threshold": 0.05,
		"low_utilization_threshold": 0.60,
	}
	if err := sr.ValidateThresholds(ctx, bad); err == nil {
		t.Error("out-of-range ratio accepted")
	}
}

func TestValidateInputValueSourceEnum(t *testing.T) {
	sr := NewSchemaRegistry()
	ctx := context.Background()

	if err := sr.ValidateAgainstSchema(ctx, "input_value", map[string]interface{}{
		"value":  28800.0,
		"source": "inferred",
	}); err != nil {
		t.Errorf("valid input value rejected: %v", err)
	}

	if err := sr.ValidateAgainstSchema(ctx, "input_value", map[string]interface{}{
		"value":  28800.0,
		"source": "guessed",
	}); err == nil {
		t.Error("unknown source accepted")
	}
}

func TestRegisterCustomSchema(t *testing.T) {
	sr := NewSchemaRegistry()

	if err := sr.RegisterSchema("shift", `#Shift: {name: string, hours: int & >0}`); err != nil {
		t.Fatalf("RegisterSchema failed: %v", err)
	}
	if _, ok := sr.GetSchema("shift"); !ok {
		t.Error("registered schema not retrievable")
	}

	if err := sr.RegisterSchema("broken", `a: b: ::`); err == nil {
		t.Error("invalid schema accepted")
	}
}

func TestValidateUnknownSchema(t *testing.T) {
	sr := NewSchemaRegistry()
	if err := sr.ValidateAgainstSchema(context.Background(), "nope", map[string]interface{}{}); err == nil {
		t.Error("expected error for unknown schema")
	}
}
