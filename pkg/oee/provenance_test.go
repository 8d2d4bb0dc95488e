package oee

import (
	"encoding/json"
	"testing"
	"time"
)

func TestInputValueRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		source Source
		value  int64
	}{
		{"explicit", SourceExplicit, 42},
		{"inferred", SourceInferred, -7},
		{"default", SourceDefault, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			iv := Wrap(tt.value, tt.source)
			if got := iv.Value(); got != tt.value {
				t.Errorf("Value() = %d, want %d", got, tt.value)
			}
			if iv.Source != tt.source {
				t.Errorf("Source = %s, want %s", iv.Source, tt.source)
			}
		})
	}
}

func TestInputValueJSON(t *testing.T) {
	iv := Explicit(Seconds(25.2))

	data, err := json.Marshal(iv)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded InputValue[Duration]
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if decoded.Source != SourceExplicit {
		t.Errorf("source = %s, want explicit", decoded.Source)
	}
	if decoded.Value().SecondsValue() != 25.2 {
		t.Errorf("value = %v, want 25.2s", decoded.Value())
	}
}

func TestInputValueRejectsUnknownSource(t *testing.T) {
	var iv InputValue[float64]
	err := json.Unmarshal([]byte(`{"value": 1.0, "source": "guessed"}`), &iv)
	if err == nil {
		t.Fatal("expected error for unknown source tag")
	}
}

func TestInputValueDefaultsMissingSourceToExplicit(t *testing.T) {
	var iv InputValue[float64]
	if err := json.Unmarshal([]byte(`{"value": 0.5}`), &iv); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if iv.Source != SourceExplicit {
		t.Errorf("source = %s, want explicit", iv.Source)
	}
}

func TestDurationJSONSeconds(t *testing.T) {
	d := Seconds(28800)

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != "28800" {
		t.Errorf("encoded = %s, want 28800", data)
	}

	var decoded Duration
	if err := json.Unmarshal([]byte("26.5"), &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.Std() != 26500*time.Millisecond {
		t.Errorf("decoded = %v, want 26.5s", decoded.Std())
	}
}

func TestTimeModelRunningTime(t *testing.T) {
	tm := TimeModel{
		PlannedProductionTime: Explicit(Seconds(28800)),
		Allocations: []TimeAllocation{
			{State: StateRunning, Duration: Explicit(Seconds(25200))},
			{State: StateStopped, Duration: Explicit(Seconds(3600))},
		},
	}

	if got := tm.RunningTime().SecondsValue(); got != 25200 {
		t.Errorf("RunningTime = %v, want 25200", got)
	}
	if got := tm.AllocatedTime().SecondsValue(); got != 28800 {
		t.Errorf("AllocatedTime = %v, want 28800", got)
	}
}

func TestInputCloneIsDeep(t *testing.T) {
	ts := time.Now()
	in := &Input{
		Machine: MachineContext{MachineID: "m1"},
		TimeModel: TimeModel{
			PlannedProductionTime: Explicit(Seconds(100)),
			Allocations: []TimeAllocation{
				{State: StateRunning, Duration: Explicit(Seconds(90)),
					Reason: &ReasonCode{Path: []string{"planned"}}},
			},
		},
		Downtimes: []DowntimeRecord{
			{Duration: Explicit(Seconds(10)),
				Reason:    ReasonCode{Path: []string{"mechanical", "jam"}},
				Timestamp: &ts},
		},
	}

	clone := in.Clone()
	clone.TimeModel.Allocations[0].Reason.Path[0] = "changed"
	clone.Downtimes[0].Reason.Path[0] = "changed"

	if in.TimeModel.Allocations[0].Reason.Path[0] != "planned" {
		t.Error("allocation reason path shared between clone and original")
	}
	if in.Downtimes[0].Reason.Path[0] != "mechanical" {
		t.Error("downtime reason path shared between clone and original")
	}
}
