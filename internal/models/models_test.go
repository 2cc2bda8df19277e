package models

import (
	"testing"
	"time"
)

func TestParseRecord_TimezoneAndDerivedFields(t *testing.T) {
	// 2024-01-01 23:30:00 UTC = 2024-01-02 06:30:00 UTC+7
	ts := time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC).UnixMilli()
	raw := RawSample{
		"ts":   float64(ts),
		"wind": map[string]any{"p": 120.0, "v": 13.8},
		"batt": map[string]any{"p": 30.0, "v": 3.9},
	}

	rec, err := ParseRecord(raw)
	if err != nil {
		t.Fatalf("ParseRecord: %v", err)
	}
	if rec.Date != "2024-01-02" {
		t.Errorf("Date = %q, want 2024-01-02", rec.Date)
	}
	if rec.Hour != 6 || rec.Minute != 30 {
		t.Errorf("Hour:Minute = %d:%d, want 6:30", rec.Hour, rec.Minute)
	}
	if !rec.Timestamp.Equal(time.UnixMilli(ts)) {
		t.Errorf("Timestamp instant shifted: %v", rec.Timestamp)
	}
	if rec.WindEnergy != 120.0/60 {
		t.Errorf("WindEnergy = %v, want %v", rec.WindEnergy, 120.0/60)
	}
	if rec.BattEnergy != 30.0/60 {
		t.Errorf("BattEnergy = %v, want %v", rec.BattEnergy, 30.0/60)
	}
	if rec.WindVoltage != 13.8 || rec.BattVoltage != 3.9 {
		t.Errorf("voltages = %v/%v, want 13.8/3.9", rec.WindVoltage, rec.BattVoltage)
	}
}

func TestParseRecord_StringNumbers(t *testing.T) {
	raw := RawSample{
		"ts":   "1704067200000",
		"wind": map[string]any{"p": "60", "v": "12.5"},
	}
	rec, err := ParseRecord(raw)
	if err != nil {
		t.Fatalf("ParseRecord: %v", err)
	}
	if rec.WindPower != 60 {
		t.Errorf("WindPower = %v, want 60", rec.WindPower)
	}
	if rec.WindEnergy != 1 {
		t.Errorf("WindEnergy = %v, want 1", rec.WindEnergy)
	}
	if rec.BattPower != 0 {
		t.Errorf("BattPower = %v, want 0 for absent reading", rec.BattPower)
	}
}

func TestParseRecord_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  RawSample
	}{
		{"missing ts", RawSample{"wind": map[string]any{"p": 1.0}}},
		{"non-numeric ts", RawSample{"ts": "not-a-time"}},
		{"non-numeric power", RawSample{"ts": 1704067200000.0, "wind": map[string]any{"p": "garbage"}}},
		{"reading not an object", RawSample{"ts": 1704067200000.0, "batt": "dead"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseRecord(tt.raw); err == nil {
				t.Errorf("ParseRecord(%v) accepted a malformed sample", tt.raw)
			}
		})
	}
}

func TestParseRecord_AbsentReadingsDefaultZero(t *testing.T) {
	rec, err := ParseRecord(RawSample{"ts": 1704067200000.0})
	if err != nil {
		t.Fatalf("ParseRecord: %v", err)
	}
	if rec.WindPower != 0 || rec.BattPower != 0 || rec.WindVoltage != 0 || rec.BattVoltage != 0 {
		t.Errorf("absent readings did not default to zero: %+v", rec)
	}
}
