package analysis

import (
	"strings"
	"testing"
	"time"

	"github.com/anawil7349-cpu/my-wind-ai/internal/models"
)

func recordsForDates(t *testing.T) []models.TelemetryRecord {
	t.Helper()
	// Two days of samples: 2024-01-01 totals 10 wind energy, 2024-01-02
	// totals 25.
	var records []models.TelemetryRecord
	add := func(day int, hour int, windEnergy float64) {
		ts := time.Date(2024, 1, day, hour, 0, 0, 0, models.Local)
		records = append(records, models.TelemetryRecord{
			Timestamp:  ts,
			Date:       ts.Format("2006-01-02"),
			Hour:       ts.Hour(),
			WindPower:  windEnergy * 60,
			WindEnergy: windEnergy,
		})
	}
	add(1, 8, 4)
	add(1, 12, 6)
	add(2, 9, 10)
	add(2, 13, 15)
	return records
}

func newTestExecutor(records []models.TelemetryRecord) *Executor {
	return NewExecutor(func() []models.TelemetryRecord { return records })
}

func TestRun_Denylist(t *testing.T) {
	exec := newTestExecutor(nil)
	queries := []string{
		"import os\nresult = 1",
		"result = eval('2+2')",
		"f = open('/etc/passwd')",
		"__import__('subprocess')",
		"result = df | sum(wind_energy) # then exec(payload)",
	}
	for _, q := range queries {
		if got := exec.Run(q); got != SecurityAlert {
			t.Errorf("Run(%q) = %q, want %q", q, got, SecurityAlert)
		}
	}
}

func TestRun_NoResultAssigned(t *testing.T) {
	exec := newTestExecutor(recordsForDates(t))
	if got := exec.Run("x = df | count()"); got != NoResult {
		t.Errorf("Run = %q, want %q", got, NoResult)
	}
}

func TestRun_ScalarResult(t *testing.T) {
	exec := newTestExecutor(recordsForDates(t))
	if got := exec.Run("result = df | sum(wind_energy)"); got != "35" {
		t.Errorf("sum = %q, want 35", got)
	}
	if got := exec.Run("result = df | count()"); got != "4" {
		t.Errorf("count = %q, want 4", got)
	}
}

func TestRun_MostProductiveDay(t *testing.T) {
	exec := newTestExecutor(recordsForDates(t))
	code := `
daily = df | group(date) | sum(wind_energy)
result = daily | sort(sum_wind_energy, desc) | top(1)
`
	got := exec.Run(code)
	if !strings.Contains(got, "2024-01-02") {
		t.Errorf("Run = %q, want the 2024-01-02 row", got)
	}
	if !strings.Contains(got, "25") {
		t.Errorf("Run = %q, want total 25", got)
	}
	if strings.Contains(got, "2024-01-01") {
		t.Errorf("Run = %q, top(1) leaked a second row", got)
	}
}

func TestRun_FilterAndMean(t *testing.T) {
	exec := newTestExecutor(recordsForDates(t))
	got := exec.Run(`result = df | filter(date == "2024-01-01") | mean(wind_energy)`)
	if got != "5" {
		t.Errorf("mean = %q, want 5", got)
	}

	got = exec.Run(`result = df | filter(hour >= 12) | count()`)
	if got != "2" {
		t.Errorf("count = %q, want 2", got)
	}
}

func TestRun_EmptyStore(t *testing.T) {
	exec := newTestExecutor(nil)
	if got := exec.Run("result = df | sum(wind_energy)"); got != "0" {
		t.Errorf("sum over empty store = %q, want 0", got)
	}
	if got := exec.Run("result = df | group(date) | sum(wind_energy)"); got != "(no rows)" {
		t.Errorf("grouped sum over empty store = %q, want (no rows)", got)
	}
}

func TestRun_Errors(t *testing.T) {
	exec := newTestExecutor(recordsForDates(t))
	tests := []struct {
		name string
		code string
	}{
		{"unknown column", "result = df | sum(solar_power)"},
		{"unknown stage", "result = df | pivot(date)"},
		{"unknown variable", "result = history | count()"},
		{"bare expression", "df | count()"},
		{"type mismatch", `result = df | filter(hour == "noon") | count()`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := exec.Run(tt.code)
			if !strings.HasPrefix(got, "error: ") {
				t.Errorf("Run(%q) = %q, want error-tagged string", tt.code, got)
			}
		})
	}
}

func TestRun_SelectAndLimit(t *testing.T) {
	exec := newTestExecutor(recordsForDates(t))
	got := exec.Run("result = df | select(date, wind_energy) | top(1)")
	want := "date=2024-01-01, wind_energy=4"
	if got != want {
		t.Errorf("Run = %q, want %q", got, want)
	}
}

func TestRun_StatementLimit(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < maxStatements+1; i++ {
		sb.WriteString("x = 1\n")
	}
	got := newTestExecutor(nil).Run(sb.String())
	if !strings.HasPrefix(got, "error: ") {
		t.Errorf("Run with too many statements = %q, want error", got)
	}
}
