package analysis

import (
	"strconv"
	"strings"

	"github.com/anawil7349-cpu/my-wind-ai/internal/models"
)

// columns exposed to queries, in render order.
var tableColumns = []string{
	"date", "hour", "minute",
	"wind_power", "batt_power",
	"wind_energy", "batt_energy",
	"wind_voltage", "batt_voltage",
}

type value interface{ valueKind() string }

type numberVal float64
type stringVal string

// tableVal is a rectangular slice of the telemetry table. Cells are float64
// or string.
type tableVal struct {
	cols []string
	rows [][]any
}

// groupedVal is a table partitioned by one column, waiting for an aggregate
// stage. groups holds row indexes into base, one slice per key.
type groupedVal struct {
	keyCol string
	base   *tableVal
	keys   []any
	groups [][]int
}

func (numberVal) valueKind() string   { return "number" }
func (stringVal) valueKind() string   { return "string" }
func (*tableVal) valueKind() string   { return "table" }
func (*groupedVal) valueKind() string { return "grouped table" }

func tableFromRecords(records []models.TelemetryRecord) *tableVal {
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, []any{
			r.Date, float64(r.Hour), float64(r.Minute),
			r.WindPower, r.BattPower,
			r.WindEnergy, r.BattEnergy,
			r.WindVoltage, r.BattVoltage,
		})
	}
	return &tableVal{cols: tableColumns, rows: rows}
}

func (t *tableVal) colIndex(name string) int {
	for i, c := range t.cols {
		if c == name {
			return i
		}
	}
	return -1
}

func render(v value) string {
	switch val := v.(type) {
	case numberVal:
		return formatNumber(float64(val))
	case stringVal:
		return string(val)
	case *tableVal:
		if len(val.rows) == 0 {
			return "(no rows)"
		}
		var lines []string
		for _, row := range val.rows {
			var parts []string
			for i, col := range val.cols {
				parts = append(parts, col+"="+formatCell(row[i]))
			}
			lines = append(lines, strings.Join(parts, ", "))
		}
		return strings.Join(lines, "\n")
	case *groupedVal:
		return "(grouped by " + val.keyCol + "; apply an aggregate such as sum(...) to produce rows)"
	default:
		return ""
	}
}

func formatCell(c any) string {
	switch cell := c.(type) {
	case float64:
		return formatNumber(cell)
	case string:
		return cell
	default:
		return ""
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
