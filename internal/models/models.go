package models

import (
	"fmt"
	"strconv"
	"time"
)

// Local is the deployment's civil time zone. The History collection stores
// epoch milliseconds on a UTC clock; every derived field below is computed
// after shifting into this fixed offset.
var Local = time.FixedZone("UTC+7", 7*60*60)

// RawSample is one entry of the remote History collection, keyed by an opaque
// push ID. Entries are not guaranteed to be well-formed.
type RawSample map[string]any

// TelemetryRecord is one normalized row of the in-memory table, derived from
// a single well-formed RawSample.
type TelemetryRecord struct {
	Timestamp time.Time
	Date      string // "2006-01-02" in Local, the grouping key
	Hour      int
	Minute    int

	WindPower   float64
	BattPower   float64
	WindEnergy  float64 // WindPower / 60, assuming one sample per minute
	BattEnergy  float64 // BattPower / 60
	WindVoltage float64
	BattVoltage float64
}

// ParseRecord converts a RawSample into a TelemetryRecord. A sample with a
// missing or unparseable ts, or with a nested reading that is present but not
// numeric, is rejected whole; absent readings default to zero.
func ParseRecord(raw RawSample) (TelemetryRecord, error) {
	ms, err := requireNumber(raw, "ts")
	if err != nil {
		return TelemetryRecord{}, err
	}

	windP, err := readingField(raw, "wind", "p")
	if err != nil {
		return TelemetryRecord{}, err
	}
	battP, err := readingField(raw, "batt", "p")
	if err != nil {
		return TelemetryRecord{}, err
	}
	windV, err := readingField(raw, "wind", "v")
	if err != nil {
		return TelemetryRecord{}, err
	}
	battV, err := readingField(raw, "batt", "v")
	if err != nil {
		return TelemetryRecord{}, err
	}

	ts := time.UnixMilli(int64(ms)).In(Local)
	return TelemetryRecord{
		Timestamp:   ts,
		Date:        ts.Format("2006-01-02"),
		Hour:        ts.Hour(),
		Minute:      ts.Minute(),
		WindPower:   windP,
		BattPower:   battP,
		WindEnergy:  windP / 60,
		BattEnergy:  battP / 60,
		WindVoltage: windV,
		BattVoltage: battV,
	}, nil
}

// Voltage extracts a nested voltage reading ("wind" or "batt") from a raw
// sample, used by the realtime status probe. Absent readings are zero.
func (s RawSample) Voltage(device string) (float64, error) {
	return readingField(s, device, "v")
}

func requireNumber(m map[string]any, key string) (float64, error) {
	v, ok := m[key]
	if !ok {
		return 0, fmt.Errorf("missing %q", key)
	}
	f, ok := toNumber(v)
	if !ok {
		return 0, fmt.Errorf("%q is not numeric: %v", key, v)
	}
	return f, nil
}

// readingField reads e.g. raw["wind"]["p"]. An absent device or field is 0;
// a present but non-numeric value is an error so the whole row gets dropped.
func readingField(raw RawSample, device, field string) (float64, error) {
	d, ok := raw[device]
	if !ok {
		return 0, nil
	}
	dm, ok := d.(map[string]any)
	if !ok {
		return 0, fmt.Errorf("%s is not an object: %v", device, d)
	}
	v, ok := dm[field]
	if !ok {
		return 0, nil
	}
	f, ok := toNumber(v)
	if !ok {
		return 0, fmt.Errorf("%s.%s is not numeric: %v", device, field, v)
	}
	return f, nil
}

// toNumber accepts the numeric shapes seen in the raw feed: JSON numbers
// decode as float64, but some writers store readings as strings.
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
