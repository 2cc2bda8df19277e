package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/anawil7349-cpu/my-wind-ai/internal/rtdb"
)

const (
	statusNoData = "No Data"
	statusError  = "Error"

	// Battery charge is a linear interpolation of pack voltage between
	// empty (3.2 V) and full (4.2 V), clamped.
	battEmptyVolts = 3.2
	battFullVolts  = 4.2
)

// Probe derives a short human-readable status line from the most recent raw
// sample.
type Probe struct {
	fetcher Fetcher
}

func NewProbe(fetcher Fetcher) *Probe {
	return &Probe{fetcher: fetcher}
}

// CurrentStatus returns "Wind: {v}V, Batt: {v}V ({pct}%)". Any failure maps
// to a fixed fallback string, never an error.
func (p *Probe) CurrentStatus(ctx context.Context) string {
	latest, err := p.fetcher.FetchLatest(ctx)
	if err != nil {
		if errors.Is(err, rtdb.ErrNoData) {
			return statusNoData
		}
		log.Printf("status probe: %v", err)
		return statusError
	}

	windV, err := latest.Voltage("wind")
	if err != nil {
		return statusError
	}
	battV, err := latest.Voltage("batt")
	if err != nil {
		return statusError
	}

	return fmt.Sprintf("Wind: %gV, Batt: %gV (%d%%)", windV, battV, int(BatteryPercent(battV)))
}

// BatteryPercent converts a battery voltage to a charge percentage in [0,100].
func BatteryPercent(v float64) float64 {
	pct := (v - battEmptyVolts) / (battFullVolts - battEmptyVolts) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
