// Package telemetry owns the normalized in-memory table of charger samples
// and the realtime status probe.
package telemetry

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync/atomic"

	"github.com/anawil7349-cpu/my-wind-ai/internal/metrics"
	"github.com/anawil7349-cpu/my-wind-ai/internal/models"
	"github.com/anawil7349-cpu/my-wind-ai/internal/rtdb"
)

// Fetcher is the slice of the rtdb client the store and probe depend on.
type Fetcher interface {
	FetchHistory(ctx context.Context) ([]rtdb.KeyedSample, error)
	FetchLatest(ctx context.Context) (models.RawSample, error)
}

// Table is one immutable snapshot of the history. Refresh builds a new Table
// off to the side and swaps it in whole; readers holding an old snapshot keep
// a consistent view.
type Table struct {
	Records []models.TelemetryRecord
}

const (
	statusEmpty      = "database empty: no history records"
	statusErrPrefix  = "error loading data: "
	statusOKTemplate = "data refreshed: %d records loaded (%d malformed dropped)"
)

type Store struct {
	fetcher Fetcher
	table   atomic.Pointer[Table]
}

func NewStore(fetcher Fetcher) *Store {
	s := &Store{fetcher: fetcher}
	s.table.Store(&Table{})
	return s
}

// Refresh fetches the whole History collection and replaces the table.
// It never returns an error: every failure path resolves to a descriptive
// status string, and the prior snapshot stays in place on failure.
func (s *Store) Refresh(ctx context.Context) string {
	samples, err := s.fetcher.FetchHistory(ctx)
	if err != nil {
		log.Printf("refresh: %v", err)
		return statusErrPrefix + err.Error()
	}
	if len(samples) == 0 {
		return statusEmpty
	}

	records := make([]models.TelemetryRecord, 0, len(samples))
	dropped := 0
	for _, ks := range samples {
		rec, err := models.ParseRecord(ks.Sample)
		if err != nil {
			dropped++
			continue
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	s.table.Store(&Table{Records: records})
	metrics.RecordsIngested.Add(float64(len(records)))
	metrics.RecordsDropped.Add(float64(dropped))
	log.Printf("refresh: %d records loaded, %d dropped", len(records), dropped)
	return fmt.Sprintf(statusOKTemplate, len(records), dropped)
}

// Snapshot returns the current table. Never nil; empty before the first
// successful refresh.
func (s *Store) Snapshot() *Table {
	return s.table.Load()
}
