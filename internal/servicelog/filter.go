package servicelog

import (
	"sort"
	"time"

	"github.com/ukydev/cars-service-log/internal/models"
)

// Periods understood by EntryFilter.
const (
	PeriodAll         = "all"
	PeriodCurrentYear = "current-year"
	PeriodLastYear    = "last-year"
	PeriodCustom      = "custom"
)

// EntryFilter selects service entries. Empty fields and "all" match
// everything. From and To only apply with PeriodCustom, and only when both
// parse and From is not after To.
type EntryFilter struct {
	VehicleID string
	Type      string
	Period    string
	From      string
	To        string
}

// dateRange returns the inclusive date range of the filter at now.
func (f EntryFilter) dateRange(now time.Time) (start, end time.Time, ok bool) {
	now = now.UTC()
	switch f.Period {
	case PeriodCurrentYear:
		start, end = yearRange(now.Year())
		return start, end, true
	case PeriodLastYear:
		start, end = yearRange(now.Year() - 1)
		return start, end, true
	case PeriodCustom:
		from, okFrom := models.ParseDate(f.From)
		to, okTo := models.ParseDate(f.To)
		if !okFrom || !okTo || from.After(to) {
			return time.Time{}, time.Time{}, false
		}
		return from, to, true
	}
	return time.Time{}, time.Time{}, false
}

func yearRange(year int) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0).Add(-time.Millisecond)
}

func matches(filter, value string) bool {
	return filter == "" || filter == PeriodAll || filter == value
}

// FilterServiceEntries returns copies of the entries matching f, newest
// first. With an active date range, entries without a valid date are left
// out.
func FilterServiceEntries(entries []models.ServiceEntry, f EntryFilter, now time.Time) []models.ServiceEntry {
	start, end, ranged := f.dateRange(now)

	out := []models.ServiceEntry{}
	for _, e := range entries {
		if !matches(f.VehicleID, e.VehicleID) || !matches(f.Type, e.Type) {
			continue
		}
		if ranged {
			d, ok := models.ParseDate(e.Date)
			if !ok || d.Before(start) || d.After(end) {
				continue
			}
		}
		out = append(out, e.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp() > out[j].Timestamp()
	})
	return out
}

// TotalCost sums the finite costs of entries.
func TotalCost(entries []models.ServiceEntry) float64 {
	total := 0.0
	for _, e := range entries {
		if e.Cost != nil && models.IsFinite(*e.Cost) {
			total += *e.Cost
		}
	}
	return total
}

// FilterServiceEntries applies f to the active entries.
func (m *Manager) FilterServiceEntries(f EntryFilter, now time.Time) []models.ServiceEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return FilterServiceEntries(m.state.ServiceEntries, f, now)
}
