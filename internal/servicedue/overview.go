package servicedue

import (
	"math"
	"sort"
	"time"

	"github.com/ukydev/cars-service-log/internal/models"
)

// VehicleSummary is the worst status of a vehicle and the most urgent of
// its intervals.
type VehicleSummary struct {
	Vehicle models.Vehicle `json:"vehicle"`
	Status  Status         `json:"status"`
	NextDue *DueData       `json:"nextDue"`
}

// Overview bundles everything the dashboard shows.
type Overview struct {
	Summaries     []VehicleSummary `json:"summaries"`
	DueSoon       []DueItem        `json:"dueSoon"`
	Overdue       []DueItem        `json:"overdue"`
	ServiceAlerts int              `json:"serviceAlerts"`
}

// SortBySeverity returns a copy of items ordered overdue first, then due
// soon, then OK. Equal statuses are ordered by the earliest next due date;
// items without a date sort last.
func SortBySeverity(items []DueItem) []DueItem {
	sorted := make([]DueItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].DueData, sorted[j].DueData
		if a.Status.Severity() != b.Status.Severity() {
			return a.Status.Severity() < b.Status.Severity()
		}
		return dueDateKey(a) < dueDateKey(b)
	})
	return sorted
}

// FilterByStatus keeps the items with the given status, in input order.
func FilterByStatus(items []DueItem, status Status) []DueItem {
	out := make([]DueItem, 0)
	for _, item := range items {
		if item.DueData.Status == status {
			out = append(out, item)
		}
	}
	return out
}

// SummarizeVehicles builds one summary per vehicle, in vehicle order.
// Vehicles without intervals are OK with nothing due.
func SummarizeVehicles(vehicles []models.Vehicle, items []DueItem) []VehicleSummary {
	related := make(map[string][]DueItem)
	for _, item := range items {
		related[item.Vehicle.ID] = append(related[item.Vehicle.ID], item)
	}

	summaries := make([]VehicleSummary, 0, len(vehicles))
	for _, vehicle := range vehicles {
		own := related[vehicle.ID]
		if len(own) == 0 {
			summaries = append(summaries, VehicleSummary{Vehicle: vehicle, Status: StatusOK})
			continue
		}
		next := SortBySeverity(own)[0].DueData
		summaries = append(summaries, VehicleSummary{
			Vehicle: vehicle,
			Status:  next.Status,
			NextDue: &next,
		})
	}
	return summaries
}

// BuildOverview runs the engine over the whole fleet at now.
func BuildOverview(vehicles []models.Vehicle, intervals []models.ServiceInterval, entries []models.ServiceEntry, now time.Time) Overview {
	items := CollectIntervalDueItems(intervals, entries, vehicles, now)
	dueSoon := SortBySeverity(FilterByStatus(items, StatusDueSoon))
	overdue := SortBySeverity(FilterByStatus(items, StatusOverdue))
	return Overview{
		Summaries:     SummarizeVehicles(vehicles, items),
		DueSoon:       dueSoon,
		Overdue:       overdue,
		ServiceAlerts: len(dueSoon) + len(overdue),
	}
}

func dueDateKey(d DueData) int64 {
	if d.NextDueDate == nil {
		return math.MaxInt64
	}
	t, ok := models.ParseDate(*d.NextDueDate)
	if !ok {
		return math.MaxInt64
	}
	return t.UnixMilli()
}
