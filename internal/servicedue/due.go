package servicedue

import (
	"sort"
	"strings"
	"time"

	"github.com/ukydev/cars-service-log/internal/models"
)

// DueData is the computed due state of one service interval.
type DueData struct {
	Interval         models.ServiceInterval `json:"interval"`
	LastServiceEntry *models.ServiceEntry   `json:"lastServiceEntry"`
	NextDueDate      *string                `json:"nextDueDate"`
	NextDueMileage   *float64               `json:"nextDueMileage"`
	Status           Status                 `json:"status"`
}

// DueItem pairs an interval's due data with the vehicle it belongs to.
type DueItem struct {
	Vehicle models.Vehicle `json:"vehicle"`
	DueData DueData        `json:"dueData"`
}

// IntervalDueData resolves the baseline entry of interval, the next due
// date and mileage, and the resulting status at now. vehicle may be nil, in
// which case the current mileage and registration year are unknown.
func IntervalDueData(interval models.ServiceInterval, vehicle *models.Vehicle, entries []models.ServiceEntry, now time.Time) DueData {
	lastEntry := findEntryByID(entries, interval.LastServiceEntryID)
	baseline := lastEntry
	if baseline == nil {
		baseline = findFallbackEntry(interval, entries)
	}

	var fallbackDate *time.Time
	if lastEntry == nil && interval.IsRoadworthinessCheck() {
		fallbackDate = registrationDate(vehicle)
	}

	var nextDueDate *string
	var dayDiff *float64
	if interval.IntervalMonths != nil {
		if base, ok := baseDate(baseline, fallbackDate); ok {
			due := base.AddDate(0, *interval.IntervalMonths, 0)
			formatted := due.Format(models.DateLayout)
			nextDueDate = &formatted
			// Day difference is taken against the formatted date, i.e. UTC midnight.
			dueDay, _ := models.ParseDate(formatted)
			diff := differenceInDays(dueDay, now)
			dayDiff = &diff
		}
	}

	var nextDueMileage *float64
	if interval.IntervalMileage != nil && models.IsFinite(*interval.IntervalMileage) &&
		baseline != nil && baseline.Mileage != nil {
		m := *baseline.Mileage + *interval.IntervalMileage
		nextDueMileage = &m
	}

	var mileageDiff *float64
	if nextDueMileage != nil && vehicle != nil {
		d := *nextDueMileage - vehicle.CurrentMileage
		mileageDiff = &d
	}

	return DueData{
		Interval:         interval.Clone(),
		LastServiceEntry: baseline,
		NextDueDate:      nextDueDate,
		NextDueMileage:   nextDueMileage,
		Status:           classify(dayDiff, mileageDiff),
	}
}

// CollectIntervalDueItems computes due data for every interval whose
// vehicle is known. Intervals of unknown vehicles are left out. The result
// keeps the order of intervals.
func CollectIntervalDueItems(intervals []models.ServiceInterval, entries []models.ServiceEntry, vehicles []models.Vehicle, now time.Time) []DueItem {
	byID := make(map[string]models.Vehicle, len(vehicles))
	for _, v := range vehicles {
		if _, seen := byID[v.ID]; !seen {
			byID[v.ID] = v
		}
	}

	items := make([]DueItem, 0, len(intervals))
	for _, interval := range intervals {
		vehicle, ok := byID[interval.VehicleID]
		if !ok {
			continue
		}
		items = append(items, DueItem{
			Vehicle: vehicle,
			DueData: IntervalDueData(interval, &vehicle, entries, now),
		})
	}
	return items
}

func findEntryByID(entries []models.ServiceEntry, id string) *models.ServiceEntry {
	if id == "" {
		return nil
	}
	for _, e := range entries {
		if e.ID == id {
			found := e.Clone()
			return &found
		}
	}
	return nil
}

// findFallbackEntry picks the newest entry of the interval's vehicle whose
// type matches the interval name, or else the newest entry of that vehicle.
func findFallbackEntry(interval models.ServiceInterval, entries []models.ServiceEntry) *models.ServiceEntry {
	if interval.VehicleID == "" {
		return nil
	}
	var vehicleEntries []models.ServiceEntry
	for _, e := range entries {
		if e.VehicleID == interval.VehicleID {
			vehicleEntries = append(vehicleEntries, e)
		}
	}
	if len(vehicleEntries) == 0 {
		return nil
	}
	sort.SliceStable(vehicleEntries, func(i, j int) bool {
		return vehicleEntries[i].Timestamp() > vehicleEntries[j].Timestamp()
	})

	chosen := vehicleEntries[0]
	if interval.Name != "" {
		target := strings.ToLower(interval.Name)
		for _, e := range vehicleEntries {
			if strings.ToLower(e.Type) == target {
				chosen = e
				break
			}
		}
	}
	found := chosen.Clone()
	return &found
}

// registrationDate is January 1st (UTC) of the vehicle's registration year.
func registrationDate(vehicle *models.Vehicle) *time.Time {
	if vehicle == nil || vehicle.Year == 0 {
		return nil
	}
	d := time.Date(vehicle.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return &d
}

// baseDate returns the baseline entry's date when a baseline entry exists,
// and the fallback date otherwise.
func baseDate(baseline *models.ServiceEntry, fallback *time.Time) (time.Time, bool) {
	if baseline != nil {
		if d, ok := models.ParseDate(baseline.Date); ok {
			return d, true
		}
		return time.Time{}, false
	}
	if fallback != nil {
		return *fallback, true
	}
	return time.Time{}, false
}
