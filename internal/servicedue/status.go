// Package servicedue computes when recurring vehicle services are due next
// and classifies them as OK, due soon or overdue.
//
// All functions are pure: the reference instant is always passed in and
// nothing in the package reads the wall clock.
package servicedue

import "time"

const (
	// DaysSoonThreshold is the window, in days, in which a dated service is due soon.
	DaysSoonThreshold = 60
	// MileageSoonThreshold is the window, in kilometers, in which a service is due soon.
	MileageSoonThreshold = 5000
)

// Status is the traffic-light state of a service interval.
type Status string

const (
	StatusOK      Status = "OK"
	StatusDueSoon Status = "DUE_SOON"
	StatusOverdue Status = "OVERDUE"
)

// Severity ranks the status for sorting. Lower is more urgent.
func (s Status) Severity() int {
	switch s {
	case StatusOverdue:
		return 0
	case StatusDueSoon:
		return 1
	default:
		return 2
	}
}

// classify evaluates the date and mileage axes independently. Overdue on
// either axis wins over due soon on the other.
func classify(dayDiff, mileageDiff *float64) Status {
	dateOverdue := dayDiff != nil && *dayDiff < 0
	dateDueSoon := dayDiff != nil && *dayDiff >= 0 && *dayDiff <= DaysSoonThreshold
	mileageOverdue := mileageDiff != nil && *mileageDiff <= 0
	mileageDueSoon := mileageDiff != nil && *mileageDiff > 0 && *mileageDiff <= MileageSoonThreshold

	switch {
	case dateOverdue || mileageOverdue:
		return StatusOverdue
	case dateDueSoon || mileageDueSoon:
		return StatusDueSoon
	default:
		return StatusOK
	}
}

// differenceInDays returns target - now in fractional days.
func differenceInDays(target, now time.Time) float64 {
	return float64(target.Sub(now)) / float64(24*time.Hour)
}
