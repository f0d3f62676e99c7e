package models

import "strings"

// ServiceInterval describes a recurring service for a vehicle, e.g. an
// "HU/AU" every 24 months or an oil change every 15000 km.
type ServiceInterval struct {
	ID                 string   `json:"id"`
	VehicleID          string   `json:"vehicleId"`
	Name               string   `json:"name"`
	IntervalMonths     *int     `json:"intervalMonths,omitempty"`
	IntervalMileage    *float64 `json:"intervalMileage,omitempty"`
	LastServiceEntryID string   `json:"lastServiceEntryId,omitempty"`
}

// Clone returns a deep copy of the interval.
func (i ServiceInterval) Clone() ServiceInterval {
	i.IntervalMonths = cloneInt(i.IntervalMonths)
	i.IntervalMileage = cloneFloat(i.IntervalMileage)
	return i
}

// IsRoadworthinessCheck reports whether the interval name marks a general
// inspection (HU). Matching is a case-insensitive substring test.
func (i ServiceInterval) IsRoadworthinessCheck() bool {
	return strings.Contains(strings.ToLower(i.Name), "hu")
}

// ServiceIntervalUpdate carries the interval fields a caller wants to change.
type ServiceIntervalUpdate struct {
	VehicleID          *string  `json:"vehicleId,omitempty"`
	Name               *string  `json:"name,omitempty"`
	IntervalMonths     *int     `json:"intervalMonths,omitempty"`
	IntervalMileage    *float64 `json:"intervalMileage,omitempty"`
	LastServiceEntryID *string  `json:"lastServiceEntryId,omitempty"`
}

// Apply merges the update over i and returns the result.
func (u ServiceIntervalUpdate) Apply(i ServiceInterval) ServiceInterval {
	i = i.Clone()
	setString(&i.VehicleID, u.VehicleID)
	setString(&i.Name, u.Name)
	setString(&i.LastServiceEntryID, u.LastServiceEntryID)
	if u.IntervalMonths != nil {
		i.IntervalMonths = cloneInt(u.IntervalMonths)
	}
	if u.IntervalMileage != nil {
		i.IntervalMileage = cloneFloat(u.IntervalMileage)
	}
	return i
}
