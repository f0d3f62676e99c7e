package models

import "math"

// Vehicle represents a tracked vehicle.
type Vehicle struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Category       string  `json:"category"` // "Pkw", "Motorrad", "Transporter", "Wohnmobil", ...
	Manufacturer   string  `json:"manufacturer,omitempty"`
	Model          string  `json:"model,omitempty"`
	Year           int     `json:"year,omitempty"` // first registration, 0 when unknown
	LicensePlate   string  `json:"licensePlate,omitempty"`
	VIN            string  `json:"vin,omitempty"`
	Notes          string  `json:"notes,omitempty"`
	CurrentMileage float64 `json:"currentMileage"` // in kilometers
}

// VehicleUpdate carries the vehicle fields a caller wants to change.
// Nil fields are left untouched.
type VehicleUpdate struct {
	Name           *string  `json:"name,omitempty"`
	Category       *string  `json:"category,omitempty"`
	Manufacturer   *string  `json:"manufacturer,omitempty"`
	Model          *string  `json:"model,omitempty"`
	Year           *int     `json:"year,omitempty"`
	LicensePlate   *string  `json:"licensePlate,omitempty"`
	VIN            *string  `json:"vin,omitempty"`
	Notes          *string  `json:"notes,omitempty"`
	CurrentMileage *float64 `json:"currentMileage,omitempty"`
}

// Apply merges the update over v and returns the result. The mileage is
// never lowered: the larger of the stored and requested value is kept.
func (u VehicleUpdate) Apply(v Vehicle) Vehicle {
	setString(&v.Name, u.Name)
	setString(&v.Category, u.Category)
	setString(&v.Manufacturer, u.Manufacturer)
	setString(&v.Model, u.Model)
	setString(&v.LicensePlate, u.LicensePlate)
	setString(&v.VIN, u.VIN)
	setString(&v.Notes, u.Notes)
	if u.Year != nil {
		v.Year = *u.Year
	}
	if u.CurrentMileage != nil && IsFinite(*u.CurrentMileage) {
		v.CurrentMileage = math.Max(v.CurrentMileage, *u.CurrentMileage)
	}
	return v
}

// IsFinite reports whether f is neither NaN nor an infinity.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
