package models

import "time"

// ServiceEntry represents one performed service in a vehicle's history.
type ServiceEntry struct {
	ID                     string   `json:"id"`
	VehicleID              string   `json:"vehicleId"`
	Date                   string   `json:"date"` // YYYY-MM-DD
	Mileage                *float64 `json:"mileage,omitempty"`
	Type                   string   `json:"type"`
	OrganisationOrWorkshop string   `json:"organisationOrWorkshop,omitempty"`
	Cost                   *float64 `json:"cost,omitempty"` // in EUR
	Notes                  string   `json:"notes,omitempty"`
}

// Clone returns a deep copy of the entry.
func (e ServiceEntry) Clone() ServiceEntry {
	e.Mileage = cloneFloat(e.Mileage)
	e.Cost = cloneFloat(e.Cost)
	return e
}

// Timestamp returns the entry date in Unix milliseconds, or 0 when the
// date is missing or cannot be parsed.
func (e ServiceEntry) Timestamp() int64 {
	t, ok := ParseDate(e.Date)
	if !ok {
		return 0
	}
	return t.UnixMilli()
}

// Trash moves the entry into its trashed state.
func (e ServiceEntry) Trash(deletedAt time.Time) TrashedServiceEntry {
	return TrashedServiceEntry{ServiceEntry: e.Clone(), DeletedAt: deletedAt.UTC()}
}

// ServiceEntryUpdate carries the entry fields a caller wants to change.
type ServiceEntryUpdate struct {
	VehicleID              *string  `json:"vehicleId,omitempty"`
	Date                   *string  `json:"date,omitempty"`
	Mileage                *float64 `json:"mileage,omitempty"`
	Type                   *string  `json:"type,omitempty"`
	OrganisationOrWorkshop *string  `json:"organisationOrWorkshop,omitempty"`
	Cost                   *float64 `json:"cost,omitempty"`
	Notes                  *string  `json:"notes,omitempty"`
}

// Apply merges the update over e and returns the result.
func (u ServiceEntryUpdate) Apply(e ServiceEntry) ServiceEntry {
	e = e.Clone()
	setString(&e.VehicleID, u.VehicleID)
	setString(&e.Date, u.Date)
	setString(&e.Type, u.Type)
	setString(&e.OrganisationOrWorkshop, u.OrganisationOrWorkshop)
	setString(&e.Notes, u.Notes)
	if u.Mileage != nil {
		e.Mileage = cloneFloat(u.Mileage)
	}
	if u.Cost != nil {
		e.Cost = cloneFloat(u.Cost)
	}
	return e
}

// TrashedServiceEntry is a soft-deleted service entry. It keeps the full
// record so it can be restored.
type TrashedServiceEntry struct {
	ServiceEntry
	DeletedAt time.Time `json:"deletedAt"`
}

// Restore returns the entry in its active state.
func (t TrashedServiceEntry) Restore() ServiceEntry {
	return t.ServiceEntry.Clone()
}

// Clone returns a deep copy of the trashed entry.
func (t TrashedServiceEntry) Clone() TrashedServiceEntry {
	t.ServiceEntry = t.ServiceEntry.Clone()
	return t
}
