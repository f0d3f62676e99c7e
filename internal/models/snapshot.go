package models

// DefaultSchemaVersion is the snapshot format written by this version.
const DefaultSchemaVersion = 1

// Snapshot is the whole active state. It is the unit of backup export and
// import. Trashed entries are not part of it.
type Snapshot struct {
	SchemaVersion    int               `json:"schemaVersion"`
	Vehicles         []Vehicle         `json:"vehicles"`
	ServiceEntries   []ServiceEntry    `json:"serviceEntries"`
	ServiceIntervals []ServiceInterval `json:"serviceIntervals"`
}

// NewSnapshot returns an empty snapshot at the default schema version.
func NewSnapshot() Snapshot {
	return Snapshot{
		SchemaVersion:    DefaultSchemaVersion,
		Vehicles:         []Vehicle{},
		ServiceEntries:   []ServiceEntry{},
		ServiceIntervals: []ServiceInterval{},
	}
}

// Clone returns a deep copy. Nil collections come back as empty slices.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		SchemaVersion:    s.SchemaVersion,
		Vehicles:         CloneVehicles(s.Vehicles),
		ServiceEntries:   CloneServiceEntries(s.ServiceEntries),
		ServiceIntervals: CloneServiceIntervals(s.ServiceIntervals),
	}
}

// CloneVehicles copies a vehicle list.
func CloneVehicles(in []Vehicle) []Vehicle {
	out := make([]Vehicle, len(in))
	copy(out, in)
	return out
}

// CloneServiceEntries deep-copies an entry list.
func CloneServiceEntries(in []ServiceEntry) []ServiceEntry {
	out := make([]ServiceEntry, len(in))
	for i, e := range in {
		out[i] = e.Clone()
	}
	return out
}

// CloneServiceIntervals deep-copies an interval list.
func CloneServiceIntervals(in []ServiceInterval) []ServiceInterval {
	out := make([]ServiceInterval, len(in))
	for i, iv := range in {
		out[i] = iv.Clone()
	}
	return out
}

// CloneTrashedServiceEntries deep-copies a trash list.
func CloneTrashedServiceEntries(in []TrashedServiceEntry) []TrashedServiceEntry {
	out := make([]TrashedServiceEntry, len(in))
	for i, t := range in {
		out[i] = t.Clone()
	}
	return out
}
