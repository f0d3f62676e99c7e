// Package servicelog owns the vehicles, service entries, service intervals
// and entry trash of the service log, and keeps them in a key-value store.
package servicelog

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/cars-service-log/internal/db"
	"github.com/ukydev/cars-service-log/internal/metrics"
	"github.com/ukydev/cars-service-log/internal/models"
)

// Manager is the authoritative in-memory service log. Every mutation is
// written through to the store before it returns; store failures are
// logged and never undo the in-memory change.
//
// Manager is safe for concurrent use. Each operation holds the lock for
// its whole duration.
type Manager struct {
	mu    sync.Mutex
	state models.Snapshot
	trash []models.TrashedServiceEntry
	// firstDeletedAt remembers the deletion stamp of restored entries so a
	// re-deletion in the same session keeps the original stamp.
	firstDeletedAt map[string]time.Time

	store          db.KeyValueStore
	ids            IDGenerator
	clock          func() time.Time
	log            *logrus.Entry
	metrics        *metrics.Metrics
	persistTimeout time.Duration
	keyPrefix      string
}

// New returns a Manager with an empty state backed by store. Call Load to
// read the persisted records.
func New(store db.KeyValueStore, opts ...Option) *Manager {
	m := &Manager{
		state:          models.NewSnapshot(),
		trash:          []models.TrashedServiceEntry{},
		firstDeletedAt: make(map[string]time.Time),
		store:          store,
		ids:            ObjectIDGenerator{},
		clock:          time.Now,
		log:            logrus.NewEntry(logrus.StandardLogger()),
		persistTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.WithField("component", "servicelog")
	m.updateGauges()
	return m
}

// newID returns a generated id that no record in any collection uses yet.
func (m *Manager) newID() string {
	base := m.ids.NewID()
	id := base
	for n := 1; m.idInUse(id); n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	return id
}

func (m *Manager) idInUse(id string) bool {
	for _, v := range m.state.Vehicles {
		if v.ID == id {
			return true
		}
	}
	for _, e := range m.state.ServiceEntries {
		if e.ID == id {
			return true
		}
	}
	for _, iv := range m.state.ServiceIntervals {
		if iv.ID == id {
			return true
		}
	}
	for _, t := range m.trash {
		if t.ID == id {
			return true
		}
	}
	return false
}

// AddVehicle stores v, assigning an id when it has none. A non-finite
// mileage is stored as 0.
func (m *Manager) AddVehicle(v models.Vehicle) models.Vehicle {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v.ID == "" {
		v.ID = m.newID()
	}
	if !models.IsFinite(v.CurrentMileage) {
		v.CurrentMileage = 0
	}
	m.state.Vehicles = append(m.state.Vehicles, v)
	m.persistState()
	return v
}

// UpdateVehicle merges update into the vehicle with id. The mileage is
// never lowered. ok is false, and nothing changes, when id is unknown.
func (m *Manager) UpdateVehicle(id string, update models.VehicleUpdate) (models.Vehicle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, v := range m.state.Vehicles {
		if v.ID == id {
			m.state.Vehicles[i] = update.Apply(v)
			m.persistState()
			return m.state.Vehicles[i], true
		}
	}
	return models.Vehicle{}, false
}

// DeleteVehicle removes the vehicle with id together with all of its
// service entries and intervals. Trashed entries are kept.
func (m *Manager) DeleteVehicle(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	vehicles := make([]models.Vehicle, 0, len(m.state.Vehicles))
	for _, v := range m.state.Vehicles {
		if v.ID != id {
			vehicles = append(vehicles, v)
		}
	}
	entries := make([]models.ServiceEntry, 0, len(m.state.ServiceEntries))
	for _, e := range m.state.ServiceEntries {
		if e.VehicleID != id {
			entries = append(entries, e)
		}
	}
	intervals := make([]models.ServiceInterval, 0, len(m.state.ServiceIntervals))
	for _, iv := range m.state.ServiceIntervals {
		if iv.VehicleID != id {
			intervals = append(intervals, iv)
		}
	}

	removed := len(vehicles) != len(m.state.Vehicles) ||
		len(entries) != len(m.state.ServiceEntries) ||
		len(intervals) != len(m.state.ServiceIntervals)
	if !removed {
		return false
	}
	m.state.Vehicles = vehicles
	m.state.ServiceEntries = entries
	m.state.ServiceIntervals = intervals
	m.persistState()
	return true
}

// AddServiceEntry stores e, assigning an id when it has none.
func (m *Manager) AddServiceEntry(e models.ServiceEntry) models.ServiceEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	e = e.Clone()
	if e.ID == "" {
		e.ID = m.newID()
	}
	m.state.ServiceEntries = append(m.state.ServiceEntries, e)
	m.persistState()
	return e.Clone()
}

// UpdateServiceEntry merges update into the active entry with id.
func (m *Manager) UpdateServiceEntry(id string, update models.ServiceEntryUpdate) (models.ServiceEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, e := range m.state.ServiceEntries {
		if e.ID == id {
			m.state.ServiceEntries[i] = update.Apply(e)
			m.persistState()
			return m.state.ServiceEntries[i].Clone(), true
		}
	}
	return models.ServiceEntry{}, false
}

// DeleteServiceEntry moves the active entry with id to the trash. A trash
// record with the same id is replaced. An entry that was restored earlier
// in this session keeps its first deletion stamp.
func (m *Manager) DeleteServiceEntry(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		target models.ServiceEntry
		found  bool
	)
	remaining := make([]models.ServiceEntry, 0, len(m.state.ServiceEntries))
	for _, e := range m.state.ServiceEntries {
		if e.ID == id {
			target, found = e, true
			continue
		}
		remaining = append(remaining, e)
	}
	if !found {
		return false
	}

	deletedAt, ok := m.firstDeletedAt[id]
	if !ok {
		deletedAt = m.clock()
	}
	delete(m.firstDeletedAt, id)

	m.state.ServiceEntries = remaining
	m.trash = append(withoutTrashed(m.trash, id), target.Trash(deletedAt))
	m.persistState()
	m.persistTrash()
	return true
}

// RestoreServiceEntry moves the trashed entry with id back to the active
// entries and returns it.
func (m *Manager) RestoreServiceEntry(id string) (models.ServiceEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := -1
	for i, t := range m.trash {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.ServiceEntry{}, false
	}

	trashed := m.trash[idx]
	restored := trashed.Restore()
	if !trashed.DeletedAt.IsZero() {
		m.firstDeletedAt[id] = trashed.DeletedAt
	}

	active := make([]models.ServiceEntry, 0, len(m.state.ServiceEntries)+1)
	for _, e := range m.state.ServiceEntries {
		if e.ID != id {
			active = append(active, e)
		}
	}
	m.state.ServiceEntries = append(active, restored)
	m.trash = withoutTrashed(m.trash, id)
	m.persistState()
	m.persistTrash()
	return restored.Clone(), true
}

// DeleteServiceEntryForever removes the entry with id from the trash.
func (m *Manager) DeleteServiceEntryForever(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	remaining := withoutTrashed(m.trash, id)
	if len(remaining) == len(m.trash) {
		return false
	}
	m.trash = remaining
	delete(m.firstDeletedAt, id)
	m.persistTrash()
	return true
}

// ClearTrashServiceEntries empties the trash.
func (m *Manager) ClearTrashServiceEntries() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.trash = []models.TrashedServiceEntry{}
	m.persistTrash()
}

func withoutTrashed(trash []models.TrashedServiceEntry, id string) []models.TrashedServiceEntry {
	out := make([]models.TrashedServiceEntry, 0, len(trash))
	for _, t := range trash {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

// AddServiceInterval stores iv, assigning an id when it has none.
func (m *Manager) AddServiceInterval(iv models.ServiceInterval) models.ServiceInterval {
	m.mu.Lock()
	defer m.mu.Unlock()

	iv = iv.Clone()
	if iv.ID == "" {
		iv.ID = m.newID()
	}
	m.state.ServiceIntervals = append(m.state.ServiceIntervals, iv)
	m.persistState()
	return iv.Clone()
}

// UpdateServiceInterval merges update into the interval with id.
func (m *Manager) UpdateServiceInterval(id string, update models.ServiceIntervalUpdate) (models.ServiceInterval, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, iv := range m.state.ServiceIntervals {
		if iv.ID == id {
			m.state.ServiceIntervals[i] = update.Apply(iv)
			m.persistState()
			return m.state.ServiceIntervals[i].Clone(), true
		}
	}
	return models.ServiceInterval{}, false
}

// DeleteServiceInterval removes the interval with id.
func (m *Manager) DeleteServiceInterval(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	remaining := make([]models.ServiceInterval, 0, len(m.state.ServiceIntervals))
	for _, iv := range m.state.ServiceIntervals {
		if iv.ID != id {
			remaining = append(remaining, iv)
		}
	}
	if len(remaining) == len(m.state.ServiceIntervals) {
		return false
	}
	m.state.ServiceIntervals = remaining
	m.persistState()
	return true
}

// ExportState returns a deep copy of the active state. The trash is not
// part of it.
func (m *Manager) ExportState() models.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

// ApplyImportedData replaces the active state with snap. A schema version
// below 1 is replaced by the default. The trash is left alone.
func (m *Manager) ApplyImportedData(snap models.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := snap.Clone()
	if next.SchemaVersion <= 0 {
		next.SchemaVersion = models.DefaultSchemaVersion
	}
	m.state = next
	m.firstDeletedAt = make(map[string]time.Time)
	m.persistState()

	m.log.WithFields(logrus.Fields{
		"schemaVersion": next.SchemaVersion,
		"vehicles":      len(next.Vehicles),
		"entries":       len(next.ServiceEntries),
		"intervals":     len(next.ServiceIntervals),
	}).Info("Imported service log")
}

// ImportJSON decodes a backup document and applies it.
func (m *Manager) ImportJSON(data []byte) (models.Snapshot, error) {
	snap, err := decodeSnapshot(data, m.log.WithField("record", "import"))
	if err != nil {
		return models.Snapshot{}, err
	}
	m.ApplyImportedData(snap)
	return snap, nil
}

// Vehicles returns all vehicles in insertion order.
func (m *Manager) Vehicles() []models.Vehicle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return models.CloneVehicles(m.state.Vehicles)
}

// Vehicle returns the vehicle with id.
func (m *Manager) Vehicle(id string) (models.Vehicle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.state.Vehicles {
		if v.ID == id {
			return v, true
		}
	}
	return models.Vehicle{}, false
}

// ServiceEntries returns all active entries in insertion order.
func (m *Manager) ServiceEntries() []models.ServiceEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return models.CloneServiceEntries(m.state.ServiceEntries)
}

// ServiceEntriesForVehicle returns the active entries of a vehicle,
// newest first.
func (m *Manager) ServiceEntriesForVehicle(vehicleID string) []models.ServiceEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return FilterServiceEntries(m.state.ServiceEntries, EntryFilter{VehicleID: vehicleID}, m.clock())
}

// ServiceIntervals returns all intervals in insertion order.
func (m *Manager) ServiceIntervals() []models.ServiceInterval {
	m.mu.Lock()
	defer m.mu.Unlock()
	return models.CloneServiceIntervals(m.state.ServiceIntervals)
}

// ServiceIntervalsForVehicle returns the intervals of a vehicle.
func (m *Manager) ServiceIntervalsForVehicle(vehicleID string) []models.ServiceInterval {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.ServiceInterval{}
	for _, iv := range m.state.ServiceIntervals {
		if iv.VehicleID == vehicleID {
			out = append(out, iv.Clone())
		}
	}
	return out
}

// TrashServiceEntries returns the trashed entries in deletion order.
func (m *Manager) TrashServiceEntries() []models.TrashedServiceEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return models.CloneTrashedServiceEntries(m.trash)
}

// SchemaVersion returns the schema version of the active state.
func (m *Manager) SchemaVersion() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.SchemaVersion
}

// HasStoredData reports whether any vehicle, entry or interval exists.
func (m *Manager) HasStoredData() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.Vehicles) > 0 || len(m.state.ServiceEntries) > 0 || len(m.state.ServiceIntervals) > 0
}
