package servicelog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/cars-service-log/internal/metrics"
	"github.com/ukydev/cars-service-log/internal/models"
)

// Storage keys of the two persisted records.
const (
	StateKey = "cars-service-log-state"
	TrashKey = "cars-service-log-trash"
)

const (
	recordState = "state"
	recordTrash = "trash"
)

func (m *Manager) stateKey() string { return m.keyPrefix + StateKey }
func (m *Manager) trashKey() string { return m.keyPrefix + TrashKey }

func (m *Manager) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.persistTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, m.persistTimeout)
}

// Load replaces the in-memory state with the persisted records. Missing or
// malformed records fall back to the empty state; nothing is returned to
// the caller.
func (m *Manager) Load(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = m.loadState(ctx)
	m.trash = m.loadTrash(ctx)
	m.firstDeletedAt = make(map[string]time.Time)
	m.updateGauges()

	m.log.WithFields(logrus.Fields{
		"vehicles":  len(m.state.Vehicles),
		"entries":   len(m.state.ServiceEntries),
		"intervals": len(m.state.ServiceIntervals),
		"trash":     len(m.trash),
	}).Info("Service log loaded")
}

func (m *Manager) readRecord(ctx context.Context, key, record string) ([]byte, bool) {
	ctx, cancel := m.storeContext(ctx)
	defer cancel()

	value, found, err := m.store.Get(ctx, key)
	if err != nil {
		m.log.WithError(err).WithField("record", record).Warn("Failed to read record, using defaults")
		m.metrics.ObserveStoreLoad(record, metrics.LoadError)
		return nil, false
	}
	if !found {
		m.metrics.ObserveStoreLoad(record, metrics.LoadMissing)
		return nil, false
	}
	return []byte(value), true
}

func (m *Manager) loadState(ctx context.Context) models.Snapshot {
	data, ok := m.readRecord(ctx, m.stateKey(), recordState)
	if !ok {
		return models.NewSnapshot()
	}
	snap, err := decodeSnapshot(data, m.log.WithField("record", recordState))
	if err != nil {
		m.log.WithError(err).Warn("Stored state is malformed, using defaults")
		m.metrics.ObserveStoreLoad(recordState, metrics.LoadInvalid)
		return models.NewSnapshot()
	}
	m.metrics.ObserveStoreLoad(recordState, metrics.LoadOK)
	return snap
}

func (m *Manager) loadTrash(ctx context.Context) []models.TrashedServiceEntry {
	data, ok := m.readRecord(ctx, m.trashKey(), recordTrash)
	if !ok {
		return []models.TrashedServiceEntry{}
	}
	trash, err := decodeTrash(data, m.log.WithField("record", recordTrash))
	if err != nil {
		m.log.WithError(err).Warn("Stored trash is malformed, using empty trash")
		m.metrics.ObserveStoreLoad(recordTrash, metrics.LoadInvalid)
		return []models.TrashedServiceEntry{}
	}
	m.metrics.ObserveStoreLoad(recordTrash, metrics.LoadOK)
	return trash
}

// persistState writes the active state. Failures are logged and counted.
func (m *Manager) persistState() {
	m.writeRecord(m.stateKey(), recordState, m.state)
	m.updateGauges()
}

// persistTrash writes the trash record.
func (m *Manager) persistTrash() {
	m.writeRecord(m.trashKey(), recordTrash, m.trash)
	m.updateGauges()
}

func (m *Manager) writeRecord(key, record string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		m.log.WithError(err).WithField("record", record).Error("Failed to encode record")
		m.metrics.ObserveStoreWrite(record, err)
		return
	}

	ctx, cancel := m.storeContext(context.Background())
	defer cancel()
	err = m.store.Set(ctx, key, string(data))
	if err != nil {
		m.log.WithError(err).WithField("record", record).Warn("Failed to persist record")
	}
	m.metrics.ObserveStoreWrite(record, err)
}

func (m *Manager) updateGauges() {
	m.metrics.SetRecords("vehicles", len(m.state.Vehicles))
	m.metrics.SetRecords("entries", len(m.state.ServiceEntries))
	m.metrics.SetRecords("intervals", len(m.state.ServiceIntervals))
	m.metrics.SetRecords("trash", len(m.trash))
}
