package servicelog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/cars-service-log/internal/models"
)

// ErrInvalidSnapshot is returned for snapshot input that is not a JSON object.
var ErrInvalidSnapshot = errors.New("snapshot is not a JSON object")

var jsonNull = []byte("null")

// DecodeSnapshot decodes a backup or persisted state record. Decoding is
// tolerant: a missing or non-array collection becomes empty, an element
// that is not a JSON object is dropped, a field of the wrong type is left
// unset, and a schemaVersion that is absent or not a positive number
// becomes models.DefaultSchemaVersion. Only input that is not a JSON object
// is rejected.
func DecodeSnapshot(data []byte) (models.Snapshot, error) {
	return decodeSnapshot(data, nil)
}

func decodeSnapshot(data []byte, log *logrus.Entry) (models.Snapshot, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if fields == nil {
		return models.Snapshot{}, ErrInvalidSnapshot
	}

	snap := models.NewSnapshot()
	snap.SchemaVersion = decodeSchemaVersion(fields["schemaVersion"])
	snap.Vehicles = decodeCollection(fields["vehicles"], "vehicles", log, decodeVehicle)
	snap.ServiceEntries = decodeCollection(fields["serviceEntries"], "serviceEntries", log, decodeServiceEntry)
	snap.ServiceIntervals = decodeCollection(fields["serviceIntervals"], "serviceIntervals", log, decodeServiceInterval)
	return snap, nil
}

// decodeTrash decodes the persisted trash record. A record that is not an
// array yields an empty trash.
func decodeTrash(data []byte, log *logrus.Entry) ([]models.TrashedServiceEntry, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return []models.TrashedServiceEntry{}, err
	}
	return decodeCollection(data, "trash", log, decodeTrashedServiceEntry), nil
}

func decodeSchemaVersion(raw json.RawMessage) int {
	if len(raw) == 0 {
		return models.DefaultSchemaVersion
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return models.DefaultSchemaVersion
	}
	if math.IsNaN(v) || v < 1 || v > math.MaxInt32 {
		return models.DefaultSchemaVersion
	}
	return int(v)
}

func decodeCollection[T any](raw json.RawMessage, name string, log *logrus.Entry, decode func(*fieldReader) T) []T {
	out := []T{}
	if len(raw) == 0 {
		return out
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		if log != nil {
			log.WithField("collection", name).Warn("Collection is not an array, using empty list")
		}
		return out
	}
	for i, item := range items {
		if bytes.Equal(bytes.TrimSpace(item), jsonNull) {
			continue
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil {
			if log != nil {
				log.WithError(err).WithFields(logrus.Fields{"collection": name, "index": i}).Warn("Skipping malformed record")
			}
			continue
		}
		rec := &fieldReader{fields: fields}
		out = append(out, decode(rec))
		if len(rec.invalid) > 0 && log != nil {
			log.WithFields(logrus.Fields{
				"collection": name,
				"index":      i,
				"fields":     rec.invalid,
			}).Warn("Ignoring malformed fields")
		}
	}
	return out
}

func decodeVehicle(r *fieldReader) models.Vehicle {
	v := models.Vehicle{
		ID:           r.stringField("id"),
		Name:         r.stringField("name"),
		Category:     r.stringField("category"),
		Manufacturer: r.stringField("manufacturer"),
		Model:        r.stringField("model"),
		LicensePlate: r.stringField("licensePlate"),
		VIN:          r.stringField("vin"),
		Notes:        r.stringField("notes"),
	}
	if year := r.intField("year"); year != nil {
		v.Year = *year
	}
	if mileage := r.floatField("currentMileage"); mileage != nil {
		v.CurrentMileage = *mileage
	}
	return v
}

func decodeServiceEntry(r *fieldReader) models.ServiceEntry {
	return models.ServiceEntry{
		ID:                     r.stringField("id"),
		VehicleID:              r.stringField("vehicleId"),
		Date:                   r.stringField("date"),
		Mileage:                r.floatField("mileage"),
		Type:                   r.stringField("type"),
		OrganisationOrWorkshop: r.stringField("organisationOrWorkshop"),
		Cost:                   r.floatField("cost"),
		Notes:                  r.stringField("notes"),
	}
}

func decodeServiceInterval(r *fieldReader) models.ServiceInterval {
	return models.ServiceInterval{
		ID:                 r.stringField("id"),
		VehicleID:          r.stringField("vehicleId"),
		Name:               r.stringField("name"),
		IntervalMonths:     r.intField("intervalMonths"),
		IntervalMileage:    r.floatField("intervalMileage"),
		LastServiceEntryID: r.stringField("lastServiceEntryId"),
	}
}

func decodeTrashedServiceEntry(r *fieldReader) models.TrashedServiceEntry {
	return models.TrashedServiceEntry{
		ServiceEntry: decodeServiceEntry(r),
		DeletedAt:    r.timeField("deletedAt"),
	}
}

// fieldReader reads the fields of one stored object. A field holding a value of
// the wrong type reads as absent and is noted in invalid.
type fieldReader struct {
	fields  map[string]json.RawMessage
	invalid []string
}

func (r *fieldReader) raw(name string) (json.RawMessage, bool) {
	raw, ok := r.fields[name]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		return nil, false
	}
	return raw, true
}

// stringField accepts a string or a number. Numbers are kept in their shortest
// decimal form so numeric ids still match.
func (r *fieldReader) stringField(name string) string {
	raw, ok := r.raw(name)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	r.invalid = append(r.invalid, name)
	return ""
}

// floatField accepts a finite number or a string holding one.
func (r *fieldReader) floatField(name string) *float64 {
	raw, ok := r.raw(name)
	if !ok {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			r.invalid = append(r.invalid, name)
			return nil
		}
		if strings.TrimSpace(s) == "" {
			return nil
		}
		if f, err = strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
			r.invalid = append(r.invalid, name)
			return nil
		}
	}
	if !models.IsFinite(f) {
		r.invalid = append(r.invalid, name)
		return nil
	}
	return &f
}

// intField reads a number like floatField and drops the fraction.
func (r *fieldReader) intField(name string) *int {
	f := r.floatField(name)
	if f == nil {
		return nil
	}
	if math.Abs(*f) > math.MaxInt32 {
		r.invalid = append(r.invalid, name)
		return nil
	}
	return models.Int(int(*f))
}

// timeField accepts an RFC 3339 timestamp and yields the zero time otherwise.
func (r *fieldReader) timeField(name string) time.Time {
	raw, ok := r.raw(name)
	if !ok {
		return time.Time{}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s)); err == nil {
			return t.UTC()
		}
	}
	r.invalid = append(r.invalid, name)
	return time.Time{}
}
