package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/cars-service-log/internal/db"
	"github.com/ukydev/cars-service-log/internal/metrics"
	"github.com/ukydev/cars-service-log/internal/models"
	"github.com/ukydev/cars-service-log/internal/servicedue"
	"github.com/ukydev/cars-service-log/internal/servicelog"
)

var testNow = time.Date(2023, 12, 15, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*servicelog.Manager, http.Handler) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	log := logrus.NewEntry(logger)

	mt := metrics.New()
	manager := servicelog.New(db.NewMemoryStore(), servicelog.WithLogger(log), servicelog.WithMetrics(mt))
	h := NewHandler(manager, log, WithClock(func() time.Time { return testNow }))
	return manager, h.Routes(mt)
}

func do(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestVehicles_CRUD(t *testing.T) {
	manager, srv := newTestServer(t)

	w := do(t, srv, http.MethodPost, "/api/vehicles", map[string]any{
		"name": "Golf", "category": "Pkw", "year": 2016, "currentMileage": 98000,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.Vehicle](t, w)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Golf", created.Name)

	w = do(t, srv, http.MethodGet, "/api/vehicles", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Vehicle](t, w), 1)

	w = do(t, srv, http.MethodPatch, "/api/vehicles/"+created.ID, map[string]any{"currentMileage": 90000, "notes": "Winterreifen"})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[models.Vehicle](t, w)
	assert.Equal(t, 98000.0, updated.CurrentMileage, "mileage is never lowered")
	assert.Equal(t, "Winterreifen", updated.Notes)

	w = do(t, srv, http.MethodDelete, "/api/vehicles/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, manager.Vehicles())
}

func TestVehicles_Validation(t *testing.T) {
	_, srv := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"missing name", http.MethodPost, "/api/vehicles", map[string]any{"category": "Pkw"}, http.StatusBadRequest},
		{"negative mileage", http.MethodPost, "/api/vehicles", map[string]any{"name": "x", "currentMileage": -1}, http.StatusBadRequest},
		{"invalid json", http.MethodPost, "/api/vehicles", "{", http.StatusBadRequest},
		{"empty body", http.MethodPost, "/api/vehicles", "", http.StatusBadRequest},
		{"patch unknown", http.MethodPatch, "/api/vehicles/nope", map[string]any{"name": "x"}, http.StatusNotFound},
		{"get unknown", http.MethodGet, "/api/vehicles/nope", nil, http.StatusNotFound},
		{"delete unknown", http.MethodDelete, "/api/vehicles/nope", nil, http.StatusNoContent},
		{"wrong method", http.MethodPut, "/api/vehicles", map[string]any{}, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestVehicleDetail(t *testing.T) {
	manager, srv := newTestServer(t)
	v := manager.AddVehicle(models.Vehicle{Name: "Golf", Year: 2016, CurrentMileage: 36000})
	old := manager.AddServiceEntry(models.ServiceEntry{VehicleID: v.ID, Date: "2021-02-01", Type: models.ServiceTypeInspection})
	hu := manager.AddServiceEntry(models.ServiceEntry{VehicleID: v.ID, Date: "2022-02-01", Type: models.ServiceTypeHUAU})
	manager.AddServiceInterval(models.ServiceInterval{VehicleID: v.ID, Name: "HU/AU", IntervalMonths: models.Int(24), LastServiceEntryID: hu.ID})
	manager.AddServiceInterval(models.ServiceInterval{
		VehicleID: v.ID, Name: "Inspektion", IntervalMonths: models.Int(12),
		IntervalMileage: models.Float64(8000), LastServiceEntryID: old.ID,
	})

	w := do(t, srv, http.MethodGet, "/api/vehicles/"+v.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[VehicleDetail](t, w)

	assert.Equal(t, v.ID, detail.Vehicle.ID)
	require.Len(t, detail.ServiceEntries, 2)
	assert.Equal(t, hu.ID, detail.ServiceEntries[0].ID, "newest first")
	assert.Len(t, detail.ServiceIntervals, 2)
	require.Len(t, detail.Due, 2)
	assert.Equal(t, servicedue.StatusOverdue, detail.Due[0].DueData.Status)
	assert.Equal(t, "Inspektion", detail.Due[0].DueData.Interval.Name)
	assert.Equal(t, servicedue.StatusDueSoon, detail.Due[1].DueData.Status)
	require.NotNil(t, detail.Due[1].DueData.NextDueDate)
	assert.Equal(t, "2024-02-01", *detail.Due[1].DueData.NextDueDate)
}

func TestEntries(t *testing.T) {
	manager, srv := newTestServer(t)
	v := manager.AddVehicle(models.Vehicle{Name: "Golf"})
	other := manager.AddVehicle(models.Vehicle{Name: "Vespa"})
	manager.AddServiceEntry(models.ServiceEntry{VehicleID: other.ID, Date: "2023-01-01"})

	w := do(t, srv, http.MethodPost, "/api/entries", map[string]any{
		"vehicleId": v.ID, "date": "2023-05-10", "mileage": 42000, "type": "Ölwechsel", "cost": 189.9,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	entry := decode[models.ServiceEntry](t, w)

	w = do(t, srv, http.MethodGet, "/api/entries?vehicleId="+v.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[EntryList](t, w)
	assert.Len(t, list.Entries, 1)
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, 189.9, list.TotalCost)

	w = do(t, srv, http.MethodGet, "/api/entries", nil)
	assert.Len(t, decode[EntryList](t, w).Entries, 2)

	w = do(t, srv, http.MethodPatch, "/api/entries/"+entry.ID, map[string]any{"notes": "5W-30"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "5W-30", decode[models.ServiceEntry](t, w).Notes)

	w = do(t, srv, http.MethodDelete, "/api/entries/"+entry.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Len(t, manager.TrashServiceEntries(), 1)
}

func TestEntries_Filters(t *testing.T) {
	manager, srv := newTestServer(t)
	golf := manager.AddVehicle(models.Vehicle{Name: "Golf"})
	vespa := manager.AddVehicle(models.Vehicle{Name: "Vespa"})
	manager.AddServiceEntry(models.ServiceEntry{ID: "e-2022", VehicleID: golf.ID, Date: "2022-05-01", Type: models.ServiceTypeOilChange, Cost: models.Float64(90)})
	manager.AddServiceEntry(models.ServiceEntry{ID: "e-2023a", VehicleID: golf.ID, Date: "2023-03-01", Type: models.ServiceTypeHUAU, Cost: models.Float64(140)})
	manager.AddServiceEntry(models.ServiceEntry{ID: "e-2023b", VehicleID: vespa.ID, Date: "2023-09-15", Type: models.ServiceTypeOilChange, Cost: models.Float64(35.5)})
	manager.AddServiceEntry(models.ServiceEntry{ID: "e-free", VehicleID: vespa.ID, Date: "2023-10-01", Type: models.ServiceTypeOther})

	tests := []struct {
		name      string
		query     string
		wantIDs   []string
		wantTotal float64
	}{
		{"all newest first", "", []string{"e-free", "e-2023b", "e-2023a", "e-2022"}, 265.5},
		{"vehicle", "?vehicleId=" + golf.ID, []string{"e-2023a", "e-2022"}, 230},
		{"type", "?type=" + url.QueryEscape(models.ServiceTypeOilChange), []string{"e-2023b", "e-2022"}, 125.5},
		{"current year", "?period=current-year", []string{"e-free", "e-2023b", "e-2023a"}, 175.5},
		{"last year", "?period=last-year", []string{"e-2022"}, 90},
		{"custom", "?period=custom&from=2023-01-01&to=2023-09-15", []string{"e-2023b", "e-2023a"}, 175.5},
		{"custom reversed ignored", "?period=custom&from=2023-09-15&to=2023-01-01", []string{"e-free", "e-2023b", "e-2023a", "e-2022"}, 265.5},
		{"custom invalid ignored", "?period=custom&from=gestern&to=2023-01-01", []string{"e-free", "e-2023b", "e-2023a", "e-2022"}, 265.5},
		{"combined", "?vehicleId=" + vespa.ID + "&period=custom&from=2023-09-01&to=2023-09-30", []string{"e-2023b"}, 35.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, http.MethodGet, "/api/entries"+tt.query, nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			list := decode[EntryList](t, w)

			got := make([]string, 0, len(list.Entries))
			for _, e := range list.Entries {
				got = append(got, e.ID)
			}
			assert.Equal(t, tt.wantIDs, got)
			assert.Equal(t, len(tt.wantIDs), list.Count)
			assert.InDelta(t, tt.wantTotal, list.TotalCost, 1e-9)
		})
	}

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/entries?period=decade", nil).Code)
}

func TestCreateEntry_DefaultsMileageToVehicle(t *testing.T) {
	manager, srv := newTestServer(t)
	v := manager.AddVehicle(models.Vehicle{Name: "Golf", CurrentMileage: 98000})

	w := do(t, srv, http.MethodPost, "/api/entries", map[string]any{"vehicleId": v.ID, "date": "2023-05-10"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	entry := decode[models.ServiceEntry](t, w)
	require.NotNil(t, entry.Mileage)
	assert.Equal(t, 98000.0, *entry.Mileage)

	w = do(t, srv, http.MethodPost, "/api/entries", map[string]any{"vehicleId": v.ID, "mileage": 97000})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 97000.0, *decode[models.ServiceEntry](t, w).Mileage, "explicit mileage wins")

	w = do(t, srv, http.MethodPost, "/api/entries", map[string]any{"vehicleId": "unknown"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Nil(t, decode[models.ServiceEntry](t, w).Mileage)
}

func TestEntries_Validation(t *testing.T) {
	_, srv := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"missing vehicleId", http.MethodPost, "/api/entries", map[string]any{"date": "2023-01-01"}, http.StatusBadRequest},
		{"bad date", http.MethodPost, "/api/entries", map[string]any{"vehicleId": "v", "date": "01.02.2023"}, http.StatusBadRequest},
		{"negative cost", http.MethodPost, "/api/entries", map[string]any{"vehicleId": "v", "cost": -5}, http.StatusBadRequest},
		{"patch unknown", http.MethodPatch, "/api/entries/nope", map[string]any{"notes": "x"}, http.StatusNotFound},
		{"patch bad mileage", http.MethodPatch, "/api/entries/nope", map[string]any{"mileage": -1}, http.StatusBadRequest},
		{"delete unknown", http.MethodDelete, "/api/entries/nope", nil, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestTrash(t *testing.T) {
	manager, srv := newTestServer(t)
	a := manager.AddServiceEntry(models.ServiceEntry{VehicleID: "v", Date: "2023-01-01", Type: "Bremsen"})
	b := manager.AddServiceEntry(models.ServiceEntry{VehicleID: "v", Date: "2023-02-01", Type: "Umbau"})
	c := manager.AddServiceEntry(models.ServiceEntry{VehicleID: "v", Date: "2023-03-01", Type: "Sonstiges"})
	for _, id := range []string{a.ID, b.ID, c.ID} {
		manager.DeleteServiceEntry(id)
	}

	w := do(t, srv, http.MethodGet, "/api/trash", nil)
	require.Equal(t, http.StatusOK, w.Code)
	trash := decode[[]map[string]any](t, w)
	require.Len(t, trash, 3)
	assert.Equal(t, a.ID, trash[0]["id"])
	assert.NotEmpty(t, trash[0]["deletedAt"], "trash records are flat entries with deletedAt")

	w = do(t, srv, http.MethodPost, "/api/trash/"+a.ID+"/restore", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Len(t, manager.ServiceEntries(), 1)

	w = do(t, srv, http.MethodDelete, "/api/trash/"+b.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Len(t, manager.TrashServiceEntries(), 1)

	w = do(t, srv, http.MethodDelete, "/api/trash", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, manager.TrashServiceEntries())

	w = do(t, srv, http.MethodPost, "/api/trash/unknown/restore", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestIntervals(t *testing.T) {
	manager, srv := newTestServer(t)
	v := manager.AddVehicle(models.Vehicle{Name: "Golf"})

	w := do(t, srv, http.MethodPost, "/api/intervals", map[string]any{"vehicleId": v.ID, "name": "HU/AU", "intervalMonths": 24})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	interval := decode[models.ServiceInterval](t, w)

	w = do(t, srv, http.MethodGet, "/api/intervals?vehicleId="+v.ID, nil)
	assert.Len(t, decode[[]models.ServiceInterval](t, w), 1)
	w = do(t, srv, http.MethodGet, "/api/intervals?vehicleId=other", nil)
	assert.Empty(t, decode[[]models.ServiceInterval](t, w))

	w = do(t, srv, http.MethodPatch, "/api/intervals/"+interval.ID, map[string]any{"intervalMileage": 30000})
	require.Equal(t, http.StatusOK, w.Code)
	patched := decode[models.ServiceInterval](t, w)
	assert.Equal(t, 24, *patched.IntervalMonths)
	assert.Equal(t, 30000.0, *patched.IntervalMileage)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/intervals", map[string]any{"name": "x"}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/intervals", map[string]any{"vehicleId": v.ID}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPatch, "/api/intervals/"+interval.ID, map[string]any{"intervalMonths": 0}).Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodPatch, "/api/intervals/nope", map[string]any{"name": "x"}).Code)

	w = do(t, srv, http.MethodDelete, "/api/intervals/"+interval.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, manager.ServiceIntervals())
}

func TestBackup_ExportImportRoundTrip(t *testing.T) {
	manager, srv := newTestServer(t)
	v := manager.AddVehicle(models.Vehicle{Name: "Golf", Year: 2016})
	manager.AddServiceEntry(models.ServiceEntry{VehicleID: v.ID, Date: "2023-05-10", Type: models.ServiceTypeHUAU})
	manager.AddServiceInterval(models.ServiceInterval{VehicleID: v.ID, Name: "HU/AU", IntervalMonths: models.Int(24)})
	trashed := manager.AddServiceEntry(models.ServiceEntry{VehicleID: v.ID, Date: "2020-01-01"})
	manager.DeleteServiceEntry(trashed.ID)

	w := do(t, srv, http.MethodGet, "/api/backup", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="cars-service-log-backup-2023-12-15.json"`, w.Header().Get("Content-Disposition"))
	exported := w.Body.String()
	before := manager.ExportState()

	manager.AddVehicle(models.Vehicle{Name: "Vespa"})

	w = do(t, srv, http.MethodPost, "/api/backup", exported)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, before, manager.ExportState())
	assert.Equal(t, before, decode[models.Snapshot](t, w))
	assert.Len(t, manager.TrashServiceEntries(), 1, "import keeps the trash")
}

func TestBackup_ImportTolerantAndRejects(t *testing.T) {
	manager, srv := newTestServer(t)
	manager.AddVehicle(models.Vehicle{Name: "Golf"})

	w := do(t, srv, http.MethodPost, "/api/backup", `{"vehicles":[{"id":"v1","name":"Imported"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	snap := manager.ExportState()
	assert.Equal(t, 1, snap.SchemaVersion)
	require.Len(t, snap.Vehicles, 1)
	assert.Equal(t, "Imported", snap.Vehicles[0].Name)
	assert.Empty(t, snap.ServiceEntries)

	for _, body := range []string{"", "not json", "[]", "null"} {
		w := do(t, srv, http.MethodPost, "/api/backup", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.Len(t, manager.Vehicles(), 1)
}

func TestDueOverview(t *testing.T) {
	manager, srv := newTestServer(t)
	v := manager.AddVehicle(models.Vehicle{Name: "Golf", CurrentMileage: 10000})
	hu := manager.AddServiceEntry(models.ServiceEntry{VehicleID: v.ID, Date: "2022-02-01", Type: models.ServiceTypeHUAU})
	manager.AddServiceInterval(models.ServiceInterval{VehicleID: v.ID, Name: "HU/AU", IntervalMonths: models.Int(24), LastServiceEntryID: hu.ID})

	w := do(t, srv, http.MethodGet, "/api/due", nil)
	require.Equal(t, http.StatusOK, w.Code)
	overview := decode[servicedue.Overview](t, w)
	assert.Equal(t, 1, overview.ServiceAlerts)
	require.Len(t, overview.DueSoon, 1)
	require.Len(t, overview.Summaries, 1)
	assert.Equal(t, servicedue.StatusDueSoon, overview.Summaries[0].Status)

	w = do(t, srv, http.MethodGet, "/api/due?now=2023-01-01", nil)
	overview = decode[servicedue.Overview](t, w)
	assert.Equal(t, 0, overview.ServiceAlerts)
	assert.Equal(t, servicedue.StatusOK, overview.Summaries[0].Status)

	w = do(t, srv, http.MethodGet, "/api/due?now=2024-03-01T00:00:00Z", nil)
	overview = decode[servicedue.Overview](t, w)
	assert.Len(t, overview.Overdue, 1)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/due?now=tomorrow", nil).Code)
}

func TestDueOverview_ConsistentDuringImports(t *testing.T) {
	manager, srv := newTestServer(t)

	fleet := func(id string) models.Snapshot {
		snap := models.NewSnapshot()
		snap.Vehicles = []models.Vehicle{{ID: id, Name: id}}
		snap.ServiceEntries = []models.ServiceEntry{{ID: id + "-hu", VehicleID: id, Date: "2020-01-01"}}
		snap.ServiceIntervals = []models.ServiceInterval{
			{ID: id + "-i", VehicleID: id, Name: "HU/AU", IntervalMonths: models.Int(24), LastServiceEntryID: id + "-hu"},
		}
		return snap
	}
	a, b := fleet("a"), fleet("b")
	manager.ApplyImportedData(a)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			if i%2 == 0 {
				manager.ApplyImportedData(b)
			} else {
				manager.ApplyImportedData(a)
			}
		}
	}()

	for i := 0; i < 200; i++ {
		overview := decode[servicedue.Overview](t, do(t, srv, http.MethodGet, "/api/due", nil))
		require.Len(t, overview.Summaries, 1)
		require.Len(t, overview.Overdue, 1)
		assert.Equal(t, overview.Summaries[0].Vehicle.ID, overview.Overdue[0].Vehicle.ID)
	}
	<-done
}

func TestHealthServiceTypesAndMetrics(t *testing.T) {
	_, srv := newTestServer(t)

	w := do(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]string{"status": "ok"}, decode[map[string]string](t, w))

	w = do(t, srv, http.MethodGet, "/api/service-types", nil)
	assert.Equal(t, models.ServiceTypes, decode[[]string](t, w))

	w = do(t, srv, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `carsservicelog_records{collection="vehicles"} 0`)

	do(t, srv, http.MethodPost, "/api/vehicles", map[string]any{"name": "Golf"})
	w = do(t, srv, http.MethodGet, "/metrics", nil)
	assert.Contains(t, w.Body.String(), `carsservicelog_records{collection="vehicles"} 1`)
}
