package main

import (
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/cars-service-log/internal/db"
	"github.com/ukydev/cars-service-log/internal/handlers"
	"github.com/ukydev/cars-service-log/internal/models"
	"github.com/ukydev/cars-service-log/internal/servicelog"
)

var seedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newAPI(t *testing.T) (*servicelog.Manager, *httptest.Server) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	entry := logrus.NewEntry(logger)

	manager := servicelog.New(db.NewMemoryStore(), servicelog.WithLogger(entry))
	srv := httptest.NewServer(handlers.NewHandler(manager, entry).Routes(nil))
	t.Cleanup(srv.Close)
	return manager, srv
}

func TestRandomVehicle(t *testing.T) {
	s := newSeeder("", rand.New(rand.NewSource(1)), seedNow)
	for i := 1; i <= 20; i++ {
		v := s.randomVehicle(i)
		assert.NotEmpty(t, v.Name)
		assert.Contains(t, categories, v.Category)
		assert.GreaterOrEqual(t, v.Year, 2012)
		assert.Less(t, v.Year, 2024)
		assert.Greater(t, v.CurrentMileage, 0.0)
	}
}

func TestRandomHistory(t *testing.T) {
	s := newSeeder("", rand.New(rand.NewSource(2)), seedNow)
	vehicle := models.Vehicle{ID: "veh-1", CurrentMileage: 120000}

	for run := 0; run < 10; run++ {
		history := s.randomHistory(vehicle)
		require.GreaterOrEqual(t, len(history), 3)
		assert.Equal(t, models.ServiceTypeHUAU, history[len(history)-1].Type)

		for i, e := range history {
			assert.Equal(t, "veh-1", e.VehicleID)
			_, ok := models.ParseDate(e.Date)
			assert.True(t, ok, e.Date)
			assert.LessOrEqual(t, *e.Mileage, vehicle.CurrentMileage)
			assert.GreaterOrEqual(t, *e.Cost, 0.0)
			if i > 0 {
				assert.GreaterOrEqual(t, e.Date, history[i-1].Date, "oldest first")
				assert.GreaterOrEqual(t, *e.Mileage, *history[i-1].Mileage)
			}
		}
	}
}

func TestStandardIntervals(t *testing.T) {
	vehicle := models.Vehicle{ID: "veh-1"}
	entries := []models.ServiceEntry{
		{ID: "e-1", Type: models.ServiceTypeHUAU},
		{ID: "e-2", Type: models.ServiceTypeOilChange},
		{ID: "e-3", Type: models.ServiceTypeHUAU},
	}
	intervals := standardIntervals(vehicle, entries)
	require.Len(t, intervals, 3)
	assert.Equal(t, "e-3", intervals[0].LastServiceEntryID)
	assert.Equal(t, 24, *intervals[0].IntervalMonths)
	for _, i := range intervals {
		assert.Equal(t, "veh-1", i.VehicleID)
	}

	assert.Empty(t, standardIntervals(vehicle, nil)[0].LastServiceEntryID)
}

func TestSeederRun(t *testing.T) {
	manager, srv := newAPI(t)
	s := newSeeder(srv.URL+"/api", rand.New(rand.NewSource(3)), seedNow)

	assert.Equal(t, 3, s.run(3))
	vehicles := manager.Vehicles()
	require.Len(t, vehicles, 3)
	for _, v := range vehicles {
		assert.NotEmpty(t, manager.ServiceEntriesForVehicle(v.ID))
		intervals := manager.ServiceIntervalsForVehicle(v.ID)
		require.Len(t, intervals, 3)
		assert.NotEmpty(t, intervals[0].LastServiceEntryID, "HU/AU interval is linked to the seeded HU/AU entry")
	}
}

func TestSeederRun_APIDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := newSeeder(srv.URL+"/api", rand.New(rand.NewSource(4)), seedNow)
	assert.Equal(t, 0, s.run(2))
}
