package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/cars-service-log/internal/models"
)

var catalog = map[string][][2]string{
	"Pkw": {
		{"Volkswagen", "Golf"}, {"BMW", "320d"}, {"Opel", "Astra"},
		{"Skoda", "Octavia"}, {"Mercedes-Benz", "C 200"},
	},
	"Motorrad": {
		{"Honda", "CB500F"}, {"Yamaha", "MT-07"}, {"Vespa", "GTS 300"},
	},
	"Transporter": {
		{"Ford", "Transit"}, {"Volkswagen", "T6"}, {"Mercedes-Benz", "Sprinter"},
	},
	"Wohnmobil": {
		{"Hymer", "B-Klasse"}, {"Knaus", "Sky TI"},
	},
}

var categories = []string{"Pkw", "Motorrad", "Transporter", "Wohnmobil"}

var workshops = []string{"Autohaus Müller", "ATU", "Freie Werkstatt Schmidt", "TÜV Süd", "DEKRA", ""}

// seeder creates demo data through the public API.
type seeder struct {
	apiURL string
	client *http.Client
	rng    *rand.Rand
	now    time.Time
}

func newSeeder(apiURL string, rng *rand.Rand, now time.Time) *seeder {
	return &seeder{
		apiURL: apiURL,
		client: &http.Client{Timeout: 10 * time.Second},
		rng:    rng,
		now:    now,
	}
}

func (s *seeder) post(path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, s.apiURL+path, bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("POST %s failed with status: %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (s *seeder) randomVehicle(n int) models.Vehicle {
	category := categories[s.rng.Intn(len(categories))]
	choices := catalog[category]
	pick := choices[s.rng.Intn(len(choices))]
	year := s.now.Year() - 1 - s.rng.Intn(12)
	return models.Vehicle{
		Name:           fmt.Sprintf("%s %s #%d", pick[0], pick[1], n),
		Category:       category,
		Manufacturer:   pick[0],
		Model:          pick[1],
		Year:           year,
		CurrentMileage: math.Round(float64(s.now.Year()-year) * (8000 + s.rng.Float64()*12000)),
	}
}

// randomHistory spreads entries over the last three years with rising
// mileage up to the vehicle's current mileage. It always contains one HU/AU.
func (s *seeder) randomHistory(vehicle models.Vehicle) []models.ServiceEntry {
	count := 3 + s.rng.Intn(6)
	offsets := make([]int, count)
	for i := range offsets {
		offsets[i] = 30 + s.rng.Intn(3*365)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(offsets)))

	entries := make([]models.ServiceEntry, 0, count)
	for i, days := range offsets {
		serviceType := models.ServiceTypes[s.rng.Intn(len(models.ServiceTypes))]
		if i == count-1 {
			serviceType = models.ServiceTypeHUAU
		}
		share := 1 - float64(days)/float64(3*365+60)
		mileage := math.Round(vehicle.CurrentMileage * share)
		cost := math.Round((40+s.rng.Float64()*900)*100) / 100
		entries = append(entries, models.ServiceEntry{
			VehicleID:              vehicle.ID,
			Date:                   s.now.AddDate(0, 0, -days).Format(models.DateLayout),
			Mileage:                models.Float64(mileage),
			Type:                   serviceType,
			OrganisationOrWorkshop: workshops[s.rng.Intn(len(workshops))],
			Cost:                   models.Float64(cost),
		})
	}
	return entries
}

// standardIntervals returns the usual recurring services. The HU/AU interval
// is linked to the newest HU/AU entry when one exists.
func standardIntervals(vehicle models.Vehicle, entries []models.ServiceEntry) []models.ServiceInterval {
	var lastHU string
	for _, e := range entries {
		if e.Type == models.ServiceTypeHUAU {
			lastHU = e.ID
		}
	}
	return []models.ServiceInterval{
		{VehicleID: vehicle.ID, Name: models.ServiceTypeHUAU, IntervalMonths: models.Int(24), LastServiceEntryID: lastHU},
		{VehicleID: vehicle.ID, Name: models.ServiceTypeInspection, IntervalMonths: models.Int(12), IntervalMileage: models.Float64(15000)},
		{VehicleID: vehicle.ID, Name: models.ServiceTypeOilChange, IntervalMileage: models.Float64(10000)},
	}
}

// seedVehicle creates one vehicle with its history and intervals.
func (s *seeder) seedVehicle(n int) (models.Vehicle, error) {
	var vehicle models.Vehicle
	if err := s.post("/vehicles", s.randomVehicle(n), &vehicle); err != nil {
		return models.Vehicle{}, fmt.Errorf("failed to create vehicle: %w", err)
	}

	history := s.randomHistory(vehicle)
	created := make([]models.ServiceEntry, 0, len(history))
	for _, entry := range history {
		var e models.ServiceEntry
		if err := s.post("/entries", entry, &e); err != nil {
			return vehicle, fmt.Errorf("failed to create entry: %w", err)
		}
		created = append(created, e)
	}

	for _, interval := range standardIntervals(vehicle, created) {
		var i models.ServiceInterval
		if err := s.post("/intervals", interval, &i); err != nil {
			return vehicle, fmt.Errorf("failed to create interval: %w", err)
		}
	}

	log.WithFields(log.Fields{
		"vehicle_id": vehicle.ID,
		"name":       vehicle.Name,
		"entries":    len(created),
	}).Info("Created vehicle")
	return vehicle, nil
}

func (s *seeder) run(fleetSize int) int {
	seeded := 0
	for i := 0; i < fleetSize; i++ {
		if _, err := s.seedVehicle(i + 1); err != nil {
			log.WithError(err).Error("Failed to seed vehicle")
			continue
		}
		seeded++
	}
	return seeded
}

func main() {
	fleetSize := 10
	if val := os.Getenv("FLEET_SIZE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			fleetSize = n
		}
	}

	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080/api"
	}

	log.WithFields(log.Fields{
		"fleet_size": fleetSize,
		"api_url":    apiURL,
	}).Info("Seeding demo fleet")

	s := newSeeder(apiURL, rand.New(rand.NewSource(time.Now().UnixNano())), time.Now().UTC())
	seeded := s.run(fleetSize)

	log.WithField("created_vehicles", seeded).Info("Seeding completed")
	if seeded == 0 && fleetSize > 0 {
		log.Error("No vehicles created. Ensure the API is reachable.")
		os.Exit(1)
	}
}
