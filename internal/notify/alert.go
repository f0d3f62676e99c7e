// Package notify watches the fleet for services that become due and
// publishes an alert whenever an interval changes state.
package notify

import (
	"context"
	"time"

	"github.com/ukydev/cars-service-log/internal/servicedue"
)

// Alert is the payload published for one interval that is due soon or overdue.
type Alert struct {
	VehicleID      string            `json:"vehicleId"`
	VehicleName    string            `json:"vehicleName"`
	IntervalID     string            `json:"intervalId"`
	IntervalName   string            `json:"intervalName"`
	Status         servicedue.Status `json:"status"`
	NextDueDate    *string           `json:"nextDueDate"`
	NextDueMileage *float64          `json:"nextDueMileage"`
	At             time.Time         `json:"at"`
}

// NewAlert builds the alert for a due item evaluated at at.
func NewAlert(item servicedue.DueItem, at time.Time) Alert {
	return Alert{
		VehicleID:      item.Vehicle.ID,
		VehicleName:    item.Vehicle.Name,
		IntervalID:     item.DueData.Interval.ID,
		IntervalName:   item.DueData.Interval.Name,
		Status:         item.DueData.Status,
		NextDueDate:    item.DueData.NextDueDate,
		NextDueMileage: item.DueData.NextDueMileage,
		At:             at.UTC(),
	}
}

// Publisher delivers alerts somewhere.
type Publisher interface {
	Publish(ctx context.Context, alert Alert) error
	Close() error
}
