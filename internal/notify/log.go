package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogPublisher writes alerts to the log. It is used when no broker is configured.
type LogPublisher struct {
	log *logrus.Entry
}

func NewLogPublisher(log *logrus.Entry) *LogPublisher {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, alert Alert) error {
	fields := logrus.Fields{
		"vehicle_id":    alert.VehicleID,
		"vehicle_name":  alert.VehicleName,
		"interval_id":   alert.IntervalID,
		"interval_name": alert.IntervalName,
		"status":        alert.Status,
	}
	if alert.NextDueDate != nil {
		fields["next_due_date"] = *alert.NextDueDate
	}
	if alert.NextDueMileage != nil {
		fields["next_due_mileage"] = *alert.NextDueMileage
	}
	p.log.WithFields(fields).Warn("Service due")
	return nil
}

func (p *LogPublisher) Close() error { return nil }
