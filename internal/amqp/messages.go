package amqp

import (
	"encoding/json"
	"time"
)

// AllowanceRunMessage asks a worker to pay the allowances due on
// ScheduledFor, a UTC calendar day.
type AllowanceRunMessage struct {
	ScheduledFor time.Time `json:"scheduled_for"`
	Timestamp    time.Time `json:"timestamp"`
}

func NewAllowanceRunMessage(scheduledFor time.Time) *AllowanceRunMessage {
	day := scheduledFor.UTC()
	return &AllowanceRunMessage{
		ScheduledFor: time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
		Timestamp:    time.Now().UTC(),
	}
}

func (m *AllowanceRunMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func AllowanceRunMessageFromJSON(data []byte) (*AllowanceRunMessage, error) {
	var msg AllowanceRunMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
