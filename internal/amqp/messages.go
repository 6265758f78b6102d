package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// ExportRequestMessage asks the worker to refresh one month's summary
// export. The durable export queue already holds the month; the message
// only wakes the worker ahead of its next poll.
type ExportRequestMessage struct {
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExportRequestMessage(year, month int) *ExportRequestMessage {
	return &ExportRequestMessage{
		Year:      year,
		Month:     month,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExportRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExportRequestMessageFromJSON parses a message from JSON bytes
func ExportRequestMessageFromJSON(data []byte) (*ExportRequestMessage, error) {
	var msg ExportRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal export request: %w", err)
	}
	return &msg, nil
}

// Valid reports whether the message names a real calendar month.
func (m *ExportRequestMessage) Valid() bool {
	return m.Year > 0 && m.Month >= 1 && m.Month <= 12
}
