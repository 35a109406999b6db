package amqp

import (
	"encoding/json"
	"time"

	"posto/internal/core"
)

// StatementRequestMessage asks the worker to deliver the statement for one
// billing period. It carries only the period boundaries; the worker reloads
// bookings and status from the store so a stale message still renders the
// current truth.
type StatementRequestMessage struct {
	Start     string    `json:"start"`
	End       string    `json:"end"`
	Timestamp time.Time `json:"timestamp"`
}

// NewStatementRequestMessage creates a request for the given period.
func NewStatementRequestMessage(p core.Period) *StatementRequestMessage {
	return &StatementRequestMessage{
		Start:     p.Start.String(),
		End:       p.End.String(),
		Timestamp: time.Now(),
	}
}

// Period decodes the message boundaries back into a period.
func (m *StatementRequestMessage) Period() (core.Period, error) {
	start, err := core.ParseDate(m.Start)
	if err != nil {
		return core.Period{}, err
	}
	end, err := core.ParseDate(m.End)
	if err != nil {
		return core.Period{}, err
	}
	return core.Period{Start: start, End: end}, nil
}

// ToJSON converts the message to JSON bytes
func (m *StatementRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// StatementRequestFromJSON creates a message from JSON bytes
func StatementRequestFromJSON(data []byte) (*StatementRequestMessage, error) {
	var msg StatementRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
