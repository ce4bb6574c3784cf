package activity

import (
	"time"

	"github.com/nerrad567/robotctl/internal/ecovacs"
	"github.com/nerrad567/robotctl/internal/infrastructure/influxdb"
	"github.com/nerrad567/robotctl/internal/robot"
)

// Event is the JSON form of a completed call published to MQTT and
// WebSocket subscribers.
type Event struct {
	ID         string    `json:"id"`
	Tool       string    `json:"tool"`
	Nickname   string    `json:"nickname,omitempty"`
	Action     string    `json:"action,omitempty"`
	Endpoint   string    `json:"endpoint"`
	Method     string    `json:"method"`
	Outcome    string    `json:"outcome"`
	Code       int       `json:"code"`
	Msg        string    `json:"msg"`
	Items      int       `json:"items"`
	DurationMS int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewEvent converts a call record to its published form.
func NewEvent(rec robot.CallRecord) Event {
	return Event{
		ID:         rec.ID,
		Tool:       rec.Tool,
		Nickname:   rec.Nickname,
		Action:     rec.Action,
		Endpoint:   rec.Endpoint,
		Method:     string(rec.Method),
		Outcome:    Outcome(rec.Code),
		Code:       rec.Code,
		Msg:        rec.Msg,
		Items:      rec.Items,
		DurationMS: rec.Duration.Milliseconds(),
		Timestamp:  rec.StartedAt,
	}
}

// Outcome classifies an envelope code.
func Outcome(code int) string {
	switch code {
	case 0:
		return influxdb.OutcomeOK
	case ecovacs.FailureCode:
		return influxdb.OutcomeFailed
	default:
		return influxdb.OutcomeUpstreamError
	}
}
