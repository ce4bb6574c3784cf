package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementCalls is the measurement robot call metrics are written to.
const MeasurementCalls = "robot_calls"

// Call outcomes used for the outcome tag.
const (
	OutcomeOK            = "ok"             // upstream answered with code 0
	OutcomeUpstreamError = "upstream_error" // upstream answered with a non-zero code
	OutcomeFailed        = "failed"         // no usable upstream answer
)

// CallMetric is one completed tool call.
type CallMetric struct {
	Tool     string
	Endpoint string
	Method   string
	Outcome  string
	Code     int
	Duration time.Duration
	Items    int
	Time     time.Time
}

// WriteCall buffers a robot_calls point. Dropped silently when closed.
func (c *Client) WriteCall(m CallMetric) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(callPoint(m))
}

// callPoint converts a CallMetric to a line protocol point.
func callPoint(m CallMetric) *write.Point {
	ts := m.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	return write.NewPoint(
		MeasurementCalls,
		map[string]string{
			"tool":     m.Tool,
			"endpoint": m.Endpoint,
			"method":   m.Method,
			"outcome":  m.Outcome,
		},
		map[string]interface{}{
			"code":        m.Code,
			"duration_ms": m.Duration.Milliseconds(),
			"items":       m.Items,
		},
		ts,
	)
}

// WritePoint buffers an arbitrary point.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, ts))
}
