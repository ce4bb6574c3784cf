package activity

import (
	"context"

	"github.com/nerrad567/robotctl/internal/callstore"
	"github.com/nerrad567/robotctl/internal/infrastructure/influxdb"
	"github.com/nerrad567/robotctl/internal/infrastructure/mqtt"
	"github.com/nerrad567/robotctl/internal/robot"
)

// ChannelCallCompleted is the WebSocket channel call events are broadcast on.
const ChannelCallCompleted = "call.completed"

// Sink receives every completed call.
type Sink interface {
	Name() string
	Record(ctx context.Context, rec robot.CallRecord) error
}

// StoreSink writes calls to the history store.
type StoreSink struct {
	Repo callstore.Repository
}

// Name implements Sink.
func (StoreSink) Name() string { return "callstore" }

// Record implements Sink.
func (s StoreSink) Record(ctx context.Context, rec robot.CallRecord) error {
	stored := callstore.FromCallRecord(rec)
	return s.Repo.Create(ctx, &stored)
}

// JSONPublisher publishes a JSON-encoded value. *mqtt.Client satisfies it.
type JSONPublisher interface {
	PublishJSON(topic string, v any) error
}

// MQTTSink publishes call events to robotctl/event/call/{tool}.
type MQTTSink struct {
	Publisher JSONPublisher
}

// Name implements Sink.
func (MQTTSink) Name() string { return "mqtt" }

// Record implements Sink.
func (s MQTTSink) Record(_ context.Context, rec robot.CallRecord) error {
	return s.Publisher.PublishJSON(mqtt.Topics{}.CallEvent(rec.Tool), NewEvent(rec))
}

// CallWriter buffers call metrics. *influxdb.Client satisfies it.
type CallWriter interface {
	WriteCall(m influxdb.CallMetric)
}

// MetricsSink writes one robot_calls point per call.
type MetricsSink struct {
	Writer CallWriter
}

// Name implements Sink.
func (MetricsSink) Name() string { return "influxdb" }

// Record implements Sink.
func (s MetricsSink) Record(_ context.Context, rec robot.CallRecord) error {
	s.Writer.WriteCall(influxdb.CallMetric{
		Tool:     rec.Tool,
		Endpoint: rec.Endpoint,
		Method:   string(rec.Method),
		Outcome:  Outcome(rec.Code),
		Code:     rec.Code,
		Duration: rec.Duration,
		Items:    rec.Items,
		Time:     rec.StartedAt,
	})
	return nil
}

// Broadcaster pushes a payload to subscribers of a channel. *api.Hub satisfies it.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// BroadcastSink pushes call events to WebSocket subscribers.
type BroadcastSink struct {
	Hub Broadcaster
}

// Name implements Sink.
func (BroadcastSink) Name() string { return "websocket" }

// Record implements Sink.
func (s BroadcastSink) Record(_ context.Context, rec robot.CallRecord) error {
	s.Hub.Broadcast(ChannelCallCompleted, NewEvent(rec))
	return nil
}
