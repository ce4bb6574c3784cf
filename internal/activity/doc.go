// Package activity fans completed robot calls out to the optional
// observability surfaces: call history, MQTT events, InfluxDB metrics and
// WebSocket subscribers.
//
// Recorder implements robot.Observer. ObserveCall never blocks: records go
// into a bounded queue and a single worker delivers each one to every sink in
// order. When the queue is full the record is dropped and counted. Sink
// errors are logged and never reach the tool caller.
package activity
