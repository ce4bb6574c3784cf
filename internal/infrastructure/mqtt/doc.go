// Package mqtt provides the MQTT client used by robotctl's request bridge and
// call event publisher.
//
// It wraps eclipse/paho.mqtt.golang with:
//   - Auto-reconnect and restoration of tracked subscriptions
//   - A retained availability message on robotctl/system/status, with a
//     Last Will so subscribers see "offline" after a crash
//   - Input validation on publish and subscribe (topic, QoS, 1MB payload)
//   - Panic recovery and logging around message handlers
//
// # Topics
//
//	robotctl/request/{request_id}     tool requests (subscribe robotctl/request/+)
//	robotctl/response/{request_id}    tool responses
//	robotctl/event/call/{tool}        completed call events
//	robotctl/system/status            retained availability
//
// Use the Topics builders rather than formatting topic strings by hand.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllRequests(), 1, handler)
package mqtt
