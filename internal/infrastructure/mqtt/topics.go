package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every robotctl topic.
const TopicPrefix = "robotctl"

// Topics provides builders for robotctl MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.Response("req-42") // "robotctl/response/req-42"
type Topics struct{}

// Request returns the topic a client publishes a tool request to.
//
// Example: robotctl/request/req-42
func (Topics) Request(requestID string) string {
	return fmt.Sprintf("%s/request/%s", TopicPrefix, requestID)
}

// AllRequests matches every tool request.
//
// Pattern: robotctl/request/+
func (Topics) AllRequests() string {
	return TopicPrefix + "/request/+"
}

// Response returns the topic the result of a request is published to.
//
// Example: robotctl/response/req-42
func (Topics) Response(requestID string) string {
	return fmt.Sprintf("%s/response/%s", TopicPrefix, requestID)
}

// CallEvent returns the topic completed calls of a tool are announced on.
//
// Example: robotctl/event/call/set_cleaning
func (Topics) CallEvent(tool string) string {
	return fmt.Sprintf("%s/event/call/%s", TopicPrefix, tool)
}

// AllCallEvents matches every call event.
//
// Pattern: robotctl/event/call/+
func (Topics) AllCallEvents() string {
	return TopicPrefix + "/event/call/+"
}

// SystemStatus returns the retained availability topic.
//
// Example: robotctl/system/status
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// RequestID extracts the request ID from a request topic. It returns false
// for any other topic, or when the ID level is empty.
func (Topics) RequestID(topic string) (string, bool) {
	prefix := TopicPrefix + "/request/"
	id, ok := strings.CutPrefix(topic, prefix)
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
