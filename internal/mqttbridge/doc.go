// Package mqttbridge lets MQTT clients invoke robot tools.
//
// A client publishes a request to robotctl/request/{request_id}:
//
//	{"tool": "set_cleaning", "arguments": {"nickname": "Rosie", "act": "s"}}
//
// The bridge runs the tool and publishes the outcome to
// robotctl/response/{request_id}. A request that reached the upstream is
// always a success response carrying the envelope, whatever its code; only
// malformed requests, unknown tools and bad arguments produce an error
// response.
package mqttbridge
