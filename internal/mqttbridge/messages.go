package mqttbridge

import (
	"encoding/json"
	"time"

	"github.com/nerrad567/robotctl/internal/ecovacs"
)

// Error codes carried in ResponseError.
const (
	ErrCodeInvalidRequest  = "invalid_request"
	ErrCodeUnknownTool     = "unknown_tool"
	ErrCodeInvalidArgument = "invalid_argument"
	ErrCodeInternal        = "internal_error"
)

// RequestMessage is the payload of a tool request.
type RequestMessage struct {
	// Tool is the catalogue name, e.g. "get_device_list".
	Tool string `json:"tool"`

	// Arguments are passed to the tool unchanged. Absent means none.
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ResponseMessage is published once per request.
type ResponseMessage struct {
	// RequestID is the last level of the request topic.
	RequestID string `json:"request_id"`

	// Tool echoes the requested tool name.
	Tool string `json:"tool,omitempty"`

	// Timestamp is when the response was generated (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// Success is true when the tool ran; the envelope may still report an upstream failure.
	Success bool `json:"success"`

	// Envelope is the tool result (if successful).
	Envelope *ecovacs.Envelope `json:"envelope,omitempty"`

	// Error contains error details (if failed).
	Error *ResponseError `json:"error,omitempty"`
}

// ResponseError describes why a request was not run.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// parseRequest decodes a request payload. Tool must be non-empty.
func parseRequest(payload []byte) (RequestMessage, error) {
	var req RequestMessage
	if err := json.Unmarshal(payload, &req); err != nil {
		return RequestMessage{}, err
	}
	if req.Tool == "" {
		return req, errMissingTool
	}
	return req, nil
}
