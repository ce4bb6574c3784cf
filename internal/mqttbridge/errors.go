package mqttbridge

import "errors"

var (
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("mqttbridge: already started")

	errMissingTool = errors.New("tool is required")
)
