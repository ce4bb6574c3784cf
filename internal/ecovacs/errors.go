package ecovacs

import "errors"

// Sentinel errors returned by Do. Call folds all of them into a failure Envelope.
var (
	// ErrUnexpectedStatus is returned when the upstream answers with a non-2xx status.
	ErrUnexpectedStatus = errors.New("ecovacs: unexpected HTTP status")

	// ErrDecodeResponse is returned when the response body is not a JSON envelope.
	ErrDecodeResponse = errors.New("ecovacs: invalid response body")

	// ErrInvalidBaseURL is returned by New when the base URL is not absolute http(s).
	ErrInvalidBaseURL = errors.New("ecovacs: invalid base URL")
)
