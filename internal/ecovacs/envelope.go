package ecovacs

import (
	"bytes"
	"encoding/json"
)

// FailureCode is the envelope code for every adapter-level failure.
const FailureCode = -1

// failurePrefix starts the message of every failure envelope.
const failurePrefix = "Request failed: "

// Envelope is the result of every upstream call, successful or not.
//
// The shape is identical on both paths, so callers inspect Code and Data
// instead of branching on errors.
type Envelope struct {
	Msg  string `json:"msg"`
	Code int    `json:"code"`
	Data Items  `json:"data"`
}

// OK reports whether the upstream signalled success.
func (e Envelope) OK() bool {
	return e.Code == 0
}

// Failed reports whether the envelope was produced by an adapter-level failure.
func (e Envelope) Failed() bool {
	return e.Code == FailureCode
}

// Failure builds the standard failure envelope for err.
func Failure(err error) Envelope {
	desc := "unknown error"
	if err != nil {
		desc = err.Error()
	}
	return Envelope{
		Msg:  failurePrefix + desc,
		Code: FailureCode,
		Data: Items{},
	}
}

// Items is the opaque sequence carried in an envelope's data field.
// Each item keeps the exact bytes the upstream sent.
type Items []json.RawMessage

// MarshalJSON encodes a nil sequence as [] so the field is never null.
func (it Items) MarshalJSON() ([]byte, error) {
	if it == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]json.RawMessage(it))
}

// UnmarshalJSON accepts an array, null, or a single value.
// null becomes an empty sequence and a lone value becomes a one-item sequence.
func (it *Items) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)

	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		*it = Items{}
		return nil
	case trimmed[0] == '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		if raw == nil {
			raw = []json.RawMessage{}
		}
		*it = raw
		return nil
	default:
		item := make(json.RawMessage, len(trimmed))
		copy(item, trimmed)
		*it = Items{item}
		return nil
	}
}
