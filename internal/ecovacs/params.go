package ecovacs

import (
	"fmt"
	"strconv"
)

// CredentialKey is the reserved parameter that carries the API key.
const CredentialKey = "ak"

// Params is the caller-owned parameter set for one call.
type Params map[string]any

// stringify converts every value to the string form the upstream expects.
//
// The result is a new map; the caller's map is never modified. The reserved
// credential key is dropped so that only the configured key can be sent.
func stringify(params Params) map[string]string {
	out := make(map[string]string, len(params)+1)
	for k, v := range params {
		if k == CredentialKey {
			continue
		}
		out[k] = stringValue(v)
	}
	return out
}

// stringValue renders a single parameter value.
func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int8:
		return strconv.FormatInt(int64(val), 10)
	case int16:
		return strconv.FormatInt(int64(val), 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint:
		return strconv.FormatUint(uint64(val), 10)
	case uint8:
		return strconv.FormatUint(uint64(val), 10)
	case uint16:
		return strconv.FormatUint(uint64(val), 10)
	case uint32:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
