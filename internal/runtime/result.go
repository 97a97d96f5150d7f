package runtime

import (
	"encoding/base64"

	"github.com/wrbnet/wrbhost/internal/wrberr"
)

// Result is the outcome of one host call. Failed calls carry the structured
// error; read accessors that miss return Ok with empty Data instead.
type Result struct {
	Ok   bool                   `json:"ok"`
	Data map[string]interface{} `json:"data,omitempty"`
	Err  *wrberr.Error          `json:"error,omitempty"`
}

func success(data map[string]interface{}) *Result {
	return &Result{Ok: true, Data: data}
}

func failure(err *wrberr.Error) *Result {
	return &Result{Err: err}
}

func failuref(code wrberr.Code, format string, args ...interface{}) *Result {
	return &Result{Err: wrberr.New(code, format, args...)}
}

// Params is the argument bag of one host call, as decoded from the script
// engine. Numbers arrive as float64 or integer types depending on the codec.
type Params map[string]interface{}

// Uint64 extracts an unsigned integer, coercing the numeric types the JSON
// and goja boundaries produce.
func (p Params) Uint64(key string) (uint64, bool) {
	val, ok := p[key]
	if !ok {
		return 0, false
	}
	switch v := val.(type) {
	case uint64:
		return v, true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case float64:
		if v < 0 || v != float64(uint64(v)) {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}

// String extracts a string parameter.
func (p Params) String(key string) (string, bool) {
	val, ok := p[key].(string)
	return val, ok
}

// Bool extracts a boolean parameter.
func (p Params) Bool(key string) (bool, bool) {
	val, ok := p[key].(bool)
	return val, ok
}

// Bytes extracts a byte payload: raw []byte from in-process callers, or a
// base64 string from the JSON boundary.
func (p Params) Bytes(key string) ([]byte, bool) {
	switch v := p[key].(type) {
	case []byte:
		return v, true
	case string:
		raw, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, false
		}
		return raw, true
	default:
		return nil, false
	}
}

// Strings extracts a string list parameter.
func (p Params) Strings(key string) ([]string, bool) {
	switch v := p[key].(type) {
	case []string:
		return v, true
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
