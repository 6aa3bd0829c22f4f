package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FlexID is an external identifier that providers emit as a JSON number,
// a string, or null. It normalizes to its string form; empty means absent.
type FlexID string

// UnmarshalJSON implements [json.Unmarshaler] for FlexID.
func (f *FlexID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		*f = ""
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*f = FlexID(strings.TrimSpace(str))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

// String returns the identifier's string form.
func (f FlexID) String() string { return string(f) }

// IsZero reports whether the identifier is absent or zero.
func (f FlexID) IsZero() bool {
	if f == "" {
		return true
	}
	if n, err := strconv.ParseInt(string(f), 10, 64); err == nil && n == 0 {
		return true
	}
	return false
}
