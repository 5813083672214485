package client

import (
	"fmt"
	"time"
)

// Wire layouts for ISO-8601 timestamps. The platform emits fractional
// seconds; some older endpoints emit the plain form. Decoding tries the
// fractional layout first, then the plain one.
const (
	timeLayoutFractional = "2006-01-02T15:04:05.000Z07:00"
	timeLayoutPlain      = "2006-01-02T15:04:05Z07:00"
)

// Time is a time.Time that round-trips the platform's ISO-8601 wire
// format. Use it in response structs passed to Request.
type Time struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Time) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if raw == "null" {
		t.Time = time.Time{}
		return nil
	}
	if len(raw) < 2 || raw[0] != '"' || raw[len(raw)-1] != '"' {
		return fmt.Errorf("timestamp is not a JSON string: %s", raw)
	}
	raw = raw[1 : len(raw)-1]

	parsed, err := time.Parse(timeLayoutFractional, raw)
	if err != nil {
		parsed, err = time.Parse(timeLayoutPlain, raw)
	}
	if err != nil {
		return fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	t.Time = parsed
	return nil
}

// MarshalJSON implements json.Marshaler using the fractional layout.
func (t Time) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.Format(timeLayoutFractional) + `"`), nil
}
