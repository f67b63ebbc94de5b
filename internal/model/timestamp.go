package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// remoteTimestamp covers the object encodings a document store uses for
// timestamps: {seconds, nanoseconds}, the underscored admin variant, and
// MongoDB extended JSON {"$date": ...}.
type remoteTimestamp struct {
	Seconds          *int64          `json:"seconds"`
	Nanoseconds      int64           `json:"nanoseconds"`
	AdminSeconds     *int64          `json:"_seconds"`
	AdminNanoseconds int64           `json:"_nanoseconds"`
	Date             json.RawMessage `json:"$date"`
}

// ParseTimestamp converts a stored createdAt value to a time. It reports
// false when the representation is not recognised.
func ParseTimestamp(raw json.RawMessage) (time.Time, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, false
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, false
		}
		return parseTimestampString(s)
	case '{':
		var ts remoteTimestamp
		if err := json.Unmarshal(raw, &ts); err != nil {
			return time.Time{}, false
		}
		switch {
		case ts.Seconds != nil:
			return time.Unix(*ts.Seconds, ts.Nanoseconds).UTC(), true
		case ts.AdminSeconds != nil:
			return time.Unix(*ts.AdminSeconds, ts.AdminNanoseconds).UTC(), true
		case len(ts.Date) > 0:
			return parseExtendedDate(ts.Date)
		}
		return time.Time{}, false
	default:
		return parseEpochMillis(string(raw))
	}
}

// NormalizeTimestamp returns t, or now when t is the zero time.
func NormalizeTimestamp(t time.Time, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t
}

func parseTimestampString(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseExtendedDate handles {"$date": "<iso>"}, {"$date": <ms>} and
// {"$date": {"$numberLong": "<ms>"}}.
func parseExtendedDate(raw json.RawMessage) (time.Time, bool) {
	var numberLong struct {
		Value string `json:"$numberLong"`
	}
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &numberLong); err != nil || numberLong.Value == "" {
			return time.Time{}, false
		}
		return parseEpochMillis(numberLong.Value)
	}
	return ParseTimestamp(raw)
}

func parseEpochMillis(s string) (time.Time, bool) {
	ms, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)).UTC(), true
}
