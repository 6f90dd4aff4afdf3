package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// timestampLayouts are tried in order for text createdAt values.
var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02",
}

// TimestampError reports a createdAt value that could not be parsed.
type TimestampError struct {
	Value any
}

func (e *TimestampError) Error() string {
	return fmt.Sprintf("unparseable timestamp %q (%T)", fmt.Sprint(e.Value), e.Value)
}

// ParseTimestamp converts a raw createdAt column value into a UTC time.
// NULL maps to the zero time. Integers are Unix seconds.
func ParseTimestamp(v any) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return t.UTC(), nil
	case int64:
		return time.Unix(t, 0).UTC(), nil
	case float64:
		sec := int64(t)
		nsec := int64((t - float64(sec)) * 1e9)
		return time.Unix(sec, nsec).UTC(), nil
	case []byte:
		return parseTimestampText(string(t), v)
	case string:
		return parseTimestampText(t, v)
	default:
		return time.Time{}, &TimestampError{Value: v}
	}
}

func parseTimestampText(s string, raw any) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(n, 0).UTC(), nil
	}
	return time.Time{}, &TimestampError{Value: raw}
}
