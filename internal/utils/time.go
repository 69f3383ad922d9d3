package utils

import (
	"fmt"
	"strings"
	"time"
)

// UnixTimeToTime converts a Unix timestamp to a time.Time object
func UnixTimeToTime(unixTime int64) time.Time {
	return time.Unix(unixTime, 0)
}

// Layouts accepted when coercing string input into a timestamp. Tried in
// order; the first parse that succeeds wins.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 3:04pm",
	"2006-01-02",
	"01/02/2006 15:04",
	"01/02/2006",
	"January 2, 2006 15:04",
	"January 2, 2006",
}

// CoerceTime turns flexible input (a timestamp, a Unix number, a string, or an
// ordered list of strings joined with spaces) into a time in loc. Nil and
// empty inputs coerce to the zero time with no error.
func CoerceTime(value interface{}, loc *time.Location) (time.Time, error) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		if v.IsZero() {
			return time.Time{}, nil
		}
		return v.In(loc), nil
	case *time.Time:
		if v == nil || v.IsZero() {
			return time.Time{}, nil
		}
		return v.In(loc), nil
	case int64:
		return UnixTimeToTime(v).In(loc), nil
	case int:
		return UnixTimeToTime(int64(v)).In(loc), nil
	case float64:
		// JSON numbers decode as float64
		return UnixTimeToTime(int64(v)).In(loc), nil
	case string:
		return parseTimeString(v, loc)
	case []string:
		return parseTimeString(strings.Join(v, " "), loc)
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, p := range v {
			parts = append(parts, fmt.Sprint(p))
		}
		return parseTimeString(strings.Join(parts, " "), loc)
	default:
		return time.Time{}, fmt.Errorf("unsupported time value of type %T", value)
	}
}

func parseTimeString(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time value %q", s)
}
