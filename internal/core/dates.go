package core

import (
	"fmt"
	"strings"
	"time"
)

// DayLayout is the calendar-date layout used for markers and series keys.
const DayLayout = "2006-01-02"

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	DayLayout,
	"02/01/2006",
}

// ParseTimestamp accepts ISO-8601 instants, zone-less date-times and plain dates.
// Zone-less inputs are interpreted in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &ValidationError{Field: "date", Message: fmt.Sprintf("unrecognised date %q", s)}
}
