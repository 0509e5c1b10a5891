package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"docmanager/internal/domain"
)

// dateTimeShape gates input before parsing. time.Parse alone would also take
// ',' as the fraction separator and more than nine fraction digits.
var dateTimeShape = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}(?:[T ]\d{2}:\d{2}:\d{2}(?:\.\d{1,9})?)?$`)

// dateTimeLayouts are tried in order. time.Parse accepts a fractional second
// after the seconds field even though the layouts omit it.
var dateTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDateTime parses a date or date-time in loc. Blank input yields nil.
// Accepted shapes: 2024-01-01, 2024-01-01T10:00:00, 2024-01-01 10:00:00, and
// either time form followed by .fraction.
func ParseDateTime(value, field string, loc *time.Location) (*time.Time, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.UTC
	}

	if dateTimeShape.MatchString(v) {
		for _, layout := range dateTimeLayouts {
			if t, err := time.ParseInLocation(layout, v, loc); err == nil {
				return &t, nil
			}
		}
	}

	return nil, domain.NewValidationError(fmt.Sprintf(
		"Invalid date-time format for %s: %s. Use formats like 2024-01-01T00:00:00, 2024-01-01 00:00:00, or with milliseconds",
		field, value))
}
