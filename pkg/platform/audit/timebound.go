package audit

import (
	"encoding/json"
	"strings"
	"time"

	dErrors "hrdms/pkg/domain-errors"
)

// TimeBound is one end of a date range, given either as a timestamp or as an
// ISO-8601 string. The zero value is an open bound.
type TimeBound struct {
	at   time.Time
	text string
}

// At builds a bound from a timestamp.
func At(t time.Time) TimeBound { return TimeBound{at: t} }

// ISO builds a bound from an ISO-8601 string; it is parsed on Resolve.
func ISO(s string) TimeBound { return TimeBound{text: s} }

func (b TimeBound) IsZero() bool {
	return b.at.IsZero() && strings.TrimSpace(b.text) == ""
}

// UnmarshalJSON accepts a JSON string or null.
func (b *TimeBound) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*b = TimeBound{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return dErrors.New(dErrors.CodeValidation, "date bound must be an ISO-8601 string")
	}
	*b = ISO(s)
	return nil
}

var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

const dateOnly = "2006-01-02"

// Resolve parses the bound. field names the input in validation errors.
// When endOfDay is set a date-only string resolves to the last instant of
// that day, so an inclusive upper bound covers the whole day.
func (b TimeBound) Resolve(field string, endOfDay bool) (*time.Time, error) {
	if !b.at.IsZero() {
		t := b.at.UTC()
		return &t, nil
	}
	s := strings.TrimSpace(b.text)
	if s == "" {
		return nil, nil
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	if t, err := time.Parse(dateOnly, s); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		t = t.UTC()
		return &t, nil
	}
	return nil, dErrors.New(dErrors.CodeValidation, field+": invalid ISO-8601 timestamp")
}
