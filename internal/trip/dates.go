package trip

import (
	"strings"
	"time"

	dps "github.com/markusmobius/go-dateparser"
)

// ParseDate parses a travel date. ISO dates (2025-04-01) are taken as-is; anything
// else goes through the natural-language date parser ("next friday", "1 May 2025"),
// with relative expressions resolved against now and preferring future dates.
func ParseDate(value, field string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, NewValidationError(field, "%s is required", field)
	}

	if t, err := time.Parse(DateLayout, value); err == nil {
		return t, nil
	}

	parser := dps.Parser{}
	cfg := &dps.Configuration{
		CurrentTime:         now,
		PreferredDateSource: dps.Future,
	}

	parsed, err := parser.Parse(cfg, value)
	if err != nil {
		return time.Time{}, NewValidationError(field, "%s must be a date like 2025-04-01: %v", field, err)
	}
	if parsed.IsZero() {
		return time.Time{}, NewValidationError(field, "%s could not be parsed as a date: %s", field, value)
	}

	return truncateToDay(parsed.Time), nil
}

// Parse builds a Request from raw form values.
func Parse(origin, destination, dateFrom, dateTo, interests string, now time.Time) (Request, error) {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"origin", origin},
		{"destination", destination},
		{"departure date", dateFrom},
		{"return date", dateTo},
		{"interests", interests},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return Request{}, &ValidationError{Fields: missing, Message: MessageMissingFields}
	}

	departure, err := ParseDate(dateFrom, "departure date", now)
	if err != nil {
		return Request{}, err
	}
	returnDate, err := ParseDate(dateTo, "return date", now)
	if err != nil {
		return Request{}, err
	}
	return NewRequest(origin, destination, departure, returnDate, interests)
}
