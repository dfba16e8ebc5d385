// Package trip defines the validated trip parameters a plan is generated for.
package trip

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the date format used in prompts, file names and forms.
const DateLayout = "2006-01-02"

// Request is one user submission. It can only be built through NewRequest and
// has no setters, so a Request that exists is valid.
type Request struct {
	origin      string
	destination string
	interests   string
	departure   time.Time
	returnDate  time.Time
}

// NewRequest validates and builds a Request. Text fields are trimmed and dates
// are reduced to calendar days.
func NewRequest(origin, destination string, departure, returnDate time.Time, interests string) (Request, error) {
	r := Request{
		origin:      strings.TrimSpace(origin),
		destination: strings.TrimSpace(destination),
		interests:   strings.TrimSpace(interests),
		departure:   truncateToDay(departure),
		returnDate:  truncateToDay(returnDate),
	}
	if err := r.Validate(); err != nil {
		return Request{}, err
	}
	return r, nil
}

// Validate checks the request invariants: every text field is set and the
// return date is strictly after the departure date.
func (r Request) Validate() error {
	var missing []string
	if r.origin == "" {
		missing = append(missing, "origin")
	}
	if r.destination == "" {
		missing = append(missing, "destination")
	}
	if r.interests == "" {
		missing = append(missing, "interests")
	}
	if r.departure.IsZero() {
		missing = append(missing, "departure date")
	}
	if r.returnDate.IsZero() {
		missing = append(missing, "return date")
	}
	if len(missing) > 0 {
		return &ValidationError{
			Fields:  missing,
			Message: MessageMissingFields,
		}
	}

	if !r.returnDate.After(r.departure) {
		return &ValidationError{
			Fields:  []string{"return date"},
			Message: MessageDateOrder,
		}
	}
	return nil
}

// Origin is the departure city.
func (r Request) Origin() string { return r.origin }

// Destination is the destination city.
func (r Request) Destination() string { return r.destination }

// Interests is the free-text interest description.
func (r Request) Interests() string { return r.interests }

// DepartureDate is the first day of the trip (UTC midnight).
func (r Request) DepartureDate() time.Time { return r.departure }

// ReturnDate is the last day of the trip (UTC midnight).
func (r Request) ReturnDate() time.Time { return r.returnDate }

// DateFrom formats the departure date with DateLayout.
func (r Request) DateFrom() string { return r.departure.Format(DateLayout) }

// DateTo formats the return date with DateLayout.
func (r Request) DateTo() string { return r.returnDate.Format(DateLayout) }

// Days returns the number of calendar days covered, both ends included.
func (r Request) Days() int {
	return int(r.returnDate.Sub(r.departure).Hours()/24) + 1
}

// FileName is the download name for the finished plan,
// e.g. "Travel_Plan_Tokyo_2025-04-01.txt".
func (r Request) FileName() string {
	return fmt.Sprintf("Travel_Plan_%s_%s.txt", fileNameReplacer.Replace(r.destination), r.DateFrom())
}

// String renders the request for logs.
func (r Request) String() string {
	return fmt.Sprintf("%s -> %s (%s to %s)", r.origin, r.destination, r.DateFrom(), r.DateTo())
}

var fileNameReplacer = strings.NewReplacer(
	"/", "_", "\\", "_", "\"", "", ":", "_", "\n", " ", "\r", "",
)

func truncateToDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
