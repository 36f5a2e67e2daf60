package domain

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for observation dates, e.g. "12-Mar-2015".
const DateLayout = "02-Jan-2006"

// Observation represents a single dated measurement for an instrument.
// Instances are immutable once constructed by the parser.
type Observation struct {
	Name  string    `json:"name" validate:"required"`
	Date  time.Time `json:"date" validate:"required"`
	Value float64   `json:"value"`
}

// NewerThan reports whether the observation is dated strictly after other.
// Observations order descending by date; equal dates rank by arrival order.
func (o Observation) NewerThan(other Observation) bool {
	return o.Date.After(other.Date)
}

// InMonth reports whether the observation falls within the given
// calendar year and month.
func (o Observation) InMonth(year int, month time.Month) bool {
	return o.Date.Year() == year && o.Date.Month() == month
}

// IsBusinessDay reports whether the observation is dated on a weekday.
// Saturday and Sunday observations are excluded from aggregation.
func (o Observation) IsBusinessDay() bool {
	wd := o.Date.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// String returns the observation in its wire shape, mainly for logs.
func (o Observation) String() string {
	return fmt.Sprintf("%s,%s,%g", o.Name, o.Date.Format(DateLayout), o.Value)
}
