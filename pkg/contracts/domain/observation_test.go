package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObservationOrdering(t *testing.T) {
	earlier := Observation{Name: "A", Date: time.Date(2014, time.November, 3, 0, 0, 0, 0, time.UTC)}
	later := Observation{Name: "A", Date: time.Date(2014, time.November, 4, 0, 0, 0, 0, time.UTC)}
	same := Observation{Name: "B", Date: earlier.Date}

	assert.True(t, later.NewerThan(earlier))
	assert.False(t, earlier.NewerThan(later))
	assert.False(t, earlier.NewerThan(same), "equal dates are not strictly newer")
}

func TestObservationInMonth(t *testing.T) {
	obs := Observation{Date: time.Date(2014, time.November, 15, 0, 0, 0, 0, time.UTC)}

	assert.True(t, obs.InMonth(2014, time.November))
	assert.False(t, obs.InMonth(2014, time.October))
	assert.False(t, obs.InMonth(2013, time.November), "same month of another year")
}

func TestObservationIsBusinessDay(t *testing.T) {
	// 2014-12-01 was a Monday.
	tests := []struct {
		day     int
		weekday time.Weekday
		want    bool
	}{
		{1, time.Monday, true},
		{2, time.Tuesday, true},
		{3, time.Wednesday, true},
		{4, time.Thursday, true},
		{5, time.Friday, true},
		{6, time.Saturday, false},
		{7, time.Sunday, false},
	}

	for _, tt := range tests {
		t.Run(tt.weekday.String(), func(t *testing.T) {
			obs := Observation{Date: time.Date(2014, time.December, tt.day, 0, 0, 0, 0, time.UTC)}
			assert.Equal(t, tt.weekday, obs.Date.Weekday())
			assert.Equal(t, tt.want, obs.IsBusinessDay())
		})
	}
}

func TestObservationString(t *testing.T) {
	obs := Observation{
		Name:  "INSTRUMENT1",
		Date:  time.Date(2015, time.March, 12, 0, 0, 0, 0, time.UTC),
		Value: 12.21,
	}
	assert.Equal(t, "INSTRUMENT1,12-Mar-2015,12.21", obs.String())
}
