package aggregation

import (
	"time"

	apperrors "instragg/internal/errors"
	"instragg/pkg/contracts/domain"
)

// Strategy computes one aggregate statistic from a retention bucket
// snapshot. Strategies are pure: they never mutate the bucket.
type Strategy interface {
	Name() string
	Calculate(bucket Bucket) (float64, error)
}

// snapshot tolerates absent buckets so strategies can be evaluated against
// instruments that never produced an accepted observation.
func snapshot(bucket Bucket) []domain.Observation {
	if bucket == nil {
		return nil
	}
	return bucket.Snapshot()
}

// SimpleMean is the arithmetic mean of all retained values.
type SimpleMean struct{}

func (SimpleMean) Name() string { return "mean" }

func (SimpleMean) Calculate(bucket Bucket) (float64, error) {
	obs := snapshot(bucket)
	if len(obs) == 0 {
		return 0, apperrors.ErrNoData
	}
	var sum float64
	for _, o := range obs {
		sum += o.Value
	}
	return sum / float64(len(obs)), nil
}

// MonthFilteredMean is the arithmetic mean of the values dated within one
// configured calendar month.
type MonthFilteredMean struct {
	Year  int
	Month time.Month
}

func (MonthFilteredMean) Name() string { return "month_mean" }

func (s MonthFilteredMean) Calculate(bucket Bucket) (float64, error) {
	var sum float64
	var count int
	for _, o := range snapshot(bucket) {
		if o.InMonth(s.Year, s.Month) {
			sum += o.Value
			count++
		}
	}
	if count == 0 {
		return 0, apperrors.ErrNoData
	}
	return sum / float64(count), nil
}

// IncrementalVariance computes the population variance of all retained
// values in a single pass, using Welford's running update so the
// computation itself needs O(1) state.
type IncrementalVariance struct{}

func (IncrementalVariance) Name() string { return "variance" }

func (IncrementalVariance) Calculate(bucket Bucket) (float64, error) {
	obs := snapshot(bucket)
	if len(obs) == 0 {
		return 0, apperrors.ErrNoData
	}
	var count, mean, m2 float64
	for _, o := range obs {
		count++
		delta := o.Value - mean
		mean += delta / count
		m2 += delta * (o.Value - mean)
	}
	return m2 / count, nil
}

// BoundedWindowSum is the sum of the retained values; paired with a
// bounded window it sums the W most recent observations. This is the
// fallback strategy for every instrument without an explicit binding.
type BoundedWindowSum struct{}

func (BoundedWindowSum) Name() string { return "window_sum" }

func (BoundedWindowSum) Calculate(bucket Bucket) (float64, error) {
	obs := snapshot(bucket)
	if len(obs) == 0 {
		return 0, apperrors.ErrNoData
	}
	var sum float64
	for _, o := range obs {
		sum += o.Value
	}
	return sum, nil
}

// Table maps instrument names to strategies. An exact-name binding takes
// precedence; every other name resolves to the fallback strategy.
type Table struct {
	byName   map[string]Strategy
	fallback Strategy
}

// NewTable creates a strategy table with the given fallback.
func NewTable(fallback Strategy) *Table {
	return &Table{
		byName:   make(map[string]Strategy),
		fallback: fallback,
	}
}

// Bind registers an exact-name strategy binding.
func (t *Table) Bind(name string, s Strategy) {
	t.byName[name] = s
}

// IsBound reports whether the name has an exact binding. Bound instruments
// are retained with full history rather than a bounded window.
func (t *Table) IsBound(name string) bool {
	_, ok := t.byName[name]
	return ok
}

// Resolve returns the strategy for the name, falling back to the default.
func (t *Table) Resolve(name string) Strategy {
	if s, ok := t.byName[name]; ok {
		return s
	}
	return t.fallback
}

// Bound returns the explicitly bound instrument names.
func (t *Table) Bound() []string {
	names := make([]string, 0, len(t.byName))
	for name := range t.byName {
		names = append(names, name)
	}
	return names
}
