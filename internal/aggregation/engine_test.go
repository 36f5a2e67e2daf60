package aggregation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "instragg/internal/errors"
)

func testParams() Params {
	return Params{
		WindowSize:          10,
		Boundary:            testBoundary(),
		CapacityHint:        16,
		MeanInstrument:      "INSTRUMENT1",
		MonthMeanInstrument: "INSTRUMENT2",
		MonthMeanYear:       2014,
		MonthMeanMonth:      time.November,
		VarianceInstrument:  "INSTRUMENT3",
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEngine(testParams(), logger, nil)
}

func feed(t *testing.T, e *Engine, lines []string) {
	t.Helper()
	ctx := context.Background()
	for _, line := range lines {
		require.NoError(t, e.ConsumeLine(ctx, line))
	}
}

// scenarioLines mixes all four bound strategies with a default-strategy
// instrument and every rejection category. All accepted dates are weekdays.
func scenarioLines() []string {
	lines := []string{
		"INSTRUMENT1,03-Nov-2014,10.0",
		"INSTRUMENT1,04-Nov-2014,20.0",
		"INSTRUMENT1,19-Dec-2014,30.0", // boundary date, accepted
		"INSTRUMENT2,05-Nov-2014,5.0",
		"INSTRUMENT2,06-Nov-2014,15.0",
		"INSTRUMENT2,01-Dec-2014,100.0", // outside November, filtered out
		"INSTRUMENT3,03-Dec-2014,2.0",
		"INSTRUMENT3,04-Dec-2014,4.0",
		"INSTRUMENT3,05-Dec-2014,6.0",
		"X,32-Foo-2014,1.0",    // invalid date
		"W,06-Dec-2014,1.0",    // Saturday
		"F,20-Dec-2014,1.0",    // beyond boundary
		"BROKEN LINE",          // malformed
	}
	// 12 observations for Z with strictly increasing weekday dates and
	// values 1..12; the bounded window keeps values 3..12.
	days := []int{1, 2, 3, 4, 5, 8, 9, 10, 11, 12, 15, 16}
	for i, day := range days {
		date := time.Date(2014, time.December, day, 0, 0, 0, 0, time.UTC)
		lines = append(lines, fmt.Sprintf("Z,%s,%d", date.Format("02-Jan-2006"), i+1))
	}
	return lines
}

func TestEngineEndToEnd(t *testing.T) {
	engine := newTestEngine(t)
	assert.Equal(t, StateIdle, engine.State())

	feed(t, engine, scenarioLines())
	assert.Equal(t, StateStreaming, engine.State())

	results, err := engine.Finalize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateFinalized, engine.State())

	t.Run("simple mean", func(t *testing.T) {
		r := results["INSTRUMENT1"]
		require.NoError(t, r.Err)
		assert.Equal(t, "mean", r.Strategy)
		assert.Equal(t, 20.0, r.Value)
	})

	t.Run("month filtered mean", func(t *testing.T) {
		r := results["INSTRUMENT2"]
		require.NoError(t, r.Err)
		assert.Equal(t, "month_mean", r.Strategy)
		assert.Equal(t, 10.0, r.Value)
	})

	t.Run("incremental variance", func(t *testing.T) {
		r := results["INSTRUMENT3"]
		require.NoError(t, r.Err)
		assert.Equal(t, "variance", r.Strategy)
		assert.InDelta(t, 8.0/3.0, r.Value, 1e-9)
	})

	t.Run("bounded window sum", func(t *testing.T) {
		r := results["Z"]
		require.NoError(t, r.Err)
		assert.Equal(t, "window_sum", r.Strategy)
		assert.Equal(t, 75.0, r.Value)
	})

	t.Run("rejected instruments never reach the registry", func(t *testing.T) {
		for _, name := range []string{"X", "W", "F"} {
			_, ok := results[name]
			assert.False(t, ok, "unexpected result for %s", name)
		}
	})

	t.Run("stats account for every line", func(t *testing.T) {
		stats := engine.Stats()
		assert.Equal(t, int64(25), stats.LinesRead)
		assert.Equal(t, int64(21), stats.Accepted)
		assert.Equal(t, int64(1), stats.Malformed)
		assert.Equal(t, int64(1), stats.InvalidDate)
		assert.Equal(t, int64(1), stats.FutureDated)
		assert.Equal(t, int64(1), stats.WeekendRejected)
		assert.Equal(t, int64(4), stats.Rejected())
		assert.Equal(t, 4, stats.Instruments)
	})
}

func TestEngineIdempotence(t *testing.T) {
	lines := scenarioLines()

	first := newTestEngine(t)
	feed(t, first, lines)
	a, err := first.Finalize(context.Background())
	require.NoError(t, err)

	second := newTestEngine(t)
	feed(t, second, lines)
	b, err := second.Finalize(context.Background())
	require.NoError(t, err)

	require.Equal(t, len(a), len(b))
	for name, ra := range a {
		rb, ok := b[name]
		require.True(t, ok, "missing result for %s", name)
		assert.Equal(t, ra.HasData(), rb.HasData(), name)
		assert.Equal(t, ra.Value, rb.Value, name)
		assert.Equal(t, ra.Strategy, rb.Strategy, name)
	}
}

func TestEngineBoundInstrumentWithNoData(t *testing.T) {
	engine := newTestEngine(t)
	feed(t, engine, []string{"Z,01-Dec-2014,1.0"})

	results, err := engine.Finalize(context.Background())
	require.NoError(t, err)

	// All three bound instruments report an explicit no-data outcome even
	// though they never appeared in the input.
	for _, name := range []string{"INSTRUMENT1", "INSTRUMENT2", "INSTRUMENT3"} {
		r, ok := results[name]
		require.True(t, ok, "missing result for %s", name)
		assert.ErrorIs(t, r.Err, apperrors.ErrNoData)
		assert.False(t, r.HasData())
	}
}

func TestEngineEmptyInput(t *testing.T) {
	engine := newTestEngine(t)

	results, err := engine.Finalize(context.Background())
	require.NoError(t, err)
	assert.Len(t, results, 3)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, apperrors.ErrNoData)
	}
}

func TestEngineIsOneShot(t *testing.T) {
	engine := newTestEngine(t)
	feed(t, engine, []string{"Z,01-Dec-2014,1.0"})

	_, err := engine.Finalize(context.Background())
	require.NoError(t, err)

	_, err = engine.Finalize(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrAlreadyFinalized)

	err = engine.ConsumeLine(context.Background(), "Z,02-Dec-2014,1.0")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyFinalized)
}

// The diagnostics listener polls Stats and State from its own goroutines
// while the main goroutine streams lines; the race detector verifies the
// engine's locking here.
func TestEngineStatsDuringStreaming(t *testing.T) {
	engine := newTestEngine(t)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			s := engine.Stats()
			if s.Accepted > s.LinesRead {
				t.Errorf("accepted %d exceeds lines read %d", s.Accepted, s.LinesRead)
				return
			}
			_ = engine.State()
		}
	}()

	ctx := context.Background()
	for i := 0; i < 2000; i++ {
		require.NoError(t, engine.ConsumeLine(ctx, fmt.Sprintf("Z,%02d-Dec-2014,%d", i%5+1, i)))
	}
	close(done)
	wg.Wait()

	stats := engine.Stats()
	assert.Equal(t, int64(2000), stats.LinesRead)
	assert.Equal(t, int64(2000), stats.Accepted)
}

func TestEngineMonthMeanNoMatchingMonth(t *testing.T) {
	params := testParams()
	params.MonthMeanYear = 2013 // bucket will hold only 2014 observations

	engine := NewEngine(params, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	feed(t, engine, []string{"INSTRUMENT2,05-Nov-2014,5.0"})

	results, err := engine.Finalize(context.Background())
	require.NoError(t, err)
	assert.ErrorIs(t, results["INSTRUMENT2"].Err, apperrors.ErrNoData)
}
