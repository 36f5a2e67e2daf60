package aggregation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	apperrors "instragg/internal/errors"
	"instragg/internal/metrics"
	"instragg/pkg/contracts/domain"
)

// State tracks the engine lifecycle: Idle until the first line arrives,
// Streaming while consuming input, Finalized after the one-shot finalize.
type State int

const (
	StateIdle State = iota
	StateStreaming
	StateFinalized
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// Params configures an Engine. The zero value is usable: it yields a
// window of DefaultWindowSize and no bound instruments.
type Params struct {
	// WindowSize is the bounded-window capacity W.
	WindowSize int
	// Boundary is the inclusive "current date"; later-dated lines are
	// rejected as future.
	Boundary time.Time
	// CapacityHint pre-sizes the instrument registry.
	CapacityHint int

	// Instrument bindings. Empty names leave the strategy unbound.
	MeanInstrument      string
	MonthMeanInstrument string
	MonthMeanYear       int
	MonthMeanMonth      time.Month
	VarianceInstrument  string
}

// Stats counts per-line outcomes for diagnostics. Rejected lines are never
// fatal; they are skipped, counted, and logged.
type Stats struct {
	LinesRead       int64 `json:"lines_read"`
	Accepted        int64 `json:"accepted"`
	Malformed       int64 `json:"malformed"`
	InvalidDate     int64 `json:"invalid_date"`
	InvalidValue    int64 `json:"invalid_value"`
	FutureDated     int64 `json:"future_dated"`
	WeekendRejected int64 `json:"weekend_rejected"`
	Instruments     int   `json:"instruments"`
}

// Rejected returns the total count of lines excluded from aggregation.
func (s Stats) Rejected() int64 {
	return s.Malformed + s.InvalidDate + s.InvalidValue + s.FutureDated + s.WeekendRejected
}

// Result is the per-instrument outcome of a finalized run. Err carries
// ErrNoData when the strategy had nothing to aggregate.
type Result struct {
	Name     string
	Strategy string
	Value    float64
	Err      error
}

// HasData reports whether the result carries a computed value.
func (r Result) HasData() bool {
	return r.Err == nil
}

// Engine owns the instrument registry and drives the
// parse → validate → route → finalize pipeline over a line stream.
// One logical caller feeds it, but Stats and State are safe to call
// from other goroutines: the diagnostics listener polls them mid-run.
type Engine struct {
	mu       sync.Mutex
	parser   *Parser
	table    *Table
	window   int
	registry map[string]Bucket
	stats    Stats
	state    State
	logger   *slog.Logger
	metrics  *metrics.Collector
}

// NewEngine creates an idle engine from the given parameters. The metrics
// collector may be nil when no instrumentation is wired up.
func NewEngine(params Params, logger *slog.Logger, collector *metrics.Collector) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if params.WindowSize < 1 {
		params.WindowSize = DefaultWindowSize
	}
	if params.CapacityHint < 0 {
		params.CapacityHint = 0
	}

	table := NewTable(BoundedWindowSum{})
	if params.MeanInstrument != "" {
		table.Bind(params.MeanInstrument, SimpleMean{})
	}
	if params.MonthMeanInstrument != "" {
		table.Bind(params.MonthMeanInstrument, MonthFilteredMean{
			Year:  params.MonthMeanYear,
			Month: params.MonthMeanMonth,
		})
	}
	if params.VarianceInstrument != "" {
		table.Bind(params.VarianceInstrument, IncrementalVariance{})
	}

	return &Engine{
		parser:   NewParser(params.Boundary),
		table:    table,
		window:   params.WindowSize,
		registry: make(map[string]Bucket, params.CapacityHint),
		state:    StateIdle,
		logger:   logger,
		metrics:  collector,
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Stats returns a snapshot of the per-line outcome counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stats
	s.Instruments = len(e.registry)
	return s
}

// ConsumeLine parses, validates and routes one raw input line. Rejected
// lines are counted and skipped; the only error returned is feeding the
// engine after it has been finalized.
func (e *Engine) ConsumeLine(ctx context.Context, line string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateFinalized {
		return apperrors.ErrAlreadyFinalized
	}
	e.state = StateStreaming

	e.stats.LinesRead++
	e.metrics.IncLinesRead()
	lineNo := int(e.stats.LinesRead)

	obs, err := e.parser.Parse(line, lineNo)
	if err != nil {
		reason, _ := apperrors.IsParseError(err)
		e.countRejection(reason)
		e.metrics.IncRejected(string(reason))
		e.logger.WarnContext(ctx, "input line rejected",
			slog.Int("line", lineNo),
			slog.String("reason", string(reason)),
			slog.String("error", err.Error()))
		return nil
	}

	if !obs.IsBusinessDay() {
		e.stats.WeekendRejected++
		e.metrics.IncRejected("WEEKEND")
		e.logger.DebugContext(ctx, "weekend observation excluded",
			slog.Int("line", lineNo),
			slog.String("instrument", obs.Name),
			slog.String("date", obs.Date.Format(domain.DateLayout)))
		return nil
	}

	e.route(obs)
	e.stats.Accepted++
	e.metrics.IncAccepted()
	return nil
}

// route stores the observation in its instrument's bucket, creating the
// bucket lazily on first sight of a name. Instruments bound to a dedicated
// strategy keep full history; everything else gets a bounded window.
func (e *Engine) route(obs domain.Observation) {
	bucket, ok := e.registry[obs.Name]
	if !ok {
		if e.table.IsBound(obs.Name) {
			bucket = NewFullHistoryBucket()
		} else {
			bucket = NewBoundedWindowBucket(e.window)
		}
		e.registry[obs.Name] = bucket
		e.metrics.SetInstruments(len(e.registry))
	}
	bucket.Add(obs)
}

// Finalize evaluates every applicable strategy against the accumulated
// buckets and returns the per-instrument results. It is a one-shot
// terminal transition; the engine cannot be streamed or finalized again.
func (e *Engine) Finalize(ctx context.Context) (map[string]Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateFinalized {
		return nil, apperrors.ErrAlreadyFinalized
	}
	e.state = StateFinalized

	// Every instrument seen in the input, plus every explicitly bound
	// instrument, reports an outcome. Bound instruments with no accepted
	// observations surface ErrNoData rather than vanishing.
	names := make(map[string]struct{}, len(e.registry))
	for name := range e.registry {
		names[name] = struct{}{}
	}
	for _, name := range e.table.Bound() {
		names[name] = struct{}{}
	}

	results := make(map[string]Result, len(names))
	for name := range names {
		strategy := e.table.Resolve(name)
		value, err := strategy.Calculate(e.registry[name])
		results[name] = Result{
			Name:     name,
			Strategy: strategy.Name(),
			Value:    value,
			Err:      err,
		}
		if err != nil {
			e.logger.WarnContext(ctx, "no result for instrument",
				slog.String("instrument", name),
				slog.String("strategy", strategy.Name()),
				slog.String("error", err.Error()))
		}
	}

	e.logger.InfoContext(ctx, "aggregation finalized",
		slog.Int("instruments", len(results)),
		slog.Int64("lines_read", e.stats.LinesRead),
		slog.Int64("accepted", e.stats.Accepted),
		slog.Int64("rejected", e.stats.Rejected()))

	return results, nil
}

// countRejection bumps the stats counter matching the parse error reason.
func (e *Engine) countRejection(reason apperrors.Reason) {
	switch reason {
	case apperrors.ReasonMalformedLine:
		e.stats.Malformed++
	case apperrors.ReasonInvalidDate:
		e.stats.InvalidDate++
	case apperrors.ReasonInvalidValue:
		e.stats.InvalidValue++
	case apperrors.ReasonFutureDate:
		e.stats.FutureDated++
	}
}
