// Package aggregation implements the streaming aggregation engine: it
// consumes a line-oriented stream of instrument observations and produces
// one aggregate statistic per distinct instrument name.
//
// # Architecture
//
// The package is organized around four components:
//
//  1. Parser: validates NAME,DATE,VALUE lines and the current-date boundary
//  2. Bucket: per-instrument retention (full history or bounded newest-W window)
//  3. Strategy: the closed set of aggregate calculations
//  4. Engine: routes accepted observations and performs the one-shot finalize
//
// # Data Flow
//
//	raw line → Parser → Observation → business-day gate → Engine.route →
//	Bucket → ... → Engine.Finalize → per-instrument Result
//
// # Error Handling
//
// Rejected lines (malformed, invalid date or value, future-dated, weekend)
// are skipped, counted in Stats, and logged; they never abort the run.
// Instruments with zero accepted observations finalize to ErrNoData.
//
// # Memory
//
// Bounded-window buckets cap retention at W observations per instrument,
// so inputs far larger than memory stream through in constant per-key
// space. Only instruments bound to a dedicated strategy retain history.
package aggregation
