package exporter

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"instragg/internal/aggregation"
	apperrors "instragg/internal/errors"
)

// NoDataMarker is what CSV output shows for instruments that finalized
// without a computable result.
const NoDataMarker = "NO_DATA"

// WriteOptions configures result serialization.
type WriteOptions struct {
	// BOMPrefix prepends a UTF-8 BOM so Excel recognizes the encoding.
	BOMPrefix bool
}

// resultRow is the JSON shape for one instrument outcome. Value is a
// pointer so "no data" serializes as an explicit null, never as zero.
type resultRow struct {
	Instrument string   `json:"instrument"`
	Strategy   string   `json:"strategy"`
	Value      *float64 `json:"value"`
	Error      string   `json:"error,omitempty"`
}

// WriteCSV writes the finalized results to w as CSV, one row per
// instrument, sorted by name for stable output.
func WriteCSV(w io.Writer, results map[string]aggregation.Result, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Instrument", "Strategy", "Result"}); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for _, r := range sortedResults(results) {
		rendered := NoDataMarker
		if r.HasData() {
			rendered = strconv.FormatFloat(r.Value, 'f', -1, 64)
		} else if !errors.Is(r.Err, apperrors.ErrNoData) {
			rendered = fmt.Sprintf("ERROR: %v", r.Err)
		}
		if err := writer.Write([]string{r.Name, r.Strategy, rendered}); err != nil {
			return fmt.Errorf("failed to write record for %s: %w", r.Name, err)
		}
	}

	return writer.Error()
}

// WriteJSON writes the finalized results to w as an indented JSON array,
// sorted by instrument name.
func WriteJSON(w io.Writer, results map[string]aggregation.Result) error {
	rows := make([]resultRow, 0, len(results))
	for _, r := range sortedResults(results) {
		row := resultRow{Instrument: r.Name, Strategy: r.Strategy}
		if r.HasData() {
			v := r.Value
			row.Value = &v
		} else {
			row.Error = r.Err.Error()
		}
		rows = append(rows, row)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	return nil
}

// sortedResults flattens the result map into name order.
func sortedResults(results map[string]aggregation.Result) []aggregation.Result {
	out := make([]aggregation.Result, 0, len(results))
	for _, r := range results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}
