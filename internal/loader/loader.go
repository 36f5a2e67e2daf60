package loader

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// LineSink consumes one raw observation line at a time. The aggregation
// engine implements it.
type LineSink interface {
	ConsumeLine(ctx context.Context, line string) error
}

// Loader feeds observation lines from files or streams into a LineSink.
// Plain text files are streamed line by line; .xlsx observation sheets
// exported by upstream desks are flattened to the same NAME,DATE,VALUE
// line shape before they reach the sink.
type Loader struct {
	logger *slog.Logger
}

// New creates a loader with the given logger.
func New(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// LoadFile dispatches on the file extension: .xlsx goes through the Excel
// reader, everything else is treated as line-oriented text.
func (l *Loader) LoadFile(ctx context.Context, path string, sink LineSink) error {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return l.loadExcel(ctx, path, sink)
	}
	return l.loadText(ctx, path, sink)
}

// Stream feeds line-oriented text from r into the sink. Blank lines are
// skipped. A sink error or an unreadable stream aborts the run.
func (l *Loader) Stream(ctx context.Context, r io.Reader, sink LineSink) error {
	scanner := bufio.NewScanner(r)
	// Allow for long lines; default Scanner buffer is 64KiB.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var fed int64
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled during streaming: %w", ctx.Err())
		default:
		}

		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := sink.ConsumeLine(ctx, line); err != nil {
			return fmt.Errorf("consume line: %w", err)
		}
		fed++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input stream: %w", err)
	}

	l.logger.DebugContext(ctx, "stream exhausted", slog.Int64("lines_fed", fed))
	return nil
}

// loadText streams a plain text file.
func (l *Loader) loadText(ctx context.Context, path string, sink LineSink) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open input file: %w", err)
	}
	defer file.Close()

	l.logger.InfoContext(ctx, "loading text input", slog.String("file", path))
	return l.Stream(ctx, file, sink)
}

// loadExcel reads the first sheet of an .xlsx workbook and feeds each row
// as a NAME,DATE,VALUE line. A leading header row is skipped.
func (l *Loader) loadExcel(ctx context.Context, path string, sink LineSink) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("open xlsx file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return fmt.Errorf("xlsx file has no sheets: %s", path)
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("read xlsx sheet %q: %w", sheet, err)
	}

	l.logger.InfoContext(ctx, "loading xlsx input",
		slog.String("file", path),
		slog.String("sheet", sheet),
		slog.Int("rows", len(rows)))

	var start int
	if len(rows) > 0 && isHeaderRow(rows[0]) {
		start = 1
	}

	for i := start; i < len(rows); i++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled during xlsx load: %w", ctx.Err())
		default:
		}

		row := rows[i]
		if isEmptyRow(row) {
			continue
		}
		// Flatten to the wire shape; short rows pass through and fail in
		// the parser as malformed, keeping rejection accounting in one place.
		line := strings.Join(trimCells(row), ",")
		if err := sink.ConsumeLine(ctx, line); err != nil {
			return fmt.Errorf("consume xlsx row %d: %w", i+1, err)
		}
	}

	return nil
}

// isHeaderRow detects a leading header by looking for the column names
// upstream exports tend to use. Two keyword hits are required so a data
// row whose instrument name happens to contain "instrument" is not
// mistaken for a header.
func isHeaderRow(row []string) bool {
	if len(row) == 0 {
		return false
	}
	text := strings.ToLower(strings.Join(row, " "))
	hits := 0
	for _, keyword := range []string{"name", "instrument", "date", "value"} {
		if strings.Contains(text, keyword) {
			hits++
		}
	}
	return hits >= 2
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func trimCells(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = strings.TrimSpace(cell)
	}
	return out
}
