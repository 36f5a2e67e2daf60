package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instragg/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRunWritesResultsToFile(t *testing.T) {
	cfg := config.Default()
	input := writeInput(t, "INSTRUMENT1,01-Dec-2014,10.0\nINSTRUMENT1,02-Dec-2014,20.0\n")
	out := filepath.Join(t.TempDir(), "results.csv")

	require.NoError(t, run(context.Background(), &cfg, testLogger(), input, out))

	// run must have closed the output file with the results flushed.
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Instrument,Strategy,Result")
	assert.Contains(t, string(data), "INSTRUMENT1,mean,15")
}

func TestRunUnwritableOutput(t *testing.T) {
	cfg := config.Default()
	input := writeInput(t, "INSTRUMENT1,01-Dec-2014,10.0\n")

	// A directory path cannot be created as the output file.
	err := run(context.Background(), &cfg, testLogger(), input, t.TempDir())
	assert.ErrorContains(t, err, "open output")
}
