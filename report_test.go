package main

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVSinkWriteResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")

	sink, err := NewCSVSink(path)
	require.NoError(t, err)

	err = sink.WriteResults([]reportRow{
		{check: "endpoint", target: "https://api-iam.intercom.io/messenger/web/ping", passed: true, details: "status 200"},
		{check: "payload", target: "img", passed: false, details: "state=initialized findings=1 dialogs=0"},
	})
	require.NoError(t, err)

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Check", "Target", "Passed", "Details"},
		{"endpoint", "https://api-iam.intercom.io/messenger/web/ping", "✅", "status 200"},
		{"payload", "img", "❌", "state=initialized findings=1 dialogs=0"},
	}, records)
}

func TestNewCSVSinkDisabled(t *testing.T) {
	sink, err := NewCSVSink("")
	require.NoError(t, err)
	assert.Nil(t, sink)
	assert.Error(t, sink.WriteResults(nil))
}

func TestNewCSVSinkUnwritable(t *testing.T) {
	_, err := NewCSVSink(filepath.Join(t.TempDir(), "missing", "report.csv"))
	assert.ErrorContains(t, err, "cannot create output file")
}
