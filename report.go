package main

import (
	"encoding/csv"
	"fmt"
	"os"
)

type reportRow struct {
	check   string // "endpoint" or "payload"
	target  string
	passed  bool
	details string
}

// CSVSink handles writing run results to a CSV file
type CSVSink struct {
	outputFile string
}

// NewCSVSink creates a new CSVSink instance, an empty output path
// disables the report
func NewCSVSink(outputFile string) (*CSVSink, error) {
	if outputFile == "" {
		return nil, nil
	}

	newSink := CSVSink{outputFile}
	err := newSink.validateAndCreateOutputFile()
	if err != nil {
		return nil, fmt.Errorf("failed csv output file validation/creation: %w", err)
	}

	return &newSink, nil
}

// validateAndCreateOutputFile ensures the output directory exists and is writable
func (s *CSVSink) validateAndCreateOutputFile() error {
	// create the output file
	// this validates both directory existence and write permissions
	file, err := os.Create(s.outputFile)
	if err != nil {
		return fmt.Errorf("cannot create output file %s: %w", s.outputFile, err)
	}
	file.Close()

	return nil
}

// WriteResults writes the results to the output CSV
func (s *CSVSink) WriteResults(rows []reportRow) error {
	if s == nil || s.outputFile == "" {
		return fmt.Errorf("nil csv sink")
	}

	outFile, err := os.Create(s.outputFile)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer outFile.Close()

	writer := csv.NewWriter(outFile)

	err = writer.Write([]string{"Check", "Target", "Passed", "Details"})
	if err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}

	for _, row := range rows {
		err := writer.Write([]string{row.check, row.target, boolToEmoji(row.passed), row.details})
		if err != nil {
			return fmt.Errorf("failed to write to file: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
