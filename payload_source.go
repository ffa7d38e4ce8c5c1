package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// CSVPayloadSource reads XSS payloads from a CSV file with a header row,
// the first column holds the payload name and the second the payload
type CSVPayloadSource struct {
	inputFile string
}

// NewCSVPayloadSource creates a new CSVPayloadSource instance
func NewCSVPayloadSource(inputFile string) (*CSVPayloadSource, error) {
	if inputFile == "" {
		return nil, nil // not using CSV source
	}

	newSource := CSVPayloadSource{inputFile}
	err := newSource.validateInputFile()
	if err != nil {
		return nil, fmt.Errorf("failed csv input file validation: %w", err)
	}

	return &newSource, nil
}

// validateInputFile checks if the input CSV file exists and is readable
func (s *CSVPayloadSource) validateInputFile() error {
	_, err := os.Stat(s.inputFile)
	if os.IsNotExist(err) {
		return fmt.Errorf("input file does not exist: %s", s.inputFile)
	} else if err != nil {
		return fmt.Errorf("cannot access input file: %w", err)
	}

	return nil
}

// Extract reads the CSV file and returns its payloads, rows with an empty
// payload are skipped and rows without a name are named by position
func (s *CSVPayloadSource) Extract(_ context.Context) ([]namedPayload, error) {
	if s == nil || s.inputFile == "" {
		return nil, nil
	}

	file, err := os.Open(s.inputFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	if len(records) < 1 {
		return nil, fmt.Errorf("CSV file is empty or missing header")
	}

	var payloads []namedPayload
	for i, row := range records[1:] { // skip header
		if len(row) < 2 || row[1] == "" {
			continue
		}

		name := strings.TrimSpace(row[0])
		if name == "" {
			name = fmt.Sprintf("row %d", i+2)
		}

		payloads = append(payloads, namedPayload{name: name, value: row[1]})
	}

	return payloads, nil
}
