// Copyright 2025 The StoreLocator Authors
// SPDX-License-Identifier: Apache-2.0

package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jcodagnone/storelocator/utils/textutils"
)

var (
	// ErrMissingColumns matches every *MissingColumnsError.
	ErrMissingColumns = errors.New("missing required columns")
	// ErrEmptyImport is returned when the upload has no data rows.
	ErrEmptyImport = errors.New("il file non contiene righe da importare")
)

// MissingColumnsError names the required header labels that were not found.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return "colonne mancanti: " + strings.Join(e.Missing, ", ")
}

func (e *MissingColumnsError) Is(target error) bool {
	return target == ErrMissingColumns
}

// column is a required column and the compacted header fragments that
// identify it.
type column struct {
	label string
	keys  []string
}

const (
	colStoreName = iota
	colBrand
	colAddress
	colCity
	colProvince
	colCategory
	numColumns
)

var columns = [numColumns]column{
	colStoreName: {label: "Nome Negozio", keys: []string{"nomenegozio", "negozio", "storename"}},
	colBrand:     {label: "Brand", keys: []string{"brand", "marca"}},
	colAddress:   {label: "Indirizzo completo", keys: []string{"indirizzo", "address"}},
	colCity:      {label: "Città", keys: []string{"citta", "city", "comune"}},
	colProvince:  {label: "Provincia", keys: []string{"provincia", "province"}},
	colCategory:  {label: "Categoria", keys: []string{"categoria", "category"}},
}

// SkippedLine is a data line dropped because it did not have every column or
// opened a quote it never closed.
type SkippedLine struct {
	Line   int    `json:"line"`
	Fields int    `json:"fields"`
	Reason string `json:"reason"`
}

// ParseResult holds the rows of an upload and the lines that were dropped.
type ParseResult struct {
	Rows    []*Row        `json:"rows"`
	Skipped []SkippedLine `json:"skipped,omitempty"`
}

// TemplateCSV returns the header-only file offered for download.
func TemplateCSV() string {
	labels := make([]string, numColumns)
	for i, c := range columns {
		labels[i] = c.label
	}

	return strings.Join(labels, ",") + "\n"
}

// ParseString parses an upload held in memory.
func ParseString(s string) (*ParseResult, error) {
	return Parse(strings.NewReader(s))
}

// Parse reads a comma separated upload. The first record is the header; every
// data record with all six columns becomes a pending Row, in file order.
// Quoted fields may not span lines: such a record is reported in Skipped with
// the lines it covers.
func Parse(r io.Reader) (*ParseResult, error) {
	reader := csv.NewReader(textutils.UTF8Reader(r))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyImport
	}

	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	index, err := resolveHeader(header)
	if err != nil {
		return nil, err
	}

	minFields := numColumns
	for _, i := range index {
		minFields = max(minFields, i+1)
	}

	result := &ParseResult{}
	records := 0

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("reading CSV: %w", err)
		}

		line, _ := reader.FieldPos(0)

		if isBlank(record) {
			continue
		}

		records++

		if span := lineBreaks(record); span > 0 {
			// an unclosed quote runs on until the next quote or the end of the file
			result.Skipped = append(result.Skipped, SkippedLine{
				Line:   line,
				Fields: len(record),
				Reason: fmt.Sprintf("virgolette non chiuse, righe %d-%d ignorate", line, line+span),
			})

			continue
		}

		if len(record) < minFields {
			result.Skipped = append(result.Skipped, SkippedLine{
				Line:   line,
				Fields: len(record),
				Reason: fmt.Sprintf("attesi %d campi, trovati %d", minFields, len(record)),
			})

			continue
		}

		result.Rows = append(result.Rows, &Row{
			StoreName: cleanField(record[index[colStoreName]]),
			Brand:     cleanField(record[index[colBrand]]),
			Address:   cleanField(record[index[colAddress]]),
			City:      cleanField(record[index[colCity]]),
			Province:  cleanField(record[index[colProvince]]),
			Category:  cleanField(record[index[colCategory]]),
			Status:    StatusPending,
		})
	}

	if records == 0 {
		return nil, ErrEmptyImport
	}

	return result, nil
}

// resolveHeader maps every required column to a header position. Columns are
// resolved in order and a header cell is used at most once.
func resolveHeader(header []string) ([numColumns]int, error) {
	var index [numColumns]int

	compact := make([]string, len(header))
	for i, h := range header {
		compact[i] = textutils.Compact(h)
	}

	used := make([]bool, len(header))

	var missing []string

	for c, col := range columns {
		index[c] = -1

	cells:
		for i, h := range compact {
			if used[i] || h == "" {
				continue
			}

			for _, key := range col.keys {
				if strings.Contains(h, key) {
					index[c], used[i] = i, true

					break cells
				}
			}
		}

		if index[c] < 0 {
			missing = append(missing, col.label)
		}
	}

	if len(missing) > 0 {
		return index, &MissingColumnsError{Missing: missing}
	}

	return index, nil
}

func cleanField(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `"`))
}

// lineBreaks counts the line breaks inside the fields of record, ignoring
// the final one left by a quote running to the end of the input.
func lineBreaks(record []string) int {
	return strings.Count(strings.TrimRight(strings.Join(record, ","), "\n"), "\n")
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}

	return true
}
