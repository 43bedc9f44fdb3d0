package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// stopFileColumns in the order they appear in the headerless stop transfer file
var stopFileColumns = []string{
	"route_id",
	"route_code",
	"stop_name",
	"stop_id",
	"stop_lat",
	"stop_lon",
	"heading_degrees",
	"transfer_to_route_id",
}

// stopFileParser reads rows of the stop transfer file. Errors while extracting values are stored in errors,
// recording the line number they occurred on.
type stopFileParser struct {
	filename       string
	line           int
	csvReader      *csv.Reader
	currentRecords []string
	errors         []error
}

func makeStopFileParser(r io.Reader, filename string) *stopFileParser {
	csvReader := csv.NewReader(r)
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true
	csvReader.LazyQuotes = true
	return &stopFileParser{
		filename:  filename,
		csvReader: csvReader,
	}
}

// next advances to the next row, returns io.EOF at the end of the file
func (p *stopFileParser) next() error {
	records, err := p.csvReader.Read()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			p.line = parseErr.Line
			p.currentRecords = nil
			return p.lineError(err)
		}
		return err
	}
	p.line, _ = p.csvReader.FieldPos(0)
	if p.line == 1 && len(records) > 0 {
		records[0] = strings.TrimPrefix(records[0], "\uFEFF")
	}
	p.currentRecords = records
	return nil
}

func (p *stopFileParser) lineError(err error) error {
	return fmt.Errorf("%s line %d: %w", p.filename, p.line, err)
}

// value returns the trimmed value of the column, recording an error when missing and not optional
func (p *stopFileParser) value(column int, optional bool) string {
	if column >= len(p.currentRecords) {
		if !optional {
			p.errors = append(p.errors, p.lineError(fmt.Errorf("missing %s", stopFileColumns[column])))
		}
		return ""
	}
	result := strings.TrimSpace(p.currentRecords[column])
	if result == "" && !optional {
		p.errors = append(p.errors, p.lineError(fmt.Errorf("empty %s", stopFileColumns[column])))
	}
	return result
}

func (p *stopFileParser) getInt(column int) int {
	value := p.value(column, false)
	if value == "" {
		return 0
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		p.errors = append(p.errors, p.lineError(fmt.Errorf("%s is not an integer: %q", stopFileColumns[column], value)))
	}
	return result
}

func (p *stopFileParser) getFloat64(column int, optional bool) float64 {
	value := p.value(column, optional)
	if value == "" {
		return 0
	}
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		p.errors = append(p.errors, p.lineError(fmt.Errorf("%s is not a number: %q", stopFileColumns[column], value)))
	}
	return result
}

// readEntry extracts an Entry from the current row, returns false if any required value is missing or invalid
func (p *stopFileParser) readEntry() (Entry, bool) {
	errorCount := len(p.errors)
	entry := Entry{
		RouteId:           p.value(0, false),
		RouteCode:         p.value(1, true),
		StopName:          p.value(2, false),
		StopId:            p.getInt(3),
		Latitude:          p.getFloat64(4, false),
		Longitude:         p.getFloat64(5, false),
		HeadingDegrees:    p.getFloat64(6, true),
		TransferToRouteId: p.value(7, true),
	}
	return entry, len(p.errors) == errorCount
}

// ParseStopFile reads entries from the headerless stop transfer file.
// Invalid rows are skipped and returned in rowErrors. err is only returned when the file cannot be read
// or contains no valid rows.
func ParseStopFile(r io.Reader, filename string) (entries []Entry, rowErrors []error, err error) {
	parser := makeStopFileParser(r, filename)
	entries = make([]Entry, 0)
	for {
		err = parser.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				parser.errors = append(parser.errors, err)
				continue
			}
			return nil, parser.errors, fmt.Errorf("unable to read %s: %w", filename, err)
		}
		entry, ok := parser.readEntry()
		if ok {
			entries = append(entries, entry)
		}
	}
	if len(entries) == 0 {
		return nil, parser.errors, fmt.Errorf("no valid stops found in %s, %d invalid rows", filename, len(parser.errors))
	}
	return entries, parser.errors, nil
}
