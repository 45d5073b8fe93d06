package fairness

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"creditrisk/internal/application"
)

// DefaultLabelColumn holds the observed outcome; 1 means the loan defaulted.
const DefaultLabelColumn = "default"

// Record is one labeled application with its protected attribute values.
type Record struct {
	Line        int
	Application *application.Application
	Defaulted   bool
	Groups      map[string]string
}

// RowError explains why a row was skipped.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// Dataset is an evaluation snapshot. Rows that could not be parsed are
// counted in Skipped and described in Problems.
type Dataset struct {
	Attributes []string
	Records    []Record
	Skipped    int
	Problems   []RowError
}

// LoadFile reads a CSV dataset from path.
func LoadFile(path, labelColumn string, attributes []string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return LoadCSV(f, labelColumn, attributes)
}

// LoadCSV parses a dataset with a header row. The label column and every
// protected attribute column must be present; application columns are
// matched by field name and the rest are ignored.
func LoadCSV(r io.Reader, labelColumn string, attributes []string) (*Dataset, error) {
	if labelColumn == "" {
		labelColumn = DefaultLabelColumn
	}
	if len(attributes) == 0 {
		return nil, errors.New("at least one protected attribute is required")
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("dataset is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	for _, col := range append([]string{labelColumn}, attributes...) {
		if !slices.Contains(header, col) {
			return nil, fmt.Errorf("dataset has no %q column", col)
		}
	}

	ds := &Dataset{Attributes: slices.Clone(attributes)}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) && errors.Is(perr.Err, csv.ErrFieldCount) {
				ds.skip(perr.StartLine, err)
				continue
			}
			return nil, fmt.Errorf("read dataset: %w", err)
		}
		// Physical line where the record starts; quoted cells may span lines.
		line, _ := cr.FieldPos(0)

		cells := make(map[string]string, len(header))
		for i, col := range header {
			cells[col] = row[i]
		}
		rec, err := parseRecord(cells, labelColumn, attributes)
		if err != nil {
			ds.skip(line, err)
			continue
		}
		rec.Line = line
		ds.Records = append(ds.Records, rec)
	}
	return ds, nil
}

func (d *Dataset) skip(line int, err error) {
	d.Skipped++
	d.Problems = append(d.Problems, RowError{Line: line, Err: err})
}

func parseRecord(cells map[string]string, labelColumn string, attributes []string) (Record, error) {
	defaulted, err := strconv.ParseBool(strings.TrimSpace(cells[labelColumn]))
	if err != nil {
		return Record{}, fmt.Errorf("label %q is not 0/1", cells[labelColumn])
	}
	app, err := application.FromRecord(cells)
	if err != nil {
		return Record{}, err
	}
	groups := make(map[string]string, len(attributes))
	for _, a := range attributes {
		groups[a] = strings.TrimSpace(cells[a])
	}
	return Record{Application: app, Defaulted: defaulted, Groups: groups}, nil
}
