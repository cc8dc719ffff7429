// Package validate checks fetched file content. The pipeline treats the
// validator as a black box: it hands over raw bytes and records whatever
// errors, warnings, and info lines come back.
package validate

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Result carries the outcome of validating one file's content. The three
// lists keep their production order.
type Result struct {
	Errors   []string
	Warnings []string
	Info     []string
}

// Validator is the pluggable content check.
type Validator interface {
	Validate(content []byte) Result
}

// Schema optionally constrains the CSV shape. Zero value means no
// structural expectations beyond parseability.
type Schema struct {
	// RequiredColumns must all appear in the header row.
	RequiredColumns []string
}

// CSVValidator is the default Validator: it parses the content as CSV with
// the configured delimiter and reports structural problems.
type CSVValidator struct {
	Schema Schema
	Comma  rune
}

// NewCSVValidator builds a CSVValidator. dialect is the field delimiter;
// empty selects comma.
func NewCSVValidator(schema Schema, dialect string) *CSVValidator {
	comma := ','
	if dialect != "" {
		comma = []rune(dialect)[0]
	}
	return &CSVValidator{Schema: schema, Comma: comma}
}

// Validate parses content as CSV. Empty content is an error; ragged rows
// are errors; a header missing required columns is an error; trailing
// whitespace-only content after records is a warning.
func (v *CSVValidator) Validate(content []byte) Result {
	var res Result

	if len(bytes.TrimSpace(content)) == 0 {
		res.Errors = append(res.Errors, "csv content is empty")
		return res
	}

	reader := csv.NewReader(bytes.NewReader(content))
	reader.Comma = v.Comma
	// FieldsPerRecord left at 0: the reader enforces the first row's width.

	header, err := reader.Read()
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("failed to read csv header: %v", err))
		return res
	}

	cols := make(map[string]struct{}, len(header))
	for _, col := range header {
		cols[strings.TrimSpace(col)] = struct{}{}
	}
	for _, required := range v.Schema.RequiredColumns {
		if _, ok := cols[required]; !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("missing required column: %s", required))
		}
	}

	rows := 0
	for {
		_, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				res.Errors = append(res.Errors,
					fmt.Sprintf("line %d: %v", parseErr.Line, parseErr.Err))
				continue
			}
			res.Errors = append(res.Errors, fmt.Sprintf("failed to read csv record: %v", err))
			break
		}
		rows++
	}

	if rows == 0 {
		res.Warnings = append(res.Warnings, "csv has a header but no data rows")
	}
	if len(res.Errors) == 0 {
		res.Info = append(res.Info, fmt.Sprintf("csv read successfully: %d data rows", rows))
	}
	return res
}

var _ Validator = (*CSVValidator)(nil)
