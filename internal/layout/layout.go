// Package layout models the ordered field list of a fixed-width record and
// the column spans it implies.
package layout

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/mmrzaf/fwgen/internal/picture"
)

// Entry is one field of a record layout; position is implied by order.
type Entry struct {
	Name        string
	Description string
	Format      picture.FieldFormat
}

type Layout []Entry

// Span is a field's [Start,End) byte offsets within a record.
type Span struct {
	Start int
	End   int
}

// Spans returns the cumulative column spans and the total declared record
// width.
func Spans(l Layout) ([]Span, int) {
	spans := make([]Span, len(l))
	pos := 0
	for i, e := range l {
		spans[i] = Span{Start: pos, End: pos + e.Format.ByteLength}
		pos += e.Format.ByteLength
	}
	return spans, pos
}

// Source column headers, matched case-insensitively.
const (
	colName = "handoff column name"
	colSpec = "data type with length"
	colDesc = "description"
)

// ReadCSV reads an ordered layout from a header-bearing CSV export of the
// layout workbook. A missing required column or an unparsable spec on any
// row is fatal: every later field's offset depends on every earlier one.
func ReadCSV(r io.Reader) (Layout, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read layout header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}

	var missing []string
	for _, required := range []string{colName, colSpec, colDesc} {
		if _, ok := idx[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("layout is missing required columns: %s", strings.Join(missing, ", "))
	}

	var l Layout
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read layout line %d: %w", line, err)
		}

		name := strings.TrimSpace(rec[idx[colName]])
		spec := strings.TrimSpace(rec[idx[colSpec]])
		if name == "" && spec == "" {
			continue
		}

		format, err := picture.Parse(spec)
		if err != nil {
			return nil, fmt.Errorf("layout field %q: %w", name, err)
		}

		l = append(l, Entry{
			Name:        name,
			Description: strings.TrimSpace(rec[idx[colDesc]]),
			Format:      format,
		})
	}

	if len(l) == 0 {
		return nil, fmt.Errorf("layout contains no fields")
	}
	return l, nil
}
