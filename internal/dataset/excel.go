package dataset

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// ParseXLSX parses the first sheet of a workbook into a frame. The first row
// is the header; column types are detected the same way as for CSV input.
func ParseXLSX(data []byte) (*Frame, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("sheet %s: no data rows", sheet)
	}

	return frameFromRecords(rows[0], rows[1:])
}

// frameFromRecords builds a frame from a header and string records, detecting
// numeric columns. Short rows (trailing empty cells trimmed by excelize) are
// padded with missing values.
func frameFromRecords(header []string, records [][]string) (*Frame, error) {
	ncols := len(header)
	frame := NewFrame()

	for j := 0; j < ncols; j++ {
		numeric := true
		seen := 0
		for _, rec := range records {
			v := cellAt(rec, j)
			if isMissingToken(v) {
				continue
			}
			seen++
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				numeric = false
				break
			}
		}

		// A column with no observed values stays categorical.
		if numeric && seen > 0 {
			vals := make([]float64, len(records))
			for i, rec := range records {
				v := cellAt(rec, j)
				if isMissingToken(v) {
					vals[i] = math.NaN()
					continue
				}
				parsed, _ := strconv.ParseFloat(v, 64)
				vals[i] = parsed
			}
			if err := frame.AddNumeric(header[j], vals); err != nil {
				return nil, err
			}
			continue
		}

		vals := make([]string, len(records))
		for i, rec := range records {
			v := cellAt(rec, j)
			if isMissingToken(v) {
				v = ""
			}
			vals[i] = v
		}
		if err := frame.AddCategorical(header[j], vals); err != nil {
			return nil, err
		}
	}

	return frame, nil
}

func cellAt(rec []string, j int) string {
	if j < len(rec) {
		return rec[j]
	}
	return ""
}

// Parse decodes dataset bytes according to the source format.
func Parse(src Source, data []byte) (*Frame, error) {
	switch src.Format {
	case FormatCSV:
		return ParseCSV(data)
	case FormatXLSX:
		return ParseXLSX(data)
	default:
		return nil, fmt.Errorf("unsupported format %q", src.Format)
	}
}
