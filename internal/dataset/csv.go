package dataset

import (
	"bytes"
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// missingTokens are the cell values treated as missing on input.
var missingTokens = []string{"", "NA", "NaN", "null", "?"}

// ParseCSV parses CSV bytes into a frame. Column types are detected: columns
// that parse as numbers become numeric with NaN for missing cells, everything
// else stays categorical with "" for missing cells.
func ParseCSV(data []byte) (*Frame, error) {
	df := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(missingTokens),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("read csv: %w", df.Err)
	}
	if df.Nrow() == 0 {
		return nil, fmt.Errorf("read csv: no data rows")
	}

	frame := NewFrame()
	for _, name := range df.Names() {
		col := df.Col(name)
		switch col.Type() {
		case series.Float, series.Int:
			if err := frame.AddNumeric(name, col.Float()); err != nil {
				return nil, fmt.Errorf("read csv: %w", err)
			}
		default:
			records := col.Records()
			for i, v := range records {
				if isMissingToken(v) {
					records[i] = ""
				}
			}
			if err := frame.AddCategorical(name, records); err != nil {
				return nil, fmt.Errorf("read csv: %w", err)
			}
		}
	}

	return frame, nil
}

func isMissingToken(v string) bool {
	for _, tok := range missingTokens {
		if v == tok {
			return true
		}
	}
	return false
}
