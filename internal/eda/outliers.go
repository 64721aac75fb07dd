package eda

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"insightcli/internal/dataset"
)

// OutlierReport lists the rows of a numeric column outside the Tukey fences
// (1.5 IQR beyond the quartiles).
type OutlierReport struct {
	Column     string
	LowerFence float64
	UpperFence float64
	Indices    []int
}

// DetectOutliers flags IQR outliers in a numeric column. Missing cells are
// never flagged.
func DetectOutliers(frame *dataset.Frame, name string) (*OutlierReport, error) {
	vals, err := frame.Numeric(name)
	if err != nil {
		return nil, fmt.Errorf("outliers: %w", err)
	}

	observed := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			observed = append(observed, v)
		}
	}
	if len(observed) < 4 {
		return nil, fmt.Errorf("outliers: column %q has too few observations", name)
	}

	sort.Float64s(observed)
	q1 := stat.Quantile(0.25, stat.Empirical, observed, nil)
	q3 := stat.Quantile(0.75, stat.Empirical, observed, nil)
	iqr := q3 - q1

	report := &OutlierReport{
		Column:     name,
		LowerFence: q1 - 1.5*iqr,
		UpperFence: q3 + 1.5*iqr,
	}

	for i, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		if v < report.LowerFence || v > report.UpperFence {
			report.Indices = append(report.Indices, i)
		}
	}

	return report, nil
}
