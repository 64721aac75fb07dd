// Package eda computes the exploratory statistics shown at the top of every
// report: per-column summaries, correlations and outlier counts.
package eda

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"insightcli/internal/dataset"
)

// ColumnSummary holds descriptive statistics for one column.
type ColumnSummary struct {
	Name         string  `json:"name"`
	Kind         string  `json:"kind"`
	Count        int     `json:"count"`
	Missing      int     `json:"missing"`
	MissingRatio float64 `json:"missing_ratio"`

	// Numeric columns only
	Mean   float64 `json:"mean,omitempty"`
	StdDev float64 `json:"std_dev,omitempty"`
	Min    float64 `json:"min,omitempty"`
	Q1     float64 `json:"q1,omitempty"`
	Median float64 `json:"median,omitempty"`
	Q3     float64 `json:"q3,omitempty"`
	Max    float64 `json:"max,omitempty"`

	// Categorical columns only
	Levels  int    `json:"levels,omitempty"`
	TopSize int    `json:"top_size,omitempty"`
	Top     string `json:"top,omitempty"`
}

// Summarizer produces column summaries for a frame.
type Summarizer struct {
	logger *slog.Logger
}

// NewSummarizer creates a summarizer.
func NewSummarizer(logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{logger: logger}
}

// Summarize computes a summary for every column in the frame.
func (s *Summarizer) Summarize(ctx context.Context, frame *dataset.Frame) ([]ColumnSummary, error) {
	if frame == nil || frame.NumRows() == 0 {
		return nil, fmt.Errorf("summarize: empty frame")
	}

	summaries := make([]ColumnSummary, 0, frame.NumCols())
	for _, col := range frame.Columns() {
		switch col.Kind {
		case dataset.Numeric:
			summaries = append(summaries, summarizeNumeric(col))
		case dataset.Categorical:
			summaries = append(summaries, summarizeCategorical(col))
		}
	}

	s.logger.DebugContext(ctx, "frame summarized",
		"columns", len(summaries),
		"rows", frame.NumRows(),
	)
	return summaries, nil
}

func summarizeNumeric(col dataset.Column) ColumnSummary {
	observed := make([]float64, 0, len(col.Floats))
	for _, v := range col.Floats {
		if !math.IsNaN(v) {
			observed = append(observed, v)
		}
	}

	out := ColumnSummary{
		Name:         col.Name,
		Kind:         "numeric",
		Count:        len(observed),
		Missing:      len(col.Floats) - len(observed),
		MissingRatio: ratio(len(col.Floats)-len(observed), len(col.Floats)),
	}
	if len(observed) == 0 {
		return out
	}

	sort.Float64s(observed)
	out.Mean = stat.Mean(observed, nil)
	out.StdDev = stat.StdDev(observed, nil)
	out.Min = observed[0]
	out.Max = observed[len(observed)-1]
	out.Q1 = stat.Quantile(0.25, stat.Empirical, observed, nil)
	out.Median = stat.Quantile(0.5, stat.Empirical, observed, nil)
	out.Q3 = stat.Quantile(0.75, stat.Empirical, observed, nil)
	return out
}

func summarizeCategorical(col dataset.Column) ColumnSummary {
	counts := make(map[string]int)
	missing := 0
	for _, v := range col.Labels {
		if v == "" {
			missing++
			continue
		}
		counts[v]++
	}

	out := ColumnSummary{
		Name:         col.Name,
		Kind:         "categorical",
		Count:        len(col.Labels) - missing,
		Missing:      missing,
		MissingRatio: ratio(missing, len(col.Labels)),
		Levels:       len(counts),
	}
	for level, n := range counts {
		if n > out.TopSize || (n == out.TopSize && level < out.Top) {
			out.TopSize = n
			out.Top = level
		}
	}
	return out
}

func ratio(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole)
}
