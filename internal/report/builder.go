package report

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"

	"insightcli/internal/config"
	"insightcli/internal/dataset"
	"insightcli/internal/eda"
	"insightcli/internal/transform"
)

// Builder turns a parsed dataset frame into a finished report.
type Builder interface {
	ID() string
	Build(ctx context.Context, frame *dataset.Frame) (*Report, error)
}

// Builders returns the registered report builders, one per dataset source.
func Builders(cfg config.PipelineConfig, logger *slog.Logger) []Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return []Builder{
		NewStocksBuilder(cfg, logger),
		NewLoansBuilder(cfg, logger),
		NewInsuranceBuilder(cfg, logger),
	}
}

// LookupBuilder finds a builder by report id.
func LookupBuilder(builders []Builder, id string) (Builder, error) {
	for _, b := range builders {
		if b.ID() == id {
			return b, nil
		}
	}
	return nil, fmt.Errorf("report builder: unknown id %q", id)
}

// edaSection appends the shared exploratory section: a per-column summary
// table and, for the named columns, an outlier count table.
func edaSection(ctx context.Context, r *Report, frame *dataset.Frame, logger *slog.Logger, outlierCols ...string) error {
	summaries, err := eda.NewSummarizer(logger).Summarize(ctx, frame)
	if err != nil {
		return fmt.Errorf("eda section: %w", err)
	}

	sec := r.AddSection("Data overview",
		fmt.Sprintf("The dataset holds %d rows across %d columns. "+
			"Summary statistics below are computed over observed values only; "+
			"missing cells are counted separately and handled in the imputation step.",
			frame.NumRows(), frame.NumCols()))

	summary := Table{
		Title:      "Column summaries",
		Headers:    []string{"column", "kind", "n", "missing", "mean", "std", "min", "median", "max", "levels", "top"},
		ExportName: "summary",
	}
	for _, s := range summaries {
		row := []string{s.Name, s.Kind, fmt.Sprint(s.Count), fpct(s.MissingRatio)}
		if s.Kind == "numeric" {
			row = append(row, fnum(s.Mean), fnum(s.StdDev), fnum(s.Min), fnum(s.Median), fnum(s.Max), "", "")
		} else {
			row = append(row, "", "", "", "", "", fmt.Sprint(s.Levels), s.Top)
		}
		summary.Rows = append(summary.Rows, row)
	}
	sec.Tables = append(sec.Tables, summary)

	if len(outlierCols) > 0 {
		outliers := Table{
			Title:   "IQR outliers (1.5 fences)",
			Headers: []string{"column", "lower fence", "upper fence", "flagged rows"},
		}
		for _, name := range outlierCols {
			rep, err := eda.DetectOutliers(frame, name)
			if err != nil {
				r.Warnf("outlier detection skipped for %s: %v", name, err)
				continue
			}
			outliers.Rows = append(outliers.Rows, []string{
				name, fnum(rep.LowerFence), fnum(rep.UpperFence), fmt.Sprint(len(rep.Indices)),
			})
		}
		if len(outliers.Rows) > 0 {
			sec.Tables = append(sec.Tables, outliers)
		}
	}
	return nil
}

// correlationTable builds a correlation matrix table over numeric columns.
func correlationTable(frame *dataset.Frame, names []string) (Table, error) {
	corr, err := eda.Correlation(frame, names...)
	if err != nil {
		return Table{}, fmt.Errorf("correlation table: %w", err)
	}

	tbl := Table{
		Title:   "Pearson correlation (pairwise complete)",
		Headers: append([]string{""}, corr.Names...),
	}
	for i, a := range corr.Names {
		row := make([]string, 0, len(corr.Names)+1)
		row = append(row, a)
		for j := range corr.Names {
			row = append(row, fnum(corr.Values[i][j]))
		}
		tbl.Rows = append(tbl.Rows, row)
	}
	return tbl, nil
}

// buildFeatures assembles the model design matrix from a complete frame:
// numeric columns pass through, categorical columns are one-hot encoded with
// the first level as reference. Columns named in skip are excluded.
func buildFeatures(frame *dataset.Frame, r *Report, skip ...string) (*mat.Dense, []string, error) {
	skipped := make(map[string]bool, len(skip))
	for _, name := range skip {
		skipped[name] = true
	}

	var names []string
	var cols [][]float64
	for _, col := range frame.Columns() {
		if skipped[col.Name] {
			continue
		}
		switch col.Kind {
		case dataset.Numeric:
			names = append(names, col.Name)
			cols = append(cols, col.Floats)
		case dataset.Categorical:
			hotNames, hotCols, err := transform.OneHot(col.Name, col.Labels)
			if err != nil {
				r.Warnf("column %s dropped from the model: %v", col.Name, err)
				continue
			}
			names = append(names, hotNames...)
			cols = append(cols, hotCols...)
		}
	}
	if len(names) == 0 {
		return nil, nil, fmt.Errorf("build features: no usable columns")
	}

	n := frame.NumRows()
	X := mat.NewDense(n, len(names), nil)
	for j, col := range cols {
		for i := 0; i < n; i++ {
			v := col[i]
			if math.IsNaN(v) {
				return nil, nil, fmt.Errorf("build features: missing value in %s at row %d, impute first", names[j], i)
			}
			X.Set(i, j, v)
		}
	}
	return X, names, nil
}

// rowsOf copies the indexed rows of X into a new matrix.
func rowsOf(X *mat.Dense, indices []int) *mat.Dense {
	_, d := X.Dims()
	out := mat.NewDense(len(indices), d, nil)
	for i, r := range indices {
		for j := 0; j < d; j++ {
			out.Set(i, j, X.At(r, j))
		}
	}
	return out
}

// gatherInts picks the indexed elements of a label slice.
func gatherInts(values []int, indices []int) []int {
	out := make([]int, len(indices))
	for i, idx := range indices {
		out[i] = values[idx]
	}
	return out
}

// binaryTarget decodes a 0/1 target from either a numeric or a categorical
// column. Categorical levels are label-encoded; the sorted-second level maps
// to 1, which makes "no"/"yes" and "0"/"1" behave as expected.
func binaryTarget(frame *dataset.Frame, name string) ([]int, string, error) {
	col, err := frame.Column(name)
	if err != nil {
		return nil, "", fmt.Errorf("binary target: %w", err)
	}

	out := make([]int, col.Len())
	positive := "1"
	switch col.Kind {
	case dataset.Numeric:
		for i, v := range col.Floats {
			switch v {
			case 0:
			case 1:
				out[i] = 1
			default:
				return nil, "", fmt.Errorf("binary target %s: value %g at row %d, want 0 or 1", name, v, i)
			}
		}
	case dataset.Categorical:
		codes, enc, err := transform.LabelEncode(col.Labels)
		if err != nil {
			return nil, "", fmt.Errorf("binary target %s: %w", name, err)
		}
		if len(enc.Levels) != 2 {
			return nil, "", fmt.Errorf("binary target %s: %d levels, want 2", name, len(enc.Levels))
		}
		positive = enc.Levels[1]
		for i, c := range codes {
			if c == 1 {
				out[i] = 1
			}
		}
	}
	return out, positive, nil
}
