package report

import (
	"context"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightcli/internal/config"
	"insightcli/internal/dataset"
)

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{Seed: 42, TestFraction: 0.2, Folds: 5, ForecastDays: 10}
}

func sampleReport() *Report {
	r := &Report{
		ID:          "sample",
		Title:       "Sample report",
		GeneratedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Seed:        42,
		Rows:        10,
	}
	sec := r.AddSection("Results", "All models behaved.")
	sec.Tables = append(sec.Tables, Table{
		Title:      "Metrics",
		Headers:    []string{"metric", "value"},
		Rows:       [][]string{{"accuracy", "91.0%"}},
		ExportName: "metrics",
	})
	sec.Sparklines = append(sec.Sparklines, Sparkline{
		Title:  "series",
		Values: []float64{1, 2, math.NaN(), 4, 3},
	})
	r.Warnf("one row was %s", "skipped")
	return r
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML(sampleReport())
	require.NoError(t, err)

	doc := string(html)
	assert.Contains(t, doc, "<h1>Sample report</h1>")
	assert.Contains(t, doc, "<td>accuracy</td>")
	assert.Contains(t, doc, "<svg")
	assert.Contains(t, doc, "one row was skipped")
}

func TestRenderHTMLEscapesCells(t *testing.T) {
	r := sampleReport()
	r.Sections[0].Tables[0].Rows = [][]string{{"<script>", "x"}}

	html, err := RenderHTML(r)
	require.NoError(t, err)
	assert.NotContains(t, string(html), "<script>")
}

func TestSparklineBreaksAtGaps(t *testing.T) {
	svg := string(sparklineSVG([]float64{1, 2, math.NaN(), 4, 5}))
	assert.Equal(t, 2, strings.Count(svg, "<polyline"), "gap should split the line")
}

func TestSparklineDegenerateInput(t *testing.T) {
	assert.NotContains(t, string(sparklineSVG(nil)), "polyline")
	assert.NotContains(t, string(sparklineSVG([]float64{math.NaN()})), "polyline")
}

func TestExporterWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	exp := NewExporter(dir, nil)

	written, err := exp.Export(context.Background(), sampleReport())
	require.NoError(t, err)
	require.Len(t, written, 3) // html, metrics csv, workbook

	for _, path := range written {
		_, err := os.Stat(path)
		assert.NoError(t, err, path)
	}

	csvData, err := os.ReadFile(filepath.Join(dir, "sample_metrics.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(csvData), "metric,value")
	assert.Contains(t, string(csvData), "accuracy,91.0%")
}

func TestBuildFeaturesOneHotsCategoricals(t *testing.T) {
	frame := dataset.NewFrame()
	require.NoError(t, frame.AddNumeric("age", []float64{20, 30, 40}))
	require.NoError(t, frame.AddCategorical("region", []string{"north", "south", "north"}))
	require.NoError(t, frame.AddNumeric("target", []float64{1, 0, 1}))

	r := &Report{}
	X, names, err := buildFeatures(frame, r, "target")
	require.NoError(t, err)

	assert.Equal(t, []string{"age", "region_south"}, names)
	rows, cols := X.Dims()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 2, cols)
	assert.Equal(t, 1.0, X.At(1, 1))
	assert.Equal(t, 0.0, X.At(0, 1))
}

func TestBuildFeaturesRejectsMissing(t *testing.T) {
	frame := dataset.NewFrame()
	require.NoError(t, frame.AddNumeric("age", []float64{20, math.NaN()}))

	_, _, err := buildFeatures(frame, &Report{})
	assert.Error(t, err)
}

func TestBinaryTarget(t *testing.T) {
	frame := dataset.NewFrame()
	require.NoError(t, frame.AddNumeric("flag", []float64{0, 1, 1}))
	require.NoError(t, frame.AddCategorical("approved", []string{"no", "yes", "no"}))

	y, _, err := binaryTarget(frame, "flag")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 1}, y)

	y, positive, err := binaryTarget(frame, "approved")
	require.NoError(t, err)
	assert.Equal(t, "yes", positive)
	assert.Equal(t, []int{0, 1, 0}, y)
}

func stocksFrame(t *testing.T, n int) *dataset.Frame {
	t.Helper()
	rng := rand.New(rand.NewSource(9))
	close := make([]float64, n)
	dates := make([]string, n)
	close[0] = 100
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i < n; i++ {
		close[i] = close[i-1] + 0.2 + rng.NormFloat64()*0.6
	}
	for i := range dates {
		dates[i] = base.AddDate(0, 0, i).Format("2006-01-02")
	}
	// Punch a few gaps for the imputation step
	close[10] = math.NaN()
	close[11] = math.NaN()
	close[70] = math.NaN()

	frame := dataset.NewFrame()
	require.NoError(t, frame.AddCategorical("date", dates))
	require.NoError(t, frame.AddNumeric("close", close))
	return frame
}

func TestStocksBuilder(t *testing.T) {
	builder := NewStocksBuilder(testPipelineConfig(), nil)
	assert.Equal(t, "stocks", builder.ID())

	r, err := builder.Build(context.Background(), stocksFrame(t, 160))
	require.NoError(t, err)

	assert.Equal(t, "stocks", r.ID)
	assert.NotEmpty(t, r.Sections)

	var forecast *Table
	for i := range r.Sections {
		for j := range r.Sections[i].Tables {
			if r.Sections[i].Tables[j].ExportName == "forecast" {
				forecast = &r.Sections[i].Tables[j]
			}
		}
	}
	require.NotNil(t, forecast, "forecast table missing")
	assert.Len(t, forecast.Rows, 10)
}

func loansFrame(t *testing.T, n int) *dataset.Frame {
	t.Helper()
	rng := rand.New(rand.NewSource(11))
	income := make([]float64, n)
	debt := make([]float64, n)
	region := make([]string, n)
	approved := make([]string, n)
	regions := []string{"north", "south", "east"}
	for i := 0; i < n; i++ {
		income[i] = rng.NormFloat64()
		debt[i] = rng.NormFloat64()
		region[i] = regions[i%len(regions)]
		if income[i]-debt[i] > 0 {
			approved[i] = "yes"
		} else {
			approved[i] = "no"
		}
	}
	income[5] = math.NaN()
	region[9] = ""

	frame := dataset.NewFrame()
	require.NoError(t, frame.AddNumeric("income", income))
	require.NoError(t, frame.AddNumeric("debt", debt))
	require.NoError(t, frame.AddCategorical("region", region))
	require.NoError(t, frame.AddCategorical("approved", approved))
	return frame
}

func TestLoansBuilder(t *testing.T) {
	builder := NewLoansBuilder(testPipelineConfig(), nil)
	assert.Equal(t, "loans", builder.ID())

	r, err := builder.Build(context.Background(), loansFrame(t, 150))
	require.NoError(t, err)

	var comparison, holdout bool
	for _, tbl := range r.ExportTables() {
		switch tbl.ExportName {
		case "model_comparison":
			comparison = true
			assert.NotEmpty(t, tbl.Rows)
		case "holdout":
			holdout = true
		}
	}
	assert.True(t, comparison, "comparison table missing")
	assert.True(t, holdout, "holdout table missing")

	// The confusion matrix cells are the hold-out counts, so the four cells
	// must sum to the 20% test split of 150 rows.
	var cells int
	var found bool
	for _, sec := range r.Sections {
		for _, tbl := range sec.Tables {
			if tbl.Title != "Confusion matrix" {
				continue
			}
			found = true
			require.Len(t, tbl.Rows, 2)
			for _, row := range tbl.Rows {
				require.Len(t, row, 3)
				for _, cell := range row[1:] {
					n, err := strconv.Atoi(cell)
					require.NoError(t, err, "cell %q is not a count", cell)
					cells += n
				}
			}
		}
	}
	assert.True(t, found, "confusion matrix table missing")
	assert.Equal(t, 30, cells)
}

func insuranceFrame(t *testing.T, n int) *dataset.Frame {
	t.Helper()
	rng := rand.New(rand.NewSource(13))
	age := make([]float64, n)
	premium := make([]float64, n)
	amount := make([]float64, n)
	for i := 0; i < n; i++ {
		age[i] = 30 + rng.Float64()*40
		premium[i] = 200 + rng.Float64()*800
		if premium[i] > 600 || rng.Float64() < 0.2 {
			amount[i] = 100 + 3*age[i] + rng.NormFloat64()*10
		}
	}
	premium[4] = math.NaN()
	age[8] = math.NaN()

	frame := dataset.NewFrame()
	require.NoError(t, frame.AddNumeric("age", age))
	require.NoError(t, frame.AddNumeric("premium", premium))
	require.NoError(t, frame.AddNumeric("claim_amount", amount))
	return frame
}

func TestInsuranceBuilder(t *testing.T) {
	builder := NewInsuranceBuilder(testPipelineConfig(), nil)
	assert.Equal(t, "insurance", builder.ID())

	r, err := builder.Build(context.Background(), insuranceFrame(t, 200))
	require.NoError(t, err)

	names := map[string]bool{}
	for _, tbl := range r.ExportTables() {
		names[tbl.ExportName] = true
	}
	assert.True(t, names["severity_terms"])
	assert.True(t, names["severity"])
	assert.True(t, names["occurrence"])
}

func TestLookupBuilder(t *testing.T) {
	builders := Builders(testPipelineConfig(), nil)
	require.Len(t, builders, 3)

	b, err := LookupBuilder(builders, "loans")
	require.NoError(t, err)
	assert.Equal(t, "loans", b.ID())

	_, err = LookupBuilder(builders, "nope")
	assert.Error(t, err)
}
