package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/mat"

	"insightcli/internal/config"
	"insightcli/internal/dataset"
	"insightcli/internal/impute"
	"insightcli/internal/metrics"
	"insightcli/internal/model"
	"insightcli/internal/split"
	"insightcli/internal/transform"
)

// InsuranceBuilder produces the claim severity and occurrence report.
type InsuranceBuilder struct {
	cfg    config.PipelineConfig
	logger *slog.Logger
}

// NewInsuranceBuilder creates the insurance report builder.
func NewInsuranceBuilder(cfg config.PipelineConfig, logger *slog.Logger) *InsuranceBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &InsuranceBuilder{cfg: cfg, logger: logger}
}

// ID implements Builder.
func (b *InsuranceBuilder) ID() string { return "insurance" }

// Build runs the two-part pipeline: chained-equations imputation, a
// stepwise-AIC linear model for claim amount over claimant rows, and a
// logistic model for claim occurrence over all rows.
func (b *InsuranceBuilder) Build(ctx context.Context, frame *dataset.Frame) (*Report, error) {
	r := &Report{
		ID:          b.ID(),
		Title:       "Insurance claims: severity and occurrence",
		GeneratedAt: time.Now().UTC(),
		Seed:        b.cfg.Seed,
		Rows:        frame.NumRows(),
	}

	const target = "claim_amount"

	var numericNames []string
	for _, col := range frame.Columns() {
		if col.Kind == dataset.Numeric {
			numericNames = append(numericNames, col.Name)
		}
	}
	if err := edaSection(ctx, r, frame, b.logger, numericNames...); err != nil {
		return nil, fmt.Errorf("insurance report: %w", err)
	}
	if len(numericNames) >= 2 {
		if tbl, err := correlationTable(frame, numericNames); err != nil {
			r.Warnf("correlation matrix skipped: %v", err)
		} else {
			last := &r.Sections[len(r.Sections)-1]
			last.Tables = append(last.Tables, tbl)
		}
	}

	complete, err := impute.Chained(frame, impute.DefaultChainedOptions())
	if err != nil {
		return nil, fmt.Errorf("insurance report: imputation: %w", err)
	}
	r.AddSection("Imputation",
		"Missing numeric values were filled by chained equations: starting from a "+
			"median fill, each incomplete column is repeatedly re-estimated by regressing "+
			"it on the other numeric columns until the filled values settle. Missing "+
			"categories were filled with the column mode.")

	amount, err := complete.Numeric(target)
	if err != nil {
		return nil, fmt.Errorf("insurance report: %w", err)
	}
	occurred := make([]int, len(amount))
	claimants := 0
	for i, v := range amount {
		if v > 0 {
			occurred[i] = 1
			claimants++
		}
	}

	X, names, err := buildFeatures(complete, r, target)
	if err != nil {
		return nil, fmt.Errorf("insurance report: %w", err)
	}

	n, _ := X.Dims()
	holdout, err := split.NewTrainTest(n, b.cfg.TestFraction, b.cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("insurance report: %w", err)
	}

	if err := b.severitySection(ctx, r, X, names, amount, occurred, holdout, claimants); err != nil {
		return nil, fmt.Errorf("insurance report: %w", err)
	}
	if err := b.occurrenceSection(ctx, r, X, occurred, holdout); err != nil {
		return nil, fmt.Errorf("insurance report: %w", err)
	}
	return r, nil
}

// severitySection fits the stepwise-AIC linear model for claim amount on the
// training claimants and scores it on the held-out claimants.
func (b *InsuranceBuilder) severitySection(ctx context.Context, r *Report, X *mat.Dense, names []string, amount []float64, occurred []int, holdout *split.TrainTest, claimants int) error {
	trainRows := claimantRows(holdout.Train, occurred)
	testRows := claimantRows(holdout.Test, occurred)
	if len(testRows) == 0 {
		return fmt.Errorf("severity model: no claimants in the hold-out rows")
	}

	result, err := model.Stepwise(ctx, rowsOf(X, trainRows), names, split.Gather(amount, trainRows), b.logger)
	if err != nil {
		return fmt.Errorf("severity model: %w", err)
	}

	predicted, err := result.Predict(rowsOf(X, testRows))
	if err != nil {
		return fmt.Errorf("severity model: %w", err)
	}
	actual := split.Gather(amount, testRows)

	rmse, err := metrics.RMSE(actual, predicted)
	if err != nil {
		return fmt.Errorf("severity model: %w", err)
	}
	mae, err := metrics.MAE(actual, predicted)
	if err != nil {
		return fmt.Errorf("severity model: %w", err)
	}
	r2, err := metrics.R2(actual, predicted)
	if err != nil {
		r.Warnf("severity R² unavailable: %v", err)
		r2 = 0
	}

	sec := r.AddSection("Claim severity",
		fmt.Sprintf("Claim amounts are modelled over the %d policies with a claim. "+
			"Starting from an intercept-only model, a bidirectional stepwise search kept "+
			"the %d of %d candidate terms that lower the AIC, stopping after %d moves at "+
			"an AIC of %.1f.", claimants, len(result.Selected), len(names), result.Steps, result.AIC))

	terms := Table{
		Title:      "Selected terms",
		Headers:    []string{"term", "coefficient"},
		ExportName: "severity_terms",
		Rows:       [][]string{{"(intercept)", fnum(result.Intercept)}},
	}
	for _, name := range result.Selected {
		terms.Rows = append(terms.Rows, []string{name, fnum(result.Coefficients[name])})
	}
	sec.Tables = append(sec.Tables, terms)

	sec.Tables = append(sec.Tables, Table{
		Title:      "Severity hold-out metrics",
		Headers:    []string{"metric", "value"},
		ExportName: "severity",
		Rows: [][]string{
			{"RMSE", fnum(rmse)},
			{"MAE", fnum(mae)},
			{"R²", fnum(r2)},
		},
	})

	b.logger.InfoContext(ctx, "severity model finished",
		"terms", len(result.Selected), "aic", result.AIC, "rmse", rmse)
	return nil
}

// occurrenceSection fits the logistic model for whether a policy claims at
// all, on standardised features.
func (b *InsuranceBuilder) occurrenceSection(ctx context.Context, r *Report, X *mat.Dense, occurred []int, holdout *split.TrainTest) error {
	scaled, _, err := transform.StandardScale(X)
	if err != nil {
		return fmt.Errorf("occurrence model: %w", err)
	}

	lr := model.NewLogistic()
	if err := lr.Fit(rowsOf(scaled, holdout.Train), gatherInts(occurred, holdout.Train)); err != nil {
		return fmt.Errorf("occurrence model: %w", err)
	}

	testX := rowsOf(scaled, holdout.Test)
	testY := gatherInts(occurred, holdout.Test)
	pred, err := lr.Predict(testX)
	if err != nil {
		return fmt.Errorf("occurrence model: %w", err)
	}
	cm, err := metrics.NewConfusionMatrix(testY, pred)
	if err != nil {
		return fmt.Errorf("occurrence model: %w", err)
	}

	sec := r.AddSection("Claim occurrence",
		fmt.Sprintf("A logistic regression over standardised features predicts whether a "+
			"policy claims at all, evaluated on the same %d held-out rows.", len(holdout.Test)))

	tbl := Table{
		Title:      "Occurrence hold-out metrics",
		Headers:    []string{"metric", "value"},
		ExportName: "occurrence",
		Rows: [][]string{
			{"accuracy", fpct(cm.Accuracy())},
			{"precision", fpct(cm.Precision())},
			{"recall", fpct(cm.Recall())},
		},
	}

	scores, err := lr.Scores(testX)
	if err != nil {
		return fmt.Errorf("occurrence model: %w", err)
	}
	if auc, err := metrics.AUC(scores, testY); err != nil {
		r.Warnf("occurrence ROC-AUC unavailable: %v", err)
	} else {
		tbl.Rows = append(tbl.Rows, []string{"roc auc", fnum(auc)})
	}

	sec.Tables = append(sec.Tables, tbl)
	b.logger.InfoContext(ctx, "occurrence model finished", "accuracy", cm.Accuracy())
	return nil
}

// claimantRows filters split indices down to rows with a claim.
func claimantRows(indices []int, occurred []int) []int {
	var out []int
	for _, idx := range indices {
		if occurred[idx] == 1 {
			out = append(out, idx)
		}
	}
	return out
}
