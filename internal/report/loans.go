package report

import (
	"context"
	"fmt"
	"log/slog"
	"math"
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

// LoansBuilder produces the loan-approval classification report.
type LoansBuilder struct {
	cfg    config.PipelineConfig
	logger *slog.Logger
}

// NewLoansBuilder creates the loans report builder.
func NewLoansBuilder(cfg config.PipelineConfig, logger *slog.Logger) *LoansBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoansBuilder{cfg: cfg, logger: logger}
}

// ID implements Builder.
func (b *LoansBuilder) ID() string { return "loans" }

// Build runs the classification pipeline: EDA, median/mode imputation,
// encoding and scaling, a k-fold comparison of five classifiers over
// identical folds, then a hold-out evaluation of the winner.
func (b *LoansBuilder) Build(ctx context.Context, frame *dataset.Frame) (*Report, error) {
	r := &Report{
		ID:          b.ID(),
		Title:       "Loan approval: classifier comparison",
		GeneratedAt: time.Now().UTC(),
		Seed:        b.cfg.Seed,
		Rows:        frame.NumRows(),
	}

	const target = "approved"

	var numericNames []string
	for _, col := range frame.Columns() {
		if col.Kind == dataset.Numeric && col.Name != target {
			numericNames = append(numericNames, col.Name)
		}
	}
	if err := edaSection(ctx, r, frame, b.logger, numericNames...); err != nil {
		return nil, fmt.Errorf("loans report: %w", err)
	}

	complete, err := impute.Median(frame)
	if err != nil {
		return nil, fmt.Errorf("loans report: imputation: %w", err)
	}

	y, positive, err := binaryTarget(complete, target)
	if err != nil {
		return nil, fmt.Errorf("loans report: %w", err)
	}
	X, names, err := buildFeatures(complete, r, target)
	if err != nil {
		return nil, fmt.Errorf("loans report: %w", err)
	}
	scaled, _, err := transform.StandardScale(X)
	if err != nil {
		return nil, fmt.Errorf("loans report: scaling: %w", err)
	}

	r.AddSection("Preparation",
		fmt.Sprintf("Missing numeric values were filled with column medians and missing "+
			"categories with the column mode. Categorical features were one-hot encoded "+
			"(reference level dropped) and all %d features were standardised to zero mean "+
			"and unit variance. The positive class is %q.", len(names), positive))

	candidates := b.candidates(len(names))

	best, err := b.comparisonSection(ctx, r, scaled, y, candidates)
	if err != nil {
		return nil, fmt.Errorf("loans report: %w", err)
	}

	if err := b.holdoutSection(ctx, r, scaled, y, best); err != nil {
		return nil, fmt.Errorf("loans report: %w", err)
	}
	return r, nil
}

// candidates returns the classifier lineup compared by the report.
func (b *LoansBuilder) candidates(features int) []model.Classifier {
	mtry := int(math.Sqrt(float64(features)))
	if mtry < 1 {
		mtry = 1
	}
	return []model.Classifier{
		model.NewLDA(),
		model.NewLogistic(),
		model.NewKNN(5),
		model.NewTree(0.6),
		model.NewForest(50, mtry),
	}
}

// comparisonSection cross-validates every candidate over identical folds and
// returns the classifier with the best mean accuracy.
func (b *LoansBuilder) comparisonSection(ctx context.Context, r *Report, X *mat.Dense, y []int, candidates []model.Classifier) (model.Classifier, error) {
	n, _ := X.Dims()
	folds, err := split.NewKFold(n, b.cfg.Folds, b.cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("comparison: %w", err)
	}

	sec := r.AddSection("Model comparison",
		fmt.Sprintf("Each classifier was scored by %d-fold cross-validation on the same "+
			"seeded folds, so the accuracies below are directly comparable.", len(folds)))

	tbl := Table{
		Title:      "Cross-validated accuracy",
		Headers:    []string{"model", "mean accuracy", "worst fold", "best fold"},
		ExportName: "model_comparison",
	}

	var best model.Classifier
	bestAcc := math.Inf(-1)
	for _, cand := range candidates {
		mean, lo, hi, err := crossValidate(cand, X, y, folds)
		if err != nil {
			r.Warnf("model %s excluded from the comparison: %v", cand.Name(), err)
			b.logger.WarnContext(ctx, "classifier fold evaluation failed",
				"model", cand.Name(), "error", err)
			continue
		}
		tbl.Rows = append(tbl.Rows, []string{cand.Name(), fpct(mean), fpct(lo), fpct(hi)})
		if mean > bestAcc {
			bestAcc = mean
			best = cand
		}
	}
	if best == nil {
		return nil, fmt.Errorf("comparison: every candidate failed")
	}

	sec.Tables = append(sec.Tables, tbl)
	sec.Narrative = append(sec.Narrative,
		fmt.Sprintf("%s leads with a mean accuracy of %s.", best.Name(), fpct(bestAcc)))

	b.logger.InfoContext(ctx, "classifier comparison finished",
		"best", best.Name(), "accuracy", bestAcc, "folds", len(folds))
	return best, nil
}

// crossValidate returns mean, worst and best fold accuracy for one model.
func crossValidate(cls model.Classifier, X *mat.Dense, y []int, folds []split.Fold) (mean, lo, hi float64, err error) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for i, fold := range folds {
		if err := cls.Fit(rowsOf(X, fold.Train), gatherInts(y, fold.Train)); err != nil {
			return 0, 0, 0, fmt.Errorf("fold %d fit: %w", i, err)
		}
		pred, err := cls.Predict(rowsOf(X, fold.Test))
		if err != nil {
			return 0, 0, 0, fmt.Errorf("fold %d predict: %w", i, err)
		}
		cm, err := metrics.NewConfusionMatrix(gatherInts(y, fold.Test), pred)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("fold %d score: %w", i, err)
		}
		acc := cm.Accuracy()
		mean += acc
		lo = math.Min(lo, acc)
		hi = math.Max(hi, acc)
	}
	return mean / float64(len(folds)), lo, hi, nil
}

// holdoutSection refits the winning classifier on a seeded train split and
// reports the confusion matrix (and ROC-AUC where the model scores) on the
// held-out rows.
func (b *LoansBuilder) holdoutSection(ctx context.Context, r *Report, X *mat.Dense, y []int, best model.Classifier) error {
	n, _ := X.Dims()
	holdout, err := split.NewTrainTest(n, b.cfg.TestFraction, b.cfg.Seed)
	if err != nil {
		return fmt.Errorf("holdout: %w", err)
	}

	if err := best.Fit(rowsOf(X, holdout.Train), gatherInts(y, holdout.Train)); err != nil {
		return fmt.Errorf("holdout: fit %s: %w", best.Name(), err)
	}
	testX := rowsOf(X, holdout.Test)
	testY := gatherInts(y, holdout.Test)

	pred, err := best.Predict(testX)
	if err != nil {
		return fmt.Errorf("holdout: predict %s: %w", best.Name(), err)
	}
	cm, err := metrics.NewConfusionMatrix(testY, pred)
	if err != nil {
		return fmt.Errorf("holdout: %w", err)
	}

	sec := r.AddSection("Hold-out evaluation",
		fmt.Sprintf("%s, refit on %d training rows and evaluated on the %d held-out rows.",
			best.Name(), len(holdout.Train), len(holdout.Test)))

	sec.Tables = append(sec.Tables, Table{
		Title:   "Confusion matrix",
		Headers: []string{"", "predicted 0", "predicted 1"},
		Rows: [][]string{
			{"actual 0", fmt.Sprint(cm.TrueNegative), fmt.Sprint(cm.FalsePositive)},
			{"actual 1", fmt.Sprint(cm.FalseNegative), fmt.Sprint(cm.TruePositive)},
		},
	})

	summary := Table{
		Title:      "Hold-out metrics",
		Headers:    []string{"metric", "value"},
		ExportName: "holdout",
		Rows: [][]string{
			{"model", best.Name()},
			{"accuracy", fpct(cm.Accuracy())},
			{"precision", fpct(cm.Precision())},
			{"recall", fpct(cm.Recall())},
			{"f1", fpct(cm.F1())},
		},
	}

	if scorer, ok := best.(model.Scorer); ok {
		scores, err := scorer.Scores(testX)
		if err != nil {
			return fmt.Errorf("holdout: scores %s: %w", best.Name(), err)
		}
		auc, err := metrics.AUC(scores, testY)
		if err != nil {
			r.Warnf("ROC-AUC unavailable for %s: %v", best.Name(), err)
		} else {
			summary.Rows = append(summary.Rows, []string{"roc auc", fnum(auc)})
		}
	} else {
		r.Warnf("%s produces hard labels only, ROC-AUC is not reported", best.Name())
	}

	sec.Tables = append(sec.Tables, summary)
	b.logger.InfoContext(ctx, "holdout evaluation finished",
		"model", best.Name(), "accuracy", cm.Accuracy())
	return nil
}
