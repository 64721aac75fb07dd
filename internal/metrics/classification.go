package metrics

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// ConfusionMatrix holds binary classification counts with the positive class
// fixed by the caller.
type ConfusionMatrix struct {
	TruePositive  int `json:"true_positive"`
	TrueNegative  int `json:"true_negative"`
	FalsePositive int `json:"false_positive"`
	FalseNegative int `json:"false_negative"`
}

// NewConfusionMatrix counts binary outcomes; actual and predicted hold 0/1
// labels with 1 as the positive class.
func NewConfusionMatrix(actual, predicted []int) (*ConfusionMatrix, error) {
	if len(actual) == 0 || len(actual) != len(predicted) {
		return nil, fmt.Errorf("confusion matrix: length mismatch: %d vs %d", len(actual), len(predicted))
	}

	cm := &ConfusionMatrix{}
	for i := range actual {
		switch {
		case actual[i] == 1 && predicted[i] == 1:
			cm.TruePositive++
		case actual[i] == 0 && predicted[i] == 0:
			cm.TrueNegative++
		case actual[i] == 0 && predicted[i] == 1:
			cm.FalsePositive++
		default:
			cm.FalseNegative++
		}
	}
	return cm, nil
}

// Accuracy is the fraction of correct predictions.
func (cm *ConfusionMatrix) Accuracy() float64 {
	total := cm.TruePositive + cm.TrueNegative + cm.FalsePositive + cm.FalseNegative
	if total == 0 {
		return 0
	}
	return float64(cm.TruePositive+cm.TrueNegative) / float64(total)
}

// Precision is TP / (TP + FP).
func (cm *ConfusionMatrix) Precision() float64 {
	denom := cm.TruePositive + cm.FalsePositive
	if denom == 0 {
		return 0
	}
	return float64(cm.TruePositive) / float64(denom)
}

// Recall is TP / (TP + FN).
func (cm *ConfusionMatrix) Recall() float64 {
	denom := cm.TruePositive + cm.FalseNegative
	if denom == 0 {
		return 0
	}
	return float64(cm.TruePositive) / float64(denom)
}

// F1 is the harmonic mean of precision and recall.
func (cm *ConfusionMatrix) F1() float64 {
	p, r := cm.Precision(), cm.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// AUC computes the area under the ROC curve from scores and binary labels,
// delegating to gonum's ROC. Labels hold 0/1 with 1 positive.
func AUC(scores []float64, labels []int) (float64, error) {
	if len(scores) == 0 || len(scores) != len(labels) {
		return 0, fmt.Errorf("auc: length mismatch: %d vs %d", len(scores), len(labels))
	}

	pos, neg := 0, 0
	for _, l := range labels {
		if l == 1 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return 0, fmt.Errorf("auc: need both classes, got %d positive / %d negative", pos, neg)
	}

	// gonum's stat.ROC requires scores sorted ascending with aligned classes.
	type pair struct {
		score float64
		pos   bool
	}
	pairs := make([]pair, len(scores))
	for i := range scores {
		pairs[i] = pair{scores[i], labels[i] == 1}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].score < pairs[j].score })

	y := make([]float64, len(pairs))
	classes := make([]bool, len(pairs))
	for i, p := range pairs {
		y[i] = p.score
		classes[i] = p.pos
	}

	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	return integrate.Trapezoidal(fpr, tpr), nil
}
