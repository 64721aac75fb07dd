package model

import (
	"fmt"
	"strconv"

	"github.com/sjwhitworth/golearn/base"
	"github.com/sjwhitworth/golearn/ensemble"
	"github.com/sjwhitworth/golearn/filters"
	"github.com/sjwhitworth/golearn/knn"
	"github.com/sjwhitworth/golearn/trees"
	"gonum.org/v1/gonum/mat"
)

// KNN wraps golearn's k-nearest-neighbour classifier.
type KNN struct {
	K   int
	cls *knn.KNNClassifier
}

// NewKNN creates a KNN classifier with k neighbours.
func NewKNN(k int) *KNN { return &KNN{K: k} }

// Name implements Classifier.
func (m *KNN) Name() string { return fmt.Sprintf("knn-%d", m.K) }

// Fit trains on the labelled rows.
func (m *KNN) Fit(X *mat.Dense, y []int) error {
	inst, err := instancesFrom(X, y)
	if err != nil {
		return fmt.Errorf("knn fit: %w", err)
	}
	cls := knn.NewKnnClassifier("euclidean", "linear", m.K)
	if err := cls.Fit(inst); err != nil {
		return fmt.Errorf("knn fit: %w", err)
	}
	m.cls = cls
	return nil
}

// Predict classifies new rows.
func (m *KNN) Predict(X *mat.Dense) ([]int, error) {
	if m.cls == nil {
		return nil, fmt.Errorf("knn: not fitted")
	}
	inst, err := instancesFrom(X, nil)
	if err != nil {
		return nil, fmt.Errorf("knn predict: %w", err)
	}
	pred, err := m.cls.Predict(inst)
	if err != nil {
		return nil, fmt.Errorf("knn predict: %w", err)
	}
	return labelsFrom(pred)
}

// Tree wraps golearn's ID3 decision tree. Float features are discretised
// with a Chi-Merge filter before training, as ID3 requires categorical
// attributes.
type Tree struct {
	PruneSplit float64
	tree       *trees.ID3DecisionTree
	filter     *filters.ChiMergeFilter
}

// NewTree creates an ID3 tree with the given train/prune split.
func NewTree(pruneSplit float64) *Tree { return &Tree{PruneSplit: pruneSplit} }

// Name implements Classifier.
func (m *Tree) Name() string { return "decision-tree" }

// Fit trains on the labelled rows.
func (m *Tree) Fit(X *mat.Dense, y []int) error {
	inst, filt, err := discretisedInstances(X, y)
	if err != nil {
		return fmt.Errorf("tree fit: %w", err)
	}
	tree := trees.NewID3DecisionTree(m.PruneSplit)
	if err := tree.Fit(inst); err != nil {
		return fmt.Errorf("tree fit: %w", err)
	}
	m.tree = tree
	m.filter = filt
	return nil
}

// Predict classifies new rows through the training-time discretisation.
func (m *Tree) Predict(X *mat.Dense) ([]int, error) {
	if m.tree == nil {
		return nil, fmt.Errorf("tree: not fitted")
	}
	inst, err := instancesFrom(X, nil)
	if err != nil {
		return nil, fmt.Errorf("tree predict: %w", err)
	}
	pred, err := m.tree.Predict(base.NewLazilyFilteredInstances(inst, m.filter))
	if err != nil {
		return nil, fmt.Errorf("tree predict: %w", err)
	}
	return labelsFrom(pred)
}

// Forest wraps golearn's random forest over discretised features.
type Forest struct {
	Size     int
	Features int
	forest   *ensemble.RandomForest
	filter   *filters.ChiMergeFilter
}

// NewForest creates a random forest with size trees over the given number of
// candidate features per split.
func NewForest(size, features int) *Forest {
	return &Forest{Size: size, Features: features}
}

// Name implements Classifier.
func (m *Forest) Name() string { return fmt.Sprintf("random-forest-%d", m.Size) }

// Fit trains on the labelled rows.
func (m *Forest) Fit(X *mat.Dense, y []int) error {
	_, d := X.Dims()
	features := m.Features
	if features > d {
		features = d
	}

	inst, filt, err := discretisedInstances(X, y)
	if err != nil {
		return fmt.Errorf("forest fit: %w", err)
	}
	forest := ensemble.NewRandomForest(m.Size, features)
	if err := forest.Fit(inst); err != nil {
		return fmt.Errorf("forest fit: %w", err)
	}
	m.forest = forest
	m.filter = filt
	return nil
}

// Predict classifies new rows through the training-time discretisation.
func (m *Forest) Predict(X *mat.Dense) ([]int, error) {
	if m.forest == nil {
		return nil, fmt.Errorf("forest: not fitted")
	}
	inst, err := instancesFrom(X, nil)
	if err != nil {
		return nil, fmt.Errorf("forest predict: %w", err)
	}
	pred, err := m.forest.Predict(base.NewLazilyFilteredInstances(inst, m.filter))
	if err != nil {
		return nil, fmt.Errorf("forest predict: %w", err)
	}
	return labelsFrom(pred)
}

// instancesFrom packs a float matrix and 0/1 labels into golearn instances.
// A nil label slice marks prediction input; the class column is filled with
// zeros and ignored by the classifiers.
func instancesFrom(X *mat.Dense, y []int) (*base.DenseInstances, error) {
	n, d := X.Dims()
	if y != nil && len(y) != n {
		return nil, fmt.Errorf("instances: %d rows vs %d labels", n, len(y))
	}

	inst := base.NewDenseInstances()
	specs := make([]base.AttributeSpec, d)
	for j := 0; j < d; j++ {
		specs[j] = inst.AddAttribute(base.NewFloatAttribute(fmt.Sprintf("f%d", j)))
	}

	classAttr := base.NewCategoricalAttribute()
	classAttr.SetName("class")
	// Register both levels up front so train and test share the mapping.
	classAttr.GetSysValFromString("0")
	classAttr.GetSysValFromString("1")
	classSpec := inst.AddAttribute(classAttr)
	if err := inst.AddClassAttribute(classAttr); err != nil {
		return nil, fmt.Errorf("instances: add class attribute: %w", err)
	}

	if err := inst.Extend(n); err != nil {
		return nil, fmt.Errorf("instances: extend to %d rows: %w", n, err)
	}

	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			inst.Set(specs[j], i, base.PackFloatToBytes(X.At(i, j)))
		}
		label := 0
		if y != nil {
			if y[i] != 0 && y[i] != 1 {
				return nil, fmt.Errorf("instances: label %d at row %d, want 0 or 1", y[i], i)
			}
			label = y[i]
		}
		inst.Set(classSpec, i, classAttr.GetSysValFromString(strconv.Itoa(label)))
	}

	return inst, nil
}

// discretisedInstances builds instances and a trained Chi-Merge filter over
// the float attributes.
func discretisedInstances(X *mat.Dense, y []int) (base.FixedDataGrid, *filters.ChiMergeFilter, error) {
	inst, err := instancesFrom(X, y)
	if err != nil {
		return nil, nil, err
	}

	filt := filters.NewChiMergeFilter(inst, 0.999)
	for _, attr := range base.NonClassFloatAttributes(inst) {
		filt.AddAttribute(attr)
	}
	if err := filt.Train(); err != nil {
		return nil, nil, fmt.Errorf("discretise: %w", err)
	}

	return base.NewLazilyFilteredInstances(inst, filt), filt, nil
}

// labelsFrom converts a prediction grid back into 0/1 labels.
func labelsFrom(pred base.FixedDataGrid) ([]int, error) {
	_, n := pred.Size()
	out := make([]int, n)
	for i := 0; i < n; i++ {
		label, err := strconv.Atoi(base.GetClass(pred, i))
		if err != nil {
			return nil, fmt.Errorf("labels: row %d: %w", i, err)
		}
		out[i] = label
	}
	return out, nil
}
