// Package split produces deterministic train/test and k-fold partitions.
// All splits are driven by an explicit seed so report runs are reproducible.
package split

import (
	"fmt"
	"math/rand"
)

// TrainTest holds row indices for a single hold-out split.
type TrainTest struct {
	Train []int
	Test  []int
}

// Fold holds row indices for one cross-validation fold.
type Fold struct {
	Train []int
	Test  []int
}

// NewTrainTest shuffles n rows with the given seed and holds out testFraction
// of them.
func NewTrainTest(n int, testFraction float64, seed int64) (*TrainTest, error) {
	if n < 2 {
		return nil, fmt.Errorf("split: need at least 2 rows, got %d", n)
	}
	if testFraction <= 0 || testFraction >= 1 {
		return nil, fmt.Errorf("split: test fraction must be in (0, 1): %f", testFraction)
	}

	nTest := int(float64(n) * testFraction)
	if nTest == 0 {
		nTest = 1
	}
	if nTest == n {
		nTest = n - 1
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return &TrainTest{
		Test:  append([]int(nil), perm[:nTest]...),
		Train: append([]int(nil), perm[nTest:]...),
	}, nil
}

// NewKFold partitions n rows into k folds after a seeded shuffle. Every row
// appears in exactly one test set.
func NewKFold(n, k int, seed int64) ([]Fold, error) {
	if k < 2 {
		return nil, fmt.Errorf("split: need at least 2 folds, got %d", k)
	}
	if n < k {
		return nil, fmt.Errorf("split: %d rows cannot fill %d folds", n, k)
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	buckets := make([][]int, k)
	for i, idx := range perm {
		buckets[i%k] = append(buckets[i%k], idx)
	}

	folds := make([]Fold, k)
	for i := range buckets {
		var train []int
		for j := range buckets {
			if j != i {
				train = append(train, buckets[j]...)
			}
		}
		folds[i] = Fold{Train: train, Test: buckets[i]}
	}
	return folds, nil
}

// HoldTail splits a series chronologically: the last h points become the
// hold-out. Used by the forecast report, where shuffling would leak.
func HoldTail(n, h int) (*TrainTest, error) {
	if h <= 0 || h >= n {
		return nil, fmt.Errorf("split: hold-out %d out of range for %d rows", h, n)
	}
	tt := &TrainTest{
		Train: make([]int, n-h),
		Test:  make([]int, h),
	}
	for i := 0; i < n-h; i++ {
		tt.Train[i] = i
	}
	for i := 0; i < h; i++ {
		tt.Test[i] = n - h + i
	}
	return tt, nil
}

// Gather selects the values at the given indices.
func Gather(values []float64, indices []int) []float64 {
	out := make([]float64, len(indices))
	for i, idx := range indices {
		out[i] = values[idx]
	}
	return out
}

// GatherLabels selects the labels at the given indices.
func GatherLabels(values []string, indices []int) []string {
	out := make([]string, len(indices))
	for i, idx := range indices {
		out[i] = values[idx]
	}
	return out
}
