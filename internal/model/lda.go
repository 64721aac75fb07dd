package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// LDA is a two-class Fisher linear discriminant. The discriminant direction
// solves Sw w = (mu1 - mu0) with the pooled within-class covariance Sw; the
// decision threshold sits at the midpoint of the projected class means,
// shifted by the log prior ratio.
type LDA struct {
	w         *mat.VecDense
	threshold float64
	fitted    bool
}

// NewLDA creates an unfitted discriminant.
func NewLDA() *LDA { return &LDA{} }

// Name implements Classifier.
func (l *LDA) Name() string { return "lda" }

// Fit estimates the discriminant from labelled rows.
func (l *LDA) Fit(X *mat.Dense, y []int) error {
	n, d := X.Dims()
	if n != len(y) {
		return fmt.Errorf("lda fit: %d rows vs %d labels", n, len(y))
	}

	var rows0, rows1 []int
	for i, label := range y {
		switch label {
		case 0:
			rows0 = append(rows0, i)
		case 1:
			rows1 = append(rows1, i)
		default:
			return fmt.Errorf("lda fit: label %d at row %d, want 0 or 1", label, i)
		}
	}
	if len(rows0) < 2 || len(rows1) < 2 {
		return fmt.Errorf("lda fit: need at least 2 rows per class, got %d/%d", len(rows0), len(rows1))
	}

	mu0 := classMean(X, rows0, d)
	mu1 := classMean(X, rows1, d)

	// Pooled within-class scatter, ridge-stabilised.
	sw := mat.NewDense(d, d, nil)
	accumulateScatter(sw, X, rows0, mu0)
	accumulateScatter(sw, X, rows1, mu1)
	scale := 1 / float64(len(rows0)+len(rows1)-2)
	sw.Scale(scale, sw)
	for j := 0; j < d; j++ {
		sw.Set(j, j, sw.At(j, j)+1e-6)
	}

	diff := mat.NewVecDense(d, nil)
	diff.SubVec(mu1, mu0)

	var lu mat.LU
	lu.Factorize(sw)
	w := mat.NewVecDense(d, nil)
	if err := lu.SolveVecTo(w, false, diff); err != nil {
		return fmt.Errorf("lda fit: solve scatter system: %w", err)
	}

	proj0 := mat.Dot(w, mu0)
	proj1 := mat.Dot(w, mu1)
	prior := math.Log(float64(len(rows1)) / float64(len(rows0)))

	l.w = w
	l.threshold = (proj0+proj1)/2 - prior
	l.fitted = true
	return nil
}

// Predict classifies rows as 0/1.
func (l *LDA) Predict(X *mat.Dense) ([]int, error) {
	scores, err := l.Scores(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(scores))
	for i, s := range scores {
		if s > 0 {
			out[i] = 1
		}
	}
	return out, nil
}

// Scores returns the signed distance of each row from the decision boundary.
func (l *LDA) Scores(X *mat.Dense) ([]float64, error) {
	if !l.fitted {
		return nil, fmt.Errorf("lda: not fitted")
	}
	n, d := X.Dims()
	if d != l.w.Len() {
		return nil, fmt.Errorf("lda: %d features, model has %d", d, l.w.Len())
	}

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = mat.Dot(l.w, X.RowView(i)) - l.threshold
	}
	return out, nil
}

func classMean(X *mat.Dense, rows []int, d int) *mat.VecDense {
	mu := mat.NewVecDense(d, nil)
	for _, r := range rows {
		mu.AddVec(mu, X.RowView(r))
	}
	mu.ScaleVec(1/float64(len(rows)), mu)
	return mu
}

func accumulateScatter(dst *mat.Dense, X *mat.Dense, rows []int, mu *mat.VecDense) {
	d := mu.Len()
	centered := mat.NewVecDense(d, nil)
	for _, r := range rows {
		centered.SubVec(X.RowView(r), mu)
		for i := 0; i < d; i++ {
			for j := 0; j < d; j++ {
				dst.Set(i, j, dst.At(i, j)+centered.AtVec(i)*centered.AtVec(j))
			}
		}
	}
}
