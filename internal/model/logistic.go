package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Logistic is a binary logistic regression fitted by iteratively reweighted
// least squares. A small ridge term keeps the weighted normal equations
// solvable under separation.
type Logistic struct {
	MaxIterations int
	Tolerance     float64

	beta   *mat.VecDense // intercept first
	fitted bool
}

// NewLogistic creates an unfitted model with the default IRLS settings.
func NewLogistic() *Logistic {
	return &Logistic{MaxIterations: 50, Tolerance: 1e-8}
}

// Name implements Classifier.
func (l *Logistic) Name() string { return "logistic" }

// Fit estimates coefficients by IRLS.
func (l *Logistic) Fit(X *mat.Dense, y []int) error {
	n, d := X.Dims()
	if n != len(y) {
		return fmt.Errorf("logistic fit: %d rows vs %d labels", n, len(y))
	}
	if n <= d+1 {
		return fmt.Errorf("logistic fit: %d rows for %d features", n, d)
	}

	design := withIntercept(X)
	p := d + 1
	beta := mat.NewVecDense(p, nil)

	yVec := mat.NewVecDense(n, nil)
	for i, label := range y {
		if label != 0 && label != 1 {
			return fmt.Errorf("logistic fit: label %d at row %d, want 0 or 1", label, i)
		}
		yVec.SetVec(i, float64(label))
	}

	eta := mat.NewVecDense(n, nil)
	for iter := 0; iter < l.MaxIterations; iter++ {
		eta.MulVec(design, beta)

		// Gradient X^T (y - p) and weighted Hessian X^T W X.
		grad := mat.NewVecDense(p, nil)
		hess := mat.NewDense(p, p, nil)
		for i := 0; i < n; i++ {
			mu := sigmoid(eta.AtVec(i))
			w := mu * (1 - mu)
			if w < 1e-10 {
				w = 1e-10
			}
			resid := yVec.AtVec(i) - mu
			for a := 0; a < p; a++ {
				xa := design.At(i, a)
				grad.SetVec(a, grad.AtVec(a)+xa*resid)
				for b := 0; b < p; b++ {
					hess.Set(a, b, hess.At(a, b)+w*xa*design.At(i, b))
				}
			}
		}
		for a := 0; a < p; a++ {
			hess.Set(a, a, hess.At(a, a)+1e-8)
		}

		var lu mat.LU
		lu.Factorize(hess)
		step := mat.NewVecDense(p, nil)
		if err := lu.SolveVecTo(step, false, grad); err != nil {
			return fmt.Errorf("logistic fit: IRLS step: %w", err)
		}
		beta.AddVec(beta, step)

		if mat.Norm(step, 2) < l.Tolerance {
			break
		}
	}

	l.beta = beta
	l.fitted = true
	return nil
}

// Probabilities returns P(y=1) per row.
func (l *Logistic) Probabilities(X *mat.Dense) ([]float64, error) {
	if !l.fitted {
		return nil, fmt.Errorf("logistic: not fitted")
	}
	n, d := X.Dims()
	if d+1 != l.beta.Len() {
		return nil, fmt.Errorf("logistic: %d features, model has %d", d, l.beta.Len()-1)
	}

	design := withIntercept(X)
	eta := mat.NewVecDense(n, nil)
	eta.MulVec(design, l.beta)

	out := make([]float64, n)
	for i := range out {
		out[i] = sigmoid(eta.AtVec(i))
	}
	return out, nil
}

// Scores implements Scorer with the predicted probability.
func (l *Logistic) Scores(X *mat.Dense) ([]float64, error) {
	return l.Probabilities(X)
}

// Predict classifies at the 0.5 probability threshold.
func (l *Logistic) Predict(X *mat.Dense) ([]int, error) {
	probs, err := l.Probabilities(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(probs))
	for i, p := range probs {
		if p >= 0.5 {
			out[i] = 1
		}
	}
	return out, nil
}

// Coefficients returns the fitted coefficients, intercept first.
func (l *Logistic) Coefficients() ([]float64, error) {
	if !l.fitted {
		return nil, fmt.Errorf("logistic: not fitted")
	}
	out := make([]float64, l.beta.Len())
	for i := range out {
		out[i] = l.beta.AtVec(i)
	}
	return out, nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func withIntercept(X *mat.Dense) *mat.Dense {
	n, d := X.Dims()
	out := mat.NewDense(n, d+1, nil)
	for i := 0; i < n; i++ {
		out.Set(i, 0, 1)
		for j := 0; j < d; j++ {
			out.Set(i, j+1, X.At(i, j))
		}
	}
	return out
}
