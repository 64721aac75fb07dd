// Package model wraps the fitted estimators the reports compare: auto-ARIMA
// forecasting (goarima), KNN / decision tree / random forest (golearn), and
// the gonum-backed LDA, logistic and stepwise-OLS estimators.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Classifier is a binary classifier over a float feature matrix. Labels are
// 0/1 with 1 as the positive class.
type Classifier interface {
	Name() string
	Fit(X *mat.Dense, y []int) error
	Predict(X *mat.Dense) ([]int, error)
}

// Scorer is implemented by classifiers that can rank rows by a continuous
// score, enabling ROC/AUC.
type Scorer interface {
	Scores(X *mat.Dense) ([]float64, error)
}
