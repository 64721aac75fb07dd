package model

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"
)

// StepwiseResult holds the model selected by bidirectional stepwise-AIC
// search over an OLS term pool.
type StepwiseResult struct {
	Selected     []string           `json:"selected"`
	Intercept    float64            `json:"intercept"`
	Coefficients map[string]float64 `json:"coefficients"`
	AIC          float64            `json:"aic"`
	Steps        int                `json:"steps"`

	names   []string
	indices map[string]int
}

// Stepwise selects a linear model for y over the named columns of X by
// bidirectional AIC search: starting from the intercept-only model, each step
// applies the single add or drop that lowers AIC the most, until no move
// improves it.
func Stepwise(ctx context.Context, X *mat.Dense, names []string, y []float64, logger *slog.Logger) (*StepwiseResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	n, d := X.Dims()
	if d != len(names) {
		return nil, fmt.Errorf("stepwise: %d columns vs %d names", d, len(names))
	}
	if n != len(y) {
		return nil, fmt.Errorf("stepwise: %d rows vs %d targets", n, len(y))
	}
	if n <= d+2 {
		return nil, fmt.Errorf("stepwise: %d rows for %d candidate terms", n, d)
	}

	indices := make(map[string]int, d)
	for i, name := range names {
		indices[name] = i
	}

	selected := map[string]bool{}
	bestAIC, _, err := fitSubset(X, y, nil, indices)
	if err != nil {
		return nil, fmt.Errorf("stepwise: intercept-only fit: %w", err)
	}

	steps := 0
	for {
		bestMove := ""
		bestMoveAIC := bestAIC
		adding := false

		for _, name := range names {
			var trial []string
			if selected[name] {
				trial = subsetWithout(names, selected, name)
			} else {
				trial = append(subsetOf(names, selected), name)
			}

			aic, _, err := fitSubset(X, y, trial, indices)
			if err != nil {
				continue // singular trial design, skip the move
			}
			if aic < bestMoveAIC-1e-9 {
				bestMoveAIC = aic
				bestMove = name
				adding = !selected[name]
			}
		}

		if bestMove == "" {
			break
		}
		selected[bestMove] = adding
		if !adding {
			delete(selected, bestMove)
		}
		bestAIC = bestMoveAIC
		steps++

		logger.DebugContext(ctx, "stepwise move",
			"term", bestMove, "added", adding, "aic", bestAIC)
	}

	final := subsetOf(names, selected)
	aic, coeffs, err := fitSubset(X, y, final, indices)
	if err != nil {
		return nil, fmt.Errorf("stepwise: final fit: %w", err)
	}

	result := &StepwiseResult{
		Selected:     final,
		Intercept:    coeffs[0],
		Coefficients: make(map[string]float64, len(final)),
		AIC:          aic,
		Steps:        steps,
		names:        final,
		indices:      indices,
	}
	for i, name := range final {
		result.Coefficients[name] = coeffs[i+1]
	}

	logger.InfoContext(ctx, "stepwise selection finished",
		"terms", len(final), "aic", aic, "steps", steps)
	return result, nil
}

// Predict evaluates the selected model on new rows of the full term matrix.
func (r *StepwiseResult) Predict(X *mat.Dense) ([]float64, error) {
	n, _ := X.Dims()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v := r.Intercept
		for _, name := range r.names {
			v += r.Coefficients[name] * X.At(i, r.indices[name])
		}
		out[i] = v
	}
	return out, nil
}

// fitSubset fits OLS on the chosen terms plus intercept and returns the AIC
// and coefficients (intercept first).
func fitSubset(X *mat.Dense, y []float64, terms []string, indices map[string]int) (float64, []float64, error) {
	n, _ := X.Dims()
	p := len(terms) + 1

	design := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		design.Set(i, 0, 1)
		for j, name := range terms {
			design.Set(i, j+1, X.At(i, indices[name]))
		}
	}
	target := mat.NewVecDense(n, y)

	var qr mat.QR
	qr.Factorize(design)
	coeffs := mat.NewVecDense(p, nil)
	if err := qr.SolveVecTo(coeffs, false, target); err != nil {
		return 0, nil, fmt.Errorf("solve ols: %w", err)
	}

	fitted := mat.NewVecDense(n, nil)
	fitted.MulVec(design, coeffs)

	rss := 0.0
	for i := 0; i < n; i++ {
		d := y[i] - fitted.AtVec(i)
		rss += d * d
	}
	if rss <= 0 {
		rss = 1e-12
	}

	// Gaussian log-likelihood AIC, as stepAIC computes it: the +2 counts the
	// error variance alongside the coefficients.
	aic := float64(n)*math.Log(rss/float64(n)) + 2*float64(p+1)

	out := make([]float64, p)
	for i := range out {
		out[i] = coeffs.AtVec(i)
	}
	return aic, out, nil
}

func subsetOf(names []string, selected map[string]bool) []string {
	var out []string
	for _, name := range names {
		if selected[name] {
			out = append(out, name)
		}
	}
	return out
}

func subsetWithout(names []string, selected map[string]bool, drop string) []string {
	var out []string
	for _, name := range names {
		if selected[name] && name != drop {
			out = append(out, name)
		}
	}
	return out
}
