package report

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"insightcli/internal/config"
	"insightcli/internal/dataset"
	"insightcli/internal/impute"
	"insightcli/internal/metrics"
	"insightcli/internal/model"
	"insightcli/internal/split"
	"insightcli/internal/transform"
)

// boxCoxIdentityBand is how close the fitted lambda must be to 1 before the
// power transform is skipped as a no-op.
const boxCoxIdentityBand = 0.05

// StocksBuilder produces the daily close-price forecasting report.
type StocksBuilder struct {
	cfg    config.PipelineConfig
	logger *slog.Logger
}

// NewStocksBuilder creates the stocks report builder.
func NewStocksBuilder(cfg config.PipelineConfig, logger *slog.Logger) *StocksBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &StocksBuilder{cfg: cfg, logger: logger}
}

// ID implements Builder.
func (b *StocksBuilder) ID() string { return "stocks" }

// Build runs the full time-series pipeline: EDA, Kalman gap imputation,
// Box-Cox, hold-out backtest of the auto-ARIMA fit, then a refit on the full
// series for the published forecast.
func (b *StocksBuilder) Build(ctx context.Context, frame *dataset.Frame) (*Report, error) {
	r := &Report{
		ID:          b.ID(),
		Title:       "Daily close price: forecast report",
		GeneratedAt: time.Now().UTC(),
		Seed:        b.cfg.Seed,
		Rows:        frame.NumRows(),
	}

	if err := edaSection(ctx, r, frame, b.logger, "close"); err != nil {
		return nil, fmt.Errorf("stocks report: %w", err)
	}

	raw, err := frame.Numeric("close")
	if err != nil {
		return nil, fmt.Errorf("stocks report: %w", err)
	}
	dates, err := frame.Labels("date")
	if err != nil {
		r.Warnf("no date column found, observations are indexed by position")
		dates = nil
	}

	series, gaps, err := b.imputeSection(r, raw)
	if err != nil {
		return nil, fmt.Errorf("stocks report: %w", err)
	}
	b.logger.InfoContext(ctx, "stock series imputed", "rows", len(series), "gaps", gaps)

	working, lambda := b.powerTransform(r, series)

	horizon := b.cfg.ForecastDays
	if max := len(series) / 4; horizon > max {
		r.Warnf("forecast horizon reduced from %d to %d days, the series only has %d observations",
			horizon, max, len(series))
		horizon = max
	}
	if horizon < 1 {
		return nil, fmt.Errorf("stocks report: series too short for a forecast (%d rows)", len(series))
	}

	holdout, err := split.HoldTail(len(working), horizon)
	if err != nil {
		return nil, fmt.Errorf("stocks report: %w", err)
	}

	backtest, err := model.FitForecast(ctx, split.Gather(working, holdout.Train), horizon, model.DefaultForecastConfig(), b.logger)
	if err != nil {
		return nil, fmt.Errorf("stocks report: backtest fit: %w", err)
	}
	predicted := backTransform(backtest.Forecast, lambda)
	actual := split.Gather(series, holdout.Test)

	if err := b.accuracySection(r, backtest, actual, predicted, horizon); err != nil {
		return nil, fmt.Errorf("stocks report: %w", err)
	}

	final, err := model.FitForecast(ctx, working, horizon, model.DefaultForecastConfig(), b.logger)
	if err != nil {
		return nil, fmt.Errorf("stocks report: final fit: %w", err)
	}
	b.forecastSection(r, series, backTransform(final.Forecast, lambda), dates)

	return r, nil
}

// imputeSection fills series gaps with the Kalman smoother and documents the
// result. It returns the completed series and the gap count.
func (b *StocksBuilder) imputeSection(r *Report, raw []float64) ([]float64, int, error) {
	gaps := 0
	for _, v := range raw {
		if math.IsNaN(v) {
			gaps++
		}
	}

	series := raw
	if gaps > 0 {
		var err error
		series, err = impute.Kalman(raw, impute.DefaultKalmanOptions())
		if err != nil {
			return nil, 0, fmt.Errorf("kalman imputation: %w", err)
		}
	}

	sec := r.AddSection("Gap imputation",
		fmt.Sprintf("%d of %d observations were missing and have been filled with a "+
			"local-level Kalman smoother, which interpolates along the level of the series "+
			"rather than with a flat median. Observed values are kept untouched.",
			gaps, len(raw)))
	sec.Sparklines = append(sec.Sparklines,
		Sparkline{Title: "Close price, gaps visible", Values: raw},
		Sparkline{Title: "Close price after imputation", Values: series},
	)
	return series, gaps, nil
}

// powerTransform fits a Box-Cox lambda and applies it when it differs
// meaningfully from the identity. Returns the modelling series and the lambda
// actually applied (1 means untransformed).
func (b *StocksBuilder) powerTransform(r *Report, series []float64) ([]float64, float64) {
	bc, err := transform.BoxCox(series)
	if err != nil {
		r.Warnf("box-cox transform skipped: %v", err)
		return series, 1
	}
	if math.Abs(bc.Lambda-1) <= boxCoxIdentityBand {
		r.AddSection("Variance stabilisation",
			fmt.Sprintf("The fitted Box-Cox lambda of %.2f is close enough to 1 that the "+
				"series is modelled on its original scale.", bc.Lambda))
		return series, 1
	}

	r.AddSection("Variance stabilisation",
		fmt.Sprintf("A Box-Cox transform with lambda %.2f (profile maximum likelihood) "+
			"stabilises the variance before model selection. Forecasts are reported "+
			"back on the price scale.", bc.Lambda))
	return bc.Transformed, bc.Lambda
}

// accuracySection reports the hold-out backtest of the selected model.
func (b *StocksBuilder) accuracySection(r *Report, fit *model.ForecastResult, actual, predicted []float64, horizon int) error {
	mape, err := metrics.MAPE(actual, predicted)
	if err != nil {
		return fmt.Errorf("accuracy section: %w", err)
	}
	rmse, err := metrics.RMSE(actual, predicted)
	if err != nil {
		return fmt.Errorf("accuracy section: %w", err)
	}

	whiteness := "the residuals are indistinguishable from white noise"
	if fit.LjungBoxP < 0.05 {
		whiteness = "the Ljung-Box test still finds structure in the residuals, so the " +
			"reported intervals should be read with care"
	}

	sec := r.AddSection("Model selection and backtest",
		fmt.Sprintf("A stepwise AIC search over %d candidate models selected %s "+
			"(AIC %.1f, BIC %.1f). The last %d observations were held out and forecast "+
			"from the preceding history.", fit.ModelsEvaluated, fit.Order, fit.AIC, fit.BIC, horizon),
		fmt.Sprintf("With a Ljung-Box p-value of %.3f, %s.", fit.LjungBoxP, whiteness))

	sec.Tables = append(sec.Tables, Table{
		Title:      "Hold-out accuracy",
		Headers:    []string{"metric", "value"},
		ExportName: "accuracy",
		Rows: [][]string{
			{"model", fit.Order},
			{"AIC", fnum(fit.AIC)},
			{"MAPE", fnum(mape) + "%"},
			{"RMSE", fnum(rmse)},
			{"Ljung-Box p", fnum(fit.LjungBoxP)},
		},
	})
	return nil
}

// forecastSection publishes the forward forecast from the full-series refit.
func (b *StocksBuilder) forecastSection(r *Report, series, forecast []float64, dates []string) {
	sec := r.AddSection("Forecast",
		fmt.Sprintf("The model refit on the full history projects the next %d trading days.",
			len(forecast)))

	recent := series
	if len(recent) > 90 {
		recent = recent[len(recent)-90:]
	}
	combined := append(append([]float64(nil), recent...), forecast...)
	sec.Sparklines = append(sec.Sparklines,
		Sparkline{Title: "Recent history and forecast", Values: combined})

	tbl := Table{
		Title:      "Forecast values",
		Headers:    []string{"step", "close"},
		ExportName: "forecast",
	}
	lastDate := ""
	if len(dates) > 0 {
		lastDate = dates[len(dates)-1]
	}
	for i, v := range forecast {
		label := fmt.Sprintf("t+%d", i+1)
		if lastDate != "" {
			label = fmt.Sprintf("%s +%dd", lastDate, i+1)
		}
		tbl.Rows = append(tbl.Rows, []string{label, fnum(v)})
	}
	sec.Tables = append(sec.Tables, tbl)
}

// backTransform inverts the Box-Cox transform when one was applied.
func backTransform(values []float64, lambda float64) []float64 {
	if lambda == 1 {
		return values
	}
	return transform.InvBoxCox(values, lambda)
}
