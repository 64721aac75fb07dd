package model

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sartorproj/goarima/autoarima"
	"github.com/sartorproj/goarima/stats"
	"github.com/sartorproj/goarima/timeseries"
)

// ForecastConfig tunes the auto-ARIMA search.
type ForecastConfig struct {
	MaxP      int
	MaxD      int
	MaxQ      int
	Seasonal  bool
	SeasonalM int
	// LjungBoxLags is the lag count for the residual whiteness test.
	LjungBoxLags int
}

// DefaultForecastConfig returns the search bounds used by the stock report.
func DefaultForecastConfig() ForecastConfig {
	return ForecastConfig{MaxP: 5, MaxD: 2, MaxQ: 5, LjungBoxLags: 10}
}

// ForecastResult holds a fitted auto-ARIMA model and its forecast.
type ForecastResult struct {
	Order           string    `json:"order"`
	AIC             float64   `json:"aic"`
	BIC             float64   `json:"bic"`
	ModelsEvaluated int       `json:"models_evaluated"`
	Forecast        []float64 `json:"forecast"`
	// LjungBoxP is the residual whiteness p-value; above 0.05 means the
	// residuals look like white noise.
	LjungBoxP float64 `json:"ljung_box_p"`
}

// FitForecast selects an ARIMA model for the series by stepwise AIC search
// (delegated to goarima's auto-ARIMA) and forecasts horizon steps ahead.
// The input is the transformed training series; callers back-transform the
// forecast themselves.
func FitForecast(ctx context.Context, values []float64, horizon int, cfg ForecastConfig, logger *slog.Logger) (*ForecastResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(values) < 20 {
		return nil, fmt.Errorf("fit forecast: series too short (%d points)", len(values))
	}
	if horizon <= 0 {
		return nil, fmt.Errorf("fit forecast: horizon must be positive")
	}

	series := timeseries.New(values)

	searchCfg := autoarima.DefaultConfig()
	if cfg.MaxP > 0 {
		searchCfg.MaxP = cfg.MaxP
	}
	if cfg.MaxD > 0 {
		searchCfg.MaxD = cfg.MaxD
	}
	if cfg.MaxQ > 0 {
		searchCfg.MaxQ = cfg.MaxQ
	}
	searchCfg.Seasonal = cfg.Seasonal
	searchCfg.SeasonalM = cfg.SeasonalM

	result, err := autoarima.AutoARIMA(series, searchCfg)
	if err != nil {
		return nil, fmt.Errorf("auto arima: %w", err)
	}
	if result.Model == nil && result.SeasonalModel == nil {
		return nil, fmt.Errorf("auto arima: no model converged")
	}

	forecast, err := result.Predict(horizon)
	if err != nil {
		return nil, fmt.Errorf("forecast %d steps: %w", horizon, err)
	}

	out := &ForecastResult{
		Order:           formatOrder(result),
		AIC:             result.AIC,
		BIC:             result.BIC,
		ModelsEvaluated: result.ModelsEvaluated,
		Forecast:        forecast,
	}

	lags := cfg.LjungBoxLags
	if lags <= 0 {
		lags = 10
	}
	if residuals := result.Residuals(); len(residuals) >= 10 {
		lb := stats.LjungBox(timeseries.New(residuals), lags, result.P+result.Q)
		if lb != nil {
			out.LjungBoxP = lb.PValue
		}
	}

	logger.InfoContext(ctx, "arima model selected",
		"order", out.Order,
		"aic", out.AIC,
		"models_evaluated", out.ModelsEvaluated,
		"ljung_box_p", out.LjungBoxP,
	)
	return out, nil
}

func formatOrder(r *autoarima.Result) string {
	if r.IsSeasonal {
		return fmt.Sprintf("ARIMA(%d,%d,%d)(%d,%d,%d)[%d]", r.P, r.D, r.Q, r.SP, r.SD, r.SQ, r.M)
	}
	return fmt.Sprintf("ARIMA(%d,%d,%d)", r.P, r.D, r.Q)
}
