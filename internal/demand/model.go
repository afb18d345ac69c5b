// Package demand trains and serves the monthly demand model for
// product-shop pairs.
package demand

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"pasale-analytics/internal/dataset"
	"pasale-analytics/internal/forest"
	"pasale-analytics/internal/models"
)

var (
	ErrModelNotTrained = errors.New("model not trained")
	ErrNotReady        = errors.New("not ready for training")
	ErrUnknownTarget   = errors.New("unknown target column")
	ErrNoValidRows     = errors.New("no valid data points after removing NaN/infinite values")
)

const (
	TargetQuantity = "monthly_quantity"
	TargetRevenue  = "monthly_revenue"

	smallDataRows = 4
)

// FeatureColumns is the ordered feature vector the model is trained on.
var FeatureColumns = []string{
	"last_month_qty",
	"last_2_months_qty",
	"last_3_months_qty",
	"avg_last_3_months",
	"trend",
	"price_difference",
	"is_holiday_month",
	"is_summer",
	"category_code",
	"shop_city_code",
}

type Options struct {
	Forest            forest.Options     `json:"forest"`
	TestFraction      float64            `json:"test_fraction"`
	MinTrainingRows   int                `json:"min_training_rows"`
	DefaultEstimate   float64            `json:"default_estimate"`
	PriceElasticity   float64            `json:"price_elasticity"`
	MarketingStep     float64            `json:"marketing_step"`
	SeasonMultipliers map[Season]float64 `json:"season_multipliers"`
}

func DefaultOptions() Options {
	return Options{
		Forest:          forest.DefaultOptions(),
		TestFraction:    0.2,
		MinTrainingRows: 10,
		DefaultEstimate: 10,
		PriceElasticity: -0.5,
		MarketingStep:   0.1,
		SeasonMultipliers: map[Season]float64{
			SeasonNormal:  1.0,
			SeasonHoliday: 1.3,
			SeasonSummer:  0.8,
		},
	}
}

type Metrics struct {
	MAE  float64 `json:"mae"`
	RMSE float64 `json:"rmse"`
	R2   float64 `json:"r2"`
	MAPE float64 `json:"mape"`
}

type TrainResult struct {
	Metrics           Metrics            `json:"metrics"`
	TrainingSamples   int                `json:"training_samples"`
	TestSamples       int                `json:"test_samples"`
	FeatureImportance map[string]float64 `json:"feature_importance"`
	// LowConfidence is set when the data was too small to hold out a test set
	// and the metrics were computed on the training rows.
	LowConfidence bool          `json:"low_confidence"`
	Duration      time.Duration `json:"duration"`
}

// Model is an immutable trained artifact. The encoders are the ones built at
// training time and must be used for every later prediction.
type Model struct {
	Target         string
	FeatureColumns []string
	Forest         *forest.Regressor
	Categories     *dataset.CategoryEncoder
	Cities         *dataset.CategoryEncoder
	Calendar       dataset.Calendar
	Metrics        Metrics
	TrainedAt      time.Time
	Options        Options
}

// CheckReady reports whether ds can be trained on, with a reason either way.
func CheckReady(ds *dataset.Dataset, opts Options) (bool, string) {
	if ds == nil {
		return false, "Monthly data not prepared"
	}
	if ds.FeatureCount() == 0 {
		return false, "Monthly data is empty"
	}
	var missing []string
	for _, col := range FeatureColumns {
		if !knownFeature(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return false, fmt.Sprintf("Missing feature columns: %v", missing)
	}
	if ds.FeatureCount() < opts.MinTrainingRows {
		return false, fmt.Sprintf("Not enough data points for training: %d", ds.FeatureCount())
	}
	return true, "Ready for training"
}

// Train fits a new model on the feature rows of ds.
func Train(ctx context.Context, ds *dataset.Dataset, target string, opts Options, logger *slog.Logger) (*Model, *TrainResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if target == "" {
		target = TargetQuantity
	}
	if target != TargetQuantity && target != TargetRevenue {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownTarget, target)
	}
	if ok, reason := CheckReady(ds, opts); !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotReady, reason)
	}

	start := time.Now()
	rows := ds.Features()

	categories := make([]string, 0, len(rows))
	cities := make([]string, 0, len(rows))
	for _, r := range rows {
		categories = append(categories, r.Category)
		cities = append(cities, r.ShopCity)
	}
	m := &Model{
		Target:         target,
		FeatureColumns: append([]string(nil), FeatureColumns...),
		Categories:     dataset.NewCategoryEncoder(categories),
		Cities:         dataset.NewCategoryEncoder(cities),
		Calendar:       ds.Calendar(),
		Options:        opts,
	}

	X, y := m.matrix(rows)
	if len(X) == 0 {
		return nil, nil, ErrNoValidRows
	}

	result := &TrainResult{}
	var trainX, testX [][]float64
	var trainY, testY []float64
	if len(X) < smallDataRows {
		logger.Warn("very little data, training and evaluating on all rows", "rows", len(X))
		trainX, testX, trainY, testY = X, X, y, y
		result.LowConfidence = true
	} else {
		trainIdx, testIdx := forest.TrainTestSplit(len(X), opts.TestFraction, opts.Forest.Seed)
		trainX, trainY = pick(X, y, trainIdx)
		testX, testY = pick(X, y, testIdx)
	}

	reg := forest.New(opts.Forest)
	if err := reg.Fit(ctx, trainX, trainY); err != nil {
		return nil, nil, fmt.Errorf("fit model: %w", err)
	}
	m.Forest = reg

	predicted, err := reg.PredictAll(testX)
	if err != nil {
		return nil, nil, fmt.Errorf("evaluate model: %w", err)
	}
	m.Metrics = computeMetrics(testY, predicted)
	m.TrainedAt = time.Now()

	result.Metrics = m.Metrics
	result.TrainingSamples = len(trainX)
	result.TestSamples = len(testX)
	result.FeatureImportance = make(map[string]float64, len(FeatureColumns))
	for i, w := range reg.FeatureImportances() {
		result.FeatureImportance[m.FeatureColumns[i]] = w
	}
	result.Duration = time.Since(start)

	logger.Info("model trained",
		"target", target,
		"training_samples", result.TrainingSamples,
		"test_samples", result.TestSamples,
		"rmse", result.Metrics.RMSE,
		"r2", result.Metrics.R2,
		"duration", result.Duration,
	)
	return m, result, nil
}

// Evaluate scores the model against every clean feature row of ds.
func (m *Model) Evaluate(ds *dataset.Dataset) (Metrics, error) {
	if m == nil || !m.Forest.Fitted() {
		return Metrics{}, ErrModelNotTrained
	}
	if ds == nil {
		return Metrics{}, ErrNoValidRows
	}
	X, y := m.matrix(ds.Features())
	if len(X) == 0 {
		return Metrics{}, ErrNoValidRows
	}
	predicted, err := m.Forest.PredictAll(X)
	if err != nil {
		return Metrics{}, err
	}
	return computeMetrics(y, predicted), nil
}

// PredictRows returns one prediction per feature row, NaN where the row
// cannot be scored.
func (m *Model) PredictRows(rows []models.FeatureRow) ([]float64, error) {
	if m == nil || !m.Forest.Fitted() {
		return nil, ErrModelNotTrained
	}
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = math.NaN()
		x := m.vector(row)
		if !finite(x) {
			continue
		}
		if p, err := m.Forest.Predict(x); err == nil {
			out[i] = math.Max(0, p)
		}
	}
	return out, nil
}

func (m *Model) vector(r models.FeatureRow) []float64 {
	x := make([]float64, len(m.FeatureColumns))
	for i, col := range m.FeatureColumns {
		x[i] = m.feature(r, col)
	}
	return x
}

func knownFeature(col string) bool {
	switch col {
	case "last_month_qty", "last_2_months_qty", "last_3_months_qty", "avg_last_3_months",
		"trend", "price_difference", "is_holiday_month", "is_summer", "category_code", "shop_city_code":
		return true
	}
	return false
}

func (m *Model) feature(r models.FeatureRow, col string) float64 {
	switch col {
	case "last_month_qty":
		return r.LastMonthQty
	case "last_2_months_qty":
		return r.Last2MonthsQty
	case "last_3_months_qty":
		return r.Last3MonthsQty
	case "avg_last_3_months":
		return r.AvgLast3Months
	case "trend":
		return r.Trend
	case "price_difference":
		return r.PriceDifference
	case "is_holiday_month":
		return boolFloat(r.IsHolidayMonth)
	case "is_summer":
		return boolFloat(r.IsSummer)
	case "category_code":
		return float64(m.Categories.Encode(r.Category))
	case "shop_city_code":
		return float64(m.Cities.Encode(r.ShopCity))
	}
	return math.NaN()
}

func (m *Model) target(r models.FeatureRow) float64 {
	if m.Target == TargetRevenue {
		return r.MonthlyRevenue
	}
	return float64(r.MonthlyQuantity)
}

// matrix vectorizes rows, dropping any with non-finite features or target.
func (m *Model) matrix(rows []models.FeatureRow) ([][]float64, []float64) {
	X := make([][]float64, 0, len(rows))
	y := make([]float64, 0, len(rows))
	for _, r := range rows {
		x := m.vector(r)
		t := m.target(r)
		if !finite(x) || math.IsNaN(t) || math.IsInf(t, 0) {
			continue
		}
		X = append(X, x)
		y = append(y, t)
	}
	return X, y
}

func computeMetrics(actual, predicted []float64) Metrics {
	return Metrics{
		MAE:  forest.MAE(actual, predicted),
		RMSE: forest.RMSE(actual, predicted),
		R2:   forest.R2(actual, predicted),
		MAPE: forest.MAPE(actual, predicted),
	}
}

func pick(X [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	px := make([][]float64, len(idx))
	py := make([]float64, len(idx))
	for i, j := range idx {
		px[i] = X[j]
		py[i] = y[j]
	}
	return px, py
}

func finite(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
