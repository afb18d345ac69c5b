// Package services coordinates the analytics pipeline: it owns the current
// dataset, trained model, segmentation and subscription plan, and exposes
// every operation the HTTP layer and the batch CLI need.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pasale-analytics/internal/config"
	"pasale-analytics/internal/dataset"
	"pasale-analytics/internal/demand"
	"pasale-analytics/internal/models"
	"pasale-analytics/internal/observability"
	"pasale-analytics/internal/recommend"
	"pasale-analytics/internal/segment"
)

var (
	ErrNoData           = errors.New("no data loaded")
	ErrDataReplaced     = errors.New("dataset was reloaded during training")
	ErrCustomerNotFound = errors.New("no transactions found for this customer")
)

type Options struct {
	Dataset   dataset.Options
	Demand    demand.Options
	Segment   segment.Options
	Recommend recommend.Options
	Target    string
	Plan      recommend.Plan
	// CacheDir holds trained model snapshots; empty disables the cache.
	CacheDir string
	SQLite   bool
}

func DefaultOptions() Options {
	return Options{
		Dataset:   dataset.DefaultOptions(),
		Demand:    demand.DefaultOptions(),
		Segment:   segment.DefaultOptions(),
		Recommend: recommend.DefaultOptions(),
		Target:    demand.TargetQuantity,
		Plan:      recommend.PlanFree,
	}
}

// OptionsFromConfig maps the environment configuration onto pipeline options.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	opts := DefaultOptions()

	plan, err := recommend.ParsePlan(cfg.Subscription.DefaultPlan)
	if err != nil {
		return Options{}, err
	}
	opts.Plan = plan

	opts.Dataset.DefaultLatitude = cfg.Data.DefaultLatitude
	opts.Dataset.DefaultLongitude = cfg.Data.DefaultLongitude
	opts.Dataset.Calendar = dataset.Calendar{
		HolidayMonths: toMonths(cfg.Calendar.HolidayMonths),
		SummerMonths:  toMonths(cfg.Calendar.SummerMonths),
	}

	opts.Demand.Forest.Trees = cfg.Model.Trees
	opts.Demand.Forest.MaxDepth = cfg.Model.MaxDepth
	opts.Demand.Forest.MinSamplesLeaf = cfg.Model.MinSamplesLeaf
	opts.Demand.Forest.Seed = uint64(cfg.Model.Seed)
	opts.Demand.TestFraction = cfg.Model.TestFraction
	opts.Demand.MinTrainingRows = cfg.Model.MinTrainingRows
	opts.Demand.DefaultEstimate = cfg.Model.DefaultEstimate
	opts.Demand.PriceElasticity = cfg.Model.PriceElasticity

	opts.Segment.Clusters = cfg.Segmentation.Clusters
	opts.Segment.MinCustomers = cfg.Segmentation.MinCustomers
	opts.Segment.Seed = uint64(cfg.Model.Seed)

	opts.CacheDir = cfg.Data.CacheDir
	opts.SQLite = cfg.Export.SQLite
	return opts, nil
}

func SourcesFromConfig(cfg config.DataConfig) dataset.Sources {
	return dataset.Sources{
		Transactions: cfg.TransactionsFile,
		Products:     cfg.ProductsFile,
		Shops:        cfg.ShopsFile,
		Customers:    cfg.CustomersFile,
	}
}

func toMonths(values []int) []time.Month {
	out := make([]time.Month, len(values))
	for i, v := range values {
		out[i] = time.Month(v)
	}
	return out
}

// Pipeline is safe for concurrent use. Writers build new values outside the
// lock and swap pointers under it; readers take a snapshot under RLock and
// work on immutable values.
type Pipeline struct {
	mu        sync.RWMutex
	sources   dataset.Sources
	data      *dataset.Dataset
	model     *demand.Model
	lastTrain *demand.TrainResult
	segments  *segment.Result
	plan      recommend.Plan

	// trainMu serializes training so concurrent callers do not fit twice.
	trainMu sync.Mutex

	opts   Options
	logger *slog.Logger
}

func NewPipeline(opts Options, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Plan == "" {
		opts.Plan = recommend.PlanFree
	}
	if opts.Target == "" {
		opts.Target = demand.TargetQuantity
	}
	return &Pipeline{
		plan:   opts.Plan,
		opts:   opts,
		logger: logger,
	}
}

type snapshot struct {
	data     *dataset.Dataset
	model    *demand.Model
	segments *segment.Result
	plan     recommend.Plan
}

func (p *Pipeline) snapshot() snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return snapshot{data: p.data, model: p.model, segments: p.segments, plan: p.plan}
}

// Load reads the four sources and replaces the current dataset. Any model
// trained on earlier data is dropped unless a cached model newer than every
// source is available.
func (p *Pipeline) Load(ctx context.Context, src dataset.Sources) (err error) {
	ctx, span := observability.StartSpan(ctx, "pipeline.load")
	logger := observability.LoggerFrom(ctx, p.logger)
	defer span.End(logger, &err)

	ds, err := dataset.Build(ctx, src, p.opts.Dataset, logger)
	if err != nil {
		return fmt.Errorf("load data: %w", err)
	}
	span.Set("records", ds.RecordCount())
	span.Set("feature_rows", ds.FeatureCount())

	cached, cacheErr := p.loadModelCache(src)
	if cacheErr != nil {
		logger.Debug("model cache unavailable", "reason", cacheErr)
	}

	p.mu.Lock()
	p.sources = src
	p.data = ds
	p.model = cached.Model
	p.lastTrain = cached.Result
	p.segments = nil
	p.mu.Unlock()

	if cached.Model != nil {
		logger.Info("loaded model from cache", "trained_at", cached.Model.TrainedAt)
	}
	return nil
}

// Dataset returns the current dataset, or nil before the first Load.
func (p *Pipeline) Dataset() *dataset.Dataset {
	return p.snapshot().data
}

func (p *Pipeline) IsReadyForTraining() (bool, string) {
	return demand.CheckReady(p.snapshot().data, p.opts.Demand)
}

// Trained reports whether a model is available for predictions.
func (p *Pipeline) Trained() bool {
	return p.snapshot().model != nil
}

// Train fits a new model on the current dataset and stores it in the
// model cache. It fails with ErrDataReplaced when a Load swaps the dataset
// while the forest is being fitted.
func (p *Pipeline) Train(ctx context.Context) (res *demand.TrainResult, err error) {
	p.trainMu.Lock()
	defer p.trainMu.Unlock()

	ctx, span := observability.StartSpan(ctx, "pipeline.train")
	logger := observability.LoggerFrom(ctx, p.logger)
	defer span.End(logger, &err)

	p.mu.RLock()
	ds, src := p.data, p.sources
	p.mu.RUnlock()
	if ds == nil {
		return nil, fmt.Errorf("%w: %w", demand.ErrNotReady, ErrNoData)
	}

	model, res, err := demand.Train(ctx, ds, p.opts.Target, p.opts.Demand, logger)
	if err != nil {
		return nil, err
	}
	span.Set("training_samples", res.TrainingSamples)
	span.Set("r2", res.Metrics.R2)

	if err := p.installModel(ds, model, res); err != nil {
		return nil, err
	}
	if err := p.saveModelCache(src, model, res); err != nil {
		logger.Warn("failed to save model cache", "error", err)
	}
	return res, nil
}

// installModel swaps in a model fitted on ds, unless ds is no longer the
// current dataset.
func (p *Pipeline) installModel(ds *dataset.Dataset, model *demand.Model, res *demand.TrainResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.data != ds {
		return ErrDataReplaced
	}
	p.model = model
	p.lastTrain = res
	return nil
}

// ensureModel returns the current model, training one first if needed.
func (p *Pipeline) ensureModel(ctx context.Context) (*demand.Model, error) {
	if m := p.snapshot().model; m != nil {
		return m, nil
	}
	if _, err := p.Train(ctx); err != nil {
		return nil, err
	}
	return p.snapshot().model, nil
}

type MetricsReport struct {
	Target            string             `json:"target,omitempty"`
	Metrics           *demand.Metrics    `json:"metrics,omitempty"`
	TrainingSamples   int                `json:"training_samples,omitempty"`
	TestSamples       int                `json:"test_samples,omitempty"`
	FeatureImportance map[string]float64 `json:"feature_importance,omitempty"`
	LowConfidence     bool               `json:"low_confidence,omitempty"`
	TrainedAt         *time.Time         `json:"trained_at,omitempty"`
	// Evaluation scores the model against every clean row of the current data.
	Evaluation *demand.Metrics `json:"evaluation,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// ModelMetrics trains on demand and reports the held-out metrics along with
// an evaluation over the current data. Failures are reported in the Error
// field rather than returned.
func (p *Pipeline) ModelMetrics(ctx context.Context) MetricsReport {
	model, err := p.ensureModel(ctx)
	if err != nil {
		return MetricsReport{Error: err.Error()}
	}

	p.mu.RLock()
	last, ds := p.lastTrain, p.data
	p.mu.RUnlock()

	metrics := model.Metrics
	trainedAt := model.TrainedAt
	report := MetricsReport{
		Target:    model.Target,
		Metrics:   &metrics,
		TrainedAt: &trainedAt,
	}
	if last != nil {
		report.TrainingSamples = last.TrainingSamples
		report.TestSamples = last.TestSamples
		report.FeatureImportance = last.FeatureImportance
		report.LowConfidence = last.LowConfidence
	}
	evaluation, err := model.Evaluate(ds)
	if err != nil {
		report.Error = fmt.Sprintf("evaluate: %v", err)
		return report
	}
	report.Evaluation = &evaluation
	return report
}

func (p *Pipeline) PredictForProductShop(productID, shopID string) (demand.Prediction, error) {
	s := p.snapshot()
	if s.model == nil {
		return demand.Prediction{}, demand.ErrModelNotTrained
	}
	return s.model.PredictForProductShop(s.data, productID, shopID)
}

func (p *Pipeline) RunScenario(productID, shopID string, sc demand.Scenario) (demand.ScenarioResult, error) {
	s := p.snapshot()
	if s.model == nil {
		return demand.ScenarioResult{}, demand.ErrModelNotTrained
	}
	return s.model.RunScenario(s.data, productID, shopID, sc)
}

func (p *Pipeline) AvailableCombinations() ([]models.Combination, error) {
	ds := p.snapshot().data
	if ds == nil {
		return nil, ErrNoData
	}
	return ds.Combinations(), nil
}

func (p *Pipeline) ProductShopHistory(productID, shopID string) ([]models.HistoryPoint, error) {
	ds := p.snapshot().data
	if ds == nil {
		return nil, ErrNoData
	}
	return ds.History(productID, shopID), nil
}

func (p *Pipeline) Stats() map[string]any {
	s := p.snapshot()
	stats := map[string]any{
		"data_loaded":       s.data != nil,
		"model_trained":     s.model != nil,
		"segmented":         s.segments != nil,
		"subscription_plan": s.plan,
	}
	if s.data != nil {
		for k, v := range s.data.Stats() {
			stats[k] = v
		}
	}
	if s.model != nil {
		stats["model_target"] = s.model.Target
		stats["model_trained_at"] = s.model.TrainedAt
		stats["model_r2"] = s.model.Metrics.R2
	}
	return stats
}
