package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"pasale-analytics/internal/dataset"
	"pasale-analytics/internal/demand"
	"pasale-analytics/internal/errors"
	"pasale-analytics/internal/services"
)

const cacheMaxAge = time.Minute

// APIConfig carries the settings the JSON API needs beyond the pipeline.
type APIConfig struct {
	Sources      dataset.Sources
	OutputDir    string
	LoadTimeout  time.Duration
	TrainTimeout time.Duration
}

type APIHandlers struct {
	pipeline *services.Pipeline
	config   APIConfig
	logger   *slog.Logger
}

func NewAPIHandlers(pipeline *services.Pipeline, config APIConfig, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		pipeline: pipeline,
		config:   config,
		logger:   logger,
	}
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, r, h.logger, toAppError(err))
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// productShop reads the product_id and shop_id query parameters.
func productShop(r *http.Request) (string, string, error) {
	productID := strings.TrimSpace(r.URL.Query().Get("product_id"))
	shopID := strings.TrimSpace(r.URL.Query().Get("shop_id"))
	if productID == "" || shopID == "" {
		return "", "", errors.Validation("product_id and shop_id are required")
	}
	return productID, shopID, nil
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]any{
		"status":        "healthy",
		"timestamp":     time.Now().Format(time.RFC3339),
		"version":       "1.0.0",
		"data_loaded":   h.pipeline.Dataset() != nil,
		"model_trained": h.pipeline.Trained(),
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.pipeline.Stats())
}

func (h *APIHandlers) HandleLoad(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context(), h.config.LoadTimeout)
	defer cancel()

	if err := h.pipeline.Load(ctx, h.config.Sources); err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccess(w, h.pipeline.Stats())
}

func (h *APIHandlers) HandleTrainingReady(w http.ResponseWriter, r *http.Request) {
	ready, reason := h.pipeline.IsReadyForTraining()
	errors.WriteSuccess(w, map[string]any{"ready": ready, "reason": reason})
}

func (h *APIHandlers) HandleTrain(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context(), h.config.TrainTimeout)
	defer cancel()

	res, err := h.pipeline.Train(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccess(w, res)
}

func (h *APIHandlers) HandleModelMetrics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context(), h.config.TrainTimeout)
	defer cancel()

	errors.WriteSuccess(w, h.pipeline.ModelMetrics(ctx))
}

func (h *APIHandlers) HandlePrediction(w http.ResponseWriter, r *http.Request) {
	productID, shopID, err := productShop(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	pred, err := h.pipeline.PredictForProductShop(productID, shopID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccess(w, pred)
}

type scenarioRequest struct {
	ProductID      string   `json:"product_id"`
	ShopID         string   `json:"shop_id"`
	PriceChange    float64  `json:"price_change"`
	MarketingBoost *float64 `json:"marketing_boost"`
	Season         string   `json:"season"`
}

func (h *APIHandlers) HandleScenario(w http.ResponseWriter, r *http.Request) {
	var req scenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, errors.BadRequestWrap(err, "Invalid JSON body"))
		return
	}
	if req.ProductID == "" || req.ShopID == "" {
		h.fail(w, r, errors.Validation("product_id and shop_id are required"))
		return
	}

	season, err := demand.ParseSeason(req.Season)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sc := demand.Scenario{PriceChange: req.PriceChange, MarketingBoost: 3, Season: season}
	if req.MarketingBoost != nil {
		sc.MarketingBoost = *req.MarketingBoost
	}

	res, err := h.pipeline.RunScenario(req.ProductID, req.ShopID, sc)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccess(w, res)
}

func (h *APIHandlers) HandleCombinations(w http.ResponseWriter, r *http.Request) {
	combos, err := h.pipeline.AvailableCombinations()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteCached(w, combos, cacheMaxAge)
}

func (h *APIHandlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	productID, shopID, err := productShop(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	history, err := h.pipeline.ProductShopHistory(productID, shopID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteCached(w, history, cacheMaxAge)
}

func (h *APIHandlers) HandleRecommendations(w http.ResponseWriter, r *http.Request) {
	userType := services.UserType(r.PathValue("userType"))

	recs, err := h.pipeline.Recommendations(userType)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccess(w, recs)
}

func (h *APIHandlers) HandleGetSubscription(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.pipeline.SubscriptionInfo())
}

func (h *APIHandlers) HandleSetSubscription(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Plan string `json:"plan"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, errors.BadRequestWrap(err, "Invalid JSON body"))
		return
	}

	info, err := h.pipeline.SetSubscription(req.Plan)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccess(w, info)
}

func (h *APIHandlers) HandleSegments(w http.ResponseWriter, r *http.Request) {
	res, err := h.pipeline.Segments(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccess(w, res)
}

func (h *APIHandlers) HandleSegmentAnalysis(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.pipeline.SegmentAnalysis(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccess(w, analysis)
}

func (h *APIHandlers) HandleCustomerSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.pipeline.CustomerPurchaseSummary(r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccess(w, summary)
}

func (h *APIHandlers) HandleCustomerInsights(w http.ResponseWriter, r *http.Request) {
	insights, err := h.pipeline.CustomerInsights()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccess(w, insights)
}

func (h *APIHandlers) HandleSaveOutputs(w http.ResponseWriter, r *http.Request) {
	if h.config.OutputDir == "" {
		h.fail(w, r, errors.ServiceUnavailable("Output directory not configured"))
		return
	}
	ctx, cancel := withTimeout(r.Context(), h.config.TrainTimeout)
	defer cancel()

	manifest, err := h.pipeline.SaveOutputs(ctx, h.config.OutputDir)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccess(w, manifest)
}
