package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pasale-analytics/internal/dataset"
	"pasale-analytics/internal/dataset/datasettest"
	"pasale-analytics/internal/demand"
	"pasale-analytics/internal/errors"
	"pasale-analytics/internal/recommend"
	"pasale-analytics/internal/segment"
	"pasale-analytics/internal/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func createTestPipeline(t *testing.T) (*services.Pipeline, dataset.Sources) {
	t.Helper()
	opts := services.DefaultOptions()
	opts.Demand.Forest.Trees = 20

	src := datasettest.WriteSources(t, t.TempDir())
	p := services.NewPipeline(opts, testLogger())
	if err := p.Load(context.Background(), src); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return p, src
}

func createTestAPI(t *testing.T) *APIHandlers {
	t.Helper()
	p, src := createTestPipeline(t)
	return NewAPIHandlers(p, APIConfig{Sources: src, OutputDir: t.TempDir()}, testLogger())
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    errors.ErrorCode `json:"code"`
		Message string           `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return env
}

func TestNewAPIHandlers(t *testing.T) {
	p, _ := createTestPipeline(t)
	handlers := NewAPIHandlers(p, APIConfig{}, testLogger())

	if handlers == nil {
		t.Fatal("NewAPIHandlers() returned nil")
	}
	if handlers.pipeline != p {
		t.Error("NewAPIHandlers() should set pipeline field")
	}
}

func TestAPIHandlers_HandleHealth(t *testing.T) {
	h := createTestAPI(t)
	w := httptest.NewRecorder()

	h.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	env := decode(t, w)
	var data map[string]any
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data["status"] != "healthy" || data["data_loaded"] != true || data["model_trained"] != false {
		t.Errorf("unexpected health data: %v", data)
	}
}

func TestAPIHandlers_PredictionLifecycle(t *testing.T) {
	h := createTestAPI(t)

	w := httptest.NewRecorder()
	h.HandlePrediction(w, httptest.NewRequest(http.MethodGet, "/api/predictions?product_id=P1&shop_id=S1", nil))
	if w.Code != http.StatusConflict {
		t.Fatalf("prediction before training: status %d, want 409", w.Code)
	}
	if env := decode(t, w); env.Error == nil || env.Error.Code != errors.CodeNotTrained {
		t.Errorf("unexpected error envelope: %+v", env)
	}

	w = httptest.NewRecorder()
	h.HandleTrain(w, httptest.NewRequest(http.MethodPost, "/api/train", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("train: status %d, body %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	h.HandlePrediction(w, httptest.NewRequest(http.MethodGet, "/api/predictions?product_id=P1&shop_id=S1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("prediction after training: status %d", w.Code)
	}
	var pred demand.Prediction
	if err := json.Unmarshal(decode(t, w).Data, &pred); err != nil {
		t.Fatal(err)
	}
	if pred.Confidence != "high" || pred.HistoricalPoints != 3 {
		t.Errorf("prediction = %+v", pred)
	}
}

func TestAPIHandlers_HandlePrediction_MissingParams(t *testing.T) {
	h := createTestAPI(t)
	w := httptest.NewRecorder()

	h.HandlePrediction(w, httptest.NewRequest(http.MethodGet, "/api/predictions?product_id=P1", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestAPIHandlers_HandleScenario(t *testing.T) {
	h := createTestAPI(t)
	if _, err := h.pipeline.Train(context.Background()); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"neutral", `{"product_id":"P1","shop_id":"S1"}`, http.StatusOK},
		{"holiday discount", `{"product_id":"P1","shop_id":"S1","price_change":-0.1,"marketing_boost":4,"season":"holiday"}`, http.StatusOK},
		{"marketing out of range", `{"product_id":"P1","shop_id":"S1","marketing_boost":9}`, http.StatusBadRequest},
		{"unknown season", `{"product_id":"P1","shop_id":"S1","season":"monsoon"}`, http.StatusBadRequest},
		{"missing ids", `{"price_change":0.1}`, http.StatusBadRequest},
		{"malformed json", `{"product_id":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.HandleScenario(w, httptest.NewRequest(http.MethodPost, "/api/scenarios", strings.NewReader(tt.body)))
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestAPIHandlers_HandleRecommendations(t *testing.T) {
	h := createTestAPI(t)

	tests := []struct {
		userType   string
		wantStatus int
	}{
		{"customer", http.StatusOK},
		{"product_owner", http.StatusOK},
		{"shopkeeper", http.StatusConflict},
		{"wholesaler", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.userType, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/recommendations/"+tt.userType, nil)
			req.SetPathValue("userType", tt.userType)
			w := httptest.NewRecorder()

			h.HandleRecommendations(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestAPIHandlers_Subscription(t *testing.T) {
	h := createTestAPI(t)

	w := httptest.NewRecorder()
	h.HandleSetSubscription(w, httptest.NewRequest(http.MethodPost, "/api/subscription", strings.NewReader(`{"plan":"gold"}`)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid plan: status %d, want 400", w.Code)
	}

	w = httptest.NewRecorder()
	h.HandleSetSubscription(w, httptest.NewRequest(http.MethodPost, "/api/subscription", strings.NewReader(`{"plan":"premium"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("premium plan: status %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.HandleGetSubscription(w, httptest.NewRequest(http.MethodGet, "/api/subscription", nil))
	var info recommend.SubscriptionInfo
	if err := json.Unmarshal(decode(t, w).Data, &info); err != nil {
		t.Fatal(err)
	}
	if info.CurrentPlan != recommend.PlanPremium || info.Price != 99.99 {
		t.Errorf("subscription = %+v", info)
	}
}

func TestAPIHandlers_Customers(t *testing.T) {
	h := createTestAPI(t)

	tests := []struct {
		id         string
		wantStatus int
	}{
		{"C1", http.StatusOK},
		{"C404", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/customers/"+tt.id+"/summary", nil)
			req.SetPathValue("id", tt.id)
			w := httptest.NewRecorder()

			h.HandleCustomerSummary(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}

	w := httptest.NewRecorder()
	h.HandleCustomerInsights(w, httptest.NewRequest(http.MethodGet, "/api/customers/insights", nil))
	if w.Code != http.StatusOK {
		t.Errorf("insights: status %d", w.Code)
	}
}

func TestAPIHandlers_Segments(t *testing.T) {
	h := createTestAPI(t)

	for _, handle := range []http.HandlerFunc{h.HandleSegments, h.HandleSegmentAnalysis} {
		w := httptest.NewRecorder()
		handle(w, httptest.NewRequest(http.MethodGet, "/api/segments", nil))
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, body %s", w.Code, w.Body.String())
		}
	}
}

func TestAPIHandlers_HandleModelMetrics(t *testing.T) {
	h := createTestAPI(t)
	w := httptest.NewRecorder()

	h.HandleModelMetrics(w, httptest.NewRequest(http.MethodGet, "/api/model/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var report services.MetricsReport
	if err := json.Unmarshal(decode(t, w).Data, &report); err != nil {
		t.Fatal(err)
	}
	if report.Error != "" || report.Metrics == nil {
		t.Errorf("report = %+v", report)
	}
}

func TestAPIHandlers_HandleSaveOutputs(t *testing.T) {
	h := createTestAPI(t)
	w := httptest.NewRecorder()

	h.HandleSaveOutputs(w, httptest.NewRequest(http.MethodPost, "/api/outputs", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if _, err := os.Stat(filepath.Join(h.config.OutputDir, services.ManifestFile)); err != nil {
		t.Errorf("manifest not written: %v", err)
	}
}

func TestAPIHandlers_HandleLoad_MissingSource(t *testing.T) {
	h := createTestAPI(t)
	h.config.Sources.Customers = filepath.Join(t.TempDir(), "nope.csv")
	w := httptest.NewRecorder()

	h.HandleLoad(w, httptest.NewRequest(http.MethodPost, "/api/load", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestToAppError(t *testing.T) {
	tests := []struct {
		err  error
		want errors.ErrorCode
	}{
		{services.ErrNoData, errors.CodeServiceUnavail},
		{services.ErrDataReplaced, errors.CodeServiceUnavail},
		{fmt.Errorf("predict: %w", demand.ErrModelNotTrained), errors.CodeNotTrained},
		{fmt.Errorf("%w: Not enough data points for training: 3", demand.ErrNotReady), errors.CodeNotEnoughData},
		{segment.ErrNotEnoughData, errors.CodeNotEnoughData},
		{recommend.ErrPermissionDenied, errors.CodePermission},
		{recommend.ErrInvalidPlan, errors.CodeValidation},
		{demand.ErrInvalidScenario, errors.CodeValidation},
		{services.ErrUnknownUserType, errors.CodeValidation},
		{services.ErrCustomerNotFound, errors.CodeNotFound},
		{context.DeadlineExceeded, errors.CodeServiceUnavail},
		{errors.RateLimit("slow"), errors.CodeRateLimit},
		{fmt.Errorf("disk full"), errors.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := toAppError(tt.err).Code; got != tt.want {
				t.Errorf("toAppError(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}
