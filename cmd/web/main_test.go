package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"pasale-analytics/internal/dataset/datasettest"
	"pasale-analytics/internal/handlers"
	"pasale-analytics/internal/server"
	"pasale-analytics/internal/services"
)

func newTestServer(t *testing.T) *server.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	opts := services.DefaultOptions()
	opts.Demand.Forest.Trees = 20
	pipeline := services.NewPipeline(opts, logger)

	src := datasettest.WriteSources(t, t.TempDir())
	if err := pipeline.Load(context.Background(), src); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := pipeline.Train(context.Background()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	templateHandlers := &server.TemplateHandlers{Dashboard: handleDashboard}
	apiConfig := handlers.APIConfig{Sources: src, OutputDir: t.TempDir()}
	return server.NewServer(pipeline, apiConfig, logger, templateHandlers)
}

// Integration tests for HTTP routes
func TestServer_Routes(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		method         string
		path           string
		body           string
		expectedStatus int
		contentType    string
	}{
		{"GET", "/", "", http.StatusOK, "text/html"},
		{"GET", "/health", "", http.StatusOK, "application/json"},
		{"GET", "/admin/stats", "", http.StatusOK, "application/json"},
		{"GET", "/api/training/ready", "", http.StatusOK, "application/json"},
		{"GET", "/api/model/metrics", "", http.StatusOK, "application/json"},
		{"GET", "/api/predictions?product_id=P1&shop_id=S1", "", http.StatusOK, "application/json"},
		{"GET", "/api/predictions?product_id=P9&shop_id=S1", "", http.StatusOK, "application/json"},
		{"POST", "/api/scenarios", `{"product_id":"P1","shop_id":"S1","price_change":0.1}`, http.StatusOK, "application/json"},
		{"GET", "/api/combinations", "", http.StatusOK, "application/json"},
		{"GET", "/api/history?product_id=P5&shop_id=S3", "", http.StatusOK, "application/json"},
		{"GET", "/api/recommendations/shopkeeper", "", http.StatusOK, "application/json"},
		{"GET", "/api/recommendations/customer", "", http.StatusOK, "application/json"},
		{"GET", "/api/recommendations/product_owner", "", http.StatusOK, "application/json"},
		{"GET", "/api/recommendations/nobody", "", http.StatusBadRequest, "application/json"},
		{"GET", "/api/subscription", "", http.StatusOK, "application/json"},
		{"GET", "/api/segments", "", http.StatusOK, "application/json"},
		{"GET", "/api/segments/analysis", "", http.StatusOK, "application/json"},
		{"GET", "/api/customers/insights", "", http.StatusOK, "application/json"},
		{"GET", "/api/customers/C1/summary", "", http.StatusOK, "application/json"},
		{"GET", "/api/customers/C404/summary", "", http.StatusNotFound, "application/json"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))

			srv.ServeHTTP(w, r)

			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.expectedStatus, w.Body.String())
			}

			ct := w.Header().Get("Content-Type")
			if !strings.Contains(ct, tt.contentType) {
				t.Errorf("content-type = %q, want %q", ct, tt.contentType)
			}

			if tt.contentType == "application/json" {
				var result any
				if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
					t.Errorf("invalid json: %v", err)
				}
			}
		})
	}
}

func TestServer_SubscriptionGatesPremiumAnalysis(t *testing.T) {
	srv := newTestServer(t)

	get := func() map[string]any {
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest("GET", "/api/recommendations/product_owner", nil))
		var response struct {
			Data map[string]any `json:"data"`
		}
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode JSON: %v", err)
		}
		return response.Data
	}

	if basic := get(); basic["subscription_level"] != "free" {
		t.Errorf("free plan subscription_level = %v", basic["subscription_level"])
	}

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest("POST", "/api/subscription", strings.NewReader(`{"plan":"premium"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("upgrade status = %d", w.Code)
	}

	if premium := get(); premium["subscription_level"] != "premium" {
		t.Errorf("premium plan subscription_level = %v", premium["subscription_level"])
	}
}

// Test Server-Sent Events routes
func TestServer_SSERoutes(t *testing.T) {
	srv := newTestServer(t)

	sseRoutes := []string{
		"/sse/overview",
		"/sse/combinations",
		"/sse/prediction?product_id=P1&shop_id=S1",
		"/sse/recommendations/customer",
		"/sse/refresh-all",
	}

	for _, route := range sseRoutes {
		t.Run(route, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest("GET", route, nil)

			srv.ServeHTTP(w, r)

			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
			}

			if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
				t.Errorf("content-type = %q, should contain 'text/event-stream'", ct)
			}

			if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
				t.Errorf("cache-control = %q, want 'no-cache'", cc)
			}
		})
	}
}

func TestServer_SSEScenario(t *testing.T) {
	srv := newTestServer(t)

	body := `{"productId":"P1","shopId":"S1","priceChange":-0.1,"marketingBoost":4,"season":"holiday"}`
	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/sse/scenario", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")

	srv.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	out := w.Body.String()
	if !strings.Contains(out, "scenarioResult") || !strings.Contains(out, "scenario-content") {
		t.Errorf("scenario stream missing result: %s", out)
	}
}

// Test error handling for invalid methods
func TestServer_ErrorHandling(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{"POST", "/api/combinations", http.StatusMethodNotAllowed},
		{"PUT", "/", http.StatusMethodNotAllowed},
		{"DELETE", "/health", http.StatusMethodNotAllowed},
		{"GET", "/api/train", http.StatusMethodNotAllowed},
		{"GET", "/api/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(tt.method, tt.path, nil)

			srv.ServeHTTP(w, r)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}

func TestDashboardTemplate(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)

	handleDashboard(w, r)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if cc := w.Header().Get("Cache-Control"); cc != cacheMaxAge {
		t.Errorf("cache-control = %q, want %q", cc, cacheMaxAge)
	}

	body := w.Body.String()
	for _, component := range []string{
		"Pasale Retail Analytics",
		"Product / Shop Combinations",
		"Next-Month Forecast",
		"What-if Scenario",
	} {
		if !strings.Contains(body, component) {
			t.Errorf("dashboard should contain '%s'", component)
		}
	}
}
