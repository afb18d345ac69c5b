package server

import (
	"log/slog"
	"net/http"

	"pasale-analytics/internal/handlers"
	"pasale-analytics/internal/services"
)

type Server struct {
	pipeline    *services.Pipeline
	mux         *http.ServeMux
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

func NewServer(pipeline *services.Pipeline, apiConfig handlers.APIConfig, logger *slog.Logger, templateHandlers *TemplateHandlers) *Server {
	s := &Server{
		pipeline:    pipeline,
		mux:         http.NewServeMux(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(pipeline, apiConfig, logger),
		sseHandlers: handlers.NewSSEHandlers(pipeline, logger),
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	// Dashboard routes
	s.mux.HandleFunc("GET /{$}", templateHandlers.Dashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)

	// Pipeline lifecycle
	s.mux.HandleFunc("POST /api/load", s.apiHandlers.HandleLoad)
	s.mux.HandleFunc("GET /api/training/ready", s.apiHandlers.HandleTrainingReady)
	s.mux.HandleFunc("POST /api/train", s.apiHandlers.HandleTrain)
	s.mux.HandleFunc("GET /api/model/metrics", s.apiHandlers.HandleModelMetrics)
	s.mux.HandleFunc("POST /api/outputs", s.apiHandlers.HandleSaveOutputs)

	// Forecasting
	s.mux.HandleFunc("GET /api/predictions", s.apiHandlers.HandlePrediction)
	s.mux.HandleFunc("POST /api/scenarios", s.apiHandlers.HandleScenario)
	s.mux.HandleFunc("GET /api/combinations", s.apiHandlers.HandleCombinations)
	s.mux.HandleFunc("GET /api/history", s.apiHandlers.HandleHistory)

	// Recommendations and subscription
	s.mux.HandleFunc("GET /api/recommendations/{userType}", s.apiHandlers.HandleRecommendations)
	s.mux.HandleFunc("GET /api/subscription", s.apiHandlers.HandleGetSubscription)
	s.mux.HandleFunc("POST /api/subscription", s.apiHandlers.HandleSetSubscription)

	// Customers
	s.mux.HandleFunc("GET /api/segments", s.apiHandlers.HandleSegments)
	s.mux.HandleFunc("GET /api/segments/analysis", s.apiHandlers.HandleSegmentAnalysis)
	s.mux.HandleFunc("GET /api/customers/insights", s.apiHandlers.HandleCustomerInsights)
	s.mux.HandleFunc("GET /api/customers/{id}/summary", s.apiHandlers.HandleCustomerSummary)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/overview", s.sseHandlers.HandleOverview)
	s.mux.HandleFunc("GET /sse/combinations", s.sseHandlers.HandleCombinations)
	s.mux.HandleFunc("GET /sse/prediction", s.sseHandlers.HandlePrediction)
	s.mux.HandleFunc("GET /sse/recommendations/{userType}", s.sseHandlers.HandleRecommendations)
	s.mux.HandleFunc("POST /sse/scenario", s.sseHandlers.HandleScenario)
	s.mux.HandleFunc("GET /sse/refresh-all", s.sseHandlers.HandleRefreshAll)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
