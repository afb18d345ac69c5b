package errors

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pasale-analytics/internal/observability"
)

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{Validation("bad"), http.StatusBadRequest},
		{NotFound("gone"), http.StatusNotFound},
		{NotTrained("train first"), http.StatusConflict},
		{NotEnoughData("too few"), http.StatusUnprocessableEntity},
		{PermissionDenied("upgrade"), http.StatusForbidden},
		{RateLimit("slow down"), http.StatusTooManyRequests},
		{Internal("oops"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			if tt.err.StatusCode != tt.want {
				t.Errorf("StatusCode = %d, want %d", tt.err.StatusCode, tt.want)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name     string
		err      error
		wantCode ErrorCode
		status   int
	}{
		{"app error", NotTrained("model not trained"), CodeNotTrained, http.StatusConflict},
		{"wrapped app error", fmt.Errorf("handler: %w", PermissionDenied("premium only")), CodePermission, http.StatusForbidden},
		{"plain error", fmt.Errorf("disk on fire"), CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/predictions", nil)
			r = r.WithContext(observability.WithRequestID(r.Context(), "req-42"))
			WriteError(w, r, logger, tt.err)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			var resp struct {
				Success bool `json:"success"`
				Error   struct {
					Code      ErrorCode `json:"code"`
					RequestID string    `json:"request_id"`
				} `json:"error"`
			}
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Success || resp.Error.Code != tt.wantCode || resp.Error.RequestID != "req-42" {
				t.Errorf("response = %+v", resp)
			}
		})
	}
}

func TestWriteError_RateLimitSetsRetryAfter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := httptest.NewRecorder()

	WriteError(w, httptest.NewRequest(http.MethodGet, "/", nil), logger, RateLimit("slow down"))

	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") != "1" {
		t.Errorf("status = %d, Retry-After = %q", w.Code, w.Header().Get("Retry-After"))
	}
}

func TestWriteCached(t *testing.T) {
	w := httptest.NewRecorder()

	WriteCached(w, []string{"P1"}, time.Minute)

	if cc := w.Header().Get("Cache-Control"); cc != "public, max-age=60" {
		t.Errorf("Cache-Control = %q", cc)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestAppError_WithDetails(t *testing.T) {
	err := NotEnoughData("too few rows").WithDetails("need %d, have %d", 10, 3)
	if err.Details != "need 10, have 3" || err.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("err = %+v", err)
	}
	if ErrorCode("SOMETHING_ELSE").Status() != http.StatusInternalServerError {
		t.Error("unknown codes should map to 500")
	}
}
