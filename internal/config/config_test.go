package config

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Address() != "localhost:8084" {
		t.Errorf("Address() = %q", cfg.Address())
	}
	if cfg.Model.Trees != 100 || cfg.Model.Seed != 42 || cfg.Model.MinTrainingRows != 10 {
		t.Errorf("model defaults = %+v", cfg.Model)
	}
	if diff := cmp.Diff([]int{1, 4, 10, 11, 12}, cfg.Calendar.HolidayMonths); diff != "" {
		t.Errorf("holiday months mismatch (-want +got):\n%s", diff)
	}
	if cfg.Subscription.DefaultPlan != "free" {
		t.Errorf("default plan = %q", cfg.Subscription.DefaultPlan)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DATA_TRANSACTIONS_FILE", "/srv/tx.csv")
	t.Setenv("MODEL_TREES", "25")
	t.Setenv("MODEL_TRAIN_TIMEOUT", "30s")
	t.Setenv("CALENDAR_SUMMER_MONTHS", "6, 7,8")
	t.Setenv("SUBSCRIPTION_PLAN", "Premium")
	t.Setenv("EXPORT_SQLITE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Data.TransactionsFile != "/srv/tx.csv" || cfg.Model.Trees != 25 {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
	if cfg.Model.TrainTimeout != 30*time.Second {
		t.Errorf("TrainTimeout = %v", cfg.Model.TrainTimeout)
	}
	if diff := cmp.Diff([]int{6, 7, 8}, cfg.Calendar.SummerMonths); diff != "" {
		t.Errorf("summer months mismatch (-want +got):\n%s", diff)
	}
	if !cfg.Export.SQLite {
		t.Error("Export.SQLite = false, want true")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port out of range", "SERVER_PORT", "70000"},
		{"bad log level", "LOG_LEVEL", "verbose"},
		{"bad log format", "LOG_FORMAT", "xml"},
		{"zero trees", "MODEL_TREES", "0"},
		{"test fraction one", "MODEL_TEST_FRACTION", "1"},
		{"month thirteen", "CALENDAR_HOLIDAY_MONTHS", "1,13"},
		{"min customers below two", "SEGMENT_MIN_CUSTOMERS", "1"},
		{"unknown plan", "SUBSCRIPTION_PLAN", "gold"},
		{"negative rate limit", "SECURITY_RATE_LIMIT_RPS", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%s should fail", tt.key, tt.value)
			}
		})
	}
}

func TestGetEnvIntSlice(t *testing.T) {
	t.Setenv("INTS_OK", "3, 4,5")
	t.Setenv("INTS_BAD", "3,four")

	if diff := cmp.Diff([]int{3, 4, 5}, getEnvIntSlice("INTS_OK", nil)); diff != "" {
		t.Errorf("INTS_OK mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{9}, getEnvIntSlice("INTS_BAD", []int{9})); diff != "" {
		t.Errorf("INTS_BAD should fall back (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1}, getEnvIntSlice("INTS_MISSING", []int{1})); diff != "" {
		t.Errorf("missing key should fall back (-want +got):\n%s", diff)
	}
}

func TestLoad_ReportsAllProblems(t *testing.T) {
	t.Setenv("MODEL_TREES", "0")
	t.Setenv("LOG_FORMAT", "xml")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should fail")
	}
	for _, want := range []string{"model trees must be positive", `invalid log format "xml"`} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %q", err, want)
		}
	}
}
