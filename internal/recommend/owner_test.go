package recommend

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pasale-analytics/internal/dataset/datasettest"
	"pasale-analytics/internal/models"
)

func TestProductOwnerBasic(t *testing.T) {
	a := ProductOwnerBasic(datasettest.Dataset())

	if a.SubscriptionLevel != PlanFree || a.UpgradeMessage == "" {
		t.Errorf("level = %q, upgrade message = %q", a.SubscriptionLevel, a.UpgradeMessage)
	}

	trend := a.TrendAnalysis.TotalSalesTrend
	if len(trend) != 6 {
		t.Fatalf("trend months = %d, want 6", len(trend))
	}
	if trend[0].Quantity != 42 {
		t.Errorf("January quantity = %d, want 42", trend[0].Quantity)
	}
	if len(a.SeasonalityCharts.SeasonalPatterns) != 6 {
		t.Errorf("seasonal points = %d, want 6", len(a.SeasonalityCharts.SeasonalPatterns))
	}

	wantCategories := []models.CategoryTotal{
		{Category: "Grocery", Quantity: 142},
		{Category: "Household", Quantity: 130},
		{Category: "Stationery", Quantity: 7},
	}
	if diff := cmp.Diff(wantCategories, a.BasicPlots.CategoryDistribution); diff != "" {
		t.Errorf("category distribution mismatch (-want +got):\n%s", diff)
	}
	if got := len(a.BasicPlots.GeographicPerformance); got != 3 {
		t.Errorf("cities = %d, want 3", got)
	}
}

func TestProductOwnerPremium(t *testing.T) {
	ds := datasettest.Dataset()

	if _, err := ProductOwnerPremium(ds, PlanFree); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("free plan error = %v, want ErrPermissionDenied", err)
	}

	a, err := ProductOwnerPremium(ds, PlanPremium)
	if err != nil {
		t.Fatalf("ProductOwnerPremium() error = %v", err)
	}
	if len(a.ProductRecommendations) != 1 {
		t.Fatalf("recommendations = %d, want 1 (only P1 sells in two cities)", len(a.ProductRecommendations))
	}
	rec := a.ProductRecommendations[0]
	if rec.ProductID != "P1" || rec.BestCity != "Kathmandu" || rec.WorstCity != "Pokhara" {
		t.Errorf("recommendation = %+v", rec)
	}
	if rec.WorstCityAvgSales != 5 {
		t.Errorf("WorstCityAvgSales = %v, want 5", rec.WorstCityAvgSales)
	}
	if rec.CompetitorCount != 2 || rec.CompetitorsInCity != 1 {
		t.Errorf("competition = %d slots, %d rivals in best city; want 2 and 1", rec.CompetitorCount, rec.CompetitorsInCity)
	}
	if rec.TopCompetitorSlots[0].City != "Kathmandu" || rec.TopCompetitorSlots[0].UniqueProducts != 2 {
		t.Errorf("top competitor slot = %+v", rec.TopCompetitorSlots[0])
	}
	if len(rec.Recommendations) != 3 {
		t.Errorf("recommendation texts = %d, want 3", len(rec.Recommendations))
	}
}

func TestParsePlan(t *testing.T) {
	tests := []struct {
		in      string
		want    Plan
		wantErr bool
	}{
		{"free", PlanFree, false},
		{" Premium ", PlanPremium, false},
		{"enterprise", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePlan(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPlan) {
					t.Errorf("ParsePlan(%q) error = %v, want ErrInvalidPlan", tt.in, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParsePlan(%q) = %q, %v", tt.in, got, err)
			}
		})
	}
}

func TestInfo(t *testing.T) {
	info := Info(PlanPremium)
	if info.Price != 99.99 || info.CurrentPlan != PlanPremium {
		t.Errorf("Info(premium) = %+v", info)
	}
	if len(info.Features.ProductOwner) != 5 {
		t.Errorf("premium product owner features = %v", info.Features.ProductOwner)
	}
}
