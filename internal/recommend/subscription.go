package recommend

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidPlan      = errors.New("invalid subscription plan")
	ErrPermissionDenied = errors.New("premium features require subscription upgrade")
)

type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

type PlanFeatures struct {
	ProductOwner []string `json:"product_owner_features"`
	Shopkeeper   []string `json:"shopkeeper_features"`
	Customer     []string `json:"customer_features"`
	Price        float64  `json:"price"`
}

// Plans is the feature table of every subscription tier.
var Plans = map[Plan]PlanFeatures{
	PlanFree: {
		ProductOwner: []string{"basic_trends", "seasonality_charts", "basic_plots"},
		Shopkeeper:   []string{"full_recommendations"},
		Customer:     []string{"full_recommendations"},
		Price:        0,
	},
	PlanPremium: {
		ProductOwner: []string{"advanced_analytics", "geographic_distribution", "competitor_analysis", "custom_reports", "export_data"},
		Shopkeeper:   []string{"full_recommendations", "export_data"},
		Customer:     []string{"full_recommendations"},
		Price:        99.99,
	},
}

func ParsePlan(s string) (Plan, error) {
	p := Plan(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := Plans[p]; !ok {
		return "", fmt.Errorf("%w: %q (available: %s, %s)", ErrInvalidPlan, s, PlanFree, PlanPremium)
	}
	return p, nil
}

type SubscriptionInfo struct {
	CurrentPlan Plan         `json:"current_plan"`
	Features    PlanFeatures `json:"features"`
	Price       float64      `json:"price"`
}

func Info(p Plan) SubscriptionInfo {
	f := Plans[p]
	return SubscriptionInfo{CurrentPlan: p, Features: f, Price: f.Price}
}
