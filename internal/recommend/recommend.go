// Package recommend generates rule-based recommendations for shopkeepers,
// customers and product owners.
package recommend

import "pasale-analytics/internal/models"

// Predictor scores feature rows; *demand.Model satisfies it.
type Predictor interface {
	PredictRows(rows []models.FeatureRow) ([]float64, error)
}

type Options struct {
	IncreaseRatio      float64 `json:"increase_ratio"`
	DecreaseRatio      float64 `json:"decrease_ratio"`
	LowSalesQuantile   float64 `json:"low_sales_quantile"`
	MaxMarketingAlerts int     `json:"max_marketing_alerts"`

	MaxCustomers        int `json:"max_customers"`
	CategoryPreference  int `json:"category_preference"`
	ShopPopularity      int `json:"shop_popularity"`
	CategoryExpansion   int `json:"category_expansion"`
	Collaborative       int `json:"collaborative"`
	Trending            int `json:"trending"`
	SimilarCustomers    int `json:"similar_customers"`
	BasicTopProducts    int `json:"basic_top_products"`
	BasicTopCustomers   int `json:"basic_top_customers"`
	BasicPerCustomer    int `json:"basic_per_customer"`
	DiscoveryCustomers  int `json:"discovery_customers"`
	DiscoveryCategories int `json:"discovery_categories"`
}

func DefaultOptions() Options {
	return Options{
		IncreaseRatio:      1.5,
		DecreaseRatio:      0.5,
		LowSalesQuantile:   0.3,
		MaxMarketingAlerts: 3,

		MaxCustomers:        25,
		CategoryPreference:  5,
		ShopPopularity:      3,
		CategoryExpansion:   3,
		Collaborative:       2,
		Trending:            2,
		SimilarCustomers:    5,
		BasicTopProducts:    15,
		BasicTopCustomers:   10,
		BasicPerCustomer:    3,
		DiscoveryCustomers:  5,
		DiscoveryCategories: 3,
	}
}
