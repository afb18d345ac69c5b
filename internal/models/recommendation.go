package models

type Confidence string

const (
	ConfidenceHigh    Confidence = "high"
	ConfidenceMedium  Confidence = "medium"
	ConfidenceLow     Confidence = "low"
	ConfidenceVeryLow Confidence = "very_low"
)

type StockRecommendation struct {
	ShopID      string  `json:"shop_id"`
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Category    string  `json:"category"`
	Type        string  `json:"type"`
	CurrentAvg  float64 `json:"current_avg"`
	Predicted   float64 `json:"predicted"`
	Reason      string  `json:"reason"`
	Priority    string  `json:"priority,omitempty"`
}

type CustomerRecommendation struct {
	CustomerID         string     `json:"customer_id"`
	ProductID          string     `json:"product_id"`
	ProductName        string     `json:"product_name"`
	Category           string     `json:"category"`
	RecommendedShop    string     `json:"recommended_shop"`
	Reason             string     `json:"reason"`
	Confidence         Confidence `json:"confidence"`
	RecommendationType string     `json:"recommendation_type"`
}

type MonthTotal struct {
	Month    YearMonth `json:"year_month"`
	Quantity int       `json:"monthly_quantity"`
	Revenue  float64   `json:"monthly_revenue"`
}

type SeasonalPoint struct {
	Month       int     `json:"month"`
	AvgQuantity float64 `json:"avg_monthly_quantity"`
}

type CategoryTotal struct {
	Category string `json:"category"`
	Quantity int    `json:"monthly_quantity"`
}

type CityRevenue struct {
	City    string  `json:"city"`
	Revenue float64 `json:"monthly_revenue"`
}

type CategoryCityCompetition struct {
	Category       string  `json:"category"`
	City           string  `json:"city"`
	UniqueProducts int     `json:"unique_products"`
	Revenue        float64 `json:"monthly_revenue"`
}

type ProductOwnerRecommendation struct {
	ProductID          string                    `json:"product_id"`
	ProductName        string                    `json:"product_name"`
	Category           string                    `json:"category"`
	Type               string                    `json:"type"`
	BestCity           string                    `json:"best_performing_city"`
	BestCityAvgSales   float64                   `json:"best_city_avg_sales"`
	WorstCity          string                    `json:"worst_performing_city"`
	WorstCityAvgSales  float64                   `json:"worst_city_avg_sales"`
	CompetitorCount    int                       `json:"competitor_count"`
	CompetitorsInCity  int                       `json:"competitors_in_best_city"`
	TopCompetitorSlots []CategoryCityCompetition `json:"top_competitors"`
	Recommendations    []string                  `json:"recommendations"`
}
