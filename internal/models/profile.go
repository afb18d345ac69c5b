package models

import "time"

type CustomerProfile struct {
	CustomerID       string    `json:"customer_id"`
	TotalSpend       float64   `json:"total_spend"`
	AvgTransaction   float64   `json:"avg_transaction"`
	TransactionCount int       `json:"transaction_count"`
	TotalQuantity    int       `json:"total_quantity"`
	UniqueProducts   int       `json:"unique_products"`
	UniqueShops      int       `json:"unique_shops"`
	FirstSeen        time.Time `json:"first_seen"`
	LastSeen         time.Time `json:"last_seen"`
	TenureDays       int       `json:"tenure_days"`
	AvgBasketSize    float64   `json:"avg_basket_size"`

	Gender              string   `json:"gender"`
	Age                 int      `json:"age"`
	City                string   `json:"city"`
	PreferredCategories []string `json:"preferred_categories"`
	AvgMonthlySpending  float64  `json:"avg_monthly_spending"`
	VisitsPerMonth      float64  `json:"visits_per_month"`

	Segment     int    `json:"segment"`
	SegmentName string `json:"segment_name,omitempty"`
}

type PurchaseSummary struct {
	CustomerID          string  `json:"customer_id"`
	TotalSpending       float64 `json:"total_spending"`
	TotalTransactions   int     `json:"total_transactions"`
	AvgTransactionValue float64 `json:"avg_transaction_value"`
	TotalItems          int     `json:"total_items"`
	FavoriteCategory    string  `json:"favorite_category"`
	UniqueShops         int     `json:"unique_shops"`
}

type CustomerInsights struct {
	TotalCustomers    int    `json:"total_customers"`
	TotalTransactions int    `json:"total_transactions"`
	TotalProducts     int    `json:"total_products"`
	SampleCustomer    string `json:"sample_customer,omitempty"`
}
