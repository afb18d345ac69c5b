package models

import "time"

type Transaction struct {
	TransactionID   string
	CustomerID      string
	ProductID       string
	ShopID          string
	Quantity        int
	UnitPrice       float64
	TotalAmount     float64
	TransactionTime time.Time
}

type Product struct {
	ProductID     string  `json:"product_id"`
	ProductName   string  `json:"product_name"`
	Category      string  `json:"category"`
	Brand         string  `json:"brand"`
	StandardPrice float64 `json:"standard_price"`
}

type Shop struct {
	ShopID    string  `json:"shop_id"`
	ShopName  string  `json:"shop_name"`
	City      string  `json:"city"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Customer struct {
	CustomerID          string   `json:"customer_id"`
	Gender              string   `json:"gender"`
	Age                 int      `json:"age"`
	City                string   `json:"city"`
	PreferredCategories []string `json:"preferred_categories"`
	AvgMonthlySpending  float64  `json:"avg_monthly_spending"`
	VisitsPerMonth      float64  `json:"visits_per_month"`
}

// Record is one transaction joined with its product, shop and customer.
// The Has* flags are false when the foreign key had no match.
type Record struct {
	Transaction

	ProductName   string
	Category      string
	Brand         string
	StandardPrice float64
	HasProduct    bool

	ShopName string
	ShopCity string
	HasShop  bool

	Gender              string
	Age                 int
	CustomerCity        string
	PreferredCategories []string
	AvgMonthlySpending  float64
	VisitsPerMonth      float64
	HasCustomer         bool
}
