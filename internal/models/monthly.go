package models

import (
	"fmt"
	"time"
)

// YearMonth is a calendar month, the unit of analysis for forecasting.
type YearMonth struct {
	Year  int
	Month time.Month
}

func MonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

func (ym YearMonth) Time() time.Time {
	return time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, time.UTC)
}

func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

func (ym YearMonth) Compare(other YearMonth) int {
	switch {
	case ym.Before(other):
		return -1
	case other.Before(ym):
		return 1
	default:
		return 0
	}
}

func (ym YearMonth) MarshalText() ([]byte, error) {
	return []byte(ym.String()), nil
}

func (ym *YearMonth) UnmarshalText(text []byte) error {
	t, err := time.Parse("2006-01", string(text))
	if err != nil {
		return fmt.Errorf("parse year-month %q: %w", text, err)
	}
	*ym = MonthOf(t)
	return nil
}

// MonthlyRow is one product-shop-month slot with at least one transaction.
type MonthlyRow struct {
	ProductID       string    `json:"product_id"`
	ShopID          string    `json:"shop_id"`
	Month           YearMonth `json:"year_month"`
	MonthlyQuantity int       `json:"monthly_quantity"`
	MonthlyRevenue  float64   `json:"monthly_revenue"`
	AvgPrice        float64   `json:"avg_price"`

	ProductName   string  `json:"product_name"`
	Category      string  `json:"category"`
	Brand         string  `json:"brand"`
	StandardPrice float64 `json:"standard_price"`
	ShopName      string  `json:"shop_name"`
	ShopCity      string  `json:"shop_city"`

	// Metrics of the first customer observed in the slot, not an average.
	CustomerID              string  `json:"customer_id"`
	CustomerMonthlyQuantity int     `json:"customer_monthly_quantity"`
	CustomerMonthlySpend    float64 `json:"customer_monthly_spend"`
	UniqueProductsPurchased int     `json:"unique_products_purchased"`
}

type FeatureRow struct {
	MonthlyRow

	LastMonthQty    float64 `json:"last_month_qty"`
	Last2MonthsQty  float64 `json:"last_2_months_qty"`
	Last3MonthsQty  float64 `json:"last_3_months_qty"`
	AvgLast3Months  float64 `json:"avg_last_3_months"`
	Trend           float64 `json:"trend"`
	PriceDifference float64 `json:"price_difference"`
	IsHolidayMonth  bool    `json:"is_holiday_month"`
	IsSummer        bool    `json:"is_summer"`
}

type Combination struct {
	ProductID     string  `json:"product_id"`
	ShopID        string  `json:"shop_id"`
	DataPoints    int     `json:"data_points"`
	AvgMonthlyQty float64 `json:"avg_monthly_qty"`
	TotalQty      int     `json:"total_qty"`
	ProductName   string  `json:"product_name"`
	ShopCity      string  `json:"shop_city"`
}

type HistoryPoint struct {
	Month           YearMonth `json:"year_month"`
	MonthlyQuantity int       `json:"monthly_quantity"`
}
