package dataset

import (
	"pasale-analytics/internal/models"
)

const lagDepth = 3

// BuildFeatures derives lag, trend, price and seasonal features for every
// product-shop series. Lags never cross series boundaries, and a row is kept
// only once all three lags exist.
//
// monthly must be sorted by product, shop and month, as AggregateMonthly returns it.
func BuildFeatures(monthly []models.MonthlyRow, cal Calendar) []models.FeatureRow {
	features := make([]models.FeatureRow, 0, len(monthly))

	start := 0
	for start < len(monthly) {
		end := start + 1
		for end < len(monthly) &&
			monthly[end].ProductID == monthly[start].ProductID &&
			monthly[end].ShopID == monthly[start].ShopID {
			end++
		}

		series := monthly[start:end]
		for i := lagDepth; i < len(series); i++ {
			row := series[i]
			lag1 := float64(series[i-1].MonthlyQuantity)
			lag2 := float64(series[i-2].MonthlyQuantity)
			lag3 := float64(series[i-3].MonthlyQuantity)

			features = append(features, models.FeatureRow{
				MonthlyRow:      row,
				LastMonthQty:    lag1,
				Last2MonthsQty:  lag2,
				Last3MonthsQty:  lag3,
				AvgLast3Months:  (lag1 + lag2 + lag3) / 3,
				Trend:           lag1 - lag2,
				PriceDifference: row.AvgPrice - row.StandardPrice,
				IsHolidayMonth:  cal.IsHoliday(row.Month.Month),
				IsSummer:        cal.IsSummer(row.Month.Month),
			})
		}
		start = end
	}
	return features
}
