package dataset

import (
	"log/slog"

	"pasale-analytics/internal/models"
)

// Merge left-joins transactions with products, shops and customers.
// Orphaned foreign keys keep the row and are counted in the report.
func Merge(t *Tables, logger *slog.Logger) []models.Record {
	if logger == nil {
		logger = slog.Default()
	}

	products := make(map[string]models.Product, len(t.Products))
	for _, p := range t.Products {
		if _, ok := products[p.ProductID]; !ok {
			products[p.ProductID] = p
		}
	}
	shops := make(map[string]models.Shop, len(t.Shops))
	for _, s := range t.Shops {
		if _, ok := shops[s.ShopID]; !ok {
			shops[s.ShopID] = s
		}
	}
	customers := make(map[string]models.Customer, len(t.Customers))
	for _, c := range t.Customers {
		if _, ok := customers[c.CustomerID]; !ok {
			customers[c.CustomerID] = c
		}
	}

	records := make([]models.Record, 0, len(t.Transactions))
	for _, tx := range t.Transactions {
		rec := models.Record{Transaction: tx}

		if p, ok := products[tx.ProductID]; ok {
			rec.ProductName = p.ProductName
			rec.Category = p.Category
			rec.Brand = p.Brand
			rec.StandardPrice = p.StandardPrice
			rec.HasProduct = true
		} else {
			t.Report.MissingProducts++
		}

		if s, ok := shops[tx.ShopID]; ok {
			rec.ShopName = s.ShopName
			rec.ShopCity = s.City
			rec.HasShop = true
		} else {
			t.Report.MissingShops++
		}

		if c, ok := customers[tx.CustomerID]; ok {
			rec.Gender = c.Gender
			rec.Age = c.Age
			rec.CustomerCity = c.City
			rec.PreferredCategories = c.PreferredCategories
			rec.AvgMonthlySpending = c.AvgMonthlySpending
			rec.VisitsPerMonth = c.VisitsPerMonth
			rec.HasCustomer = true
		} else {
			t.Report.MissingCustomers++
		}

		records = append(records, rec)
	}

	if t.Report.MissingProducts > 0 {
		logger.Warn("transactions have missing product info", "rows", t.Report.MissingProducts)
	}
	if t.Report.MissingShops > 0 {
		logger.Warn("transactions have missing shop info", "rows", t.Report.MissingShops)
	}
	if t.Report.MissingCustomers > 0 {
		logger.Warn("transactions have missing customer info", "rows", t.Report.MissingCustomers)
	}
	return records
}
