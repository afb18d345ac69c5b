package datasettest

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"pasale-analytics/internal/dataset"
)

// WriteSources writes the fixture tables as the four CSV sources under dir.
func WriteSources(tb testing.TB, dir string) dataset.Sources {
	tb.Helper()

	ftoa := func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

	tx := [][]string{{"transaction_id", "customer_id", "product_id", "shop_id", "quantity", "unit_price", "total_amount", "transaction_time"}}
	for _, t := range Transactions() {
		tx = append(tx, []string{
			t.TransactionID, t.CustomerID, t.ProductID, t.ShopID,
			strconv.Itoa(t.Quantity), ftoa(t.UnitPrice), ftoa(t.TotalAmount),
			t.TransactionTime.Format(time.RFC3339),
		})
	}

	products := [][]string{{"product_id", "product_name", "category", "brand", "standard_price"}}
	for _, p := range Products() {
		products = append(products, []string{p.ProductID, p.ProductName, p.Category, p.Brand, ftoa(p.StandardPrice)})
	}

	shops := [][]string{{"shop_id", "shop_name", "city", "latitude", "longitude"}}
	for _, s := range Shops() {
		shops = append(shops, []string{s.ShopID, s.ShopName, s.City, ftoa(s.Latitude), ftoa(s.Longitude)})
	}

	customers := [][]string{{"customer_id", "gender", "age", "city", "preferred_categories", "avg_monthly_spending", "visits_per_month"}}
	for _, c := range Customers() {
		prefs, err := json.Marshal(c.PreferredCategories)
		if err != nil {
			tb.Fatal(err)
		}
		if c.PreferredCategories == nil {
			prefs = nil
		}
		customers = append(customers, []string{
			c.CustomerID, c.Gender, strconv.Itoa(c.Age), c.City, string(prefs),
			ftoa(c.AvgMonthlySpending), ftoa(c.VisitsPerMonth),
		})
	}

	src := dataset.Sources{
		Transactions: filepath.Join(dir, "transactions.csv"),
		Products:     filepath.Join(dir, "products.csv"),
		Shops:        filepath.Join(dir, "shops.csv"),
		Customers:    filepath.Join(dir, "customers.csv"),
	}
	writeCSV(tb, src.Transactions, tx)
	writeCSV(tb, src.Products, products)
	writeCSV(tb, src.Shops, shops)
	writeCSV(tb, src.Customers, customers)
	return src
}

func writeCSV(tb testing.TB, path string, records [][]string) {
	tb.Helper()
	f, err := os.Create(path)
	if err != nil {
		tb.Fatal(err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		tb.Fatal(err)
	}
}
